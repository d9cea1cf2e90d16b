package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Search Console permission levels that count as ownership.
const (
	PermissionSiteOwner    = "siteOwner"
	PermissionSiteFullUser = "siteFullUser"
)

// GSCVerification is one attempt to prove ownership of a site in Search Console.
// ID doubles as the OAuth state parameter for the attempt.
type GSCVerification struct {
	ID              string    `gorm:"primaryKey;type:uuid" json:"id"`
	SiteURL         string    `gorm:"type:text;not null;index" json:"site_url"`
	GoogleAccountID string    `gorm:"size:255" json:"google_account_id,omitempty"`
	Email           string    `gorm:"size:255" json:"email,omitempty"`
	PermissionLevel string    `gorm:"size:50" json:"permission_level,omitempty"` // siteOwner, siteFullUser, ...
	Verified        bool      `gorm:"not null;default:false" json:"verified"`
	AccessToken     string    `gorm:"type:text" json:"-"`
	RefreshToken    string    `gorm:"type:text" json:"-"`
	CreatedAt       time.Time `gorm:"not null;index" json:"created_at"`
}

// TableName keeps the table name shared with existing deployments.
func (GSCVerification) TableName() string {
	return "gsc_verifications"
}

// BeforeCreate assigns a fresh UUID when the caller did not supply one.
func (v *GSCVerification) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	return nil
}
