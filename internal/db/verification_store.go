package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Sanyam33/GSC-Verifier/internal/db/models"
	"github.com/Sanyam33/GSC-Verifier/internal/util"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PendingRetention is how long an unverified record may wait for its callback.
const PendingRetention = 15 * time.Minute

// ErrNotFound is returned when no verification record matches a lookup.
var ErrNotFound = errors.New("verification record not found")

// mutableColumns are the only columns a callback or refresh may change.
var mutableColumns = []string{
	"site_url",
	"google_account_id",
	"email",
	"permission_level",
	"verified",
	"access_token",
	"refresh_token",
}

// VerificationStore persists verification records. Every method is a single
// statement or transaction, so no in-process locking is needed.
type VerificationStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewVerificationStore creates a store over an open database.
func NewVerificationStore(database *gorm.DB) *VerificationStore {
	return &VerificationStore{
		db:  database,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// CreatePending inserts a new unverified record for siteKey.
func (s *VerificationStore) CreatePending(ctx context.Context, siteKey string) (*models.GSCVerification, error) {
	return s.createPending(s.db.WithContext(ctx), siteKey)
}

func (s *VerificationStore) createPending(tx *gorm.DB, siteKey string) (*models.GSCVerification, error) {
	record := &models.GSCVerification{
		ID:        uuid.NewString(),
		SiteURL:   siteKey,
		Verified:  false,
		CreatedAt: s.now(),
	}
	if err := tx.Create(record).Error; err != nil {
		return nil, fmt.Errorf("create pending verification: %w", err)
	}
	return record, nil
}

// SweepExpired deletes unverified records older than PendingRetention and
// reports how many went. Safe to run concurrently.
func (s *VerificationStore) SweepExpired(ctx context.Context) (int64, error) {
	return s.sweepExpired(s.db.WithContext(ctx))
}

func (s *VerificationStore) sweepExpired(tx *gorm.DB) (int64, error) {
	cutoff := s.now().Add(-PendingRetention)
	result := tx.Where("verified = ? AND created_at < ?", false, cutoff).Delete(&models.GSCVerification{})
	if result.Error != nil {
		return 0, fmt.Errorf("sweep expired verifications: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// InitiatePending sweeps stale records and creates a new pending one in a
// single transaction; on failure neither change is kept.
func (s *VerificationStore) InitiatePending(ctx context.Context, siteKey string) (*models.GSCVerification, int64, error) {
	var (
		record *models.GSCVerification
		swept  int64
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if swept, err = s.sweepExpired(tx); err != nil {
			return err
		}
		record, err = s.createPending(tx, siteKey)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return record, swept, nil
}

// FindByID looks a record up by its id (the OAuth state). Ids that are not
// UUIDs cannot exist and report ErrNotFound.
func (s *VerificationStore) FindByID(ctx context.Context, id string) (*models.GSCVerification, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	var record models.GSCVerification
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&record).Error; err != nil {
		return nil, notFoundOr(err, "find verification by id")
	}
	return &record, nil
}

// FindLatestBySite returns the newest record stored under either the raw site
// string or its canonical key.
func (s *VerificationStore) FindLatestBySite(ctx context.Context, site string) (*models.GSCVerification, error) {
	candidates := siteCandidates(site)
	var record models.GSCVerification
	err := s.db.WithContext(ctx).
		Where("site_url IN ?", candidates).
		Order("created_at DESC").
		First(&record).Error
	if err != nil {
		return nil, notFoundOr(err, "find latest verification by site")
	}
	return &record, nil
}

// FindVerifiedBySite returns a verified record whose site_url equals site, or
// failing that one whose site_url contains the canonical key.
//
// The contains fallback can match a different property whose URL embeds this
// key (e.g. "example.com" inside "shop.example.com"); callers accept that risk.
func (s *VerificationStore) FindVerifiedBySite(ctx context.Context, site string) (*models.GSCVerification, error) {
	var record models.GSCVerification
	err := s.db.WithContext(ctx).
		Where("site_url = ? AND verified = ?", site, true).
		Order("created_at DESC").
		First(&record).Error
	if err == nil {
		return &record, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("find verified site: %w", err)
	}

	key := util.NormalizeSite(site)
	if key == "" {
		return nil, ErrNotFound
	}
	err = s.db.WithContext(ctx).
		Where(`site_url LIKE ? ESCAPE '\' AND verified = ?`, "%"+escapeLike(key)+"%", true).
		Order("created_at DESC").
		First(&record).Error
	if err != nil {
		return nil, notFoundOr(err, "find verified site by key")
	}
	return &record, nil
}

// Update writes the mutable columns of record. Concurrent updates on the same
// id resolve last-writer-wins. A record swept in the meantime reports ErrNotFound.
func (s *VerificationStore) Update(ctx context.Context, record *models.GSCVerification) error {
	result := s.db.WithContext(ctx).
		Model(&models.GSCVerification{ID: record.ID}).
		Select(mutableColumns).
		Updates(record)
	if result.Error != nil {
		return fmt.Errorf("update verification %s: %w", record.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateTokens stores a freshly minted access token. The refresh token column
// is only touched when the provider rotated it.
func (s *VerificationStore) UpdateTokens(ctx context.Context, id, accessToken, refreshToken string) error {
	updates := map[string]interface{}{"access_token": accessToken}
	if refreshToken != "" {
		updates["refresh_token"] = refreshToken
	}
	result := s.db.WithContext(ctx).
		Model(&models.GSCVerification{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("update tokens for %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func siteCandidates(site string) []string {
	key := util.NormalizeSite(site)
	if key == site {
		return []string{site}
	}
	return []string{site, key}
}

func notFoundOr(err error, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

// escapeLike neutralizes LIKE wildcards that may appear in a site key.
func escapeLike(s string) string {
	r := make([]rune, 0, len(s))
	for _, c := range s {
		if c == '%' || c == '_' || c == '\\' {
			r = append(r, '\\')
		}
		r = append(r, c)
	}
	return string(r)
}
