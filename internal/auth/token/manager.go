// Package token mints access tokens for verified sites from their stored
// refresh tokens.
package token

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Sanyam33/GSC-Verifier/internal/auth/google"
	"github.com/Sanyam33/GSC-Verifier/internal/db/models"
	"github.com/Sanyam33/GSC-Verifier/internal/logging"
)

// Refresher exchanges a refresh token for a new access token.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*google.Tokens, error)
}

// TokenWriter persists refreshed credentials for a record.
type TokenWriter interface {
	UpdateTokens(ctx context.Context, id, accessToken, refreshToken string) error
}

// Manager handles the refresh side of a record's token lifecycle.
type Manager struct {
	refresher Refresher
	store     TokenWriter
}

// NewManager creates a new token manager
func NewManager(refresher Refresher, store TokenWriter) *Manager {
	return &Manager{refresher: refresher, store: store}
}

// AccessToken refreshes the record's access token and writes it back. A
// failed write is logged but does not fail the caller: the minted token is
// still valid for the request at hand.
func (m *Manager) AccessToken(ctx context.Context, record *models.GSCVerification) (string, error) {
	newToken, err := m.refresher.Refresh(ctx, record.RefreshToken)
	if err != nil {
		if isPermanentRefreshError(err) {
			logging.Printf(ctx, "🔒 Refresh token for %s (record %s) was revoked. Site must be re-verified.", record.SiteURL, record.ID)
		} else {
			logging.Printf(ctx, "❌ Refresh token failed for %s (record %s): %v", record.SiteURL, record.ID, err)
		}
		return "", fmt.Errorf("refresh access token: %w", err)
	}

	// Persist rotated refresh token if provided (RFC 6749 compliance)
	rotated := ""
	if newToken.RefreshToken != "" && newToken.RefreshToken != record.RefreshToken {
		logging.Printf(ctx, "🔄 Rotating refresh token for: %s", record.SiteURL)
		rotated = newToken.RefreshToken
	}
	if err := m.store.UpdateTokens(ctx, record.ID, newToken.AccessToken, rotated); err != nil {
		logging.Printf(ctx, "⚠️ Failed to save refreshed token for record %s: %v", record.ID, err)
	} else {
		record.AccessToken = newToken.AccessToken
		if rotated != "" {
			record.RefreshToken = rotated
		}
	}

	logging.Printf(ctx, "✅ Refreshed token for: %s (token: %s, expires: %s)", record.SiteURL, maskToken(newToken.AccessToken), expiryString(newToken.Expiry))
	return newToken.AccessToken, nil
}

func expiryString(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.Format(time.RFC3339)
}

func maskToken(t string) string {
	if len(t) < 20 {
		return "***"
	}
	return "..." + t[len(t)-6:]
}

func isPermanentRefreshError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	permanentMarkers := []string{
		"invalid_grant",
		"invalid_client",
		"unauthorized_client",
		"token has been expired or revoked",
		"revoked",
		"no refresh token stored",
	}
	for _, marker := range permanentMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
