package verification

import (
	"context"
	"encoding/json"

	"github.com/Sanyam33/GSC-Verifier/internal/auth/google"
	"github.com/Sanyam33/GSC-Verifier/internal/db/models"
	"github.com/Sanyam33/GSC-Verifier/internal/upstream"
)

// Callback outcome statuses.
const (
	StatusSuccess    = "success"
	StatusUnverified = "unverified"
	StatusFailed     = "failed"
)

// Store is the persistence the workflow needs.
type Store interface {
	InitiatePending(ctx context.Context, siteKey string) (*models.GSCVerification, int64, error)
	FindByID(ctx context.Context, id string) (*models.GSCVerification, error)
	FindLatestBySite(ctx context.Context, site string) (*models.GSCVerification, error)
	FindVerifiedBySite(ctx context.Context, site string) (*models.GSCVerification, error)
	Update(ctx context.Context, record *models.GSCVerification) error
}

// Authorizer runs the OAuth side of the flow.
type Authorizer interface {
	AuthCodeURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*google.Tokens, error)
	FetchIdentity(ctx context.Context, tokens *google.Tokens) (google.Identity, error)
}

// OwnershipResolver checks a site against the consenting user's site list.
type OwnershipResolver interface {
	Resolve(ctx context.Context, accessToken, requestedKey string) (*google.Ownership, error)
}

// TokenSource mints an access token for a verified record.
type TokenSource interface {
	AccessToken(ctx context.Context, record *models.GSCVerification) (string, error)
}

// Analytics runs search analytics queries.
type Analytics interface {
	SearchAnalytics(ctx context.Context, accessToken, siteURL string, q upstream.Query) (json.RawMessage, error)
}

// PermissionLevel renders an absent level as JSON null.
type PermissionLevel string

func (l PermissionLevel) MarshalJSON() ([]byte, error) {
	if l == "" {
		return []byte("null"), nil
	}
	return json.Marshal(string(l))
}

// InitiateResult is returned to the platform that asked for verification.
type InitiateResult struct {
	AuthURL string `json:"auth_url"`
	ID      string `json:"id"`
}

// CallbackParams are the query parameters Google sends to the redirect URI.
type CallbackParams struct {
	Code  string
	State string
	Error string
}

// CallbackResult is the outcome of a callback. Failed results carry the
// reason and, for provider failures, the underlying error in Cause.
type CallbackResult struct {
	Status          string          `json:"status"`
	Email           string          `json:"email,omitempty"`
	Site            string          `json:"site"`
	Verified        bool            `json:"verified"`
	PermissionLevel PermissionLevel `json:"permission_level"`

	Reason string `json:"-"`
	Cause  error  `json:"-"`
}

// Result is the stored outcome for a site.
type Result struct {
	SiteURL         string          `json:"site_url"`
	Verified        bool            `json:"verified"`
	PermissionLevel PermissionLevel `json:"permission_level"`
}

// MetricsQuery asks for search analytics of a verified site.
type MetricsQuery struct {
	SiteURL    string
	StartDate  string
	EndDate    string
	Dimensions []string
	SearchType string
	RowLimit   int
}
