package google

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Sanyam33/GSC-Verifier/internal/providers/catalog"
	"github.com/Sanyam33/GSC-Verifier/internal/util"
)

// SiteEntry is one property from the Search Console site list.
type SiteEntry struct {
	SiteURL         string `json:"siteUrl"`
	PermissionLevel string `json:"permissionLevel"`
}

// Ownership is the outcome of matching a requested site against the site list.
type Ownership struct {
	Verified        bool
	PermissionLevel string // empty when the site is not in the list
	ExactSiteURL    string // provider's own spelling of the matched site
}

// OwnershipResolver decides whether an access token's owner controls a site.
type OwnershipResolver struct {
	profile    catalog.Profile
	httpClient *http.Client
}

// NewOwnershipResolver creates a resolver using the bounded Google client.
func NewOwnershipResolver(profile catalog.Profile, httpClient *http.Client) *OwnershipResolver {
	if httpClient == nil {
		httpClient = NewHTTPClient(profile)
	}
	return &OwnershipResolver{profile: profile, httpClient: httpClient}
}

// ListSites fetches every property registered by the token's owner. Google
// omits siteEntry entirely when there are none.
func (r *OwnershipResolver) ListSites(ctx context.Context, accessToken string) ([]SiteEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.profile.SitesURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build sites request: %w", err)
	}
	body, err := SendAuthorized(r.httpClient, req, accessToken)
	if err != nil {
		return nil, fmt.Errorf("list sites: %w", err)
	}

	var list struct {
		SiteEntry []SiteEntry `json:"siteEntry"`
	}
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("%w: decode sites response: %v", ErrProviderUnavailable, err)
	}
	return list.SiteEntry, nil
}

// Resolve lists the owner's sites and matches requestedKey against them.
func (r *OwnershipResolver) Resolve(ctx context.Context, accessToken, requestedKey string) (*Ownership, error) {
	entries, err := r.ListSites(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	ownership := MatchSite(entries, requestedKey, r.profile.IsAcceptedPermission)
	return &ownership, nil
}

// MatchSite scans entries in provider order and stops at the first whose
// normalized URL equals requestedKey. When several entries normalize to the
// same key (e.g. http and https properties) the provider's order decides.
func MatchSite(entries []SiteEntry, requestedKey string, accepted func(string) bool) Ownership {
	key := util.NormalizeSite(requestedKey)
	for _, entry := range entries {
		if util.NormalizeSite(entry.SiteURL) != key {
			continue
		}
		return Ownership{
			Verified:        accepted(entry.PermissionLevel),
			PermissionLevel: entry.PermissionLevel,
			ExactSiteURL:    entry.SiteURL,
		}
	}
	return Ownership{}
}
