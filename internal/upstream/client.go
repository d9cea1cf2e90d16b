// Package upstream calls the Search Console analytics endpoint on behalf of a
// verified site.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/Sanyam33/GSC-Verifier/internal/auth/google"
	"github.com/Sanyam33/GSC-Verifier/internal/logging"
	"github.com/Sanyam33/GSC-Verifier/internal/providers/catalog"
	"github.com/Sanyam33/GSC-Verifier/internal/util"
)

// Query is the body of a searchAnalytics.query call.
type Query struct {
	StartDate  string   `json:"startDate"`
	EndDate    string   `json:"endDate"`
	Dimensions []string `json:"dimensions"`
	SearchType string   `json:"type"`
	RowLimit   int      `json:"rowLimit"`
}

// Client handles communication with the search analytics API.
type Client struct {
	httpClient  *http.Client
	urlTemplate string
}

// NewClient creates a client for the profile's analytics endpoint.
func NewClient(profile catalog.Profile, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = google.NewHTTPClient(profile)
	}
	return &Client{
		httpClient:  httpClient,
		urlTemplate: profile.SearchAnalyticsURL,
	}
}

// QueryURL fills the analytics URL template with siteURL escaped as a single
// path segment (":" and "/" included).
func QueryURL(template, siteURL string) string {
	escaped := strings.ReplaceAll(url.QueryEscape(siteURL), "+", "%20")
	return strings.Replace(template, catalog.SiteURLPlaceholder, escaped, 1)
}

// SearchAnalytics posts q for siteURL and returns the provider's JSON as-is.
// 4xx answers come back as *google.APIError; transport failures and 5xx
// answers wrap google.ErrProviderUnavailable. Nothing is retried.
func (c *Client) SearchAnalytics(ctx context.Context, accessToken, siteURL string, q Query) (json.RawMessage, error) {
	payload, err := json.Marshal(q)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}
	if util.IsVerbose() {
		logging.Printf(ctx, "🔄 [VERBOSE] searchAnalytics query for %s: %s", siteURL, payload)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, QueryURL(c.urlTemplate, siteURL), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := google.SendAuthorized(c.httpClient, req, accessToken)
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: analytics response is not JSON: %s", google.ErrProviderUnavailable, util.TruncateBytes(body))
	}
	return json.RawMessage(body), nil
}
