// Package verification drives a site through Search Console verification:
// initiate, OAuth callback, result lookup and metrics queries.
//
// A record moves PENDING -> VERIFIED or DENIED once per callback. A PENDING
// record that never completes is swept (EXPIRED) after db.PendingRetention.
package verification

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"time"

	"github.com/Sanyam33/GSC-Verifier/internal/auth/google"
	"github.com/Sanyam33/GSC-Verifier/internal/db"
	"github.com/Sanyam33/GSC-Verifier/internal/db/models"
	"github.com/Sanyam33/GSC-Verifier/internal/logging"
	"github.com/Sanyam33/GSC-Verifier/internal/providers/catalog"
	"github.com/Sanyam33/GSC-Verifier/internal/upstream"
	"github.com/Sanyam33/GSC-Verifier/internal/util"
)

const (
	// MaxRowLimit is the largest row_limit the analytics API accepts.
	MaxRowLimit = 25000
	// maxSiteURLLength matches the longest URL browsers reliably handle.
	maxSiteURLLength = 2083

	dateLayout     = "2006-01-02"
	queryDimension = "query"
)

// Deps are the collaborators of a Service.
type Deps struct {
	Store     Store
	OAuth     Authorizer
	Resolver  OwnershipResolver
	Tokens    TokenSource
	Analytics Analytics
	Profile   catalog.Profile
}

// Service is the verification workflow. It keeps no per-request state.
type Service struct {
	store     Store
	oauth     Authorizer
	resolver  OwnershipResolver
	tokens    TokenSource
	analytics Analytics
	profile   catalog.Profile
}

// NewService wires a workflow from its collaborators.
func NewService(deps Deps) *Service {
	return &Service{
		store:     deps.Store,
		oauth:     deps.OAuth,
		resolver:  deps.Resolver,
		tokens:    deps.Tokens,
		analytics: deps.Analytics,
		profile:   deps.Profile,
	}
}

// Initiate validates siteURL, creates a pending record and returns the consent
// URL whose state is the record id.
func (s *Service) Initiate(ctx context.Context, siteURL string) (*InitiateResult, error) {
	if err := validateSiteURL(siteURL); err != nil {
		return nil, err
	}
	key := util.NormalizeSite(siteURL)

	record, swept, err := s.store.InitiatePending(ctx, key)
	if err != nil {
		logging.Printf(ctx, "❌ Failed to create pending verification for %s: %v", key, err)
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if swept > 0 {
		logging.Printf(ctx, "🧹 Swept %d expired pending verifications", swept)
	}
	logging.Printf(ctx, "🔑 Verification %s started for %s", record.ID, key)

	return &InitiateResult{
		AuthURL: s.oauth.AuthCodeURL(record.ID),
		ID:      record.ID,
	}, nil
}

// Callback consumes Google's redirect for the record named by params.State.
func (s *Service) Callback(ctx context.Context, params CallbackParams) (*CallbackResult, error) {
	if params.State == "" {
		return nil, fmt.Errorf("%w: missing state", ErrInvalidRequest)
	}

	record, err := s.findByID(ctx, params.State)
	if err != nil {
		return nil, err
	}

	if params.Error != "" {
		record.Verified = false
		if err := s.update(ctx, record); err != nil {
			return nil, err
		}
		logging.Printf(ctx, "🚫 Consent denied for verification %s: %s", record.ID, params.Error)
		return failed(params.Error, nil), nil
	}

	if params.Code == "" {
		return nil, fmt.Errorf("%w: missing code", ErrInvalidRequest)
	}

	tokens, err := s.oauth.ExchangeCode(ctx, params.Code)
	if err != nil {
		logging.Printf(ctx, "❌ Token exchange failed for verification %s: %v", record.ID, err)
		return failed("Token exchange failed", err), nil
	}

	identity, err := s.oauth.FetchIdentity(ctx, tokens)
	if err != nil {
		logging.Printf(ctx, "⚠️ Identity lookup incomplete for verification %s: %v", record.ID, err)
	}

	ownership, err := s.resolver.Resolve(ctx, tokens.AccessToken, record.SiteURL)
	if err != nil {
		logging.Printf(ctx, "❌ Site list lookup failed for verification %s: %v", record.ID, err)
		return failed("Site list lookup failed", err), nil
	}

	record.Verified = ownership.Verified
	record.PermissionLevel = ownership.PermissionLevel
	record.AccessToken = tokens.AccessToken
	if tokens.RefreshToken != "" {
		record.RefreshToken = tokens.RefreshToken
	}
	if ownership.Verified {
		record.SiteURL = ownership.ExactSiteURL
	}
	if identity.AccountID != "" {
		record.GoogleAccountID = identity.AccountID
	}
	if identity.Email != "" {
		record.Email = identity.Email
	}
	if err := s.update(ctx, record); err != nil {
		return nil, err
	}

	status := StatusUnverified
	if record.Verified {
		status = StatusSuccess
	}
	logging.Printf(ctx, "✅ Verification %s for %s: %s (permission: %q)", record.ID, record.SiteURL, status, record.PermissionLevel)

	return &CallbackResult{
		Status:          status,
		Email:           record.Email,
		Site:            record.SiteURL,
		Verified:        record.Verified,
		PermissionLevel: PermissionLevel(record.PermissionLevel),
	}, nil
}

// VerifyResult returns the newest record for siteURL in raw or canonical form.
func (s *Service) VerifyResult(ctx context.Context, siteURL string) (*Result, error) {
	if siteURL == "" {
		return nil, validationErr("site_url is required")
	}
	record, err := s.store.FindLatestBySite(ctx, siteURL)
	if err != nil {
		return nil, storeErr(err)
	}
	return &Result{
		SiteURL:         record.SiteURL,
		Verified:        record.Verified,
		PermissionLevel: PermissionLevel(record.PermissionLevel),
	}, nil
}

// Metrics validates q, mints an access token for the site's verified record
// and returns the analytics response unchanged.
func (s *Service) Metrics(ctx context.Context, q MetricsQuery) ([]byte, error) {
	if err := validateMetricsQuery(q); err != nil {
		return nil, err
	}

	record, err := s.store.FindVerifiedBySite(ctx, q.SiteURL)
	if err != nil {
		return nil, storeErr(err)
	}

	accessToken, err := s.tokens.AccessToken(ctx, record)
	if err != nil {
		return nil, err
	}

	body, err := s.analytics.SearchAnalytics(ctx, accessToken, record.SiteURL, upstream.Query{
		StartDate:  q.StartDate,
		EndDate:    q.EndDate,
		Dimensions: s.dimensionsFor(q.SearchType, q.Dimensions),
		SearchType: q.SearchType,
		RowLimit:   q.RowLimit,
	})
	if err != nil {
		var apiErr *google.APIError
		if errors.As(err, &apiErr) {
			logging.Printf(ctx, "⚠️ Analytics query for %s rejected (%d): %s", record.SiteURL, apiErr.StatusCode, util.TruncateBytes(apiErr.Body))
		} else {
			logging.Printf(ctx, "❌ Analytics query for %s failed: %v", record.SiteURL, err)
		}
		return nil, err
	}
	return body, nil
}

// dimensionsFor drops the query dimension for search types that lack it.
func (s *Service) dimensionsFor(searchType string, dimensions []string) []string {
	if s.profile.SupportsQueryDimension(searchType) {
		return dimensions
	}
	return slices.DeleteFunc(slices.Clone(dimensions), func(d string) bool { return d == queryDimension })
}

func (s *Service) findByID(ctx context.Context, id string) (*models.GSCVerification, error) {
	record, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err)
	}
	return record, nil
}

func (s *Service) update(ctx context.Context, record *models.GSCVerification) error {
	if err := s.store.Update(ctx, record); err != nil {
		logging.Printf(ctx, "❌ Failed to update verification %s: %v", record.ID, err)
		return storeErr(err)
	}
	return nil
}

func failed(reason string, cause error) *CallbackResult {
	return &CallbackResult{Status: StatusFailed, Reason: reason, Cause: cause}
}

// storeErr separates not-found from store failures.
func storeErr(err error) error {
	if errors.Is(err, db.ErrNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%w: %v", ErrPersistence, err)
}

func validateSiteURL(raw string) error {
	if raw == "" {
		return validationErr("site_url is required")
	}
	if len(raw) > maxSiteURLLength {
		return validationErr("site_url is longer than %d characters", maxSiteURLLength)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return validationErr("site_url is not a valid URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return validationErr("site_url must use http or https")
	}
	if u.Hostname() == "" {
		return validationErr("site_url must include a host")
	}
	return nil
}

func validateMetricsQuery(q MetricsQuery) error {
	if q.SiteURL == "" {
		return validationErr("site_url is required")
	}
	if err := validateDate("start_date", q.StartDate); err != nil {
		return err
	}
	if err := validateDate("end_date", q.EndDate); err != nil {
		return err
	}
	// ISO dates order lexicographically.
	if q.StartDate > q.EndDate {
		return ErrInvalidDateRange
	}
	if len(q.Dimensions) == 0 {
		return validationErr("at least one dimension is required")
	}
	if slices.Contains(q.Dimensions, "") {
		return validationErr("dimensions must not be empty")
	}
	if q.SearchType == "" {
		return validationErr("search_type is required")
	}
	if q.RowLimit < 1 || q.RowLimit > MaxRowLimit {
		return validationErr("row_limit must be between 1 and %d", MaxRowLimit)
	}
	return nil
}

func validateDate(field, value string) error {
	if len(value) != len(dateLayout) {
		return validationErr("%s must be YYYY-MM-DD", field)
	}
	if _, err := time.Parse(dateLayout, value); err != nil {
		return validationErr("%s must be YYYY-MM-DD", field)
	}
	return nil
}
