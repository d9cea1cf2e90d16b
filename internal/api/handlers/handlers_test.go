package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Sanyam33/GSC-Verifier/internal/auth/google"
	"github.com/Sanyam33/GSC-Verifier/internal/verification"
)

type fakeVerifier struct {
	initiate     func(siteURL string) (*verification.InitiateResult, error)
	callback     func(p verification.CallbackParams) (*verification.CallbackResult, error)
	verifyResult func(siteURL string) (*verification.Result, error)
	metrics      func(q verification.MetricsQuery) ([]byte, error)
}

func (f *fakeVerifier) Initiate(_ context.Context, siteURL string) (*verification.InitiateResult, error) {
	return f.initiate(siteURL)
}

func (f *fakeVerifier) Callback(_ context.Context, p verification.CallbackParams) (*verification.CallbackResult, error) {
	return f.callback(p)
}

func (f *fakeVerifier) VerifyResult(_ context.Context, siteURL string) (*verification.Result, error) {
	return f.verifyResult(siteURL)
}

func (f *fakeVerifier) Metrics(_ context.Context, q verification.MetricsQuery) ([]byte, error) {
	return f.metrics(q)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestRequestVerificationHandler(t *testing.T) {
	svc := &fakeVerifier{initiate: func(siteURL string) (*verification.InitiateResult, error) {
		switch siteURL {
		case "https://example.com/":
			return &verification.InitiateResult{AuthURL: "https://accounts.example/auth?state=id-1", ID: "id-1"}, nil
		case "https://down.example/":
			return nil, fmt.Errorf("%w: connection refused", verification.ErrPersistence)
		default:
			return nil, fmt.Errorf("%w: site_url must use http or https", verification.ErrValidation)
		}
	}}

	tests := []struct {
		name   string
		body   string
		status int
		detail string
	}{
		{name: "created", body: `{"site_url":"https://example.com/"}`, status: http.StatusCreated},
		{name: "invalid url", body: `{"site_url":"example.com"}`, status: http.StatusUnprocessableEntity, detail: "validation failed: site_url must use http or https"},
		{name: "not json", body: `site_url=x`, status: http.StatusUnprocessableEntity},
		{name: "empty body", body: ``, status: http.StatusUnprocessableEntity, detail: "Request body is required"},
		{name: "store down", body: `{"site_url":"https://down.example/"}`, status: http.StatusInternalServerError, detail: "Internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/gsc/request-verification", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			RequestVerificationHandler(svc)(rec, req)

			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d (%s)", tt.status, rec.Code, rec.Body.String())
			}
			out := decodeBody(t, rec)
			if tt.status == http.StatusCreated {
				if out["id"] != "id-1" || out["auth_url"] == "" {
					t.Fatalf("unexpected body %v", out)
				}
				return
			}
			if tt.detail != "" && out["detail"] != tt.detail {
				t.Fatalf("expected detail %q, got %v", tt.detail, out["detail"])
			}
		})
	}
}

func TestCallbackHandler(t *testing.T) {
	svc := &fakeVerifier{callback: func(p verification.CallbackParams) (*verification.CallbackResult, error) {
		switch {
		case p.State == "":
			return nil, fmt.Errorf("%w: missing state", verification.ErrInvalidRequest)
		case p.State == "unknown":
			return nil, verification.ErrNotFound
		case p.Error != "":
			return &verification.CallbackResult{Status: verification.StatusFailed, Reason: p.Error}, nil
		case p.Code == "bad":
			return &verification.CallbackResult{Status: verification.StatusFailed, Reason: "Token exchange failed", Cause: fmt.Errorf("%w: invalid_grant", google.ErrTokenExchange)}, nil
		case p.Code == "slow":
			return &verification.CallbackResult{Status: verification.StatusFailed, Reason: "Token exchange failed", Cause: google.ErrProviderUnavailable}, nil
		case p.Code == "forbidden":
			return &verification.CallbackResult{Status: verification.StatusFailed, Reason: "Site list lookup failed", Cause: &google.APIError{StatusCode: http.StatusForbidden}}, nil
		default:
			return &verification.CallbackResult{
				Status:          verification.StatusSuccess,
				Email:           "owner@example.com",
				Site:            "https://example.com/",
				Verified:        true,
				PermissionLevel: "siteOwner",
			}, nil
		}
	}}

	tests := []struct {
		name   string
		query  string
		status int
		want   map[string]any
	}{
		{name: "success", query: "state=s&code=good", status: http.StatusOK, want: map[string]any{"status": "success", "site": "https://example.com/", "verified": true, "permission_level": "siteOwner", "email": "owner@example.com"}},
		{name: "denied", query: "state=s&error=access_denied", status: http.StatusOK, want: map[string]any{"status": "failed", "reason": "access_denied"}},
		{name: "rejected code", query: "state=s&code=bad", status: http.StatusUnauthorized, want: map[string]any{"status": "failed", "reason": "Token exchange failed"}},
		{name: "provider down", query: "state=s&code=slow", status: http.StatusServiceUnavailable, want: map[string]any{"status": "failed"}},
		{name: "provider rejected", query: "state=s&code=forbidden", status: http.StatusForbidden, want: map[string]any{"status": "failed", "reason": "Site list lookup failed"}},
		{name: "missing state", query: "code=good", status: http.StatusBadRequest},
		{name: "unknown state", query: "state=unknown&code=good", status: http.StatusNotFound, want: map[string]any{"detail": "Invalid state"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/gsc/callback?"+tt.query, nil)
			rec := httptest.NewRecorder()
			CallbackHandler(svc)(rec, req)

			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d (%s)", tt.status, rec.Code, rec.Body.String())
			}
			out := decodeBody(t, rec)
			for k, v := range tt.want {
				if out[k] != v {
					t.Fatalf("%s: expected %v, got %v (body %s)", k, v, out[k], rec.Body.String())
				}
			}
			if out["status"] == "failed" {
				if _, ok := out["verified"]; ok {
					t.Fatalf("failed result should only carry status and reason: %s", rec.Body.String())
				}
			}
		})
	}
}

func TestVerifyResultHandler(t *testing.T) {
	svc := &fakeVerifier{verifyResult: func(siteURL string) (*verification.Result, error) {
		if siteURL != "https://example.com/" {
			return nil, verification.ErrNotFound
		}
		return &verification.Result{SiteURL: "example.com", Verified: false}, nil
	}}

	rec := httptest.NewRecorder()
	VerifyResultHandler(svc)(rec, httptest.NewRequest(http.MethodGet, "/api/v1/gsc/verify-result?site_url=https%3A%2F%2Fexample.com%2F", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"site_url":"example.com","verified":false,"permission_level":null}` {
		t.Fatalf("unexpected body %s", got)
	}

	rec = httptest.NewRecorder()
	VerifyResultHandler(svc)(rec, httptest.NewRequest(http.MethodGet, "/api/v1/gsc/verify-result?site_url=other.com", nil))
	if rec.Code != http.StatusNotFound || decodeBody(t, rec)["detail"] != "Verification record not found" {
		t.Fatalf("expected 404 detail, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestParseMetricsQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/metrics?site_url=example.com&start_date=2026-01-01&end_date=2026-02-01", nil)
	q, err := parseMetricsQuery(req)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(q.Dimensions) != 1 || q.Dimensions[0] != "query" || q.SearchType != "web" || q.RowLimit != 50 {
		t.Fatalf("defaults not applied: %+v", q)
	}

	req = httptest.NewRequest(http.MethodGet, "/metrics?site_url=example.com&dimensions=page&dimensions[]=country&dimensions=date&search_type=discover&row_limit=25000", nil)
	q, err = parseMetricsQuery(req)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if strings.Join(q.Dimensions, ",") != "page,date,country" || q.SearchType != "discover" || q.RowLimit != 25000 {
		t.Fatalf("unexpected query %+v", q)
	}

	req = httptest.NewRequest(http.MethodGet, "/metrics?row_limit=lots", nil)
	if _, err := parseMetricsQuery(req); err == nil {
		t.Fatalf("expected non-integer row_limit to fail")
	}
}

func TestMetricsHandler(t *testing.T) {
	const reply = `{"rows":[],"responseAggregationType":"byProperty"}`
	providerBody := []byte(`{"error":{"code":429,"message":"Quota exceeded"}}`)
	svc := &fakeVerifier{metrics: func(q verification.MetricsQuery) ([]byte, error) {
		switch q.SiteURL {
		case "ok.com":
			return []byte(reply), nil
		case "inverted.com":
			return nil, verification.ErrInvalidDateRange
		case "bad.com":
			return nil, fmt.Errorf("%w: row_limit must be between 1 and 25000", verification.ErrValidation)
		case "revoked.com":
			return nil, fmt.Errorf("refresh access token: %w", google.ErrTokenRefresh)
		case "quota.com":
			return nil, &google.APIError{StatusCode: http.StatusTooManyRequests, Body: providerBody, RetryAfter: 1500 * time.Millisecond}
		case "down.com":
			return nil, fmt.Errorf("%w: timeout", google.ErrProviderUnavailable)
		default:
			return nil, verification.ErrNotFound
		}
	}}

	tests := []struct {
		site   string
		status int
		body   string
		detail string
	}{
		{site: "ok.com", status: http.StatusOK, body: reply},
		{site: "inverted.com", status: http.StatusBadRequest},
		{site: "bad.com", status: http.StatusUnprocessableEntity},
		{site: "revoked.com", status: http.StatusUnauthorized, detail: "Failed to refresh access token"},
		{site: "quota.com", status: http.StatusTooManyRequests, body: string(providerBody)},
		{site: "down.com", status: http.StatusServiceUnavailable},
		{site: "missing.com", status: http.StatusNotFound, detail: "Verified site not found"},
	}
	for _, tt := range tests {
		t.Run(tt.site, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/gsc/metrics?site_url="+tt.site+"&start_date=2026-01-01&end_date=2026-02-01", nil)
			rec := httptest.NewRecorder()
			MetricsHandler(svc)(rec, req)

			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d (%s)", tt.status, rec.Code, rec.Body.String())
			}
			if tt.body != "" && rec.Body.String() != tt.body {
				t.Fatalf("expected verbatim body %s, got %s", tt.body, rec.Body.String())
			}
			if tt.detail != "" && decodeBody(t, rec)["detail"] != tt.detail {
				t.Fatalf("expected detail %q, got %s", tt.detail, rec.Body.String())
			}
		})
	}

	rec := httptest.NewRecorder()
	MetricsHandler(svc)(rec, httptest.NewRequest(http.MethodGet, "/api/v1/gsc/metrics?site_url=quota.com&start_date=2026-01-01&end_date=2026-02-01", nil))
	if rec.Header().Get("Retry-After") != "2" {
		t.Fatalf("expected Retry-After rounded up to 2, got %q", rec.Header().Get("Retry-After"))
	}

	rec = httptest.NewRecorder()
	MetricsHandler(svc)(rec, httptest.NewRequest(http.MethodGet, "/api/v1/gsc/metrics?site_url=ok.com&row_limit=x", nil))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for malformed row_limit, got %d", rec.Code)
	}
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{verification.ErrInvalidDateRange, http.StatusBadRequest},
		{fmt.Errorf("wrap: %w", verification.ErrValidation), http.StatusUnprocessableEntity},
		{verification.ErrInvalidRequest, http.StatusBadRequest},
		{verification.ErrNotFound, http.StatusNotFound},
		{verification.ErrPersistence, http.StatusInternalServerError},
		{google.ErrTokenExchange, http.StatusUnauthorized},
		{google.ErrTokenRefresh, http.StatusUnauthorized},
		{google.ErrProviderUnavailable, http.StatusServiceUnavailable},
		{&google.APIError{StatusCode: http.StatusForbidden}, http.StatusForbidden},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := errorStatus(tt.err); got != tt.want {
			t.Fatalf("errorStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestSystemHandlers(t *testing.T) {
	rec := httptest.NewRecorder()
	RootHandler()(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if decodeBody(t, rec)["message"] != "Welcome to the GSC API" {
		t.Fatalf("unexpected root body %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	VersionHandler()(rec, httptest.NewRequest(http.MethodGet, "/api/v1/gsc/version", nil))
	if decodeBody(t, rec)["version"] == nil {
		t.Fatalf("expected version field, got %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	HealthHandler(func(context.Context) error { return nil })(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected healthy 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	HealthHandler(func(context.Context) error { return errors.New("connection refused") })(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}
