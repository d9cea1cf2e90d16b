package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Sanyam33/GSC-Verifier/internal/logging"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestAPIKeyAuth(t *testing.T) {
	tests := []struct {
		name   string
		key    string
		header string
		value  string
		want   int
	}{
		{name: "disabled", key: "", want: http.StatusOK},
		{name: "bearer", key: "secret", header: "Authorization", value: "Bearer secret", want: http.StatusOK},
		{name: "x-api-key", key: "secret", header: "x-api-key", value: "secret", want: http.StatusOK},
		{name: "wrong bearer", key: "secret", header: "Authorization", value: "Bearer nope", want: http.StatusUnauthorized},
		{name: "basic scheme", key: "secret", header: "Authorization", value: "Basic secret", want: http.StatusUnauthorized},
		{name: "missing", key: "secret", want: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/gsc/metrics", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			rec := httptest.NewRecorder()
			APIKeyAuth(tt.key)(okHandler).ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestRateLimit(t *testing.T) {
	limiter := NewRateLimiter(rate.Limit(1), 2)
	handler := RateLimit(limiter)(okHandler)

	send := func(remote string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/gsc/request-verification", nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 2; i++ {
		if rec := send("10.0.0.1:1234"); rec.Code != http.StatusOK {
			t.Fatalf("request %d within burst rejected: %d", i, rec.Code)
		}
	}
	rec := send("10.0.0.1:5678")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 once the burst is spent (port ignored), got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "1" {
		t.Fatalf("expected Retry-After 1, got %q", rec.Header().Get("Retry-After"))
	}
	if rec := send("10.0.0.2:1234"); rec.Code != http.StatusOK {
		t.Fatalf("other clients have their own budget, got %d", rec.Code)
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	limiter := NewRateLimiter(rate.Limit(1), 1)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	limiter.GetLimiter("old")
	now = now.Add(idleLimiterTTL + time.Minute)
	limiter.GetLimiter("fresh")

	if removed := limiter.Cleanup(); removed != 1 {
		t.Fatalf("expected 1 idle limiter removed, got %d", removed)
	}
	if _, ok := limiter.limiters["fresh"]; !ok {
		t.Fatalf("recently used limiter must be kept")
	}
}

func TestRequestContext(t *testing.T) {
	var seen string
	handler := chimiddleware.RequestID(RequestContext(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logging.GetRequestID(r.Context())
	})))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "client-id")
	handler.ServeHTTP(rec, req)

	if seen != "client-id" {
		t.Fatalf("expected chi request id in logging context, got %q", seen)
	}
	if rec.Header().Get(RequestIDHeader) != "client-id" {
		t.Fatalf("expected request id echoed, got %q", rec.Header().Get(RequestIDHeader))
	}

	// Without chi's middleware a fresh id is generated.
	rec = httptest.NewRecorder()
	RequestContext(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logging.GetRequestID(r.Context())
	})).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if len(seen) != 8 {
		t.Fatalf("expected generated 8-char id, got %q", seen)
	}
}
