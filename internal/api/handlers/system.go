package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/Sanyam33/GSC-Verifier/internal/logging"
	"github.com/Sanyam33/GSC-Verifier/internal/version"
)

const healthTimeout = 2 * time.Second

// RootHandler greets callers of the bare service URL.
func RootHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"message": "Welcome to the GSC API",
			"version": version.Version,
		})
	}
}

// VersionHandler returns build metadata.
func VersionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, version.Get())
	}
}

// HealthHandler reports whether the database answers a ping.
func HealthHandler(ping func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		if err := ping(ctx); err != nil {
			logging.Printf(r.Context(), "⚠️ Health check failed: %v", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "database": "unreachable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "database": "ok"})
	}
}
