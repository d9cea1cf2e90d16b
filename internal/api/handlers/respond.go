// Package handlers serves the verification API over HTTP.
package handlers

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/Sanyam33/GSC-Verifier/internal/auth/google"
	"github.com/Sanyam33/GSC-Verifier/internal/logging"
	"github.com/Sanyam33/GSC-Verifier/internal/verification"
)

// errorResponse is the error body shape: {"detail": "..."}.
type errorResponse struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}

// errorStatus maps workflow and provider errors onto HTTP status codes.
func errorStatus(err error) int {
	var apiErr *google.APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr.StatusCode
	case errors.Is(err, verification.ErrInvalidDateRange):
		return http.StatusBadRequest
	case errors.Is(err, verification.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, verification.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, verification.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, google.ErrTokenExchange), errors.Is(err, google.ErrTokenRefresh):
		return http.StatusUnauthorized
	case errors.Is(err, google.ErrProviderUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err. Provider rejections are passed through with their
// own status and body; everything else becomes {"detail": ...}.
func writeError(w http.ResponseWriter, r *http.Request, err error, notFoundDetail string) {
	var apiErr *google.APIError
	if errors.As(err, &apiErr) {
		if apiErr.RetryAfter > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(apiErr.RetryAfter.Seconds()))))
		}
		if json.Valid(apiErr.Body) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(apiErr.StatusCode)
			w.Write(apiErr.Body)
			return
		}
		writeDetail(w, apiErr.StatusCode, string(apiErr.Body))
		return
	}

	status := errorStatus(err)
	switch status {
	case http.StatusNotFound:
		writeDetail(w, status, notFoundDetail)
	case http.StatusUnauthorized:
		writeDetail(w, status, "Failed to refresh access token")
	case http.StatusServiceUnavailable:
		writeDetail(w, status, "Search Console is unavailable, try again later")
	case http.StatusInternalServerError:
		logging.Printf(r.Context(), "❌ %s %s failed: %v", r.Method, r.URL.Path, err)
		writeDetail(w, status, "Internal server error")
	default:
		writeDetail(w, status, err.Error())
	}
}
