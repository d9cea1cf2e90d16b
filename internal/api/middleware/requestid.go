package middleware

import (
	"net/http"

	"github.com/Sanyam33/GSC-Verifier/internal/logging"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// RequestIDHeader echoes the request id back to the caller.
const RequestIDHeader = "X-Request-ID"

// RequestContext copies chi's request id into the logging context so service
// logs can be correlated with access logs. Mount it after chi's RequestID.
func RequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chimiddleware.GetReqID(r.Context())
		if id == "" {
			id = logging.GenerateRequestID()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logging.WithRequestID(r.Context(), id)))
	})
}
