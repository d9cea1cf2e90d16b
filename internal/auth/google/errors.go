package google

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/Sanyam33/GSC-Verifier/internal/util"
	"golang.org/x/oauth2"
)

var (
	// ErrTokenExchange means Google refused the authorization code or answered
	// without an access token.
	ErrTokenExchange = errors.New("authorization code exchange rejected")
	// ErrTokenRefresh means the stored refresh token was refused or is missing.
	ErrTokenRefresh = errors.New("refresh token rejected")
	// ErrProviderUnavailable covers network failures, timeouts and 5xx answers.
	ErrProviderUnavailable = errors.New("provider unavailable")
)

// APIError is a well-formed client error (4xx) returned by a Google API. Its
// status and body are passed through to the caller unchanged.
type APIError struct {
	StatusCode int
	Body       []byte
	RetryAfter time.Duration // set for 429 answers that carry a backoff hint
}

func (e *APIError) Error() string {
	return fmt.Sprintf("provider returned %d: %s", e.StatusCode, util.TruncateBytes(e.Body))
}

// isTransportError reports failures that never produced an HTTP response.
func isTransportError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// classifyTokenError maps an oauth2 failure onto rejected or ErrProviderUnavailable.
func classifyTokenError(err error, rejected error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		if retrieveErr.Response != nil && retrieveErr.Response.StatusCode >= 500 {
			return fmt.Errorf("%w: token endpoint returned %d", ErrProviderUnavailable, retrieveErr.Response.StatusCode)
		}
		code := retrieveErr.ErrorCode
		if code == "" && retrieveErr.Response != nil {
			code = retrieveErr.Response.Status
		}
		return fmt.Errorf("%w: %s", rejected, code)
	}
	if isTransportError(err) {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	return fmt.Errorf("%w: %v", rejected, err)
}
