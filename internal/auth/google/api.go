package google

import (
	"fmt"
	"io"
	"net/http"

	"github.com/Sanyam33/GSC-Verifier/internal/version"
)

// maxResponseBytes bounds how much of a Google API response is read.
const maxResponseBytes = 16 << 20

// UserAgent identifies this service to Google APIs.
var UserAgent = "gsc-verifier/" + version.Version

// SendAuthorized performs req with a bearer token and returns the body of a 2xx
// response. 4xx answers become *APIError; transport failures and 5xx answers
// wrap ErrProviderUnavailable.
func SendAuthorized(client *http.Client, req *http.Request, accessToken string) ([]byte, error) {
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("User-Agent", UserAgent)
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", ErrProviderUnavailable, req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s response: %v", ErrProviderUnavailable, req.URL.Path, err)
	}

	switch {
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: %s returned %d", ErrProviderUnavailable, req.URL.Path, resp.StatusCode)
	case resp.StatusCode >= 400:
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: body}
		if resp.StatusCode == http.StatusTooManyRequests {
			apiErr.RetryAfter = ParseRetryDelay(resp.Header, body)
		}
		return nil, apiErr
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("%w: %s returned unexpected %d", ErrProviderUnavailable, req.URL.Path, resp.StatusCode)
	}
	return body, nil
}
