package google

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"
)

// retryInfo is the error envelope Google APIs use for quota failures.
type retryInfo struct {
	Error struct {
		Details []struct {
			Reason     string            `json:"reason"`
			Metadata   map[string]string `json:"metadata"`
			RetryDelay string            `json:"retryDelay"` // e.g. "3.5s"
		} `json:"details"`
	} `json:"error"`
}

// ParseRetryDelay extracts how long Google asked the caller to back off. The
// Retry-After header wins over retryDelay hints in the JSON body. Returns 0
// when neither is present.
func ParseRetryDelay(header http.Header, body []byte) time.Duration {
	if retryAfter := header.Get("Retry-After"); retryAfter != "" {
		if seconds, err := strconv.Atoi(retryAfter); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
		if t, err := http.ParseTime(retryAfter); err == nil {
			if d := time.Until(t); d > 0 {
				return d
			}
		}
	}

	var info retryInfo
	if len(body) == 0 || json.Unmarshal(body, &info) != nil {
		return 0
	}
	for _, detail := range info.Error.Details {
		if detail.RetryDelay != "" {
			if d, err := time.ParseDuration(detail.RetryDelay); err == nil {
				return d
			}
		}
		if delay, ok := detail.Metadata["retryDelay"]; ok {
			if d, err := time.ParseDuration(delay); err == nil {
				return d
			}
		}
	}
	return 0
}
