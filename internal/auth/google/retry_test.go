package google

import (
	"net/http"
	"testing"
	"time"
)

func TestParseRetryDelay(t *testing.T) {
	tests := []struct {
		name   string
		header string
		body   string
		want   time.Duration
	}{
		{name: "header seconds", header: "7", want: 7 * time.Second},
		{name: "header wins over body", header: "2", body: `{"error":{"details":[{"retryDelay":"30s"}]}}`, want: 2 * time.Second},
		{name: "body retryDelay", body: `{"error":{"details":[{"reason":"rateLimitExceeded","retryDelay":"3.5s"}]}}`, want: 3500 * time.Millisecond},
		{name: "body metadata", body: `{"error":{"details":[{"metadata":{"retryDelay":"1s"}}]}}`, want: time.Second},
		{name: "nothing", body: `{"error":{"message":"quota"}}`, want: 0},
		{name: "not json", body: `<html>`, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			if tt.header != "" {
				h.Set("Retry-After", tt.header)
			}
			if got := ParseRetryDelay(h, []byte(tt.body)); got != tt.want {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}
