package util

import "fmt"

// DefaultLogMaxLen caps provider response bodies written to the log (1KB).
const DefaultLogMaxLen = 1024

// TruncateLog shortens s to maxLen bytes for logging, noting the original size.
func TruncateLog(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + fmt.Sprintf("... [truncated, %d bytes total]", len(s))
}

// TruncateBytes is TruncateLog for a raw body using DefaultLogMaxLen.
func TruncateBytes(b []byte) string {
	return TruncateLog(string(b), DefaultLogMaxLen)
}
