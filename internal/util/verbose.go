package util

import (
	"os"
	"strings"
)

// IsVerbose reports whether GSC_VERBOSE asks for request payload logging.
// Accepts "1", "true", "yes" (case-insensitive).
func IsVerbose() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("GSC_VERBOSE"))) {
	case "1", "true", "yes":
		return true
	}
	return false
}
