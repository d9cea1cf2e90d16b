package util

import "strings"

// siteURLPrefixes are stripped, in order, before comparing two site identifiers.
// "sc-domain:" is Search Console's domain-property prefix.
var siteURLPrefixes = []string{"https://", "http://", "sc-domain:", "www."}

// NormalizeSite reduces a user- or provider-supplied site URL to the key used for
// equality comparisons: no scheme, no domain-property prefix, no "www.", no
// trailing slash, lowercased.
//
// The pass is repeated until it reaches a fixed point so that
// NormalizeSite(NormalizeSite(x)) == NormalizeSite(x) for every input.
func NormalizeSite(siteURL string) string {
	key := strings.ToLower(strings.TrimSpace(siteURL))
	for {
		next := normalizeOnce(key)
		if next == key {
			return key
		}
		key = next
	}
}

func normalizeOnce(key string) string {
	for _, prefix := range siteURLPrefixes {
		key = strings.ReplaceAll(key, prefix, "")
	}
	return strings.TrimSuffix(key, "/")
}
