// Package catalog describes the Search Console provider: its endpoints, OAuth
// scopes, and the rules used to judge ownership and shape analytics queries.
// A YAML profile can override the built-in Google values.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimeout        = 10 * time.Second
	defaultConnectTimeout = 5 * time.Second
)

// SiteURLPlaceholder marks where the escaped site URL goes in SearchAnalyticsURL.
const SiteURLPlaceholder = "{site_url}"

type fileConfig struct {
	Provider ProviderConfig `yaml:"provider"`
}

// ProviderConfig is the on-disk shape of a provider profile.
type ProviderConfig struct {
	AuthURL              string   `yaml:"auth_url"`
	TokenURL             string   `yaml:"token_url"`
	UserInfoURL          string   `yaml:"userinfo_url"`
	SitesURL             string   `yaml:"sites_url"`
	SearchAnalyticsURL   string   `yaml:"search_analytics_url"`
	Scopes               []string `yaml:"scopes"`
	AcceptedPermissions  []string `yaml:"accepted_permissions"`
	QuerylessSearchTypes []string `yaml:"queryless_search_types"`
	Timeout              string   `yaml:"timeout"`
	ConnectTimeout       string   `yaml:"connect_timeout"`
}

// Profile is a validated provider description.
type Profile struct {
	AuthURL              string
	TokenURL             string
	UserInfoURL          string
	SitesURL             string
	SearchAnalyticsURL   string
	Scopes               []string
	AcceptedPermissions  []string
	QuerylessSearchTypes []string
	Timeout              time.Duration
	ConnectTimeout       time.Duration
}

// Default returns the Google Search Console profile.
func Default() Profile {
	return Profile{
		AuthURL:            "https://accounts.google.com/o/oauth2/v2/auth",
		TokenURL:           "https://oauth2.googleapis.com/token",
		UserInfoURL:        "https://www.googleapis.com/oauth2/v2/userinfo",
		SitesURL:           "https://www.googleapis.com/webmasters/v3/sites",
		SearchAnalyticsURL: "https://www.googleapis.com/webmasters/v3/sites/" + SiteURLPlaceholder + "/searchAnalytics/query",
		Scopes: []string{
			"https://www.googleapis.com/auth/webmasters.readonly",
			"openid",
			"email",
		},
		AcceptedPermissions: []string{"siteOwner", "siteFullUser"},
		// Discover and Google News reports have no query-text dimension.
		QuerylessSearchTypes: []string{"discover", "googleNews"},
		Timeout:              defaultTimeout,
		ConnectTimeout:       defaultConnectTimeout,
	}
}

// IsAcceptedPermission reports whether level proves ownership.
func (p Profile) IsAcceptedPermission(level string) bool {
	return level != "" && slices.Contains(p.AcceptedPermissions, level)
}

// SupportsQueryDimension reports whether searchType accepts the "query" dimension.
func (p Profile) SupportsQueryDimension(searchType string) bool {
	return !slices.Contains(p.QuerylessSearchTypes, searchType)
}

// Load returns the default profile overlaid with the YAML file at path. An
// empty path searches the usual locations; finding nothing is not an error.
func Load(path string) (Profile, error) {
	profile := Default()

	resolved, err := resolveConfigPath(path)
	if err != nil {
		return profile, err
	}
	if resolved == "" {
		return profile, nil
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return profile, fmt.Errorf("failed to read provider file %q: %w", resolved, err)
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return profile, fmt.Errorf("failed to parse provider file %q: %w", resolved, err)
	}

	return merge(profile, cfg.Provider)
}

func merge(base Profile, cfg ProviderConfig) (Profile, error) {
	override := func(dst *string, v string) {
		if v = strings.TrimSpace(v); v != "" {
			*dst = v
		}
	}
	override(&base.AuthURL, cfg.AuthURL)
	override(&base.TokenURL, cfg.TokenURL)
	override(&base.UserInfoURL, cfg.UserInfoURL)
	override(&base.SitesURL, cfg.SitesURL)
	override(&base.SearchAnalyticsURL, cfg.SearchAnalyticsURL)

	if len(cfg.Scopes) > 0 {
		base.Scopes = cfg.Scopes
	}
	if len(cfg.AcceptedPermissions) > 0 {
		base.AcceptedPermissions = cfg.AcceptedPermissions
	}
	if cfg.QuerylessSearchTypes != nil {
		base.QuerylessSearchTypes = cfg.QuerylessSearchTypes
	}

	var err error
	if base.Timeout, err = parseTimeout(cfg.Timeout, base.Timeout); err != nil {
		return base, fmt.Errorf("invalid timeout: %w", err)
	}
	if base.ConnectTimeout, err = parseTimeout(cfg.ConnectTimeout, base.ConnectTimeout); err != nil {
		return base, fmt.Errorf("invalid connect_timeout: %w", err)
	}

	if !strings.Contains(base.SearchAnalyticsURL, SiteURLPlaceholder) {
		return base, fmt.Errorf("search_analytics_url must contain %s", SiteURLPlaceholder)
	}
	return base, nil
}

func parseTimeout(raw string, fallback time.Duration) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback, err
	}
	if d <= 0 {
		return fallback, fmt.Errorf("must be positive, got %s", raw)
	}
	return d, nil
}

func resolveConfigPath(explicit string) (string, error) {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", err
		}
		return explicit, nil
	}

	candidates := []string{
		"config/gsc_provider.yaml",
		"/etc/gsc-verifier/gsc_provider.yaml",
	}
	if homeDir, err := os.UserHomeDir(); err == nil && homeDir != "" {
		candidates = append(candidates, filepath.Join(homeDir, ".config", "gsc-verifier", "gsc_provider.yaml"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", nil
}
