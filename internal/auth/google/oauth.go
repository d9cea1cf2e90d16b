package google

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/Sanyam33/GSC-Verifier/internal/providers/catalog"
	"golang.org/x/oauth2"
)

// Config is the OAuth client registered with Google. It is read-only after startup.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

// Tokens is the subset of a token response the verifier keeps.
type Tokens struct {
	AccessToken  string
	RefreshToken string // only sent on first consent or rotation
	IDToken      string
	Expiry       time.Time
}

// Exchanger talks to Google's authorization and token endpoints. It holds no
// per-request state and is safe for concurrent use.
type Exchanger struct {
	config     *oauth2.Config
	profile    catalog.Profile
	httpClient *http.Client
}

// NewHTTPClient returns a client bounded by the profile's connect and total timeouts.
func NewHTTPClient(profile catalog.Profile) *http.Client {
	dialer := &net.Dialer{
		Timeout:   profile.ConnectTimeout,
		KeepAlive: 30 * time.Second,
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = dialer.DialContext
	transport.TLSHandshakeTimeout = profile.ConnectTimeout
	return &http.Client{
		Timeout:   profile.Timeout,
		Transport: transport,
	}
}

// NewExchanger builds an Exchanger for the given client and provider profile.
func NewExchanger(cfg Config, profile catalog.Profile, httpClient *http.Client) *Exchanger {
	if httpClient == nil {
		httpClient = NewHTTPClient(profile)
	}
	return &Exchanger{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       profile.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   profile.AuthURL,
				TokenURL:  profile.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		profile:    profile,
		httpClient: httpClient,
	}
}

// AuthCodeURL builds the consent URL for state. prompt=consent makes Google
// issue a refresh token even when the user approved this client before.
func (e *Exchanger) AuthCodeURL(state string) string {
	return e.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// ExchangeCode trades an authorization code for tokens. It is never retried.
func (e *Exchanger) ExchangeCode(ctx context.Context, code string) (*Tokens, error) {
	token, err := e.config.Exchange(e.clientContext(ctx), code)
	if err != nil {
		return nil, classifyTokenError(err, ErrTokenExchange)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("%w: response missing access_token", ErrTokenExchange)
	}
	return tokensFrom(token), nil
}

// Refresh mints a new access token from a stored refresh token.
func (e *Exchanger) Refresh(ctx context.Context, refreshToken string) (*Tokens, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("%w: no refresh token stored", ErrTokenRefresh)
	}
	src := e.config.TokenSource(e.clientContext(ctx), &oauth2.Token{RefreshToken: refreshToken})
	token, err := src.Token()
	if err != nil {
		return nil, classifyTokenError(err, ErrTokenRefresh)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("%w: response missing access_token", ErrTokenRefresh)
	}
	return tokensFrom(token), nil
}

// HTTPClient exposes the bounded client for other calls to Google APIs.
func (e *Exchanger) HTTPClient() *http.Client {
	return e.httpClient
}

// clientContext routes oauth2's token requests through the bounded client.
func (e *Exchanger) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, e.httpClient)
}

func tokensFrom(token *oauth2.Token) *Tokens {
	t := &Tokens{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Expiry:       token.Expiry,
	}
	if idToken, ok := token.Extra("id_token").(string); ok {
		t.IDToken = idToken
	}
	return t
}
