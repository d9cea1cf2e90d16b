package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is the consenting Google account. Either field may be empty.
type Identity struct {
	AccountID string
	Email     string
}

// FetchIdentity looks the account up at the userinfo endpoint and falls back to
// the claims of the id_token. It never blocks the verification flow: the
// returned error is informational and the identity may be partial or empty.
func (e *Exchanger) FetchIdentity(ctx context.Context, tokens *Tokens) (Identity, error) {
	identity, err := e.fetchUserInfo(ctx, tokens.AccessToken)
	if err == nil && identity.AccountID != "" && identity.Email != "" {
		return identity, nil
	}

	claims, claimsErr := identityFromIDToken(tokens.IDToken)
	if identity.AccountID == "" {
		identity.AccountID = claims.AccountID
	}
	if identity.Email == "" {
		identity.Email = claims.Email
	}
	return identity, errors.Join(err, claimsErr)
}

func (e *Exchanger) fetchUserInfo(ctx context.Context, accessToken string) (Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.profile.UserInfoURL, nil)
	if err != nil {
		return Identity{}, fmt.Errorf("build userinfo request: %w", err)
	}
	body, err := SendAuthorized(e.httpClient, req, accessToken)
	if err != nil {
		return Identity{}, fmt.Errorf("userinfo: %w", err)
	}

	var info struct {
		ID    string `json:"id"`
		Sub   string `json:"sub"`
		Email string `json:"email"`
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return Identity{}, fmt.Errorf("decode userinfo: %w", err)
	}
	id := info.ID
	if id == "" {
		id = info.Sub
	}
	return Identity{AccountID: id, Email: info.Email}, nil
}

// identityFromIDToken reads sub/email from an id_token without verifying its
// signature. The token came straight from Google's token endpoint over TLS.
func identityFromIDToken(raw string) (Identity, error) {
	if raw == "" {
		return Identity{}, nil
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return Identity{}, fmt.Errorf("parse id_token: %w", err)
	}
	sub, _ := claims.GetSubject()
	email, _ := claims["email"].(string)
	return Identity{AccountID: sub, Email: email}, nil
}
