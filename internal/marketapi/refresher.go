package marketapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"

	pkgerrors "github.com/angelmondragon/marketcart/pkg/errors"
	"github.com/angelmondragon/marketcart/pkg/session"
)

var _ session.Refresher = (*TokenRefresher)(nil)

// TokenRefresher exchanges a refresh token at the identity provider.
type TokenRefresher struct {
	httpClient *http.Client
	url        string
}

func NewTokenRefresher(refreshURL string, client *http.Client) *TokenRefresher {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &TokenRefresher{httpClient: client, url: strings.TrimSpace(refreshURL)}
}

func (r *TokenRefresher) Refresh(ctx context.Context, refreshToken string) (session.Credentials, error) {
	if r.url == "" {
		return session.Credentials{}, pkgerrors.New(pkgerrors.CodeSessionExpired, "no refresh endpoint configured")
	}
	payload, err := json.Marshal(map[string]string{"refresh_token": refreshToken})
	if err != nil {
		return session.Credentials{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(payload))
	if err != nil {
		return session.Credentials{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build refresh request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return session.Credentials{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute refresh request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		return session.Credentials{}, decodeError(resp)
	}
	var envelope struct {
		Data session.Credentials `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return session.Credentials{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode refresh response")
	}
	if envelope.Data.AccessToken == "" {
		return session.Credentials{}, pkgerrors.New(pkgerrors.CodeSessionExpired, "refresh returned no access token")
	}
	return envelope.Data, nil
}
