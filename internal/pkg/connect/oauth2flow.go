package connect

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"gorm.io/gorm"

	"github.com/nmarkov/adpulse/app/models"
	"github.com/nmarkov/adpulse/app/repository"
)

// refreshMargin is subtracted from a token's lifetime so we never hand an
// adapter a token that dies mid-request.
const refreshMargin = 60 * time.Second

func oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, HTTPClient)
}

// exchangeCode trades an authorization code for a token and persists it.
func exchangeCode(ctx context.Context, tokens repository.TokenRepository, conf *oauth2.Config, provider string, userID uint, code string, opts ...oauth2.AuthCodeOption) (*models.ProviderToken, error) {
	tok, err := conf.Exchange(oauthContext(ctx), code, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %s token exchange: %v", ErrUpstream, provider, err)
	}
	stored := &models.ProviderToken{
		UserID:       userID,
		Provider:     provider,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
	}
	if !tok.Expiry.IsZero() {
		expiry := tok.Expiry
		stored.ExpiresAt = &expiry
	}
	if err := tokens.Upsert(stored); err != nil {
		return nil, err
	}
	return stored, nil
}

// freshAccessToken returns a usable access token for (user, provider),
// refreshing through conf when the stored one is within refreshMargin of
// expiry. Concurrent refreshes of the same token are harmless; last write
// wins and both results are valid.
func freshAccessToken(ctx context.Context, tokens repository.TokenRepository, conf *oauth2.Config, provider string, userID uint) (string, error) {
	stored, err := tokens.Get(userID, provider)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrNotConnected
		}
		return "", err
	}
	if !stored.IsExpired(refreshMargin) {
		return stored.AccessToken, nil
	}
	if stored.RefreshToken == "" {
		return "", ErrReauthorizationRequired
	}
	src := conf.TokenSource(oauthContext(ctx), &oauth2.Token{RefreshToken: stored.RefreshToken})
	tok, err := src.Token()
	if err != nil {
		return "", fmt.Errorf("%w: %s token refresh: %v", ErrUpstream, provider, err)
	}
	stored.AccessToken = tok.AccessToken
	if tok.RefreshToken != "" {
		stored.RefreshToken = tok.RefreshToken
	}
	if !tok.Expiry.IsZero() {
		expiry := tok.Expiry
		stored.ExpiresAt = &expiry
	}
	if err := tokens.Upsert(stored); err != nil {
		return "", err
	}
	return stored.AccessToken, nil
}

// jsonTokenResponse covers providers whose token endpoints speak JSON
// instead of form encoding.
type jsonTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	// ExpiresAt is used by Square, which reports an absolute RFC 3339
	// timestamp instead of a lifetime.
	ExpiresAt    string `json:"expires_at"`
	Error        string `json:"error"`
	ErrorMessage string `json:"error_description"`
}

// postJSONToken exchanges credentials at a JSON token endpoint and returns
// the parsed response.
func postJSONToken(ctx context.Context, endpoint string, payload any) (*jsonTokenResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(string(body)))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: token endpoint returned %d: %s", ErrUpstream, resp.StatusCode, truncate(raw, 256))
	}
	var parsed jsonTokenResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("%w: malformed token response: %v", ErrUpstream, err)
	}
	if parsed.Error != "" {
		return nil, fmt.Errorf("%w: %s %s", ErrUpstream, parsed.Error, parsed.ErrorMessage)
	}
	return &parsed, nil
}

// getJSON performs an authorized GET and decodes the JSON body into out.
// Extra header pairs are applied verbatim, so providers with bespoke auth
// headers work too.
func getJSON(ctx context.Context, rawurl string, out any, headers map[string]string) error {
	return getJSONWith(ctx, HTTPClient, rawurl, out, headers)
}

// getJSONWith is getJSON over an explicit client, for providers that sign
// requests at the transport layer (OAuth 1.0a).
func getJSONWith(ctx context.Context, client *http.Client, rawurl string, out any, headers map[string]string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawurl, nil)
	if err != nil {
		return err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w: status %d: %s", ErrReauthorizationRequired, resp.StatusCode, truncate(raw, 256))
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, truncate(raw, 256))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: malformed response: %v", ErrUpstream, err)
	}
	return nil
}

// postJSON sends a JSON payload and decodes the JSON response into out.
func postJSON(ctx context.Context, rawurl string, payload any, out any, headers map[string]string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawurl, strings.NewReader(string(body)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w: status %d: %s", ErrReauthorizationRequired, resp.StatusCode, truncate(raw, 256))
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, truncate(raw, 256))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: malformed response: %v", ErrUpstream, err)
	}
	return nil
}

func bearerHeader(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// buildURL joins a base endpoint with query values.
func buildURL(base string, q url.Values) string {
	if len(q) == 0 {
		return base
	}
	return base + "?" + q.Encode()
}
