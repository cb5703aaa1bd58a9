package connect

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"gorm.io/gorm"

	"github.com/nmarkov/adpulse/app/models"
	"github.com/nmarkov/adpulse/app/repository"
)

const squareAPIBase = "https://connect.squareup.com"

// squareProvider speaks OAuth2 but against a JSON token endpoint, so the
// exchange and refresh are done by hand instead of through x/oauth2.
type squareProvider struct {
	repos *repository.Repositories
	creds Credentials
}

func newSquareProvider(repos *repository.Repositories) *squareProvider {
	return &squareProvider{repos: repos, creds: CredentialsFor("SQUARE", "square")}
}

func (p *squareProvider) Name() string { return "square" }

func (p *squareProvider) BeginAuthorization(ctx context.Context, userID uint, _ url.Values) (string, error) {
	state, err := EncodeState(userID)
	if err != nil {
		return "", err
	}
	q := url.Values{
		"client_id": {p.creds.ClientID},
		"scope":     {"PAYMENTS_READ MERCHANT_PROFILE_READ"},
		"state":     {state},
		"session":   {"false"},
	}
	return buildURL(squareAPIBase+"/oauth2/authorize", q), nil
}

// storeTokenResponse persists a token response; Square reports expiry as
// an absolute RFC 3339 timestamp.
func (p *squareProvider) storeTokenResponse(userID uint, resp *jsonTokenResponse, previous *models.ProviderToken) (*models.ProviderToken, error) {
	stored := &models.ProviderToken{
		UserID:       userID,
		Provider:     p.Name(),
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
	}
	if previous != nil {
		stored.AccountID = previous.AccountID
		if stored.RefreshToken == "" {
			stored.RefreshToken = previous.RefreshToken
		}
	}
	if resp.ExpiresAt != "" {
		if expiry, err := time.Parse(time.RFC3339, resp.ExpiresAt); err == nil {
			stored.ExpiresAt = &expiry
		}
	}
	if err := p.repos.Token.Upsert(stored); err != nil {
		return nil, err
	}
	return stored, nil
}

func (p *squareProvider) CompleteAuthorization(ctx context.Context, params url.Values) (uint, error) {
	code := params.Get("code")
	if code == "" {
		return 0, ErrAuthorization
	}
	userID, err := callbackUser(p.repos.User, params.Get("state"))
	if err != nil {
		return 0, err
	}
	resp, err := postJSONToken(ctx, squareAPIBase+"/oauth2/token", map[string]string{
		"client_id":     p.creds.ClientID,
		"client_secret": p.creds.ClientSecret,
		"code":          code,
		"grant_type":    "authorization_code",
	})
	if err != nil {
		return 0, err
	}
	if _, err := p.storeTokenResponse(userID, resp, nil); err != nil {
		return 0, err
	}
	if err := p.repos.User.AddPlatform(userID, p.Name()); err != nil {
		return 0, err
	}
	return userID, nil
}

// freshToken refreshes through Square's JSON endpoint when the stored
// token is near expiry.
func (p *squareProvider) freshToken(ctx context.Context, userID uint) (*models.ProviderToken, error) {
	stored, err := p.repos.Token.Get(userID, p.Name())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotConnected
		}
		return nil, err
	}
	if !stored.IsExpired(refreshMargin) {
		return stored, nil
	}
	if stored.RefreshToken == "" {
		return nil, ErrReauthorizationRequired
	}
	resp, err := postJSONToken(ctx, squareAPIBase+"/oauth2/token", map[string]string{
		"client_id":     p.creds.ClientID,
		"client_secret": p.creds.ClientSecret,
		"refresh_token": stored.RefreshToken,
		"grant_type":    "refresh_token",
	})
	if err != nil {
		return nil, err
	}
	return p.storeTokenResponse(userID, resp, stored)
}

func (p *squareProvider) ListAccounts(ctx context.Context, userID uint) ([]Account, error) {
	stored, err := p.freshToken(ctx, userID)
	if err != nil {
		return nil, err
	}
	var body struct {
		Merchant []struct {
			ID           string `json:"id"`
			BusinessName string `json:"business_name"`
		} `json:"merchant"`
	}
	if err := getJSON(ctx, squareAPIBase+"/v2/merchants", &body, bearerHeader(stored.AccessToken)); err != nil {
		return nil, err
	}
	accounts := make([]Account, 0, len(body.Merchant))
	for _, m := range body.Merchant {
		accounts = append(accounts, Account{ID: m.ID, Name: m.BusinessName})
	}
	return accounts, nil
}

// FetchPerformanceData pages through payments in the window and upserts
// them by payment id.
func (p *squareProvider) FetchPerformanceData(ctx context.Context, userID uint, accountID, since, until string) (int, error) {
	stored, err := p.freshToken(ctx, userID)
	if err != nil {
		return 0, err
	}
	start, err := time.Parse("2006-01-02", since)
	if err != nil {
		return 0, fmt.Errorf("bad since date %q: %w", since, err)
	}
	end, err := time.Parse("2006-01-02", until)
	if err != nil {
		return 0, fmt.Errorf("bad until date %q: %w", until, err)
	}
	end = end.Add(24*time.Hour - time.Second)

	written := 0
	cursor := ""
	for {
		q := url.Values{
			"begin_time": {start.Format(time.RFC3339)},
			"end_time":   {end.Format(time.RFC3339)},
			"limit":      {"100"},
		}
		if cursor != "" {
			q.Set("cursor", cursor)
		}
		var body struct {
			Payments []json.RawMessage `json:"payments"`
			Cursor   string            `json:"cursor"`
		}
		u := buildURL(squareAPIBase+"/v2/payments", q)
		if err := getJSON(ctx, u, &body, bearerHeader(stored.AccessToken)); err != nil {
			return written, err
		}
		for _, raw := range body.Payments {
			var payment struct {
				ID string `json:"id"`
			}
			if err := json.Unmarshal(raw, &payment); err != nil || payment.ID == "" {
				continue
			}
			txn := &models.PaymentTransaction{
				Provider:      p.Name(),
				TransactionID: payment.ID,
				UserID:        userID,
				MerchantID:    accountID,
				PayloadJSON:   string(raw),
			}
			if err := p.repos.Dataset.UpsertTransaction(txn); err != nil {
				return written, err
			}
			written++
		}
		if body.Cursor == "" {
			break
		}
		cursor = body.Cursor
	}
	return written, nil
}
