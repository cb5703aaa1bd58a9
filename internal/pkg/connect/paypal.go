package connect

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"golang.org/x/oauth2"

	"github.com/nmarkov/adpulse/app/models"
	"github.com/nmarkov/adpulse/app/repository"
)

const (
	paypalAPIBase = "https://api-m.paypal.com"
	// the reporting API caps one query at 31 days, so fetches walk the
	// window in 30-day chunks
	paypalChunk = 30 * 24 * time.Hour

	paypalTimeFormat = "2006-01-02T15:04:05-0700"
)

type payPalProvider struct {
	repos *repository.Repositories
	creds Credentials
}

func newPayPalProvider(repos *repository.Repositories) *payPalProvider {
	return &payPalProvider{repos: repos, creds: CredentialsFor("PAYPAL", "paypal")}
}

func (p *payPalProvider) Name() string { return "paypal" }

func (p *payPalProvider) config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     p.creds.ClientID,
		ClientSecret: p.creds.ClientSecret,
		RedirectURL:  p.creds.RedirectURL,
		Scopes: []string{
			"openid",
			"https://uri.paypal.com/services/reporting/search/read",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:   "https://www.paypal.com/signin/authorize",
			TokenURL:  paypalAPIBase + "/v1/oauth2/token",
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
}

func (p *payPalProvider) BeginAuthorization(ctx context.Context, userID uint, _ url.Values) (string, error) {
	state, err := EncodeState(userID)
	if err != nil {
		return "", err
	}
	return p.config().AuthCodeURL(state), nil
}

func (p *payPalProvider) CompleteAuthorization(ctx context.Context, params url.Values) (uint, error) {
	code := params.Get("code")
	if code == "" {
		return 0, ErrAuthorization
	}
	userID, err := callbackUser(p.repos.User, params.Get("state"))
	if err != nil {
		return 0, err
	}
	if _, err := exchangeCode(ctx, p.repos.Token, p.config(), p.Name(), userID, code); err != nil {
		return 0, err
	}
	if err := p.repos.User.AddPlatform(userID, p.Name()); err != nil {
		return 0, err
	}
	return userID, nil
}

func (p *payPalProvider) ListAccounts(ctx context.Context, userID uint) ([]Account, error) {
	token, err := freshAccessToken(ctx, p.repos.Token, p.config(), p.Name(), userID)
	if err != nil {
		return nil, err
	}
	var body struct {
		PayerID string `json:"payer_id"`
		Name    string `json:"name"`
	}
	u := buildURL(paypalAPIBase+"/v1/identity/oauth2/userinfo", url.Values{"schema": {"paypalv1.1"}})
	if err := getJSON(ctx, u, &body, bearerHeader(token)); err != nil {
		return nil, err
	}
	return []Account{{ID: body.PayerID, Name: body.Name}}, nil
}

// FetchPerformanceData walks the reporting window in 30-day chunks and
// upserts every transaction by its PayPal transaction id.
func (p *payPalProvider) FetchPerformanceData(ctx context.Context, userID uint, accountID, since, until string) (int, error) {
	token, err := freshAccessToken(ctx, p.repos.Token, p.config(), p.Name(), userID)
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
	for chunkStart := start; chunkStart.Before(end); chunkStart = chunkStart.Add(paypalChunk) {
		chunkEnd := chunkStart.Add(paypalChunk)
		if chunkEnd.After(end) {
			chunkEnd = end
		}
		q := url.Values{
			"start_date": {chunkStart.Format(paypalTimeFormat)},
			"end_date":   {chunkEnd.Format(paypalTimeFormat)},
			"fields":     {"all"},
			"page_size":  {"500"},
		}
		var rawBody struct {
			TransactionDetails []json.RawMessage `json:"transaction_details"`
		}
		u := buildURL(paypalAPIBase+"/v1/reporting/transactions", q)
		if err := getJSON(ctx, u, &rawBody, bearerHeader(token)); err != nil {
			return written, err
		}
		for _, raw := range rawBody.TransactionDetails {
			var detail struct {
				TransactionInfo struct {
					TransactionID string `json:"transaction_id"`
				} `json:"transaction_info"`
			}
			if err := json.Unmarshal(raw, &detail); err != nil || detail.TransactionInfo.TransactionID == "" {
				continue
			}
			txn := &models.PaymentTransaction{
				Provider:      p.Name(),
				TransactionID: detail.TransactionInfo.TransactionID,
				UserID:        userID,
				MerchantID:    accountID,
				PayloadJSON:   string(raw),
			}
			if err := p.repos.Dataset.UpsertTransaction(txn); err != nil {
				return written, err
			}
			written++
		}
	}
	return written, nil
}
