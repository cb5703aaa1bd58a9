package connect

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/oauth2"

	"github.com/nmarkov/adpulse/app/models"
	"github.com/nmarkov/adpulse/app/repository"
)

const fbGraphBase = "https://graph.facebook.com/v19.0"

type facebookProvider struct {
	repos *repository.Repositories
	creds Credentials
}

func newFacebookProvider(repos *repository.Repositories) *facebookProvider {
	return &facebookProvider{repos: repos, creds: CredentialsFor("FACEBOOK", "facebook")}
}

func (p *facebookProvider) Name() string { return "facebook" }

func (p *facebookProvider) config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     p.creds.ClientID,
		ClientSecret: p.creds.ClientSecret,
		RedirectURL:  p.creds.RedirectURL,
		Scopes:       []string{"ads_read", "ads_management", "business_management"},
		Endpoint: oauth2.Endpoint{
			AuthURL:  "https://www.facebook.com/v19.0/dialog/oauth",
			TokenURL: fbGraphBase + "/oauth/access_token",
		},
	}
}

func (p *facebookProvider) BeginAuthorization(ctx context.Context, userID uint, _ url.Values) (string, error) {
	state, err := EncodeState(userID)
	if err != nil {
		return "", err
	}
	return p.config().AuthCodeURL(state), nil
}

func (p *facebookProvider) CompleteAuthorization(ctx context.Context, params url.Values) (uint, error) {
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
	resolveDefaultAccount(ctx, p, p.repos.Token, userID)
	return userID, nil
}

func (p *facebookProvider) ListAccounts(ctx context.Context, userID uint) ([]Account, error) {
	token, err := freshAccessToken(ctx, p.repos.Token, p.config(), p.Name(), userID)
	if err != nil {
		return nil, err
	}
	var body struct {
		Data []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"data"`
	}
	u := buildURL(fbGraphBase+"/me/adaccounts", url.Values{"fields": {"id,name"}})
	if err := getJSON(ctx, u, &body, bearerHeader(token)); err != nil {
		return nil, err
	}
	accounts := make([]Account, 0, len(body.Data))
	for _, a := range body.Data {
		accounts = append(accounts, Account{ID: a.ID, Name: a.Name})
	}
	return accounts, nil
}

func (p *facebookProvider) FetchPerformanceData(ctx context.Context, userID uint, accountID, since, until string) (int, error) {
	accountID, err := resolveAccountID(p.repos.Token, p.Name(), userID, accountID)
	if err != nil {
		return 0, err
	}
	token, err := freshAccessToken(ctx, p.repos.Token, p.config(), p.Name(), userID)
	if err != nil {
		return 0, err
	}
	if !strings.HasPrefix(accountID, "act_") {
		accountID = "act_" + accountID
	}

	q := url.Values{
		"level":      {"ad"},
		"fields":     {"ad_id,ad_name,campaign_id,campaign_name,adset_id,adset_name,impressions,clicks,spend,cpc,ctr,reach,frequency,actions"},
		"time_range": {fmt.Sprintf(`{"since":"%s","until":"%s"}`, since, until)},
		"limit":      {"500"},
	}
	next := buildURL(fmt.Sprintf("%s/%s/insights", fbGraphBase, accountID), q)

	written := 0
	for next != "" {
		var page struct {
			Data   []map[string]any `json:"data"`
			Paging struct {
				Next string `json:"next"`
			} `json:"paging"`
		}
		if err := getJSON(ctx, next, &page, bearerHeader(token)); err != nil {
			return written, err
		}
		for _, row := range page.Data {
			payload, err := json.Marshal(row)
			if err != nil {
				continue
			}
			rec := &models.AdRecord{
				Provider:   p.Name(),
				UserID:     userID,
				AccountID:  accountID,
				AdID:       stringField(row, "ad_id"),
				AdName:     stringField(row, "ad_name"),
				CampaignID: stringField(row, "campaign_id"),
				AdGroupID:  stringField(row, "adset_id"),
				PayloadJSON: string(payload),
			}
			if rec.AdID == "" {
				continue
			}
			if err := p.repos.Dataset.UpsertAdRecord(rec); err != nil {
				return written, err
			}
			written++
		}
		next = page.Paging.Next
	}
	return written, nil
}

func stringField(row map[string]any, key string) string {
	switch v := row[key].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return ""
	}
}
