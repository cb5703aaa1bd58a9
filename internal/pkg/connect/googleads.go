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
	"github.com/nmarkov/adpulse/internal/pkg/env"
)

const googleAdsBase = "https://googleads.googleapis.com/v16"

var googleEndpoint = oauth2.Endpoint{
	AuthURL:  "https://accounts.google.com/o/oauth2/auth",
	TokenURL: "https://oauth2.googleapis.com/token",
}

type googleAdsProvider struct {
	repos *repository.Repositories
	creds Credentials
}

func newGoogleAdsProvider(repos *repository.Repositories) *googleAdsProvider {
	return &googleAdsProvider{repos: repos, creds: CredentialsFor("GOOGLE", "googleAds")}
}

func (p *googleAdsProvider) Name() string { return "googleAds" }

func (p *googleAdsProvider) config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     p.creds.ClientID,
		ClientSecret: p.creds.ClientSecret,
		RedirectURL:  p.creds.RedirectURL,
		Scopes:       []string{"https://www.googleapis.com/auth/adwords"},
		Endpoint:     googleEndpoint,
	}
}

func (p *googleAdsProvider) apiHeaders(token string) map[string]string {
	h := bearerHeader(token)
	h["developer-token"] = env.GetEnv("GOOGLE_ADS_DEVELOPER_TOKEN", "")
	if login := env.GetEnv("GOOGLE_ADS_LOGIN_CUSTOMER_ID", ""); login != "" {
		h["login-customer-id"] = login
	}
	return h
}

func (p *googleAdsProvider) BeginAuthorization(ctx context.Context, userID uint, _ url.Values) (string, error) {
	state, err := EncodeState(userID)
	if err != nil {
		return "", err
	}
	// offline access plus forced consent, or Google stops returning a
	// refresh token after the first grant
	return p.config().AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	), nil
}

func (p *googleAdsProvider) CompleteAuthorization(ctx context.Context, params url.Values) (uint, error) {
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

func (p *googleAdsProvider) ListAccounts(ctx context.Context, userID uint) ([]Account, error) {
	token, err := freshAccessToken(ctx, p.repos.Token, p.config(), p.Name(), userID)
	if err != nil {
		return nil, err
	}
	var body struct {
		ResourceNames []string `json:"resourceNames"`
	}
	if err := getJSON(ctx, googleAdsBase+"/customers:listAccessibleCustomers", &body, p.apiHeaders(token)); err != nil {
		return nil, err
	}
	accounts := make([]Account, 0, len(body.ResourceNames))
	for _, rn := range body.ResourceNames {
		id := strings.TrimPrefix(rn, "customers/")
		accounts = append(accounts, Account{ID: id, Name: "Customer " + id})
	}
	return accounts, nil
}

func (p *googleAdsProvider) FetchPerformanceData(ctx context.Context, userID uint, accountID, since, until string) (int, error) {
	accountID, err := resolveAccountID(p.repos.Token, p.Name(), userID, accountID)
	if err != nil {
		return 0, err
	}
	token, err := freshAccessToken(ctx, p.repos.Token, p.config(), p.Name(), userID)
	if err != nil {
		return 0, err
	}

	query := fmt.Sprintf(`SELECT ad_group_ad.ad.id, ad_group_ad.ad.name, campaign.id, campaign.name, ad_group.id, ad_group.name, metrics.impressions, metrics.clicks, metrics.cost_micros, metrics.ctr, metrics.average_cpc, metrics.conversions, segments.date FROM ad_group_ad WHERE segments.date BETWEEN '%s' AND '%s'`, since, until)

	var body struct {
		Results []struct {
			AdGroupAd struct {
				Ad struct {
					ID   json.Number `json:"id"`
					Name string      `json:"name"`
				} `json:"ad"`
			} `json:"adGroupAd"`
			Campaign struct {
				ID json.Number `json:"id"`
			} `json:"campaign"`
			AdGroup struct {
				ID json.Number `json:"id"`
			} `json:"adGroup"`
			Metrics  map[string]any `json:"metrics"`
			Segments map[string]any `json:"segments"`
		} `json:"results"`
	}
	endpoint := fmt.Sprintf("%s/customers/%s/googleAds:search", googleAdsBase, accountID)
	if err := postJSON(ctx, endpoint, map[string]string{"query": query}, &body, p.apiHeaders(token)); err != nil {
		return 0, err
	}

	written := 0
	for _, r := range body.Results {
		payload, err := json.Marshal(map[string]any{
			"ad_id":    r.AdGroupAd.Ad.ID.String(),
			"ad_name":  r.AdGroupAd.Ad.Name,
			"metrics":  r.Metrics,
			"segments": r.Segments,
		})
		if err != nil {
			continue
		}
		rec := &models.AdRecord{
			Provider:    p.Name(),
			UserID:      userID,
			AccountID:   accountID,
			AdID:        r.AdGroupAd.Ad.ID.String(),
			AdName:      r.AdGroupAd.Ad.Name,
			CampaignID:  r.Campaign.ID.String(),
			AdGroupID:   r.AdGroup.ID.String(),
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
	return written, nil
}
