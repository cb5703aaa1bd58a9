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

const linkedinAPIBase = "https://api.linkedin.com/v2"

type linkedInProvider struct {
	repos *repository.Repositories
	creds Credentials
}

func newLinkedInProvider(repos *repository.Repositories) *linkedInProvider {
	return &linkedInProvider{repos: repos, creds: CredentialsFor("LINKEDIN", "linkedin")}
}

func (p *linkedInProvider) Name() string { return "linkedin" }

func (p *linkedInProvider) config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     p.creds.ClientID,
		ClientSecret: p.creds.ClientSecret,
		RedirectURL:  p.creds.RedirectURL,
		Scopes:       []string{"r_ads", "r_ads_reporting"},
		Endpoint: oauth2.Endpoint{
			AuthURL:  "https://www.linkedin.com/oauth/v2/authorization",
			TokenURL: "https://www.linkedin.com/oauth/v2/accessToken",
		},
	}
}

func (p *linkedInProvider) BeginAuthorization(ctx context.Context, userID uint, _ url.Values) (string, error) {
	state, err := EncodeState(userID)
	if err != nil {
		return "", err
	}
	return p.config().AuthCodeURL(state), nil
}

func (p *linkedInProvider) CompleteAuthorization(ctx context.Context, params url.Values) (uint, error) {
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

func (p *linkedInProvider) ListAccounts(ctx context.Context, userID uint) ([]Account, error) {
	token, err := freshAccessToken(ctx, p.repos.Token, p.config(), p.Name(), userID)
	if err != nil {
		return nil, err
	}
	var body struct {
		Elements []struct {
			ID   json.Number `json:"id"`
			Name string      `json:"name"`
		} `json:"elements"`
	}
	u := buildURL(linkedinAPIBase+"/adAccountsV2", url.Values{"q": {"search"}})
	if err := getJSON(ctx, u, &body, bearerHeader(token)); err != nil {
		return nil, err
	}
	accounts := make([]Account, 0, len(body.Elements))
	for _, e := range body.Elements {
		accounts = append(accounts, Account{ID: e.ID.String(), Name: e.Name})
	}
	return accounts, nil
}

// FetchPerformanceData lists the account's campaigns, then pulls daily
// creative-level analytics for them. Rows are keyed by the creative urn
// LinkedIn reports as pivotValue.
func (p *linkedInProvider) FetchPerformanceData(ctx context.Context, userID uint, accountID, since, until string) (int, error) {
	accountID, err := resolveAccountID(p.repos.Token, p.Name(), userID, accountID)
	if err != nil {
		return 0, err
	}
	token, err := freshAccessToken(ctx, p.repos.Token, p.config(), p.Name(), userID)
	if err != nil {
		return 0, err
	}

	campaignQ := url.Values{
		"q":                        {"search"},
		"search.account.values[0]": {"urn:li:sponsoredAccount:" + accountID},
	}
	var campaigns struct {
		Elements []struct {
			ID json.Number `json:"id"`
		} `json:"elements"`
	}
	if err := getJSON(ctx, buildURL(linkedinAPIBase+"/adCampaignsV2", campaignQ), &campaigns, bearerHeader(token)); err != nil {
		return 0, err
	}
	if len(campaigns.Elements) == 0 {
		return 0, nil
	}

	start, err := time.Parse("2006-01-02", since)
	if err != nil {
		return 0, fmt.Errorf("bad since date %q: %w", since, err)
	}
	end, err := time.Parse("2006-01-02", until)
	if err != nil {
		return 0, fmt.Errorf("bad until date %q: %w", until, err)
	}

	analyticsQ := url.Values{
		"q":                          {"analytics"},
		"pivot":                      {"CREATIVE"},
		"timeGranularity":            {"DAILY"},
		"dateRange.start.day":        {fmt.Sprint(start.Day())},
		"dateRange.start.month":      {fmt.Sprint(int(start.Month()))},
		"dateRange.start.year":       {fmt.Sprint(start.Year())},
		"dateRange.end.day":          {fmt.Sprint(end.Day())},
		"dateRange.end.month":        {fmt.Sprint(int(end.Month()))},
		"dateRange.end.year":         {fmt.Sprint(end.Year())},
		"fields":                     {"impressions,clicks,costInLocalCurrency,externalWebsiteConversions,likes,shares,pivotValue,dateRange"},
	}
	for i, c := range campaigns.Elements {
		analyticsQ.Set(fmt.Sprintf("campaigns[%d]", i), "urn:li:sponsoredCampaign:"+c.ID.String())
	}

	var report struct {
		Elements []map[string]any `json:"elements"`
	}
	if err := getJSON(ctx, buildURL(linkedinAPIBase+"/adAnalyticsV2", analyticsQ), &report, bearerHeader(token)); err != nil {
		return 0, err
	}

	written := 0
	for _, row := range report.Elements {
		adID := stringField(row, "pivotValue")
		if adID == "" {
			continue
		}
		payload, err := json.Marshal(row)
		if err != nil {
			continue
		}
		rec := &models.AdRecord{
			Provider:    p.Name(),
			UserID:      userID,
			AccountID:   accountID,
			AdID:        adID,
			PayloadJSON: string(payload),
		}
		if err := p.repos.Dataset.UpsertAdRecord(rec); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}
