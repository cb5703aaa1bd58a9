package connect

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"gorm.io/gorm"

	"github.com/nmarkov/adpulse/app/models"
	"github.com/nmarkov/adpulse/app/repository"
	"github.com/nmarkov/adpulse/internal/pkg/env"
)

const tiktokAPIBase = "https://business-api.tiktok.com/open_api/v1.3"

// tiktokEnvelope is the wrapper every Business API response arrives in.
type tiktokEnvelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (e *tiktokEnvelope) unwrap(out any) error {
	if e.Code != 0 {
		return fmt.Errorf("%w: tiktok code %d: %s", ErrUpstream, e.Code, e.Message)
	}
	return json.Unmarshal(e.Data, out)
}

type tikTokProvider struct {
	repos *repository.Repositories
}

func newTikTokProvider(repos *repository.Repositories) *tikTokProvider {
	return &tikTokProvider{repos: repos}
}

func (p *tikTokProvider) Name() string { return "tiktok" }

func (p *tikTokProvider) appID() string     { return env.GetEnv("TIKTOK_APP_ID", "") }
func (p *tikTokProvider) appSecret() string { return env.GetEnv("TIKTOK_APP_SECRET", "") }

func (p *tikTokProvider) BeginAuthorization(ctx context.Context, userID uint, _ url.Values) (string, error) {
	state, err := EncodeState(userID)
	if err != nil {
		return "", err
	}
	q := url.Values{
		"app_id":       {p.appID()},
		"state":        {state},
		"redirect_uri": {CallbackURL(p.Name())},
	}
	return buildURL("https://business-api.tiktok.com/portal/auth", q), nil
}

// CompleteAuthorization trades the auth_code at TikTok's JSON token
// endpoint. The token is long lived and carries no expiry.
func (p *tikTokProvider) CompleteAuthorization(ctx context.Context, params url.Values) (uint, error) {
	code := params.Get("auth_code")
	if code == "" {
		code = params.Get("code")
	}
	if code == "" {
		return 0, ErrAuthorization
	}
	userID, err := callbackUser(p.repos.User, params.Get("state"))
	if err != nil {
		return 0, err
	}

	var envelope tiktokEnvelope
	payload := map[string]string{
		"app_id":    p.appID(),
		"secret":    p.appSecret(),
		"auth_code": code,
	}
	if err := postJSON(ctx, tiktokAPIBase+"/oauth2/access_token/", payload, &envelope, nil); err != nil {
		return 0, err
	}
	var data struct {
		AccessToken   string        `json:"access_token"`
		AdvertiserIDs []json.Number `json:"advertiser_ids"`
	}
	if err := envelope.unwrap(&data); err != nil {
		return 0, err
	}
	if data.AccessToken == "" {
		return 0, fmt.Errorf("%w: empty tiktok access token", ErrUpstream)
	}

	stored := &models.ProviderToken{
		UserID:      userID,
		Provider:    p.Name(),
		AccessToken: data.AccessToken,
	}
	if len(data.AdvertiserIDs) > 0 {
		stored.AccountID = data.AdvertiserIDs[0].String()
	}
	if err := p.repos.Token.Upsert(stored); err != nil {
		return 0, err
	}
	if err := p.repos.User.AddPlatform(userID, p.Name()); err != nil {
		return 0, err
	}
	return userID, nil
}

func (p *tikTokProvider) accessToken(userID uint) (string, error) {
	stored, err := p.repos.Token.Get(userID, p.Name())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrNotConnected
		}
		return "", err
	}
	return stored.AccessToken, nil
}

func (p *tikTokProvider) ListAccounts(ctx context.Context, userID uint) ([]Account, error) {
	token, err := p.accessToken(userID)
	if err != nil {
		return nil, err
	}
	q := url.Values{
		"app_id": {p.appID()},
		"secret": {p.appSecret()},
	}
	var envelope tiktokEnvelope
	u := buildURL(tiktokAPIBase+"/oauth2/advertiser/get/", q)
	if err := getJSON(ctx, u, &envelope, map[string]string{"Access-Token": token}); err != nil {
		return nil, err
	}
	var data struct {
		List []struct {
			AdvertiserID   json.Number `json:"advertiser_id"`
			AdvertiserName string      `json:"advertiser_name"`
		} `json:"list"`
	}
	if err := envelope.unwrap(&data); err != nil {
		return nil, err
	}
	accounts := make([]Account, 0, len(data.List))
	for _, a := range data.List {
		accounts = append(accounts, Account{ID: a.AdvertiserID.String(), Name: a.AdvertiserName})
	}
	return accounts, nil
}

func (p *tikTokProvider) FetchPerformanceData(ctx context.Context, userID uint, accountID, since, until string) (int, error) {
	accountID, err := resolveAccountID(p.repos.Token, p.Name(), userID, accountID)
	if err != nil {
		return 0, err
	}
	token, err := p.accessToken(userID)
	if err != nil {
		return 0, err
	}

	q := url.Values{
		"advertiser_id": {accountID},
		"report_type":   {"BASIC"},
		"data_level":    {"AUCTION_AD"},
		"dimensions":    {`["ad_id","stat_time_day"]`},
		"metrics":       {`["spend","impressions","clicks","ctr","cpc","conversion","ad_name","campaign_id","adgroup_id"]`},
		"start_date":    {since},
		"end_date":      {until},
		"page_size":     {"200"},
	}
	var envelope tiktokEnvelope
	u := buildURL(tiktokAPIBase+"/report/integrated/get/", q)
	if err := getJSON(ctx, u, &envelope, map[string]string{"Access-Token": token}); err != nil {
		return 0, err
	}
	var data struct {
		List []struct {
			Dimensions map[string]any `json:"dimensions"`
			Metrics    map[string]any `json:"metrics"`
		} `json:"list"`
	}
	if err := envelope.unwrap(&data); err != nil {
		return 0, err
	}

	written := 0
	for _, row := range data.List {
		adID := stringField(row.Dimensions, "ad_id")
		if adID == "" {
			continue
		}
		payload, err := json.Marshal(map[string]any{
			"dimensions": row.Dimensions,
			"metrics":    row.Metrics,
		})
		if err != nil {
			continue
		}
		rec := &models.AdRecord{
			Provider:    p.Name(),
			UserID:      userID,
			AccountID:   accountID,
			AdID:        adID,
			AdName:      stringField(row.Metrics, "ad_name"),
			CampaignID:  stringField(row.Metrics, "campaign_id"),
			AdGroupID:   stringField(row.Metrics, "adgroup_id"),
			PayloadJSON: string(payload),
		}
		if err := p.repos.Dataset.UpsertAdRecord(rec); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}
