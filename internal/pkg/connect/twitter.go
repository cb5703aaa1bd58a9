package connect

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/dghubble/oauth1"
	twitterauth "github.com/dghubble/oauth1/twitter"
	"gorm.io/gorm"

	"github.com/nmarkov/adpulse/app/models"
	"github.com/nmarkov/adpulse/app/repository"
	"github.com/nmarkov/adpulse/internal/pkg/env"
)

const twitterAdsBase = "https://ads-api.twitter.com/12"

// twitterProvider speaks OAuth 1.0a. The request-token to user binding
// lives in the RequestTokenStore between the two legs; the final token
// secret is persisted in the refresh-token column.
type twitterProvider struct {
	repos *repository.Repositories
	rts   RequestTokenStore
}

func newTwitterProvider(repos *repository.Repositories, rts RequestTokenStore) *twitterProvider {
	return &twitterProvider{repos: repos, rts: rts}
}

func (p *twitterProvider) Name() string { return "twitter" }

func (p *twitterProvider) config() *oauth1.Config {
	return &oauth1.Config{
		ConsumerKey:    env.GetEnv("TWITTER_CONSUMER_KEY", ""),
		ConsumerSecret: env.GetEnv("TWITTER_CONSUMER_SECRET", ""),
		CallbackURL:    CallbackURL(p.Name()),
		Endpoint:       twitterauth.AuthorizeEndpoint,
	}
}

func (p *twitterProvider) BeginAuthorization(ctx context.Context, userID uint, _ url.Values) (string, error) {
	conf := p.config()
	requestToken, requestSecret, err := conf.RequestToken()
	if err != nil {
		return "", fmt.Errorf("%w: twitter request token: %v", ErrUpstream, err)
	}
	if err := p.rts.Bind(requestToken, requestSecret, userID); err != nil {
		return "", err
	}
	authURL, err := conf.AuthorizationURL(requestToken)
	if err != nil {
		return "", fmt.Errorf("%w: twitter authorization url: %v", ErrUpstream, err)
	}
	return authURL.String(), nil
}

func (p *twitterProvider) CompleteAuthorization(ctx context.Context, params url.Values) (uint, error) {
	requestToken := params.Get("oauth_token")
	verifier := params.Get("oauth_verifier")
	if requestToken == "" || verifier == "" {
		return 0, ErrAuthorization
	}
	requestSecret, userID, err := p.rts.Consume(requestToken)
	if err != nil {
		return 0, err
	}
	if err := verifyUser(p.repos.User, userID); err != nil {
		return 0, err
	}
	accessToken, accessSecret, err := p.config().AccessToken(requestToken, requestSecret, verifier)
	if err != nil {
		return 0, fmt.Errorf("%w: twitter access token: %v", ErrUpstream, err)
	}
	stored := &models.ProviderToken{
		UserID:       userID,
		Provider:     p.Name(),
		AccessToken:  accessToken,
		RefreshToken: accessSecret,
	}
	if err := p.repos.Token.Upsert(stored); err != nil {
		return 0, err
	}
	if err := p.repos.User.AddPlatform(userID, p.Name()); err != nil {
		return 0, err
	}
	resolveDefaultAccount(ctx, p, p.repos.Token, userID)
	return userID, nil
}

// signedClient returns an HTTP client that signs every request with the
// user's stored token pair.
func (p *twitterProvider) signedClient(userID uint) (*http.Client, error) {
	stored, err := p.repos.Token.Get(userID, p.Name())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotConnected
		}
		return nil, err
	}
	token := oauth1.NewToken(stored.AccessToken, stored.RefreshToken)
	client := p.config().Client(oauth1.NoContext, token)
	client.Timeout = upstreamTimeout
	return client, nil
}

func (p *twitterProvider) ListAccounts(ctx context.Context, userID uint) ([]Account, error) {
	client, err := p.signedClient(userID)
	if err != nil {
		return nil, err
	}
	var body struct {
		Data []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"data"`
	}
	if err := getJSONWith(ctx, client, twitterAdsBase+"/accounts", &body, nil); err != nil {
		return nil, err
	}
	accounts := make([]Account, 0, len(body.Data))
	for _, a := range body.Data {
		accounts = append(accounts, Account{ID: a.ID, Name: a.Name})
	}
	return accounts, nil
}

// FetchPerformanceData lists the account's promoted tweets, then pulls
// daily engagement and billing stats for them.
func (p *twitterProvider) FetchPerformanceData(ctx context.Context, userID uint, accountID, since, until string) (int, error) {
	accountID, err := resolveAccountID(p.repos.Token, p.Name(), userID, accountID)
	if err != nil {
		return 0, err
	}
	client, err := p.signedClient(userID)
	if err != nil {
		return 0, err
	}

	var promoted struct {
		Data []struct {
			ID      string `json:"id"`
			TweetID string `json:"tweet_id"`
		} `json:"data"`
	}
	u := fmt.Sprintf("%s/accounts/%s/promoted_tweets", twitterAdsBase, accountID)
	if err := getJSONWith(ctx, client, u, &promoted, nil); err != nil {
		return 0, err
	}
	if len(promoted.Data) == 0 {
		return 0, nil
	}

	ids := ""
	for i, pt := range promoted.Data {
		if i > 0 {
			ids += ","
		}
		ids += pt.ID
	}
	statsQ := url.Values{
		"entity":        {"PROMOTED_TWEET"},
		"entity_ids":    {ids},
		"granularity":   {"DAY"},
		"metric_groups": {"ENGAGEMENT,BILLING"},
		"placement":     {"ALL_ON_TWITTER"},
		"start_time":    {since},
		"end_time":      {until},
	}
	var stats struct {
		Data []map[string]any `json:"data"`
	}
	statsURL := buildURL(fmt.Sprintf("%s/stats/accounts/%s", twitterAdsBase, accountID), statsQ)
	if err := getJSONWith(ctx, client, statsURL, &stats, nil); err != nil {
		return 0, err
	}

	written := 0
	for _, row := range stats.Data {
		adID := stringField(row, "id")
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
