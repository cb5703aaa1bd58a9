package connect

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	stripesdk "github.com/stripe/stripe-go/v82"
	stripeclient "github.com/stripe/stripe-go/v82/client"
	"golang.org/x/oauth2"
	"gorm.io/gorm"

	"github.com/nmarkov/adpulse/app/models"
	"github.com/nmarkov/adpulse/app/repository"
)

// stripeProvider uses Stripe Connect standard accounts. The OAuth access
// token doubles as the API key scoped to the connected account.
type stripeProvider struct {
	repos *repository.Repositories
	creds Credentials
}

func newStripeProvider(repos *repository.Repositories) *stripeProvider {
	return &stripeProvider{repos: repos, creds: CredentialsFor("STRIPE", "stripe")}
}

func (p *stripeProvider) Name() string { return "stripe" }

func (p *stripeProvider) config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     p.creds.ClientID,
		ClientSecret: p.creds.ClientSecret,
		RedirectURL:  p.creds.RedirectURL,
		Scopes:       []string{"read_only"},
		Endpoint: oauth2.Endpoint{
			AuthURL:  "https://connect.stripe.com/oauth/authorize",
			TokenURL: "https://connect.stripe.com/oauth/token",
		},
	}
}

func (p *stripeProvider) BeginAuthorization(ctx context.Context, userID uint, _ url.Values) (string, error) {
	state, err := EncodeState(userID)
	if err != nil {
		return "", err
	}
	return p.config().AuthCodeURL(state), nil
}

func (p *stripeProvider) CompleteAuthorization(ctx context.Context, params url.Values) (uint, error) {
	code := params.Get("code")
	if code == "" {
		return 0, ErrAuthorization
	}
	userID, err := callbackUser(p.repos.User, params.Get("state"))
	if err != nil {
		return 0, err
	}
	tok, err := p.config().Exchange(oauthContext(ctx), code)
	if err != nil {
		return 0, fmt.Errorf("%w: stripe token exchange: %v", ErrUpstream, err)
	}
	stored := &models.ProviderToken{
		UserID:       userID,
		Provider:     p.Name(),
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
	}
	if stripeUserID, ok := tok.Extra("stripe_user_id").(string); ok {
		stored.AccountID = stripeUserID
	}
	if err := p.repos.Token.Upsert(stored); err != nil {
		return 0, err
	}
	if err := p.repos.User.AddPlatform(userID, p.Name()); err != nil {
		return 0, err
	}
	return userID, nil
}

func (p *stripeProvider) storedToken(userID uint) (*models.ProviderToken, error) {
	stored, err := p.repos.Token.Get(userID, p.Name())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotConnected
		}
		return nil, err
	}
	return stored, nil
}

func (p *stripeProvider) ListAccounts(ctx context.Context, userID uint) ([]Account, error) {
	stored, err := p.storedToken(userID)
	if err != nil {
		return nil, err
	}
	if stored.AccountID == "" {
		return nil, nil
	}
	return []Account{{ID: stored.AccountID, Name: "Stripe account " + stored.AccountID}}, nil
}

// FetchPerformanceData pages through the connected account's balance
// transactions in the window and upserts them by transaction id.
func (p *stripeProvider) FetchPerformanceData(ctx context.Context, userID uint, _ string, since, until string) (int, error) {
	stored, err := p.storedToken(userID)
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

	sc := &stripeclient.API{}
	sc.Init(stored.AccessToken, nil)

	params := &stripesdk.BalanceTransactionListParams{
		CreatedRange: &stripesdk.RangeQueryParams{
			GreaterThanOrEqual: start.Unix(),
			LesserThanOrEqual:  end.Add(24 * time.Hour).Unix(),
		},
	}
	params.Limit = stripesdk.Int64(100)
	params.Context = ctx

	written := 0
	iter := sc.BalanceTransactions.List(params)
	for iter.Next() {
		bt := iter.BalanceTransaction()
		payload, err := json.Marshal(bt)
		if err != nil {
			continue
		}
		txn := &models.PaymentTransaction{
			Provider:      p.Name(),
			TransactionID: bt.ID,
			UserID:        userID,
			MerchantID:    stored.AccountID,
			PayloadJSON:   string(payload),
		}
		if err := p.repos.Dataset.UpsertTransaction(txn); err != nil {
			return written, err
		}
		written++
	}
	if err := iter.Err(); err != nil {
		return written, fmt.Errorf("%w: stripe balance transactions: %v", ErrUpstream, err)
	}
	return written, nil
}
