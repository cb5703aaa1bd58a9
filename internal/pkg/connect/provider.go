package connect

import (
	"context"
	"errors"
	"net/url"
	"sort"

	"gorm.io/gorm"

	"github.com/nmarkov/adpulse/app/repository"
)

// Account is one advertising or merchant account reachable through a
// connected provider.
type Account struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Provider is one marketing platform integration. BeginAuthorization and
// CompleteAuthorization are the two halves of the OAuth round-trip;
// FetchPerformanceData pulls the platform's reporting data into our
// storage using the stored token.
type Provider interface {
	Name() string

	// BeginAuthorization returns the provider URL the user's browser is
	// sent to. The extra query values carry provider-specific parameters
	// such as the Shopify shop domain.
	BeginAuthorization(ctx context.Context, userID uint, params url.Values) (string, error)

	// CompleteAuthorization consumes callback parameters, exchanges them
	// for a token, persists it and returns the owning user.
	CompleteAuthorization(ctx context.Context, params url.Values) (uint, error)

	// ListAccounts enumerates the accounts the stored token can see.
	ListAccounts(ctx context.Context, userID uint) ([]Account, error)

	// FetchPerformanceData pulls reporting data for the given account and
	// window into storage. Returns the number of records written.
	FetchPerformanceData(ctx context.Context, userID uint, accountID string, since, until string) (int, error)
}

// resolveDefaultAccount stores the first listed account so later fetches
// can run without an explicit account id. A failed listing leaves the
// account unresolved; fetches then need an explicit id until a listing
// succeeds.
func resolveDefaultAccount(ctx context.Context, p Provider, tokens repository.TokenRepository, userID uint) {
	accounts, err := p.ListAccounts(ctx, userID)
	if err != nil || len(accounts) == 0 {
		return
	}
	_ = tokens.SetAccountID(userID, p.Name(), accounts[0].ID)
}

// resolveAccountID prefers the explicitly requested account and falls back
// to the one stored at connect time. Without either, the fetch cannot
// address an upstream account and fails before any request is made.
func resolveAccountID(tokens repository.TokenRepository, provider string, userID uint, requested string) (string, error) {
	if requested != "" {
		return requested, nil
	}
	stored, err := tokens.Get(userID, provider)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrNotConnected
		}
		return "", err
	}
	if stored.AccountID == "" {
		return "", ErrAuthorization
	}
	return stored.AccountID, nil
}

// Registry maps platform names to their adapters.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry wires every supported platform against the given
// repositories and request-token store.
func NewRegistry(repos *repository.Repositories, rts RequestTokenStore) *Registry {
	r := &Registry{providers: map[string]Provider{}}
	r.add(newFacebookProvider(repos))
	r.add(newGoogleAdsProvider(repos))
	r.add(newGoogleAnalyticsProvider(repos))
	r.add(newLinkedInProvider(repos))
	r.add(newTikTokProvider(repos))
	r.add(newTwitterProvider(repos, rts))
	r.add(newShopifyProvider(repos))
	r.add(newStripeProvider(repos))
	r.add(newPayPalProvider(repos))
	r.add(newSquareProvider(repos))
	return r
}

func (r *Registry) add(p Provider) {
	r.providers[p.Name()] = p
}

// Get resolves a platform name, returning ErrInvalidPlatform for names we
// do not serve.
func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, ErrInvalidPlatform
	}
	return p, nil
}

// Names lists the supported platforms in stable order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
