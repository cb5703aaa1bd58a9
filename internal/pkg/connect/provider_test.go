package connect

import (
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/nmarkov/adpulse/app/models"
	"github.com/nmarkov/adpulse/app/repository"
)

type fakeTokenRepo struct {
	tokens map[string]*models.ProviderToken
}

func tokenKey(userID uint, provider string) string {
	return fmt.Sprintf("%d/%s", userID, provider)
}

func (f *fakeTokenRepo) Upsert(token *models.ProviderToken) error {
	f.tokens[tokenKey(token.UserID, token.Provider)] = token
	return nil
}

func (f *fakeTokenRepo) Get(userID uint, provider string) (*models.ProviderToken, error) {
	tok, ok := f.tokens[tokenKey(userID, provider)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return tok, nil
}

func (f *fakeTokenRepo) SetAccountID(userID uint, provider, accountID string) error {
	tok, ok := f.tokens[tokenKey(userID, provider)]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	tok.AccountID = accountID
	return nil
}

func (f *fakeTokenRepo) Delete(userID uint, provider string) error {
	delete(f.tokens, tokenKey(userID, provider))
	return nil
}

func newTestRegistry() *Registry {
	repos := &repository.Repositories{}
	return NewRegistry(repos, NewRequestTokenStore())
}

func TestRegistryKnowsAllPlatforms(t *testing.T) {
	reg := newTestRegistry()

	expected := []string{
		"analytics", "facebook", "googleAds", "linkedin", "paypal",
		"shopify", "square", "stripe", "tiktok", "twitter",
	}
	assert.Equal(t, expected, reg.Names())
	assert.True(t, sort.StringsAreSorted(reg.Names()))

	for _, name := range expected {
		p, err := reg.Get(name)
		require.NoError(t, err, name)
		assert.Equal(t, name, p.Name())
	}
}

func TestRegistryRejectsUnknownPlatform(t *testing.T) {
	reg := newTestRegistry()

	for _, name := range []string{"", "myspace", "Facebook", "FACEBOOK"} {
		_, err := reg.Get(name)
		assert.ErrorIs(t, err, ErrInvalidPlatform, "name %q", name)
	}
}

func TestResolveAccountIDPrefersExplicitAccount(t *testing.T) {
	tokens := &fakeTokenRepo{tokens: map[string]*models.ProviderToken{}}

	got, err := resolveAccountID(tokens, "facebook", 1, "act_123")
	require.NoError(t, err)
	assert.Equal(t, "act_123", got)
}

func TestResolveAccountIDFallsBackToStored(t *testing.T) {
	tokens := &fakeTokenRepo{tokens: map[string]*models.ProviderToken{}}
	require.NoError(t, tokens.Upsert(&models.ProviderToken{
		UserID:    1,
		Provider:  "facebook",
		AccountID: "act_456",
	}))

	got, err := resolveAccountID(tokens, "facebook", 1, "")
	require.NoError(t, err)
	assert.Equal(t, "act_456", got)
}

func TestResolveAccountIDWithoutAnyAccount(t *testing.T) {
	tokens := &fakeTokenRepo{tokens: map[string]*models.ProviderToken{}}
	require.NoError(t, tokens.Upsert(&models.ProviderToken{
		UserID:   1,
		Provider: "facebook",
	}))

	_, err := resolveAccountID(tokens, "facebook", 1, "")
	assert.ErrorIs(t, err, ErrAuthorization)
}

func TestResolveAccountIDNotConnected(t *testing.T) {
	tokens := &fakeTokenRepo{tokens: map[string]*models.ProviderToken{}}

	_, err := resolveAccountID(tokens, "facebook", 1, "")
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestValidShop(t *testing.T) {
	tests := []struct {
		shop  string
		valid bool
	}{
		{"my-store.myshopify.com", true},
		{"store123.myshopify.com", true},
		{"", false},
		{".myshopify.com", false},
		{"mystore.example.com", false},
		{"evil.com/..myshopify.com", false},
		{"my store.myshopify.com", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.valid, validShop(tt.shop), "shop %q", tt.shop)
	}
}
