package connect

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"gorm.io/gorm"

	"github.com/nmarkov/adpulse/app/models"
	"github.com/nmarkov/adpulse/app/repository"
)

const shopifyAPIVersion = "2024-04"

var shopifyScopes = strings.Join([]string{
	"read_orders", "read_customers", "read_products", "read_checkouts",
	"read_price_rules", "read_discounts", "read_marketing_events",
}, ",")

type shopifyProvider struct {
	repos *repository.Repositories
	creds Credentials
}

func newShopifyProvider(repos *repository.Repositories) *shopifyProvider {
	return &shopifyProvider{repos: repos, creds: CredentialsFor("SHOPIFY", "shopify")}
}

func (p *shopifyProvider) Name() string { return "shopify" }

// validShop accepts only *.myshopify.com hostnames. The shop name goes
// straight into request URLs, so anything else is rejected.
func validShop(shop string) bool {
	if !strings.HasSuffix(shop, ".myshopify.com") {
		return false
	}
	name := strings.TrimSuffix(shop, ".myshopify.com")
	if name == "" {
		return false
	}
	for _, r := range name {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '-' {
			return false
		}
	}
	return true
}

// BeginAuthorization needs the shop domain up front; Shopify authorization
// happens on the merchant's own store.
func (p *shopifyProvider) BeginAuthorization(ctx context.Context, userID uint, params url.Values) (string, error) {
	shop := params.Get("shop")
	if !validShop(shop) {
		return "", fmt.Errorf("%w: missing or invalid shop domain", ErrAuthorization)
	}
	state, err := EncodeState(userID)
	if err != nil {
		return "", err
	}
	q := url.Values{
		"client_id":    {p.creds.ClientID},
		"scope":        {shopifyScopes},
		"redirect_uri": {p.creds.RedirectURL},
		"state":        {state},
	}
	return buildURL(fmt.Sprintf("https://%s/admin/oauth/authorize", shop), q), nil
}

// CompleteAuthorization exchanges the code at the shop's JSON token
// endpoint. Shopify tokens never expire.
func (p *shopifyProvider) CompleteAuthorization(ctx context.Context, params url.Values) (uint, error) {
	code := params.Get("code")
	shop := params.Get("shop")
	if code == "" || !validShop(shop) {
		return 0, ErrAuthorization
	}
	userID, err := callbackUser(p.repos.User, params.Get("state"))
	if err != nil {
		return 0, err
	}
	resp, err := postJSONToken(ctx, fmt.Sprintf("https://%s/admin/oauth/access_token", shop), map[string]string{
		"client_id":     p.creds.ClientID,
		"client_secret": p.creds.ClientSecret,
		"code":          code,
	})
	if err != nil {
		return 0, err
	}
	stored := &models.ProviderToken{
		UserID:      userID,
		Provider:    p.Name(),
		AccessToken: resp.AccessToken,
		Shop:        shop,
	}
	if err := p.repos.Token.Upsert(stored); err != nil {
		return 0, err
	}
	if err := p.repos.User.AddPlatform(userID, p.Name()); err != nil {
		return 0, err
	}
	return userID, nil
}

func (p *shopifyProvider) storedToken(userID uint) (*models.ProviderToken, error) {
	stored, err := p.repos.Token.Get(userID, p.Name())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotConnected
		}
		return nil, err
	}
	return stored, nil
}

func shopifyAdminURL(shop, resource string, q url.Values) string {
	base := fmt.Sprintf("https://%s/admin/api/%s/%s", shop, shopifyAPIVersion, resource)
	return buildURL(base, q)
}

func shopifyHeaders(token string) map[string]string {
	return map[string]string{"X-Shopify-Access-Token": token}
}

func (p *shopifyProvider) ListAccounts(ctx context.Context, userID uint) ([]Account, error) {
	stored, err := p.storedToken(userID)
	if err != nil {
		return nil, err
	}
	var body struct {
		Shop struct {
			ID   json.Number `json:"id"`
			Name string      `json:"name"`
		} `json:"shop"`
	}
	if err := getJSON(ctx, shopifyAdminURL(stored.Shop, "shop.json", nil), &body, shopifyHeaders(stored.AccessToken)); err != nil {
		return nil, err
	}
	return []Account{{ID: body.Shop.ID.String(), Name: body.Shop.Name}}, nil
}

// bundleSources maps each commerce collection to the admin resource that
// feeds it and the JSON key the response nests the items under.
var bundleSources = []struct {
	collection string
	resource   string
	jsonKey    string
}{
	{models.BundleOrders, "orders.json", "orders"},
	{models.BundleCustomers, "customers.json", "customers"},
	{models.BundleProducts, "products.json", "products"},
	{models.BundleAbandonedCheckouts, "checkouts.json", "checkouts"},
	{models.BundleDiscounts, "price_rules.json", "price_rules"},
	{models.BundleMarketingEvents, "marketing_events.json", "marketing_events"},
}

// FetchPerformanceData replaces every collection of the user's commerce
// bundle. Order transactions need one extra call per order; a failing
// order is skipped rather than failing the whole fetch.
func (p *shopifyProvider) FetchPerformanceData(ctx context.Context, userID uint, _ string, since, until string) (int, error) {
	stored, err := p.storedToken(userID)
	if err != nil {
		return 0, err
	}
	headers := shopifyHeaders(stored.AccessToken)

	window := url.Values{
		"status":         {"any"},
		"limit":          {"250"},
		"created_at_min": {since},
		"created_at_max": {until},
	}

	written := 0
	var orderIDs []json.Number
	for _, src := range bundleSources {
		q := window
		if src.collection == models.BundleProducts || src.collection == models.BundleDiscounts {
			q = url.Values{"limit": {"250"}}
		}
		var body map[string]json.RawMessage
		if err := getJSON(ctx, shopifyAdminURL(stored.Shop, src.resource, q), &body, headers); err != nil {
			return written, err
		}
		raw, ok := body[src.jsonKey]
		if !ok {
			raw = json.RawMessage("[]")
		}
		if err := p.repos.Dataset.SetBundleCollection(userID, src.collection, string(raw)); err != nil {
			return written, err
		}
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err == nil {
			written += len(items)
		}
		if src.collection == models.BundleOrders {
			var orders []struct {
				ID json.Number `json:"id"`
			}
			if err := json.Unmarshal(raw, &orders); err == nil {
				for _, o := range orders {
					orderIDs = append(orderIDs, o.ID)
				}
			}
		}
	}

	transactions := make([]json.RawMessage, 0, len(orderIDs))
	for _, orderID := range orderIDs {
		var body struct {
			Transactions []json.RawMessage `json:"transactions"`
		}
		resource := fmt.Sprintf("orders/%s/transactions.json", orderID.String())
		if err := getJSON(ctx, shopifyAdminURL(stored.Shop, resource, nil), &body, headers); err != nil {
			// one bad order must not sink the rest
			continue
		}
		transactions = append(transactions, body.Transactions...)
	}
	rawTxns, err := json.Marshal(transactions)
	if err != nil {
		return written, err
	}
	if err := p.repos.Dataset.SetBundleCollection(userID, models.BundleTransactions, string(rawTxns)); err != nil {
		return written, err
	}
	written += len(transactions)
	return written, nil
}
