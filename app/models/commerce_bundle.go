package models

import "time"

// Commerce bundle collection names. These double as the JSON column selector
// for partial updates and as the dataset selector for analysis types.
const (
	BundleOrders             = "orders"
	BundleCustomers          = "customers"
	BundleProducts           = "products"
	BundleAbandonedCheckouts = "abandoned_checkouts"
	BundleTransactions       = "transactions"
	BundleDiscounts          = "discounts"
	BundleMarketingEvents    = "marketing_events"
)

// CommerceBundle is the singleton e-commerce aggregate per user (Shopify).
// Each fetch endpoint replaces exactly one named collection; the row itself
// is upserted by user id.
type CommerceBundle struct {
	ID                     uint      `gorm:"primaryKey" json:"id"`
	UserID                 uint      `gorm:"uniqueIndex" json:"user_id"`
	OrdersJSON             string    `gorm:"type:json" json:"orders"`
	CustomersJSON          string    `gorm:"type:json" json:"customers"`
	ProductsJSON           string    `gorm:"type:json" json:"products"`
	AbandonedCheckoutsJSON string    `gorm:"type:json" json:"abandoned_checkouts"`
	TransactionsJSON       string    `gorm:"type:json" json:"transactions"`
	DiscountsJSON          string    `gorm:"type:json" json:"discounts"`
	MarketingEventsJSON    string    `gorm:"type:json" json:"marketing_events"`
	CreatedAt              time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt              time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Collection returns the raw JSON of a named collection, empty string when
// the name is unknown or nothing was fetched yet.
func (b *CommerceBundle) Collection(name string) string {
	switch name {
	case BundleOrders:
		return b.OrdersJSON
	case BundleCustomers:
		return b.CustomersJSON
	case BundleProducts:
		return b.ProductsJSON
	case BundleAbandonedCheckouts:
		return b.AbandonedCheckoutsJSON
	case BundleTransactions:
		return b.TransactionsJSON
	case BundleDiscounts:
		return b.DiscountsJSON
	case BundleMarketingEvents:
		return b.MarketingEventsJSON
	default:
		return ""
	}
}
