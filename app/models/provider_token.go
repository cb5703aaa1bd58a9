package models

import "time"

// ProviderToken stores one user's authorization grant for one external
// platform. At most one live token exists per (user, provider) pair; the
// OAuth callback upserts into the same row on reconnect.
//
// RefreshToken doubles as the OAuth 1.0a token secret for providers that
// never issue refresh tokens (Twitter).
type ProviderToken struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	UserID       uint       `gorm:"index:user_provider,unique" json:"user_id"`
	Provider     string     `gorm:"index:user_provider,unique;type:varchar(50)" json:"provider"`
	AccessToken  string     `gorm:"type:text" json:"-"`
	RefreshToken string     `gorm:"type:text" json:"-"`
	ExpiresAt    *time.Time `gorm:"type:timestamp;default:null" json:"expires_at,omitempty"`
	// AccountID holds the provider-native account reference: ad account id
	// (Facebook/LinkedIn), customer id (Google Ads), advertiser id (TikTok),
	// connected-account id (Stripe), merchant/payer id (PayPal, Square) or
	// the numeric user id (Twitter). Resolved lazily; empty until the first
	// successful account listing.
	AccountID string    `gorm:"type:varchar(191);default:null" json:"account_id,omitempty"`
	Shop      string    `gorm:"type:varchar(191);default:null" json:"shop,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsExpired reports whether the token expiry has passed the given margin.
// Tokens without a stored expiry never expire locally (Shopify).
func (t *ProviderToken) IsExpired(margin time.Duration) bool {
	if t.ExpiresAt == nil {
		return false
	}
	return time.Now().Add(margin).After(*t.ExpiresAt)
}
