package models

import "time"

// AdRecord caches one row of a provider's ad reporting API, keyed by the
// provider-native ad id. Re-fetching the same ad overwrites in place.
type AdRecord struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Provider   string    `gorm:"index:provider_ad,unique;type:varchar(50)" json:"provider"`
	AdID       string    `gorm:"index:provider_ad,unique;type:varchar(191)" json:"ad_id"`
	UserID     uint      `gorm:"index" json:"user_id"`
	AccountID  string    `gorm:"type:varchar(191)" json:"account_id"`
	CampaignID string    `gorm:"type:varchar(191)" json:"campaign_id"`
	AdGroupID  string    `gorm:"type:varchar(191)" json:"ad_group_id"`
	AdName     string    `gorm:"type:varchar(255)" json:"ad_name"`
	// PayloadJSON holds the full API row as returned by the provider.
	PayloadJSON string    `gorm:"type:json" json:"payload"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
