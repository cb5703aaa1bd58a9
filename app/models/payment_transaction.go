package models

import "time"

// PaymentTransaction caches one transaction from a payment provider (Stripe,
// PayPal, Square), keyed by the provider-native transaction id.
type PaymentTransaction struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	Provider      string `gorm:"index:provider_txn,unique;type:varchar(50)" json:"provider"`
	TransactionID string `gorm:"index:provider_txn,unique;type:varchar(191)" json:"transaction_id"`
	UserID        uint   `gorm:"index" json:"user_id"`
	MerchantID    string `gorm:"type:varchar(191)" json:"merchant_id"`
	// PayloadJSON holds the full transaction object as returned by the provider.
	PayloadJSON string    `gorm:"type:json" json:"payload"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
