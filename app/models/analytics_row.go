package models

import "time"

// AnalyticsRow is one Google Analytics report row with typed dimensions and
// metrics. Rows are replaced wholesale per fetch, not upserted by id: GA4
// report rows carry no stable native identifier.
type AnalyticsRow struct {
	ID                    uint      `gorm:"primaryKey" json:"id"`
	UserID                uint      `gorm:"index" json:"user_id"`
	Date                  time.Time `gorm:"index" json:"date"`
	FirstUserSource       string    `gorm:"type:varchar(191)" json:"first_user_source"`
	SessionSource         string    `gorm:"type:varchar(191)" json:"session_source"`
	Country               string    `gorm:"type:varchar(100)" json:"country"`
	City                  string    `gorm:"type:varchar(100)" json:"city"`
	DeviceCategory        string    `gorm:"type:varchar(50)" json:"device_category"`
	Browser               string    `gorm:"type:varchar(100)" json:"browser"`
	ManualSource          string    `gorm:"type:varchar(191)" json:"manual_source"`
	Medium                string    `gorm:"type:varchar(100)" json:"medium"`
	ActiveUsers           int       `gorm:"default:0" json:"active_users"`
	NewUsers              int       `gorm:"default:0" json:"new_users"`
	Sessions              int       `gorm:"default:0" json:"sessions"`
	BounceRate            float64   `gorm:"default:0" json:"bounce_rate"`
	SessionDuration       float64   `gorm:"default:0" json:"session_duration"`
	Transactions          int       `gorm:"default:0" json:"transactions"`
	PurchaseRevenue       float64   `gorm:"default:0" json:"purchase_revenue"`
	EngagementRate        float64   `gorm:"default:0" json:"engagement_rate"`
	EcommercePurchases    int       `gorm:"default:0" json:"ecommerce_purchases"`
	AverageRevenuePerUser float64   `gorm:"default:0" json:"average_revenue_per_user"`
	CreatedAt             time.Time `gorm:"autoCreateTime" json:"created_at"`
}
