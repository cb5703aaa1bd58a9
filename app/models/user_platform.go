package models

import "time"

// UserPlatform records that a user completed authorization for an external
// platform. The unique composite index gives the set semantics: connecting
// the same platform twice upserts into the same row.
type UserPlatform struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index:user_platform,unique" json:"user_id"`
	Platform  string    `gorm:"index:user_platform,unique;type:varchar(50)" json:"platform"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
