package quota

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/nmarkov/adpulse/app/models"
)

// gormStore implements Store with single-statement conditional updates. The
// WHERE clauses carry the precondition, so concurrent callers race on the
// database row, not on stale in-process reads.
type gormStore struct {
	db *gorm.DB
}

// NewStore creates a quota store backed by GORM.
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) GetUser(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *gormStore) ResetCycleIfExpired(ctx context.Context, userID uint, now, newExpiry time.Time) (bool, error) {
	tx := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND subscription_expires_at IS NOT NULL AND subscription_expires_at <= ?", userID, now).
		Updates(map[string]any{
			"request_count":           0,
			"subscription_expires_at": newExpiry,
		})
	return tx.RowsAffected > 0, tx.Error
}

func (s *gormStore) IncrementIfBelow(ctx context.Context, userID uint, limit int) (bool, error) {
	query := s.db.WithContext(ctx).Model(&models.User{})
	if limit < 0 {
		query = query.Where("id = ?", userID)
	} else {
		query = query.Where("id = ? AND request_count < ?", userID, limit)
	}
	tx := query.Update("request_count", gorm.Expr("request_count + 1"))
	return tx.RowsAffected > 0, tx.Error
}
