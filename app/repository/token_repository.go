package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nmarkov/adpulse/app/models"
)

// tokenRepository implements the TokenRepository interface
type tokenRepository struct {
	db *gorm.DB
}

// NewTokenRepository creates a new provider token repository instance
func NewTokenRepository(db *gorm.DB) TokenRepository {
	return &tokenRepository{db: db}
}

// Upsert creates or overwrites the token for (user, provider)
func (r *tokenRepository) Upsert(token *models.ProviderToken) error {
	if err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "user_id"},
			{Name: "provider"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"access_token",
			"refresh_token",
			"expires_at",
			"account_id",
			"shop",
			"updated_at",
		}),
	}).Create(token).Error; err != nil {
		return err
	}

	// Ensure ID is populated after upsert.
	return r.db.Where("user_id = ? AND provider = ?", token.UserID, token.Provider).
		First(token).Error
}

// Get returns the stored token for (user, provider)
func (r *tokenRepository) Get(userID uint, provider string) (*models.ProviderToken, error) {
	var token models.ProviderToken
	err := r.db.Where("user_id = ? AND provider = ?", userID, provider).First(&token).Error
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// SetAccountID stores the default account resolved after connect.
func (r *tokenRepository) SetAccountID(userID uint, provider, accountID string) error {
	return r.db.Model(&models.ProviderToken{}).
		Where("user_id = ? AND provider = ?", userID, provider).
		Update("account_id", accountID).Error
}

// Delete removes the stored token, revoking the connection locally
func (r *tokenRepository) Delete(userID uint, provider string) error {
	return r.db.Where("user_id = ? AND provider = ?", userID, provider).
		Delete(&models.ProviderToken{}).Error
}
