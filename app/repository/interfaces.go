package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/nmarkov/adpulse/app/models"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByResetPasswordToken(token string) (*models.User, error)
	Update(user *models.User) error
	AddPlatform(userID uint, platform string) error
	RemovePlatform(userID uint, platform string) error
	ListPlatforms(userID uint) ([]string, error)
}

// TokenRepository defines the interface for provider token persistence.
// Upsert is keyed by (user, provider) so a reconnect overwrites the old grant.
type TokenRepository interface {
	Upsert(token *models.ProviderToken) error
	Get(userID uint, provider string) (*models.ProviderToken, error)
	SetAccountID(userID uint, provider, accountID string) error
	Delete(userID uint, provider string) error
}

// DatasetRepository defines the keyed-upsert cache for provider datasets and
// the windowed readers used by the analysis aggregator.
type DatasetRepository interface {
	UpsertAdRecord(record *models.AdRecord) error
	ListAdRecords(userID uint, provider string, since time.Time) ([]models.AdRecord, error)

	ReplaceAnalyticsRows(userID uint, rows []models.AnalyticsRow) error
	ListAnalyticsRows(userID uint, since time.Time) ([]models.AnalyticsRow, error)

	UpsertTransaction(txn *models.PaymentTransaction) error
	ListTransactions(userID uint, provider string, since time.Time) ([]models.PaymentTransaction, error)

	SetBundleCollection(userID uint, name string, rawJSON string) error
	GetBundle(userID uint) (*models.CommerceBundle, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	User    UserRepository
	Token   TokenRepository
	Dataset DatasetRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:    NewUserRepository(db),
		Token:   NewTokenRepository(db),
		Dataset: NewDatasetRepository(db),
	}
}
