package repository

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nmarkov/adpulse/app/models"
)

// datasetRepository implements the DatasetRepository interface
type datasetRepository struct {
	db *gorm.DB
}

// NewDatasetRepository creates a new dataset cache repository instance
func NewDatasetRepository(db *gorm.DB) DatasetRepository {
	return &datasetRepository{db: db}
}

// UpsertAdRecord creates or overwrites the cached row for (provider, ad id)
func (r *datasetRepository) UpsertAdRecord(record *models.AdRecord) error {
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "ad_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"user_id",
			"account_id",
			"campaign_id",
			"ad_group_id",
			"ad_name",
			"payload_json",
			"updated_at",
		}),
	}).Create(record).Error
}

// ListAdRecords returns the cached ad rows for a user and provider fetched
// or updated since the given instant
func (r *datasetRepository) ListAdRecords(userID uint, provider string, since time.Time) ([]models.AdRecord, error) {
	var records []models.AdRecord
	err := r.db.Where("user_id = ? AND provider = ? AND updated_at >= ?", userID, provider, since).
		Find(&records).Error
	return records, err
}

// ReplaceAnalyticsRows swaps the user's analytics report rows for a fresh
// fetch in one transaction. GA rows have no native id to upsert by.
func (r *datasetRepository) ReplaceAnalyticsRows(userID uint, rows []models.AnalyticsRow) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&models.AnalyticsRow{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
}

// ListAnalyticsRows returns analytics rows dated since the given instant
func (r *datasetRepository) ListAnalyticsRows(userID uint, since time.Time) ([]models.AnalyticsRow, error) {
	var rows []models.AnalyticsRow
	err := r.db.Where("user_id = ? AND date >= ?", userID, since).
		Order("date").
		Find(&rows).Error
	return rows, err
}

// UpsertTransaction creates or overwrites the cached transaction for
// (provider, transaction id)
func (r *datasetRepository) UpsertTransaction(txn *models.PaymentTransaction) error {
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "transaction_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"user_id",
			"merchant_id",
			"payload_json",
			"updated_at",
		}),
	}).Create(txn).Error
}

// ListTransactions returns cached payment transactions updated since the
// given instant
func (r *datasetRepository) ListTransactions(userID uint, provider string, since time.Time) ([]models.PaymentTransaction, error) {
	var txns []models.PaymentTransaction
	err := r.db.Where("user_id = ? AND provider = ? AND updated_at >= ?", userID, provider, since).
		Find(&txns).Error
	return txns, err
}

// SetBundleCollection replaces one named collection of the user's commerce
// bundle, creating the bundle row when absent
func (r *datasetRepository) SetBundleCollection(userID uint, name string, rawJSON string) error {
	column, ok := bundleColumn(name)
	if !ok {
		return fmt.Errorf("unknown bundle collection %q", name)
	}

	bundle := models.CommerceBundle{UserID: userID}
	if err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&bundle).Error; err != nil {
		return err
	}

	return r.db.Model(&models.CommerceBundle{}).
		Where("user_id = ?", userID).
		Update(column, rawJSON).Error
}

// GetBundle returns the user's commerce bundle
func (r *datasetRepository) GetBundle(userID uint) (*models.CommerceBundle, error) {
	var bundle models.CommerceBundle
	err := r.db.Where("user_id = ?", userID).First(&bundle).Error
	if err != nil {
		return nil, err
	}
	return &bundle, nil
}

func bundleColumn(name string) (string, bool) {
	switch name {
	case models.BundleOrders:
		return "orders_json", true
	case models.BundleCustomers:
		return "customers_json", true
	case models.BundleProducts:
		return "products_json", true
	case models.BundleAbandonedCheckouts:
		return "abandoned_checkouts_json", true
	case models.BundleTransactions:
		return "transactions_json", true
	case models.BundleDiscounts:
		return "discounts_json", true
	case models.BundleMarketingEvents:
		return "marketing_events_json", true
	default:
		return "", false
	}
}
