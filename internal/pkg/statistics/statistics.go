package statistics

import (
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/nmarkov/adpulse/app/models"
	"github.com/nmarkov/adpulse/internal/pkg/cache"
	"github.com/nmarkov/adpulse/internal/pkg/database"
)

const (
	CacheKeyUsers        = "statistics:users:total"
	CacheKeyAdRecords    = "statistics:adrecords:total"
	CacheKeyTransactions = "statistics:transactions:total"
	CacheKeyFetchedToday = "statistics:adrecords:today"
	CacheExpiration      = 30 * time.Minute
)

// Data summarizes the stored datasets across all users.
type Data struct {
	TotalUsers        int `json:"total_users"`
	TotalAdRecords    int `json:"total_ad_records"`
	TotalTransactions int `json:"total_transactions"`
	FetchedToday      int `json:"fetched_today"`
}

var (
	lastCacheUpdate     time.Time
	cacheUpdateMutex    sync.Mutex
	cacheUpdateInterval = 5 * time.Minute
)

func shouldUpdateCache() bool {
	cacheUpdateMutex.Lock()
	defer cacheUpdateMutex.Unlock()

	return time.Since(lastCacheUpdate) > cacheUpdateInterval
}

// UpdateCacheIfNeeded refreshes the cached totals when they are older
// than the update interval.
func UpdateCacheIfNeeded() {
	if shouldUpdateCache() {
		cacheUpdateMutex.Lock()
		defer cacheUpdateMutex.Unlock()

		if err := UpdateStatisticsCache(); err != nil {
			log.Printf("statistics cache update failed: %v", err)
		} else {
			lastCacheUpdate = time.Now()
		}
	}
}

// UpdateStatisticsCache recounts everything and stores the totals in the
// cache.
func UpdateStatisticsCache() error {
	db := database.GetDB()

	var totalUsers int64
	if err := db.Model(&models.User{}).Count(&totalUsers).Error; err != nil {
		return err
	}

	var totalAdRecords int64
	if err := db.Model(&models.AdRecord{}).Count(&totalAdRecords).Error; err != nil {
		return err
	}

	var totalTransactions int64
	if err := db.Model(&models.PaymentTransaction{}).Count(&totalTransactions).Error; err != nil {
		return err
	}

	var fetchedToday int64
	todayStart, _ := time.Parse("2006-01-02", time.Now().Format("2006-01-02"))
	todayEnd := todayStart.Add(24 * time.Hour)
	if err := db.Model(&models.AdRecord{}).
		Where("updated_at BETWEEN ? AND ?", todayStart, todayEnd).
		Count(&fetchedToday).Error; err != nil {
		return err
	}

	for key, value := range map[string]int64{
		CacheKeyUsers:        totalUsers,
		CacheKeyAdRecords:    totalAdRecords,
		CacheKeyTransactions: totalTransactions,
		CacheKeyFetchedToday: fetchedToday,
	} {
		if err := cache.Set(key, strconv.FormatInt(value, 10), CacheExpiration); err != nil {
			return err
		}
	}

	return nil
}

func cachedInt(key string) int {
	val, err := cache.Get(key)
	if err != nil {
		return 0
	}
	count, err := strconv.Atoi(val)
	if err != nil {
		return 0
	}
	return count
}

// GetStatisticsData returns the cached totals, refreshing them first when
// they are stale.
func GetStatisticsData() Data {
	UpdateCacheIfNeeded()

	return Data{
		TotalUsers:        cachedInt(CacheKeyUsers),
		TotalAdRecords:    cachedInt(CacheKeyAdRecords),
		TotalTransactions: cachedInt(CacheKeyTransactions),
		FetchedToday:      cachedInt(CacheKeyFetchedToday),
	}
}
