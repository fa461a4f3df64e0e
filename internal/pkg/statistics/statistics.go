package statistics

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/focusgate/focusgate-server/app/models"
	"github.com/focusgate/focusgate-server/internal/pkg/cache"
	"github.com/focusgate/focusgate-server/internal/pkg/database"
)

const (
	CacheKeyActivePasses = "statistics:passes:active"
	CacheKeyDailyGrants  = "statistics:grants:daily:%s" // Format with date YYYY-MM-DD
	CacheKeyOpenUnlocks  = "statistics:unlocks:open"
	CacheExpiration      = 30 * time.Minute
)

// StatisticsData is the entitlement overview surfaced on the ops endpoint.
type StatisticsData struct {
	ActivePasses int `json:"active_passes"`
	TodayGrants  int `json:"today_grants"`
	OpenUnlocks  int `json:"open_unlocks"`
}

var (
	lastCacheUpdate     time.Time
	cacheUpdateMutex    sync.Mutex
	cacheUpdateInterval = 5 * time.Minute
)

// ShouldUpdateCache reports whether the cached counts are stale.
func ShouldUpdateCache() bool {
	cacheUpdateMutex.Lock()
	defer cacheUpdateMutex.Unlock()

	return time.Since(lastCacheUpdate) > cacheUpdateInterval
}

// UpdateCacheIfNeeded refreshes the cached counts when they are stale.
func UpdateCacheIfNeeded() {
	if ShouldUpdateCache() {
		cacheUpdateMutex.Lock()
		defer cacheUpdateMutex.Unlock()

		if err := UpdateStatisticsCache(); err != nil {
			log.WithError(err).Warn("statistics cache refresh failed")
		} else {
			lastCacheUpdate = time.Now()
		}
	}
}

// ResetCacheUpdateTimer forces the next read to refresh.
func ResetCacheUpdateTimer() {
	cacheUpdateMutex.Lock()
	defer cacheUpdateMutex.Unlock()

	lastCacheUpdate = time.Time{}
}

// UpdateStatisticsCache recounts the entitlement tables and stores the
// results in redis. Counts are approximations for dashboards; entitlement
// decisions never read them.
func UpdateStatisticsCache() error {
	db := database.GetDB()
	now := time.Now()

	var activePasses int64
	if err := db.Model(&models.PremiumPass{}).Where("expires_at > ?", now).Count(&activePasses).Error; err != nil {
		return fmt.Errorf("count active passes: %w", err)
	}

	today := now.Format("2006-01-02")
	todayStart, _ := time.Parse("2006-01-02", today)
	todayEnd := todayStart.Add(24 * time.Hour)

	var todayPasses int64
	if err := db.Model(&models.PremiumPass{}).
		Where("paid_at BETWEEN ? AND ?", todayStart, todayEnd).
		Count(&todayPasses).Error; err != nil {
		return fmt.Errorf("count today's passes: %w", err)
	}
	var todayUnlocks int64
	if err := db.Model(&models.EmergencyUnlock{}).
		Where("paid_at BETWEEN ? AND ?", todayStart, todayEnd).
		Count(&todayUnlocks).Error; err != nil {
		return fmt.Errorf("count today's unlocks: %w", err)
	}

	// Default scope hides consumed (soft-deleted) unlocks.
	var openUnlocks int64
	if err := db.Model(&models.EmergencyUnlock{}).Count(&openUnlocks).Error; err != nil {
		return fmt.Errorf("count open unlocks: %w", err)
	}

	if err := cache.Set(CacheKeyActivePasses, strconv.FormatInt(activePasses, 10), CacheExpiration); err != nil {
		return err
	}
	dailyKey := fmt.Sprintf(CacheKeyDailyGrants, today)
	if err := cache.Set(dailyKey, strconv.FormatInt(todayPasses+todayUnlocks, 10), CacheExpiration); err != nil {
		return err
	}
	if err := cache.Set(CacheKeyOpenUnlocks, strconv.FormatInt(openUnlocks, 10), CacheExpiration); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"active_passes": activePasses,
		"today_grants":  todayPasses + todayUnlocks,
		"open_unlocks":  openUnlocks,
	}).Debug("statistics cache updated")

	return nil
}

// GetActivePasses returns the number of currently valid premium passes.
func GetActivePasses() int {
	return cachedCount(CacheKeyActivePasses, func() (int64, error) {
		var count int64
		err := database.GetDB().Model(&models.PremiumPass{}).
			Where("expires_at > ?", time.Now()).Count(&count).Error
		return count, err
	})
}

// GetTodayGrants returns the number of entitlements granted today.
func GetTodayGrants() int {
	today := time.Now().Format("2006-01-02")
	dailyKey := fmt.Sprintf(CacheKeyDailyGrants, today)

	return cachedCount(dailyKey, func() (int64, error) {
		todayStart, _ := time.Parse("2006-01-02", today)
		todayEnd := todayStart.Add(24 * time.Hour)
		db := database.GetDB()

		var passes, unlocks int64
		if err := db.Model(&models.PremiumPass{}).
			Where("paid_at BETWEEN ? AND ?", todayStart, todayEnd).Count(&passes).Error; err != nil {
			return 0, err
		}
		if err := db.Model(&models.EmergencyUnlock{}).
			Where("paid_at BETWEEN ? AND ?", todayStart, todayEnd).Count(&unlocks).Error; err != nil {
			return 0, err
		}
		return passes + unlocks, nil
	})
}

// GetOpenUnlocks returns the number of purchased but unconsumed emergency
// unlocks.
func GetOpenUnlocks() int {
	return cachedCount(CacheKeyOpenUnlocks, func() (int64, error) {
		var count int64
		err := database.GetDB().Model(&models.EmergencyUnlock{}).Count(&count).Error
		return count, err
	})
}

// GetStatisticsData returns all statistics, refreshing the cache if stale.
func GetStatisticsData() StatisticsData {
	UpdateCacheIfNeeded()

	return StatisticsData{
		ActivePasses: GetActivePasses(),
		TodayGrants:  GetTodayGrants(),
		OpenUnlocks:  GetOpenUnlocks(),
	}
}

// cachedCount reads a counter from the cache, recomputing and re-caching it
// on a miss. Count failures read as zero so dashboards degrade instead of
// erroring.
func cachedCount(key string, compute func() (int64, error)) int {
	if val, err := cache.Get(key); err == nil && val != "" {
		if count, perr := strconv.ParseInt(val, 10, 64); perr == nil {
			return int(count)
		}
	}

	count, err := compute()
	if err != nil {
		log.WithError(err).WithField("key", key).Warn("statistics count failed")
		return 0
	}
	if err := cache.Set(key, strconv.FormatInt(count, 10), CacheExpiration); err != nil {
		log.WithError(err).WithField("key", key).Debug("statistics cache write failed")
	}
	return int(count)
}
