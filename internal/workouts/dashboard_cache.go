package workouts

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/2beens/fitdash/internal/telemetry/metrics"
	"github.com/2beens/fitdash/internal/workouts/repo"
	"github.com/2beens/fitdash/internal/workouts/stats"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"
)

const (
	megabyte                  = 1024 * 1024
	DefaultDashboardCacheSize = 10 * megabyte
	DefaultDashboardCacheTTL  = time.Hour
)

// DashboardCache keeps computed dashboards per user and reference date.
// Every user has a generation number which is part of the entry key;
// invalidating a user bumps it, so older entries are never read again
// and get evicted by freecache eventually.
type DashboardCache struct {
	cache          *freecache.Cache
	expireSeconds  int
	metricsManager *metrics.Manager
	nowFunc        func() time.Time
}

func NewDashboardCache(sizeBytes int, ttl time.Duration, metricsManager *metrics.Manager) *DashboardCache {
	if sizeBytes <= 0 {
		sizeBytes = DefaultDashboardCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultDashboardCacheTTL
	}
	return &DashboardCache{
		cache:          freecache.NewCache(sizeBytes),
		expireSeconds:  int(ttl.Seconds()),
		metricsManager: metricsManager,
		nowFunc:        time.Now,
	}
}

// Generation returns the current cache generation of the user.
// Read it before fetching workouts, and pass it to Set afterwards.
func (c *DashboardCache) Generation(userID int) int64 {
	genBytes, err := c.cache.Get(generationKey(userID))
	if err == nil {
		if gen, err := strconv.ParseInt(string(genBytes), 10, 64); err == nil {
			return gen
		}
	}
	return c.bump(userID)
}

func (c *DashboardCache) Get(userID int, generation int64, date time.Time) (*stats.DerivedStatistics, bool) {
	entryBytes, err := c.cache.Get(entryKey(userID, generation, date))
	if err != nil {
		c.metricsManager.CounterDashboardCache.WithLabelValues("miss").Inc()
		return nil, false
	}

	var dashboard stats.DerivedStatistics
	if err := json.Unmarshal(entryBytes, &dashboard); err != nil {
		log.Errorf("dashboard cache, unmarshal entry for user %d: %s", userID, err)
		c.metricsManager.CounterDashboardCache.WithLabelValues("miss").Inc()
		return nil, false
	}

	c.metricsManager.CounterDashboardCache.WithLabelValues("hit").Inc()
	return &dashboard, true
}

func (c *DashboardCache) Set(userID int, generation int64, date time.Time, dashboard stats.DerivedStatistics) {
	entryBytes, err := json.Marshal(dashboard)
	if err != nil {
		log.Errorf("dashboard cache, marshal entry for user %d: %s", userID, err)
		return
	}
	if err := c.cache.Set(entryKey(userID, generation, date), entryBytes, c.expireSeconds); err != nil {
		log.Errorf("dashboard cache, set entry for user %d: %s", userID, err)
	}
}

// Invalidate drops all cached dashboards of the user.
func (c *DashboardCache) Invalidate(userID int) {
	c.bump(userID)
}

func (c *DashboardCache) bump(userID int) int64 {
	gen := c.nowFunc().UnixNano()
	if prevBytes, err := c.cache.Get(generationKey(userID)); err == nil {
		if prev, err := strconv.ParseInt(string(prevBytes), 10, 64); err == nil && gen <= prev {
			gen = prev + 1
		}
	}
	if err := c.cache.Set(generationKey(userID), []byte(strconv.FormatInt(gen, 10)), 0); err != nil {
		log.Errorf("dashboard cache, set generation for user %d: %s", userID, err)
	}
	return gen
}

func generationKey(userID int) []byte {
	return []byte(fmt.Sprintf("dashboard-gen::%d", userID))
}

func entryKey(userID int, generation int64, date time.Time) []byte {
	return []byte(fmt.Sprintf("dashboard::%d::%d::%s", userID, generation, repo.Day(date).Format(repo.DateLayout)))
}
