// Package cache provides the Redis cache-aside layer for contractor profiles,
// search results, and availability snapshots. Every Redis failure degrades to a
// cache miss so the service keeps answering from Postgres and Elasticsearch.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"contractor-matching/internal/common/logger"
	"contractor-matching/internal/common/metrics"
	"contractor-matching/internal/geo"
	"contractor-matching/internal/models"
)

const (
	profileKeyPrefix      = "contractor:profile:"
	availabilityKeyPrefix = "avail:"
	searchKeyPrefix       = "search:"
	searchVersionKey      = "search:version"

	namespaceProfile      = "profile"
	namespaceAvailability = "availability"
	namespaceSearch       = "search"
)

// TTLs holds the expiration for each cache namespace.
type TTLs struct {
	Profile      time.Duration
	Search       time.Duration
	Availability time.Duration
}

// ContractorCache wraps a Redis client with the namespaces used by matching.
type ContractorCache struct {
	client *redis.Client
	ttls   TTLs
	logger logger.Logger
}

func New(client *redis.Client, ttls TTLs, log logger.Logger) *ContractorCache {
	return &ContractorCache{
		client: client,
		ttls:   ttls,
		logger: log.WithFields(map[string]interface{}{"component": "cache"}),
	}
}

// ==========================
// Contractor Profiles
// ==========================

// GetProfile returns the cached profile, or (nil, false) on miss or Redis error.
func (c *ContractorCache) GetProfile(ctx context.Context, contractorID string) (*models.ContractorProfile, bool) {
	val, err := c.client.Get(ctx, profileKeyPrefix+contractorID).Result()
	if err != nil {
		c.recordMiss(namespaceProfile, err)
		return nil, false
	}

	var profile models.ContractorProfile
	if err := json.Unmarshal([]byte(val), &profile); err != nil {
		c.logger.Warn("corrupt profile cache entry, discarding", map[string]interface{}{
			"contractorId": contractorID,
			"error":        err.Error(),
		})
		c.client.Del(ctx, profileKeyPrefix+contractorID)
		metrics.CacheOperationsTotal.WithLabelValues(namespaceProfile, "miss").Inc()
		return nil, false
	}

	metrics.CacheOperationsTotal.WithLabelValues(namespaceProfile, "hit").Inc()
	return &profile, true
}

// SetProfile stores the profile. Errors are logged and swallowed.
func (c *ContractorCache) SetProfile(ctx context.Context, profile *models.ContractorProfile) {
	data, err := json.Marshal(profile)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, profileKeyPrefix+profile.ID, data, c.ttls.Profile).Err(); err != nil {
		c.recordWriteFailure(namespaceProfile, err)
	}
}

// InvalidateContractor removes a contractor's cached profile and availability.
// When alsoSearches is set it additionally bumps the search version so stale
// ranked lists stop being served.
func (c *ContractorCache) InvalidateContractor(ctx context.Context, contractorID string, alsoSearches bool) {
	if err := c.client.Del(ctx, profileKeyPrefix+contractorID, availabilityKeyPrefix+contractorID).Err(); err != nil {
		c.recordWriteFailure(namespaceProfile, err)
	}
	if alsoSearches {
		c.BumpSearchVersion(ctx)
	}
}

// ==========================
// Availability
// ==========================

// GetAvailability returns the cached availability, or ("", false) on miss.
func (c *ContractorCache) GetAvailability(ctx context.Context, contractorID string) (models.Availability, bool) {
	val, err := c.client.Get(ctx, availabilityKeyPrefix+contractorID).Result()
	if err != nil {
		c.recordMiss(namespaceAvailability, err)
		return "", false
	}
	metrics.CacheOperationsTotal.WithLabelValues(namespaceAvailability, "hit").Inc()
	return models.Availability(val), true
}

// SetAvailability stores a short-lived availability snapshot.
func (c *ContractorCache) SetAvailability(ctx context.Context, contractorID string, availability models.Availability) {
	if err := c.client.Set(ctx, availabilityKeyPrefix+contractorID, string(availability), c.ttls.Availability).Err(); err != nil {
		c.recordWriteFailure(namespaceAvailability, err)
	}
}

// ==========================
// Ranked Search Results
// ==========================

// SearchKey builds a deterministic cache key from the normalized search
// parameters. Coordinates are rounded so nearby origins share an entry, and
// the current search version prefixes the key so a single INCR invalidates
// every cached list at once.
func (c *ContractorCache) SearchKey(ctx context.Context, trade models.Trade, loc models.Location, radiusMiles, minRating float64) string {
	version := c.searchVersion(ctx)
	return fmt.Sprintf("%sv%d:%s:%.4f:%.4f:%.1f:%.1f",
		searchKeyPrefix,
		version,
		trade,
		geo.RoundCoordinate(loc.Latitude),
		geo.RoundCoordinate(loc.Longitude),
		radiusMiles,
		minRating,
	)
}

// GetSearch returns the cached candidate id list for a key, or (nil, false)
// on miss. Profiles are hydrated by the caller.
func (c *ContractorCache) GetSearch(ctx context.Context, key string) ([]models.CandidateRef, bool) {
	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		c.recordMiss(namespaceSearch, err)
		return nil, false
	}

	var refs []models.CandidateRef
	if err := json.Unmarshal([]byte(val), &refs); err != nil {
		c.client.Del(ctx, key)
		metrics.CacheOperationsTotal.WithLabelValues(namespaceSearch, "miss").Inc()
		return nil, false
	}

	metrics.CacheOperationsTotal.WithLabelValues(namespaceSearch, "hit").Inc()
	return refs, true
}

// SetSearch stores a candidate id list under the versioned key.
func (c *ContractorCache) SetSearch(ctx context.Context, key string, refs []models.CandidateRef) {
	data, err := json.Marshal(refs)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttls.Search).Err(); err != nil {
		c.recordWriteFailure(namespaceSearch, err)
	}
}

// BumpSearchVersion invalidates all cached search lists by incrementing the
// version counter embedded in every search key.
func (c *ContractorCache) BumpSearchVersion(ctx context.Context) {
	if err := c.client.Incr(ctx, searchVersionKey).Err(); err != nil {
		c.recordWriteFailure(namespaceSearch, err)
	}
}

func (c *ContractorCache) searchVersion(ctx context.Context) int64 {
	val, err := c.client.Get(ctx, searchVersionKey).Result()
	if err != nil {
		return 0
	}
	version, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0
	}
	return version
}

// ==========================
// Degradation Accounting
// ==========================

func (c *ContractorCache) recordMiss(namespace string, err error) {
	if err == redis.Nil {
		metrics.CacheOperationsTotal.WithLabelValues(namespace, "miss").Inc()
		return
	}
	metrics.CacheOperationsTotal.WithLabelValues(namespace, "error").Inc()
	c.logger.Warn("redis read failed, treating as miss", map[string]interface{}{
		"namespace": namespace,
		"error":     err.Error(),
	})
}

func (c *ContractorCache) recordWriteFailure(namespace string, err error) {
	metrics.CacheOperationsTotal.WithLabelValues(namespace, "error").Inc()
	c.logger.Warn("redis write failed, continuing without cache", map[string]interface{}{
		"namespace": namespace,
		"error":     err.Error(),
	})
}
