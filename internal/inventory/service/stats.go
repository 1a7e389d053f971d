package service

import (
	"context"
	"time"

	"github.com/kitchenbook/kitchenbook-backend/internal/inventory/domain"
	"github.com/kitchenbook/kitchenbook-backend/pkg/cache"
	"github.com/kitchenbook/kitchenbook-backend/pkg/logger"
)

// StatsCache keeps dashboard stats per owner. Entries expire after ttl and
// are dropped on every mutation that can change them. Cache errors are
// logged and treated as misses.
type StatsCache struct {
	cache  *cache.Cache
	ttl    time.Duration
	logger *logger.Logger
}

// NewStatsCache creates a stats cache. A nil cache disables caching.
func NewStatsCache(c *cache.Cache, ttl time.Duration, log *logger.Logger) *StatsCache {
	if log == nil {
		log = logger.Nop()
	}
	return &StatsCache{cache: c, ttl: ttl, logger: log}
}

func statsKey(ownerID string) string {
	return cache.Key("stats", ownerID)
}

func (s *StatsCache) get(ctx context.Context, ownerID string) (*domain.DashboardStats, bool) {
	if s == nil {
		return nil, false
	}

	var stats domain.DashboardStats
	hit, err := s.cache.GetJSON(ctx, statsKey(ownerID), &stats)
	if err != nil {
		s.logger.Warn().Err(err).Str("owner_id", ownerID).Msg("stats cache read failed")
		return nil, false
	}
	if !hit {
		return nil, false
	}
	return &stats, true
}

func (s *StatsCache) set(ctx context.Context, ownerID string, stats *domain.DashboardStats) {
	if s == nil {
		return
	}
	if err := s.cache.SetJSON(ctx, statsKey(ownerID), stats, s.ttl); err != nil {
		s.logger.Warn().Err(err).Str("owner_id", ownerID).Msg("stats cache write failed")
	}
}

// Invalidate drops the cached stats of an owner
func (s *StatsCache) Invalidate(ctx context.Context, ownerID string) {
	if s == nil || ownerID == "" {
		return
	}
	if err := s.cache.Delete(ctx, statsKey(ownerID)); err != nil {
		s.logger.Warn().Err(err).Str("owner_id", ownerID).Msg("stats cache invalidation failed")
	}
}
