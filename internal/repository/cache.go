package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Eo-0118/Black-Kingdom/internal/models"
)

const (
	keyActiveShops      = "bk:shops:active"
	keyShopReservations = "bk:shop:%d:reservations"

	defaultRecoveryInterval = time.Minute
)

// Store is the authoritative source behind the cache.
type Store interface {
	ListActiveShops(ctx context.Context) ([]models.Shop, error)
	ListReservationsByShop(ctx context.Context, shopID int64) ([]models.ShopReservation, error)
}

// CachedRepository serves shop listings from Redis and falls back to the
// store. After a Redis failure the cache is bypassed until the recovery
// interval elapses, so a dead Redis costs one failed call per interval
// instead of one per request.
//
// Invalidations that fail are remembered and retried before the cache is
// read or written again. Every invalidation bumps the key's generation; a
// store read only populates the cache if the generation it started under
// is still current.
type CachedRepository struct {
	store  Store
	redis  *redis.Client
	ttl    time.Duration
	logger *zerolog.Logger

	isDown           atomic.Bool
	mu               sync.Mutex
	lastCheck        time.Time
	recoveryInterval time.Duration

	keysMu  sync.Mutex
	gens    map[string]uint64
	pending map[string]struct{}
}

// NewCachedRepository wraps store. A nil client disables caching.
func NewCachedRepository(store Store, client *redis.Client, ttl time.Duration, logger *zerolog.Logger) *CachedRepository {
	l := logger.With().Str("component", "cache").Logger()
	return &CachedRepository{
		store:            store,
		redis:            client,
		ttl:              ttl,
		logger:           &l,
		recoveryInterval: defaultRecoveryInterval,
		gens:             make(map[string]uint64),
		pending:          make(map[string]struct{}),
	}
}

// ListActiveShops returns active shops, cached under a single key.
func (r *CachedRepository) ListActiveShops(ctx context.Context) ([]models.Shop, error) {
	var shops []models.Shop
	if r.readCache(ctx, keyActiveShops, &shops) {
		return shops, nil
	}

	gen := r.generation(keyActiveShops)
	shops, err := r.store.ListActiveShops(ctx)
	if err != nil {
		return nil, err
	}
	r.writeCache(ctx, keyActiveShops, gen, shops)
	return shops, nil
}

// ListReservationsByShop returns a shop's joined reservation rows.
func (r *CachedRepository) ListReservationsByShop(ctx context.Context, shopID int64) ([]models.ShopReservation, error) {
	key := fmt.Sprintf(keyShopReservations, shopID)

	var rows []models.ShopReservation
	if r.readCache(ctx, key, &rows) {
		return rows, nil
	}

	gen := r.generation(key)
	rows, err := r.store.ListReservationsByShop(ctx, shopID)
	if err != nil {
		return nil, err
	}
	r.writeCache(ctx, key, gen, rows)
	return rows, nil
}

// InvalidateShopReservations drops the cached reservation list of a shop.
func (r *CachedRepository) InvalidateShopReservations(ctx context.Context, shopID int64) {
	r.delete(ctx, fmt.Sprintf(keyShopReservations, shopID))
}

// InvalidateShops drops the cached active shop list.
func (r *CachedRepository) InvalidateShops(ctx context.Context) {
	r.delete(ctx, keyActiveShops)
}

// Ping reports Redis health for readiness probes. A disabled cache is healthy.
func (r *CachedRepository) Ping(ctx context.Context) error {
	if r.redis == nil {
		return nil
	}
	return r.redis.Ping(ctx).Err()
}

func (r *CachedRepository) enabled() bool {
	if r.redis == nil || r.ttl <= 0 {
		return false
	}
	if !r.isDown.Load() {
		return true
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if time.Since(r.lastCheck) < r.recoveryInterval {
		return false
	}
	// Let one call through to test recovery.
	r.lastCheck = time.Now()
	return true
}

func (r *CachedRepository) observe(err error) {
	if err == nil || errors.Is(err, redis.Nil) {
		if r.isDown.CompareAndSwap(true, false) {
			r.logger.Info().Msg("Redis recovered, cache re-enabled")
		}
		return
	}
	if !r.isDown.Swap(true) {
		r.logger.Warn().Err(err).Msg("Redis unavailable, bypassing cache")
	}
	r.mu.Lock()
	r.lastCheck = time.Now()
	r.mu.Unlock()
}

func (r *CachedRepository) readCache(ctx context.Context, key string, out any) bool {
	if !r.enabled() || !r.flushPending(ctx) {
		return false
	}
	val, err := r.redis.Get(ctx, key).Result()
	r.observe(err)
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		r.logger.Debug().Err(err).Str("key", key).Msg("Discarding undecodable cache entry")
		return false
	}
	return true
}

// writeCache stores val unless key was invalidated after gen was taken.
func (r *CachedRepository) writeCache(ctx context.Context, key string, gen uint64, val any) {
	if !r.enabled() || !r.flushPending(ctx) || r.generation(key) != gen {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	err = r.redis.Set(ctx, key, data, r.ttl).Err()
	r.observe(err)
	if err != nil {
		return
	}
	// An invalidation may have landed between the check and the SET.
	if r.generation(key) != gen {
		r.delete(ctx, key)
	}
}

func (r *CachedRepository) generation(key string) uint64 {
	r.keysMu.Lock()
	defer r.keysMu.Unlock()
	return r.gens[key]
}

func (r *CachedRepository) delete(ctx context.Context, key string) {
	if r.redis == nil {
		return
	}
	r.keysMu.Lock()
	r.gens[key]++
	r.keysMu.Unlock()

	if err := r.redis.Del(ctx, key).Err(); err != nil {
		r.observe(err)
		r.keysMu.Lock()
		r.pending[key] = struct{}{}
		r.keysMu.Unlock()
		r.logger.Warn().Err(err).Str("key", key).Msg("Cache invalidation failed, will retry")
		return
	}
	r.keysMu.Lock()
	delete(r.pending, key)
	r.keysMu.Unlock()
}

// flushPending retries failed invalidations. The cache must not be used
// until it returns true.
func (r *CachedRepository) flushPending(ctx context.Context) bool {
	r.keysMu.Lock()
	keys := make([]string, 0, len(r.pending))
	for k := range r.pending {
		keys = append(keys, k)
	}
	r.keysMu.Unlock()
	if len(keys) == 0 {
		return true
	}

	err := r.redis.Del(ctx, keys...).Err()
	r.observe(err)
	if err != nil {
		return false
	}
	r.keysMu.Lock()
	for _, k := range keys {
		delete(r.pending, k)
	}
	r.keysMu.Unlock()
	r.logger.Info().Int("keys", len(keys)).Msg("Retried cache invalidations")
	return true
}
