// README: Process-wide catalog cache; Redis shares the snapshot between instances and broadcasts invalidations.
package zone

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"chauffeur/internal/logger"
)

const (
	snapshotKey       = "zones:snapshot"
	invalidateChannel = "zones:invalidate"
)

type SnapshotLoader interface {
	LoadSnapshot(ctx context.Context) (Snapshot, error)
}

// Cache serves compiled catalogs. Staleness is bounded by ttl; a ttl of
// zero disables caching entirely. redis may be nil.
type Cache struct {
	loader SnapshotLoader
	redis  *redis.Client
	ttl    time.Duration
	log    *logger.Logger
	now    func() time.Time

	loadMu   sync.Mutex
	mu       sync.RWMutex
	catalog  *Catalog
	loadedAt time.Time
}

func NewCache(loader SnapshotLoader, rdb *redis.Client, ttl time.Duration, log *logger.Logger) *Cache {
	return &Cache{
		loader: loader,
		redis:  rdb,
		ttl:    ttl,
		log:    log.WithField("component", "zone_cache"),
		now:    time.Now,
	}
}

// Catalog returns the current catalog, loading it when missing or expired.
// A catalog with integrity problems is still returned; callers check Err.
func (c *Cache) Catalog(ctx context.Context) (*Catalog, error) {
	if cat := c.fresh(); cat != nil {
		return cat, nil
	}

	c.loadMu.Lock()
	defer c.loadMu.Unlock()
	if cat := c.fresh(); cat != nil {
		return cat, nil
	}

	snap, loadedAt, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	cat := NewCatalog(snap)
	if err := cat.Err(); err != nil {
		c.log.WithError(err).Error("zone catalog has integrity problems")
	}

	c.mu.Lock()
	c.catalog = cat
	c.loadedAt = loadedAt
	c.mu.Unlock()
	return cat, nil
}

func (c *Cache) fresh() *Catalog {
	if c.ttl <= 0 {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.catalog == nil || c.now().Sub(c.loadedAt) >= c.ttl {
		return nil
	}
	return c.catalog
}

// sharedSnapshot is the Redis payload. LoadedAt is when the snapshot was read
// from the store, so every instance ages it from the same moment.
type sharedSnapshot struct {
	LoadedAt time.Time `json:"loaded_at"`
	Snapshot Snapshot  `json:"snapshot"`
}

// decodeShared returns the shared snapshot and its load time, or false when
// the payload is undecodable, unstamped, or already older than ttl.
func decodeShared(data []byte, now time.Time, ttl time.Duration) (Snapshot, time.Time, bool) {
	var shared sharedSnapshot
	if err := json.Unmarshal(data, &shared); err != nil || shared.LoadedAt.IsZero() {
		return Snapshot{}, time.Time{}, false
	}
	if shared.LoadedAt.After(now) {
		shared.LoadedAt = now
	}
	if now.Sub(shared.LoadedAt) >= ttl {
		return Snapshot{}, time.Time{}, false
	}
	return shared.Snapshot, shared.LoadedAt, true
}

func (c *Cache) load(ctx context.Context) (Snapshot, time.Time, error) {
	if c.redis != nil && c.ttl > 0 {
		data, err := c.redis.Get(ctx, snapshotKey).Bytes()
		switch {
		case err == nil:
			if snap, at, ok := decodeShared(data, c.now(), c.ttl); ok {
				return snap, at, nil
			}
			c.log.Warn("discarding stale or undecodable shared zone snapshot")
		case !errors.Is(err, redis.Nil):
			c.log.WithError(err).Warn("shared zone snapshot unavailable")
		}
	}

	snap, err := c.loader.LoadSnapshot(ctx)
	if err != nil {
		return Snapshot{}, time.Time{}, fmt.Errorf("load zone snapshot: %w", err)
	}
	loadedAt := c.now()

	if c.redis != nil && c.ttl > 0 {
		data, err := json.Marshal(sharedSnapshot{LoadedAt: loadedAt, Snapshot: snap})
		if err == nil {
			err = c.redis.Set(ctx, snapshotKey, data, c.ttl).Err()
		}
		if err != nil {
			c.log.WithError(err).Warn("storing shared zone snapshot failed")
		}
	}
	return snap, loadedAt, nil
}

// Invalidate drops the local catalog, the shared snapshot, and tells other
// instances to drop theirs. A writer racing a reload may re-store an old
// snapshot; it expires with the ttl.
func (c *Cache) Invalidate(ctx context.Context) error {
	c.drop()
	if c.redis == nil {
		return nil
	}
	if err := c.redis.Del(ctx, snapshotKey).Err(); err != nil {
		return fmt.Errorf("delete shared zone snapshot: %w", err)
	}
	if err := c.redis.Publish(ctx, invalidateChannel, "1").Err(); err != nil {
		return fmt.Errorf("publish zone invalidation: %w", err)
	}
	return nil
}

func (c *Cache) drop() {
	c.mu.Lock()
	c.catalog = nil
	c.mu.Unlock()
}

// Listen drops the local catalog whenever another instance invalidates.
// It blocks until ctx is done.
func (c *Cache) Listen(ctx context.Context) {
	if c.redis == nil {
		return
	}
	sub := c.redis.Subscribe(ctx, invalidateChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-ch:
			if !ok {
				return
			}
			c.drop()
			c.log.Debugf("zone catalog invalidated by peer")
		}
	}
}
