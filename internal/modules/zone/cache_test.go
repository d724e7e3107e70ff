package zone

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"chauffeur/internal/logger"
)

type countingLoader struct {
	mu    sync.Mutex
	snap  Snapshot
	err   error
	calls int
}

func (l *countingLoader) LoadSnapshot(context.Context) (Snapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	return l.snap, l.err
}

func (l *countingLoader) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestCache(loader SnapshotLoader, rdb *redis.Client, ttl time.Duration) (*Cache, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	c := NewCache(loader, rdb, ttl, logger.Discard())
	c.now = clock.now
	return c, clock
}

func oneZone(code string) Snapshot {
	return Snapshot{Zones: []Zone{{Code: code, Priority: 1, Locations: []Location{{Value: "x"}}}}}
}

func TestCache_ServesWithinTTL(t *testing.T) {
	loader := &countingLoader{snap: oneZone("A")}
	c, clock := newTestCache(loader, nil, 30*time.Second)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := c.Catalog(ctx); err != nil {
			t.Fatal(err)
		}
	}
	if loader.count() != 1 {
		t.Fatalf("loads = %d, want 1", loader.count())
	}

	clock.advance(31 * time.Second)
	if _, err := c.Catalog(ctx); err != nil {
		t.Fatal(err)
	}
	if loader.count() != 2 {
		t.Fatalf("loads after expiry = %d, want 2", loader.count())
	}
}

func TestCache_ZeroTTLAlwaysLoads(t *testing.T) {
	loader := &countingLoader{snap: oneZone("A")}
	c, _ := newTestCache(loader, nil, 0)
	for i := 0; i < 2; i++ {
		if _, err := c.Catalog(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	if loader.count() != 2 {
		t.Fatalf("loads = %d, want 2", loader.count())
	}
}

func TestCache_InvalidateReloads(t *testing.T) {
	loader := &countingLoader{snap: oneZone("A")}
	c, _ := newTestCache(loader, nil, time.Minute)
	ctx := context.Background()

	cat, _ := c.Catalog(ctx)
	if got := cat.Classify("x"); got != "A" {
		t.Fatalf("got %q", got)
	}

	loader.mu.Lock()
	loader.snap = oneZone("B")
	loader.mu.Unlock()
	if err := c.Invalidate(ctx); err != nil {
		t.Fatal(err)
	}

	cat, _ = c.Catalog(ctx)
	if got := cat.Classify("x"); got != "B" {
		t.Fatalf("after invalidate got %q, want B", got)
	}
}

func TestCache_LoadError(t *testing.T) {
	boom := errors.New("db down")
	c, _ := newTestCache(&countingLoader{err: boom}, nil, time.Minute)
	if _, err := c.Catalog(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("got %v, want %v", err, boom)
	}
}

func TestCache_ReturnsCatalogWithProblems(t *testing.T) {
	snap := Snapshot{Zones: []Zone{{Code: "A"}}, Pricings: []Pricing{{FromZone: "A", ToZone: "B"}}}
	c, _ := newTestCache(&countingLoader{snap: snap}, nil, time.Minute)
	cat, err := c.Catalog(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !errors.Is(cat.Err(), ErrIntegrity) {
		t.Fatalf("catalog error = %v", cat.Err())
	}
}

func TestDecodeShared_AgesFromOriginalLoad(t *testing.T) {
	loaded := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	ttl := time.Minute
	payload, err := json.Marshal(sharedSnapshot{LoadedAt: loaded, Snapshot: oneZone("A")})
	if err != nil {
		t.Fatal(err)
	}
	bare, err := json.Marshal(oneZone("A"))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		data   []byte
		now    time.Time
		ok     bool
		wantAt time.Time
	}{
		{name: "fresh keeps load time", data: payload, now: loaded.Add(40 * time.Second), ok: true, wantAt: loaded},
		{name: "expired at original ttl", data: payload, now: loaded.Add(ttl), ok: false},
		{name: "future stamp clamps to now", data: payload, now: loaded.Add(-5 * time.Second), ok: true, wantAt: loaded.Add(-5 * time.Second)},
		{name: "unstamped payload", data: bare, now: loaded, ok: false},
		{name: "garbage", data: []byte("{"), now: loaded, ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap, at, ok := decodeShared(tt.data, tt.now, ttl)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			if !at.Equal(tt.wantAt) {
				t.Errorf("loadedAt = %v, want %v", at, tt.wantAt)
			}
			if len(snap.Zones) != 1 || snap.Zones[0].Code != "A" {
				t.Errorf("snapshot = %+v", snap)
			}
		})
	}
}

func TestCache_RedisPeerExpiresWithOriginalLoad(t *testing.T) {
	addr := os.Getenv("CHAUFFEUR_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("CHAUFFEUR_TEST_REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()
	ctx := context.Background()
	_ = rdb.Del(ctx, snapshotKey).Err()
	defer rdb.Del(ctx, snapshotKey)

	a, _ := newTestCache(&countingLoader{snap: oneZone("A")}, rdb, time.Minute)
	if _, err := a.Catalog(ctx); err != nil {
		t.Fatal(err)
	}

	second := &countingLoader{snap: oneZone("B")}
	b, clock := newTestCache(second, rdb, time.Minute)
	clock.advance(40 * time.Second)
	if _, err := b.Catalog(ctx); err != nil {
		t.Fatal(err)
	}
	if second.count() != 0 {
		t.Fatalf("second loader called %d times", second.count())
	}

	// 61s after the first instance loaded; the shared copy must not be served.
	clock.advance(21 * time.Second)
	if b.fresh() != nil {
		t.Fatal("peer served the shared snapshot past its original ttl")
	}
	cat, err := b.Catalog(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got := cat.Classify("x"); got != "B" {
		t.Fatalf("got %q, want reloaded B", got)
	}
}

func TestCache_Redis(t *testing.T) {
	addr := os.Getenv("CHAUFFEUR_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("CHAUFFEUR_TEST_REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()
	ctx := context.Background()
	_ = rdb.Del(ctx, snapshotKey).Err()

	first := &countingLoader{snap: oneZone("A")}
	a, _ := newTestCache(first, rdb, time.Minute)
	if _, err := a.Catalog(ctx); err != nil {
		t.Fatal(err)
	}

	// A second instance picks up the shared snapshot without touching its loader.
	second := &countingLoader{snap: oneZone("B")}
	b, _ := newTestCache(second, rdb, time.Minute)
	cat, err := b.Catalog(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got := cat.Classify("x"); got != "A" {
		t.Fatalf("got %q, want shared A", got)
	}
	if second.count() != 0 {
		t.Fatalf("second loader called %d times", second.count())
	}

	listenCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go b.Listen(listenCtx)
	time.Sleep(100 * time.Millisecond)

	if err := a.Invalidate(ctx); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for b.fresh() != nil && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if b.fresh() != nil {
		t.Fatal("peer kept its catalog after invalidation")
	}
	_ = rdb.Del(ctx, snapshotKey).Err()
}
