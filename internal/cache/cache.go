// Package cache provides a keyed stale-while-revalidate cache for remote
// reads. A fresh hit returns synchronously, a stale hit returns the
// last-known value while exactly one background reload runs, and reload
// failures never evict data that is already cached.
package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ledgist/hivewallet/internal/ports"
)

const defaultReloadTimeout = 15 * time.Second

type Loader[T any] func(ctx context.Context) (T, error)

// Read outcomes reported to the Observer.
const (
	ReadHit   = "hit"
	ReadStale = "stale"
	ReadMiss  = "miss"
)

// Observer receives cache outcome notifications. The metrics package
// implements it; a nil observer is a no-op.
type Observer interface {
	CacheRead(result string)
	CacheReloadFailure()
}

type entry[T any] struct {
	data      T
	fetchedAt time.Time
	loader    Loader[T]
}

type Cache[T any] struct {
	ttl      time.Duration
	clock    ports.Clock
	log      *slog.Logger
	observer Observer

	mu        sync.Mutex
	entries   map[string]*entry[T]
	reloading map[string]struct{}
	group     singleflight.Group
}

func New[T any](ttl time.Duration, clock ports.Clock, log *slog.Logger, observer Observer) *Cache[T] {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if log == nil {
		log = slog.Default()
	}

	return &Cache[T]{
		ttl:       ttl,
		clock:     clock,
		log:       log,
		observer:  observer,
		entries:   map[string]*entry[T]{},
		reloading: map[string]struct{}{},
	}
}

// Get returns the cached value for key. Within the staleness window the
// cached value comes back with no loader call; past it the stale value comes
// back immediately and one background reload is scheduled. A miss loads
// synchronously, with concurrent callers for the same key sharing a single
// in-flight load.
func (c *Cache[T]) Get(ctx context.Context, key string, loader Loader[T]) (T, error) {
	now := c.clock.Now()

	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		e.loader = loader
		data := e.data
		if now.Sub(e.fetchedAt) <= c.ttl {
			c.mu.Unlock()
			c.observe(ReadHit)
			return data, nil
		}

		c.scheduleReloadLocked(key, loader)
		c.mu.Unlock()
		c.observe(ReadStale)
		return data, nil
	}
	c.mu.Unlock()

	c.observe(ReadMiss)
	return c.load(ctx, key, loader)
}

// Prime stores a value as freshly fetched, e.g. right after a successful
// connect has already resolved the account.
func (c *Cache[T]) Prime(key string, data T, loader Loader[T]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = &entry[T]{data: data, fetchedAt: c.clock.Now(), loader: loader}
}

// Invalidate drops the cached value so the next read reloads synchronously.
func (c *Cache[T]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Evict removes everything cached for key, used when a session ends.
func (c *Cache[T]) Evict(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// StartRevalidation periodically reloads entries that have gone stale, so
// long-lived sessions keep reasonably current data without waiting for the
// next read. It returns once ctx is done.
func (c *Cache[T]) StartRevalidation(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.revalidateStale()
		}
	}
}

func (c *Cache[T]) revalidateStale() {
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range c.entries {
		if now.Sub(e.fetchedAt) > c.ttl && e.loader != nil {
			c.scheduleReloadLocked(key, e.loader)
		}
	}
}

func (c *Cache[T]) load(ctx context.Context, key string, loader Loader[T]) (T, error) {
	v, err, _ := c.group.Do(key, func() (any, error) {
		return loader(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}

	data := v.(T)
	c.store(key, data, loader)
	return data, nil
}

// scheduleReloadLocked starts at most one background reload per key. The
// caller holds c.mu.
func (c *Cache[T]) scheduleReloadLocked(key string, loader Loader[T]) {
	if _, busy := c.reloading[key]; busy {
		return
	}
	c.reloading[key] = struct{}{}
	go c.reload(key, loader)
}

func (c *Cache[T]) reload(key string, loader Loader[T]) {
	defer func() {
		c.mu.Lock()
		delete(c.reloading, key)
		c.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), defaultReloadTimeout)
	defer cancel()

	v, err, _ := c.group.Do(key, func() (any, error) {
		return loader(ctx)
	})
	if err != nil {
		// Fail-soft: the stale value stays visible.
		c.log.Warn("cache reload failed; keeping stale value", "key", key, "error", err)
		if c.observer != nil {
			c.observer.CacheReloadFailure()
		}
		return
	}

	c.store(key, v.(T), loader)
}

func (c *Cache[T]) store(key string, data T, loader Loader[T]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = &entry[T]{data: data, fetchedAt: c.clock.Now(), loader: loader}
}

func (c *Cache[T]) observe(result string) {
	if c.observer != nil {
		c.observer.CacheRead(result)
	}
}
