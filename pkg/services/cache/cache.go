// Package cache is a two-tier key/value cache: an in-process LRU in front of
// an optional shared store.
//
// The fast tier is authoritative for a single process. The shared tier is
// best-effort: its failures are logged and never surface to callers.
package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"stand-resolver/pkg/logger"
)

const (
	defaultMaxEntries = 10000
	defaultTTL        = time.Hour

	// How long the shared tier is bypassed after a failure.
	sharedCooldown = 30 * time.Second
)

// ErrNotFound is returned by a SharedStore for a missing key.
var ErrNotFound = errors.New("cache key not found")

// SharedStore is a cross-process byte store.
type SharedStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Purge(ctx context.Context) error
}

// Entry is the stored form of a cached value.
type Entry struct {
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
	ExpiresAt time.Time       `json:"expires_at"`
}

func (e Entry) expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// Options configures a Cache.
type Options struct {
	// DefaultTTL applies when Set is called with a non-positive TTL.
	DefaultTTL time.Duration
	// MaxTTL bounds how long the fast tier keeps any entry.
	MaxTTL     time.Duration
	MaxEntries int
	// Shared is the optional second tier.
	Shared SharedStore
	Logger *zap.Logger
}

// Stats describes the cache state.
type Stats struct {
	FastEntries   int  `json:"fast_entries"`
	SharedEnabled bool `json:"shared_enabled"`
	SharedHealthy bool `json:"shared_healthy"`
}

type Cache struct {
	fast       *expirable.LRU[string, Entry]
	shared     SharedStore
	defaultTTL time.Duration
	log        *zap.Logger
	now        func() time.Time

	mu              sync.Mutex
	sharedDownUntil time.Time
}

func New(opts Options) *Cache {
	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = defaultTTL
	}
	if opts.MaxTTL < opts.DefaultTTL {
		opts.MaxTTL = opts.DefaultTTL
	}
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = defaultMaxEntries
	}

	return &Cache{
		fast:       expirable.NewLRU[string, Entry](opts.MaxEntries, nil, opts.MaxTTL),
		shared:     opts.Shared,
		defaultTTL: opts.DefaultTTL,
		log:        logger.OrNop(opts.Logger),
		now:        time.Now,
	}
}

// Get decodes the value stored under key into dst and reports whether an
// unexpired entry was found.
func (c *Cache) Get(ctx context.Context, key string, dst any) bool {
	now := c.now()

	if e, ok := c.fast.Get(key); ok {
		if !e.expired(now) {
			err := json.Unmarshal(e.Data, dst)
			if err == nil {
				return true
			}
			c.log.Warn("dropping undecodable cache entry", zap.String(logger.FieldCacheKey, key), zap.Error(err))
		}
		c.fast.Remove(key)
	}

	if !c.sharedAvailable() {
		return false
	}

	raw, err := c.shared.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			c.sharedFailed("get", key, err)
		}
		return false
	}

	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		c.log.Warn("dropping undecodable shared cache entry", zap.String(logger.FieldCacheKey, key), zap.Error(err))
		return false
	}
	if e.expired(now) {
		return false
	}
	if err := json.Unmarshal(e.Data, dst); err != nil {
		c.log.Warn("dropping undecodable shared cache entry", zap.String(logger.FieldCacheKey, key), zap.Error(err))
		return false
	}

	c.fast.Add(key, e)
	return true
}

// Set stores value under key in both tiers. A non-positive ttl uses the
// default TTL. Only encoding failures are returned.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrapf(err, "failed to encode cache value for %s", key)
	}

	now := c.now()
	e := Entry{
		Data:      data,
		Timestamp: now.UTC(),
		ExpiresAt: now.Add(ttl).UTC(),
	}
	c.fast.Add(key, e)

	if !c.sharedAvailable() {
		return nil
	}

	raw, err := json.Marshal(e)
	if err != nil {
		return errors.Wrapf(err, "failed to encode cache entry for %s", key)
	}
	if err := c.shared.Put(ctx, key, raw); err != nil {
		c.sharedFailed("set", key, err)
	}
	return nil
}

// Delete removes key from both tiers.
func (c *Cache) Delete(ctx context.Context, key string) {
	c.fast.Remove(key)

	if !c.sharedAvailable() {
		return
	}
	if err := c.shared.Delete(ctx, key); err != nil && !errors.Is(err, ErrNotFound) {
		c.sharedFailed("delete", key, err)
	}
}

// Clear empties both tiers.
func (c *Cache) Clear(ctx context.Context) {
	c.fast.Purge()

	if !c.sharedAvailable() {
		return
	}
	if err := c.shared.Purge(ctx); err != nil {
		c.sharedFailed("clear", "", err)
	}
}

func (c *Cache) Stats() Stats {
	return Stats{
		FastEntries:   c.fast.Len(),
		SharedEnabled: c.shared != nil,
		SharedHealthy: c.sharedAvailable(),
	}
}

func (c *Cache) sharedAvailable() bool {
	if c.shared == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.now().Before(c.sharedDownUntil)
}

func (c *Cache) sharedFailed(op, key string, err error) {
	c.mu.Lock()
	c.sharedDownUntil = c.now().Add(sharedCooldown)
	c.mu.Unlock()

	c.log.Error("shared cache operation failed, using memory cache only",
		zap.String("operation", op),
		zap.String(logger.FieldCacheKey, key),
		zap.Duration("retry_in", sharedCooldown),
		zap.Error(err))
}
