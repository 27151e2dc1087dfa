package querycache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

type Family string

const (
	Tickets        Family = "tickets"
	Ticket         Family = "ticket"
	TicketComments Family = "ticket-comments"
	Departments    Family = "departments"
	Users          Family = "users"
)

// Key addresses one cached read. An empty Param addresses the whole family.
type Key struct {
	Family Family
	Param  string
}

func FamilyKey(f Family) Key {
	return Key{Family: f}
}

func ItemKey(f Family, param string) Key {
	return Key{Family: f, Param: param}
}

func (k Key) String() string {
	if k.Param == "" {
		return string(k.Family)
	}
	return string(k.Family) + "/" + k.Param
}

// Store is the shared backing storage. Counters are monotonically increasing
// staleness marks; a missing counter reads as zero.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Incr(ctx context.Context, key string) error
	Counters(ctx context.Context, keys ...string) ([]int64, error)
	Ping(ctx context.Context) error
	Close() error
}

// Observer receives hit/miss notifications, used for metrics.
type Observer interface {
	CacheLookup(family string, hit bool)
}

type Cache struct {
	store    Store
	ttl      time.Duration
	logger   *slog.Logger
	observer Observer
}

type Option func(*Cache)

func WithObserver(o Observer) Option {
	return func(c *Cache) {
		c.observer = o
	}
}

func New(store Store, ttl time.Duration, logger *slog.Logger, opts ...Option) *Cache {
	c := &Cache{
		store:  store,
		ttl:    ttl,
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type entry struct {
	FamilyVersion int64           `json:"fv"`
	ItemVersion   int64           `json:"iv"`
	Data          json.RawMessage `json:"d"`
}

// Namespace derives the per-session partition from the bearer token so that
// role-dependent responses are never shared between sessions.
func Namespace(token string) string {
	if token == "" {
		return "anon"
	}
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])[:16]
}

// Fetch returns the cached value for key or calls load and caches its result.
// Versions are read before load runs, so a write that lands during load makes
// the stored entry stale immediately.
func Fetch[T any](ctx context.Context, c *Cache, namespace string, key Key, load func(context.Context) (T, error)) (T, error) {
	var zero T

	familyVer, itemVer, verErr := c.versions(ctx, key)
	if verErr != nil {
		c.logger.Warn("cache versions unavailable, bypassing cache", "key", key.String(), "error", verErr)
		return load(ctx)
	}

	storeKey := entryKey(namespace, key)
	raw, ok, err := c.store.Get(ctx, storeKey)
	if err != nil {
		c.logger.Warn("cache read failed", "key", key.String(), "error", err)
	}
	if ok {
		var e entry
		if err := json.Unmarshal(raw, &e); err == nil && e.FamilyVersion == familyVer && e.ItemVersion == itemVer {
			var v T
			if err := json.Unmarshal(e.Data, &v); err == nil {
				c.observe(key, true)
				return v, nil
			}
		}
	}
	c.observe(key, false)

	v, err := load(ctx)
	if err != nil {
		return zero, err
	}

	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Warn("cache encode failed", "key", key.String(), "error", err)
		return v, nil
	}
	encoded, _ := json.Marshal(entry{FamilyVersion: familyVer, ItemVersion: itemVer, Data: data})
	if err := c.store.Set(ctx, storeKey, encoded, c.ttl); err != nil {
		c.logger.Warn("cache write failed", "key", key.String(), "error", err)
	}
	return v, nil
}

// Invalidate marks key stale for every session. A family key marks every
// item of the family stale as well.
func (c *Cache) Invalidate(ctx context.Context, key Key) error {
	if err := c.store.Incr(ctx, versionKey(key)); err != nil {
		return fmt.Errorf("invalidate %s: %w", key.String(), err)
	}
	c.logger.Debug("cache key invalidated", "key", key.String())
	return nil
}

func (c *Cache) Ping(ctx context.Context) error {
	return c.store.Ping(ctx)
}

func (c *Cache) Close() error {
	return c.store.Close()
}

func (c *Cache) versions(ctx context.Context, key Key) (int64, int64, error) {
	keys := []string{versionKey(FamilyKey(key.Family))}
	if key.Param != "" {
		keys = append(keys, versionKey(key))
	}
	counters, err := c.store.Counters(ctx, keys...)
	if err != nil {
		return 0, 0, err
	}
	var itemVer int64
	if len(counters) > 1 {
		itemVer = counters[1]
	}
	return counters[0], itemVer, nil
}

func (c *Cache) observe(key Key, hit bool) {
	if c.observer != nil {
		c.observer.CacheLookup(string(key.Family), hit)
	}
}

func entryKey(namespace string, key Key) string {
	return fmt.Sprintf("qc:e:%s:%s:%s", namespace, key.Family, key.Param)
}

func versionKey(key Key) string {
	return fmt.Sprintf("qc:v:%s:%s", key.Family, key.Param)
}
