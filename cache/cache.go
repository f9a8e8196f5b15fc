// Package cache is a best-effort key-value cache with per-entry timestamps and
// expiry. It only ever degrades to "no cached data": reads never fail and writes
// that cannot be persisted are logged and dropped.
package cache

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
)

const (
	// DefaultPrefix namespaces every key written by the cache
	DefaultPrefix = "app_cache_"
	// DefaultTTL is how long an entry is served before it counts as absent
	DefaultTTL = 24 * time.Hour
)

// ErrQuotaExceeded is returned by a repository that has no room left for a value
var ErrQuotaExceeded = errors.New("storage quota exceeded")

// Repository is an interface for the durable storage the cache persists into
type Repository interface {
	Get(key string) (string, bool, error)
	Set(key string, value string) error
	Remove(key string) error
	Keys() ([]string, error)
}

// Entry is the stored form of a cached value
type Entry struct {
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

func (e Entry) valid() bool {
	return e.Timestamp > 0 && len(e.Data) > 0 && !bytes.Equal(e.Data, []byte("null"))
}

// Cache stores JSON values under a namespaced key
type Cache struct {
	l      log.Logger
	r      Repository
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

// Option configures a Cache
type Option func(*Cache)

// WithPrefix overrides the key namespace
func WithPrefix(prefix string) Option {
	return func(c *Cache) {
		c.prefix = prefix
	}
}

// WithTTL overrides the expiry duration
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		c.ttl = ttl
	}
}

// WithClock sets the time source, used by tests to simulate time passing
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// New initializes a new cache on top of the given repository
func New(l log.Logger, r Repository, opts ...Option) *Cache {
	c := &Cache{
		l:      l,
		r:      r,
		prefix: DefaultPrefix,
		ttl:    DefaultTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Set stores data under key. Failures are logged and swallowed.
func (c *Cache) Set(key string, data interface{}) {
	raw, err := json.Marshal(data)
	if err != nil {
		level.Error(c.l).Log("msg", "error serializing cache entry", "key", key, "err", err)
		return
	}
	b, err := json.Marshal(Entry{Data: raw, Timestamp: c.now().UnixMilli()})
	if err != nil {
		level.Error(c.l).Log("msg", "error serializing cache entry", "key", key, "err", err)
		return
	}
	if err := c.r.Set(c.prefix+key, string(b)); err != nil {
		level.Error(c.l).Log("msg", "error writing cache entry", "key", key, "err", err)
	}
}

// Get decodes the cached value for key into dst. It reports false on a miss, an
// expired entry or anything that can't be decoded.
func (c *Cache) Get(key string, dst interface{}) bool {
	e, ok := c.load(key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(e.Data, dst); err != nil {
		level.Warn(c.l).Log("msg", "discarding undecodable cache entry", "key", key, "err", err)
		c.Remove(key)
		return false
	}
	return true
}

// Timestamp returns when the entry for key was written
func (c *Cache) Timestamp(key string) (time.Time, bool) {
	e, ok := c.load(key)
	if !ok {
		return time.Time{}, false
	}
	return time.UnixMilli(e.Timestamp), true
}

// Remove deletes the entry for key
func (c *Cache) Remove(key string) {
	if err := c.r.Remove(c.prefix + key); err != nil {
		level.Error(c.l).Log("msg", "error removing cache entry", "key", key, "err", err)
	}
}

// Clear removes every entry in the cache namespace and nothing else
func (c *Cache) Clear() {
	keys, err := c.r.Keys()
	if err != nil {
		level.Error(c.l).Log("msg", "error listing cache keys", "err", err)
		return
	}
	for _, k := range keys {
		if !strings.HasPrefix(k, c.prefix) {
			continue
		}
		if err := c.r.Remove(k); err != nil {
			level.Error(c.l).Log("msg", "error removing cache entry", "key", k, "err", err)
		}
	}
}

// Prune removes every expired or malformed entry in the namespace and returns how many were dropped
func (c *Cache) Prune() int {
	keys, err := c.r.Keys()
	if err != nil {
		level.Error(c.l).Log("msg", "error listing cache keys", "err", err)
		return 0
	}
	var n int
	for _, k := range keys {
		if !strings.HasPrefix(k, c.prefix) {
			continue
		}
		if _, ok := c.load(strings.TrimPrefix(k, c.prefix)); !ok {
			n++
		}
	}
	if n > 0 {
		level.Info(c.l).Log("msg", "pruned cache entries", "count", n)
	}
	return n
}

// load reads and validates the envelope for key, removing it when it is stale or malformed
func (c *Cache) load(key string) (Entry, bool) {
	var e Entry
	v, ok, err := c.r.Get(c.prefix + key)
	if err != nil {
		level.Error(c.l).Log("msg", "error reading cache entry", "key", key, "err", err)
		return e, false
	}
	if !ok {
		return e, false
	}
	if err := json.Unmarshal([]byte(v), &e); err != nil || !e.valid() {
		level.Warn(c.l).Log("msg", "discarding malformed cache entry", "key", key)
		c.Remove(key)
		return Entry{}, false
	}
	if c.now().Sub(time.UnixMilli(e.Timestamp)) > c.ttl {
		c.Remove(key)
		return Entry{}, false
	}
	return e, true
}
