// Package cache provides the injectable memoization store used by the engine.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Memo stores computed results keyed by a content hash of their inputs.
type Memo interface {
	// Get retrieves a value from the cache
	Get(key string) (any, bool)

	// Set stores a value in the cache
	Set(key string, value any)

	// Flush removes everything
	Flush()
}

// Key builds a memo key by hashing scope and parts. Part boundaries are significant.
func Key(scope string, parts ...string) string {
	h := sha256.New()
	for _, p := range append([]string{scope}, parts...) {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Store is a Memo backed by go-cache with expiring entries.
type Store struct {
	items *gocache.Cache
}

// New creates a store whose entries expire after ttl. Expired entries are purged every
// cleanup interval.
func New(ttl, cleanup time.Duration) *Store {
	return &Store{items: gocache.New(ttl, cleanup)}
}

// Get retrieves a value.
func (s *Store) Get(key string) (any, bool) {
	return s.items.Get(key)
}

// Set stores a value with the default expiration.
func (s *Store) Set(key string, value any) {
	s.items.Set(key, value, gocache.DefaultExpiration)
}

// Flush removes every entry.
func (s *Store) Flush() {
	s.items.Flush()
}

// Nop is a Memo that never stores anything.
type Nop struct{}

func (Nop) Get(string) (any, bool) { return nil, false }
func (Nop) Set(string, any)        {}
func (Nop) Flush()                 {}

// Memoize returns the cached value for key, or computes and caches it. Errors are never
// cached. The second result reports a cache hit.
func Memoize[T any](m Memo, key string, compute func() (T, error)) (T, bool, error) {
	if v, ok := m.Get(key); ok {
		if typed, ok := v.(T); ok {
			return typed, true, nil
		}
	}

	v, err := compute()
	if err != nil {
		var zero T
		return zero, false, err
	}
	m.Set(key, v)
	return v, false, nil
}
