package ratelimit

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// WindowStore is the keyed map behind the limiter. Implementations do not
// need to be goroutine-safe on their own; the Limiter serializes access.
type WindowStore interface {
	Get(key string) (*Window, bool)
	Set(key string, w *Window)
	Delete(key string)
	Keys() []string
}

// LRUStore bounds memory with an expirable LRU: even if the GC pass never
// fires, entry count and lifetime stay capped.
type LRUStore struct {
	cache *lru.LRU[string, *Window]
}

func NewLRUStore(size int, ttl time.Duration) *LRUStore {
	if size <= 0 {
		size = 65536
	}
	return &LRUStore{cache: lru.NewLRU[string, *Window](size, nil, ttl)}
}

func (s *LRUStore) Get(key string) (*Window, bool) { return s.cache.Get(key) }
func (s *LRUStore) Set(key string, w *Window)      { s.cache.Add(key, w) }
func (s *LRUStore) Delete(key string)              { s.cache.Remove(key) }
func (s *LRUStore) Keys() []string                 { return s.cache.Keys() }

// MapStore is a plain map-backed store for tests and single-tenant use.
type MapStore struct {
	m map[string]*Window
}

func NewMapStore() *MapStore {
	return &MapStore{m: make(map[string]*Window)}
}

func (s *MapStore) Get(key string) (*Window, bool) {
	w, ok := s.m[key]
	return w, ok
}

func (s *MapStore) Set(key string, w *Window) { s.m[key] = w }
func (s *MapStore) Delete(key string)         { delete(s.m, key) }

func (s *MapStore) Keys() []string {
	keys := make([]string, 0, len(s.m))
	for k := range s.m {
		keys = append(keys, k)
	}
	return keys
}

// Len reports the number of tracked keys; used by GC tests.
func (s *MapStore) Len() int { return len(s.m) }
