// Package ratelimit implements a per-identity sliding-window admission
// counter. It is a per-process, defense-in-depth layer: the message store
// enforces its own cap as a backstop, so this limiter is deliberately not a
// cross-instance limiter.
package ratelimit

import (
	"sync"
	"time"

	"whatupb-gate/config"
)

// Clock abstracts time so the window arithmetic is testable with a fake.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Result reports a single admission check.
type Result struct {
	Allowed   bool
	Remaining int
	// ResetAfter is how long until the oldest admitted request leaves the
	// window. Zero when the key has no history.
	ResetAfter time.Duration
}

// Limiter tracks, per identity key, the timestamps of admitted requests
// inside a trailing window. All state lives in the injected store; the mutex
// makes trim+append atomic under parallel request handling.
type Limiter struct {
	mu     sync.Mutex
	max    int
	window time.Duration

	gcInterval time.Duration
	lastGC     time.Time

	store WindowStore
	clock Clock
}

// NewLimiter builds a limiter from config. Pass nil for store or clock to get
// the production defaults (bounded LRU store, system clock).
func NewLimiter(cfg *config.RateLimitConfig, store WindowStore, clock Clock) *Limiter {
	if clock == nil {
		clock = SystemClock{}
	}
	if store == nil {
		// The LRU TTL is a second memory bound on top of the explicit GC
		// pass; it only needs to outlive the window comfortably.
		store = NewLRUStore(cfg.CacheSize, 10*cfg.Window)
	}
	return &Limiter{
		max:        cfg.MaxRequests,
		window:     cfg.Window,
		gcInterval: cfg.GCInterval,
		store:      store,
		clock:      clock,
		lastGC:     clock.Now(),
	}
}

// Check consumes a slot for key if one is available. An empty key means the
// client address is unknown and cannot be rate-limited; such requests are
// always allowed by policy.
func (l *Limiter) Check(key string) Result {
	if key == "" {
		return Result{Allowed: true, Remaining: l.max}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	l.maybeGC(now)

	cutoff := now.Add(-l.window)

	w, ok := l.store.Get(key)
	if !ok {
		w = &Window{}
	}
	w.trim(cutoff)

	if len(w.Stamps) >= l.max {
		reset := w.Stamps[0].Add(l.window).Sub(now)
		if reset < 0 {
			reset = 0
		}
		l.store.Set(key, w)
		return Result{Allowed: false, Remaining: 0, ResetAfter: reset}
	}

	w.Stamps = append(w.Stamps, now)
	l.store.Set(key, w)

	return Result{
		Allowed:    true,
		Remaining:  l.max - len(w.Stamps),
		ResetAfter: w.Stamps[0].Add(l.window).Sub(now),
	}
}

// maybeGC sweeps every key at most once per interval, trimming expired
// timestamps and deleting keys left empty. Without it, long-lived processes
// would accumulate one entry per sender forever.
func (l *Limiter) maybeGC(now time.Time) {
	if now.Sub(l.lastGC) < l.gcInterval {
		return
	}
	l.lastGC = now

	cutoff := now.Add(-l.window)
	for _, key := range l.store.Keys() {
		w, ok := l.store.Get(key)
		if !ok {
			continue
		}
		w.trim(cutoff)
		if len(w.Stamps) == 0 {
			l.store.Delete(key)
		} else {
			l.store.Set(key, w)
		}
	}
}

// Window is the per-key ordered sequence of admission timestamps.
type Window struct {
	Stamps []time.Time
}

// trim drops timestamps at or before cutoff. Stamps are append-only ordered,
// so this is a prefix cut.
func (w *Window) trim(cutoff time.Time) {
	i := 0
	for i < len(w.Stamps) && !w.Stamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		w.Stamps = append(w.Stamps[:0], w.Stamps[i:]...)
	}
}
