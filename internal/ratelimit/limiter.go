package ratelimit

import (
	"strings"
	"sync"
	"time"
)

// Category groups requests that share a budget
type Category string

const (
	CategoryDefault   Category = "DEFAULT"
	CategoryAnonymous Category = "ANONYMOUS"
	CategoryLogin     Category = "LOGIN"
	CategoryMessage   Category = "MESSAGE"
	CategoryUpload    Category = "UPLOAD"
	CategoryAdmin     Category = "ADMIN"
)

// window is the fixed reset interval. The counter snaps back to full
// capacity once the window has elapsed since the last reset, so a client
// can burst up to twice the capacity across a window boundary. Callers
// rely on that shape; do not replace it with a leaking bucket.
const window = time.Minute

// Result reports the outcome of a consume attempt
type Result struct {
	Allowed           bool
	Remaining         int
	RetryAfterSeconds int
}

type bucketKey struct {
	clientKey string
	category  Category
}

type bucket struct {
	remaining   int
	windowStart time.Time
	lastAccess  time.Time
}

// Limiter is a fixed-window rate limiter keyed by (client, category).
// All state is process-local and mutated under one lock so that
// check-and-decrement is a single atomic unit.
type Limiter struct {
	mu         sync.Mutex
	buckets    map[bucketKey]*bucket
	capacities map[Category]int
	whitelist  map[string]struct{}

	now func() time.Time
}

// NewLimiter creates a limiter with per-category capacities (requests per
// minute) and a set of client keys that bypass limiting entirely
func NewLimiter(capacities map[Category]int, whitelist []string) *Limiter {
	wl := make(map[string]struct{}, len(whitelist))
	for _, key := range whitelist {
		wl[key] = struct{}{}
	}
	return &Limiter{
		buckets:    make(map[bucketKey]*bucket),
		capacities: capacities,
		whitelist:  wl,
		now:        time.Now,
	}
}

// Capacity returns the per-window budget for a category
func (l *Limiter) Capacity(category Category) int {
	if c, ok := l.capacities[category]; ok {
		return c
	}
	return l.capacities[CategoryDefault]
}

// Whitelisted reports whether the client bypasses limiting. Client keys
// arrive prefixed by kind ("ip:203.0.113.9", "tok:abc..."); the
// whitelist holds the bare identity, so the prefix is stripped before
// the lookup. The full key is also accepted.
func (l *Limiter) Whitelisted(clientKey string) bool {
	if _, ok := l.whitelist[clientKey]; ok {
		return true
	}
	if i := strings.Index(clientKey, ":"); i >= 0 {
		_, ok := l.whitelist[clientKey[i+1:]]
		return ok
	}
	return false
}

// TryConsume takes one token from the client's bucket for the category.
// Whitelisted clients are always allowed and never touch a bucket.
func (l *Limiter) TryConsume(clientKey string, category Category) Result {
	if l.Whitelisted(clientKey) {
		return Result{Allowed: true, Remaining: l.Capacity(category)}
	}

	capacity := l.Capacity(category)
	if capacity <= 0 {
		return Result{Allowed: false, RetryAfterSeconds: int(window.Seconds())}
	}

	now := l.now()
	key := bucketKey{clientKey: clientKey, category: category}

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{remaining: capacity, windowStart: now}
		l.buckets[key] = b
	} else if now.Sub(b.windowStart) >= window {
		// Fixed-window reset: full capacity again
		b.remaining = capacity
		b.windowStart = now
	}
	b.lastAccess = now

	if b.remaining <= 0 {
		retry := b.windowStart.Add(window).Sub(now)
		retrySeconds := int(retry / time.Second)
		if retry%time.Second != 0 || retrySeconds == 0 {
			retrySeconds++
		}
		return Result{Allowed: false, Remaining: 0, RetryAfterSeconds: retrySeconds}
	}

	b.remaining--
	return Result{Allowed: true, Remaining: b.remaining}
}

// Cleanup drops buckets that have been idle for several windows to keep
// the map bounded. Returns the number dropped.
func (l *Limiter) Cleanup() int {
	cutoff := l.now().Add(-3 * window)

	l.mu.Lock()
	defer l.mu.Unlock()

	dropped := 0
	for key, b := range l.buckets {
		if b.lastAccess.Before(cutoff) {
			delete(l.buckets, key)
			dropped++
		}
	}
	return dropped
}
