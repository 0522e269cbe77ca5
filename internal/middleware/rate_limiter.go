package middleware

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter controls how frequently a caller may perform an action.
type RateLimiter interface {
	Allow(key string) bool
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipRateLimiter tracks request rates per key, typically a client IP. Idle
// entries are swept on the next Allow call after their ttl passes.
type ipRateLimiter struct {
	mu      sync.Mutex
	clients map[string]*client
	limit   rate.Limit
	burst   int
	ttl     time.Duration
	now     func() time.Time
}

// NewIPRateLimiter constructs a per-key limiter allowing `requests` events
// per `window`, with extra burst capacity on top.
func NewIPRateLimiter(requests int, window time.Duration, burst int, ttl time.Duration) RateLimiter {
	if requests <= 0 {
		requests = 1
	}
	if window <= 0 {
		window = time.Second
	}
	if burst <= 0 {
		burst = 1
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	return &ipRateLimiter{
		clients: make(map[string]*client),
		limit:   rate.Every(window / time.Duration(requests)),
		burst:   burst,
		ttl:     ttl,
		now:     time.Now,
	}
}

func (l *ipRateLimiter) Allow(key string) bool {
	if key == "" {
		key = "unknown"
	}

	now := l.now()

	l.mu.Lock()
	c, ok := l.clients[key]
	if ok {
		c.lastSeen = now
	} else {
		c = &client{limiter: rate.NewLimiter(l.limit, l.burst), lastSeen: now}
		l.clients[key] = c
	}
	for k, v := range l.clients {
		if now.Sub(v.lastSeen) > l.ttl {
			delete(l.clients, k)
		}
	}
	l.mu.Unlock()

	return c.limiter.Allow()
}

// WithNowFunc overrides the time source. Used by tests.
func (l *ipRateLimiter) WithNowFunc(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}
