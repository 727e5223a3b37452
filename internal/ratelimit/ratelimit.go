// Package ratelimit provides fixed-window rate limiting, both for a single
// entity (one WebSocket connection) and keyed per client IP for HTTP
// middleware.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter is a fixed-window rate limiter for a single entity.
type Limiter struct {
	mu          sync.Mutex
	count       int
	windowStart time.Time
	rate        int
	window      time.Duration
}

// New creates a Limiter that allows rate requests per window.
func New(rate int, window time.Duration) *Limiter {
	return &Limiter{
		rate:        rate,
		window:      window,
		windowStart: time.Now(),
	}
}

// Allow returns true if the request is within the rate limit.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	if now.Sub(l.windowStart) > l.window {
		l.count = 0
		l.windowStart = now
	}
	l.count++
	return l.count <= l.rate
}

// PerKey tracks an independent fixed window per key (typically client IP).
type PerKey struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     int
	window   time.Duration

	stop     chan struct{}
	stopOnce sync.Once
}

type visitor struct {
	count       int
	windowStart time.Time
}

// NewPerKey creates a keyed limiter allowing rate requests per window per key.
// A background goroutine drops idle keys every minute until Close is called.
func NewPerKey(rate int, window time.Duration) *PerKey {
	p := &PerKey{
		visitors: make(map[string]*visitor),
		rate:     rate,
		window:   window,
		stop:     make(chan struct{}),
	}
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-p.stop:
				return
			case <-ticker.C:
				p.cleanup()
			}
		}
	}()
	return p
}

// Close stops the background cleanup goroutine. The limiter remains usable;
// idle keys just stop being reaped. Safe to call more than once.
func (p *PerKey) Close() {
	p.stopOnce.Do(func() { close(p.stop) })
}

// Allow returns true if key has not exceeded its limit in the current window.
func (p *PerKey) Allow(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	v, ok := p.visitors[key]
	if !ok || now.Sub(v.windowStart) > p.window {
		p.visitors[key] = &visitor{count: 1, windowStart: now}
		return true
	}
	v.count++
	return v.count <= p.rate
}

// cleanup removes keys whose window has expired.
func (p *PerKey) cleanup() {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	for key, v := range p.visitors {
		if now.Sub(v.windowStart) > p.window {
			delete(p.visitors, key)
		}
	}
}
