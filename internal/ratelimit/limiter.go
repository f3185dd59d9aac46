// Package ratelimit implements a per-client sliding-window request limiter.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter admits at most maxRequests per client within any trailing window.
// State is per process.
type Limiter struct {
	mu          sync.Mutex
	maxRequests int
	window      time.Duration
	clients     map[string][]time.Time
	now         func() time.Time
}

// Option configures a Limiter
type Option func(*Limiter)

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// New creates a limiter
func New(maxRequests int, window time.Duration, opts ...Option) *Limiter {
	l := &Limiter{
		maxRequests: maxRequests,
		window:      window,
		clients:     make(map[string][]time.Time),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// MaxRequests returns the configured limit
func (l *Limiter) MaxRequests() int {
	return l.maxRequests
}

// Window returns the configured window
func (l *Limiter) Window() time.Duration {
	return l.window
}

// Allow prunes the client's window and admits the request if there is room.
// A denied request is not recorded.
func (l *Limiter) Allow(clientID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	requests := l.prune(clientID, now)
	if len(requests) >= l.maxRequests {
		return false
	}

	l.clients[clientID] = append(requests, now)
	return true
}

// Remaining returns how many more requests the client may make right now
func (l *Limiter) Remaining(clientID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	remaining := l.maxRequests - len(l.prune(clientID, l.now()))
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ResetTime returns the time until the oldest retained request leaves the
// window, or 0 when the client has none.
func (l *Limiter) ResetTime(clientID string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	requests := l.prune(clientID, now)
	if len(requests) == 0 {
		return 0
	}

	reset := requests[0].Add(l.window).Sub(now)
	if reset < 0 {
		return 0
	}
	return reset
}

// Cleanup drops clients with no request inside the window and returns how
// many were dropped.
func (l *Limiter) Cleanup() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for clientID := range l.clients {
		if len(l.prune(clientID, now)) == 0 {
			delete(l.clients, clientID)
			removed++
		}
	}
	return removed
}

// Clients returns the number of tracked clients
func (l *Limiter) Clients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// prune keeps only timestamps t with now-t < window. Timestamps are appended
// in order so the retained ones are a suffix. Caller must hold l.mu.
func (l *Limiter) prune(clientID string, now time.Time) []time.Time {
	requests := l.clients[clientID]
	cut := 0
	for cut < len(requests) && now.Sub(requests[cut]) >= l.window {
		cut++
	}
	if cut == 0 {
		return requests
	}

	kept := append([]time.Time(nil), requests[cut:]...)
	l.clients[clientID] = kept
	return kept
}
