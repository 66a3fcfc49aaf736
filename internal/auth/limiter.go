// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 UE-1 Contributors

package auth

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// limiterIdleTTL is how long an idle client bucket is kept.
const limiterIdleTTL = 10 * time.Minute

// AttemptLimiter throttles login attempts per client key with a token
// bucket per key. A nil *AttemptLimiter allows everything.
type AttemptLimiter struct {
	limit rate.Limit
	burst int
	now   func() time.Time

	mu        sync.Mutex
	buckets   map[string]*attemptBucket
	lastSweep time.Time
}

type attemptBucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// NewAttemptLimiter allows perMinute attempts per key, with bursts of the
// same size. It returns nil when perMinute is zero or negative.
func NewAttemptLimiter(perMinute int) *AttemptLimiter {
	return newAttemptLimiter(perMinute, time.Now)
}

func newAttemptLimiter(perMinute int, now func() time.Time) *AttemptLimiter {
	if perMinute <= 0 {
		return nil
	}
	return &AttemptLimiter{
		limit:     rate.Every(time.Minute / time.Duration(perMinute)),
		burst:     perMinute,
		now:       now,
		buckets:   make(map[string]*attemptBucket),
		lastSweep: now(),
	}
}

// Allow consumes one attempt for key and reports whether it was permitted.
func (l *AttemptLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}

	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) > limiterIdleTTL {
		l.sweepLocked(now)
	}

	b, ok := l.buckets[key]
	if !ok {
		b = &attemptBucket{lim: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.seen = now
	return b.lim.AllowN(now, 1)
}

// Len returns the number of tracked keys.
func (l *AttemptLimiter) Len() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

func (l *AttemptLimiter) sweepLocked(now time.Time) {
	for k, b := range l.buckets {
		if now.Sub(b.seen) > limiterIdleTTL {
			delete(l.buckets, k)
		}
	}
	l.lastSweep = now
}
