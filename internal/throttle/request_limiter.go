package throttle

import (
	"context"
	"log/slog"
	"time"
)

// RequestLimiter is a fixed-window counter for outbound-email requests
// (verification resends, password resets) per (client, email).
type RequestLimiter struct {
	store  Store
	max    int
	window time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// NewRequestLimiter allows max requests per window for each key.
func NewRequestLimiter(store Store, max int, window time.Duration, logger *slog.Logger) *RequestLimiter {
	if max <= 0 {
		max = 5
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &RequestLimiter{
		store:  store,
		max:    max,
		window: window,
		logger: logger,
		now:    time.Now,
	}
}

// SetClock replaces the time source. Intended for tests.
func (l *RequestLimiter) SetClock(now func() time.Time) {
	l.now = now
}

// Allow counts a request for key and reports whether it is within the limit.
// Store errors fail open.
func (l *RequestLimiter) Allow(ctx context.Context, key Key) bool {
	now := l.now()

	rec, ok, err := l.store.Get(ctx, key)
	if err != nil {
		l.logger.Error("failed to read request counter", slog.Any("error", err))
		return true
	}

	if ok && now.Sub(rec.FirstAt) <= l.window {
		if rec.Count >= l.max {
			return false
		}
		rec.Count++
	} else {
		rec = Record{Count: 1, FirstAt: now}
	}

	ttl := rec.FirstAt.Add(l.window).Sub(now)
	if ttl < time.Second {
		ttl = time.Second
	}
	if err := l.store.Put(ctx, key, rec, ttl); err != nil {
		l.logger.Error("failed to store request counter", slog.Any("error", err))
	}
	return true
}

// Sweep drops counters whose window has elapsed.
func (l *RequestLimiter) Sweep(ctx context.Context) int {
	sweeper, ok := l.store.(Sweeper)
	if !ok {
		return 0
	}
	now := l.now()
	return sweeper.Sweep(ctx, func(rec Record) bool {
		return now.Sub(rec.FirstAt) > l.window
	})
}
