// Package throttle tracks failed login attempts per (client, account) pair and
// enforces a sliding window with a temporary lockout.
//
// State is best-effort: concurrent failures for the same key may lose an
// update, and bookkeeping errors never reach the caller. With the default
// MemoryStore the state is per-process; multi-instance deployments should use
// RedisStore so every instance sees the same counters.
package throttle

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"time"
)

// Key identifies the attempts of one client against one account.
type Key struct {
	Client  string
	Account string
}

// NewKey builds a Key, normalizing the account identifier for
// case-insensitive comparison. The caller is expected to have trimmed it.
func NewKey(client, account string) Key {
	return Key{Client: client, Account: strings.ToLower(account)}
}

// Record is the bookkeeping kept for a Key.
type Record struct {
	Count     int       `json:"count"`
	FirstAt   time.Time `json:"first_at"`
	LockUntil time.Time `json:"lock_until"`
}

// Locked reports whether the record carries a lock that is still active at now.
func (r Record) Locked(now time.Time) bool {
	return !r.LockUntil.IsZero() && now.Before(r.LockUntil)
}

// Decision is the outcome of Check.
type Decision struct {
	Allowed bool
	// RetryAfter is the number of whole seconds (rounded up) until the lock ends.
	RetryAfter int
}

// Config holds the throttle limits.
type Config struct {
	MaxAttempts  int
	Window       time.Duration
	LockDuration time.Duration
}

// DefaultConfig returns 5 attempts per 15 minutes with a 15 minute lockout.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  5,
		Window:       15 * time.Minute,
		LockDuration: 15 * time.Minute,
	}
}

// Throttle is the login attempt limiter.
type Throttle struct {
	store  Store
	config Config
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Throttle backed by store. Zero config fields fall back to DefaultConfig.
func New(store Store, config Config, logger *slog.Logger) *Throttle {
	defaults := DefaultConfig()
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = defaults.MaxAttempts
	}
	if config.Window <= 0 {
		config.Window = defaults.Window
	}
	if config.LockDuration <= 0 {
		config.LockDuration = defaults.LockDuration
	}

	return &Throttle{
		store:  store,
		config: config,
		logger: logger,
		now:    time.Now,
	}
}

// SetClock replaces the time source. Intended for tests.
func (t *Throttle) SetClock(now func() time.Time) {
	t.now = now
}

// Config returns the effective limits.
func (t *Throttle) Config() Config {
	return t.config
}

// Check decides whether a login attempt for key may proceed.
// Store errors fail open.
func (t *Throttle) Check(ctx context.Context, key Key) Decision {
	now := t.now()

	rec, ok, err := t.store.Get(ctx, key)
	if err != nil {
		t.logger.Error("failed to read login attempts", slog.Any("error", err))
		return Decision{Allowed: true}
	}
	if !ok {
		return Decision{Allowed: true}
	}

	if rec.Locked(now) {
		return Decision{
			Allowed:    false,
			RetryAfter: int(math.Ceil(rec.LockUntil.Sub(now).Seconds())),
		}
	}

	if now.Sub(rec.FirstAt) > t.config.Window {
		if err := t.store.Delete(ctx, key); err != nil {
			t.logger.Error("failed to discard expired login attempts", slog.Any("error", err))
		}
	}

	return Decision{Allowed: true}
}

// RecordFailure counts a failed attempt for key, locking it once the
// threshold is reached inside the window.
func (t *Throttle) RecordFailure(ctx context.Context, key Key) {
	now := t.now()

	rec, ok, err := t.store.Get(ctx, key)
	if err != nil {
		t.logger.Error("failed to read login attempts", slog.Any("error", err))
		return
	}

	switch {
	case !ok:
		rec = Record{Count: 1, FirstAt: now}
	case now.Sub(rec.FirstAt) <= t.config.Window:
		rec.Count++
	default:
		rec.Count = 1
		rec.FirstAt = now
	}

	if rec.Count >= t.config.MaxAttempts {
		lockUntil := now.Add(t.config.LockDuration)
		// An active lock only ends when it passes.
		if lockUntil.After(rec.LockUntil) {
			rec.LockUntil = lockUntil
		}
		t.logger.Warn("login locked",
			slog.String("client", key.Client),
			slog.Int("failed_attempts", rec.Count),
			slog.Time("lock_until", rec.LockUntil))
	}

	if err := t.store.Put(ctx, key, rec, t.ttl(rec, now)); err != nil {
		t.logger.Error("failed to record login failure", slog.Any("error", err))
	}
}

// Clear forgets every failure recorded for key.
func (t *Throttle) Clear(ctx context.Context, key Key) {
	if err := t.store.Delete(ctx, key); err != nil {
		t.logger.Error("failed to clear login attempts", slog.Any("error", err))
	}
}

// Sweep removes records whose window has elapsed and whose lock is no longer active.
// It returns the number of removed records; stores without sweeping support return 0.
func (t *Throttle) Sweep(ctx context.Context) int {
	sweeper, ok := t.store.(Sweeper)
	if !ok {
		return 0
	}
	now := t.now()
	return sweeper.Sweep(ctx, func(rec Record) bool {
		return !rec.Locked(now) && now.Sub(rec.FirstAt) > t.config.Window
	})
}

// ttl is how long a store may keep rec before it is meaningless.
func (t *Throttle) ttl(rec Record, now time.Time) time.Duration {
	ttl := rec.FirstAt.Add(t.config.Window).Sub(now)
	if rec.Locked(now) {
		if untilUnlock := rec.LockUntil.Sub(now); untilUnlock > ttl {
			ttl = untilUnlock
		}
	}
	if ttl < time.Second {
		ttl = time.Second
	}
	return ttl
}
