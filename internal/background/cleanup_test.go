package background

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingSweeper struct {
	calls atomic.Int32
}

func (s *countingSweeper) Sweep(ctx context.Context) int {
	s.calls.Add(1)
	return 2
}

type stubCleaner struct {
	calls atomic.Int32
	err   error
}

func (c *stubCleaner) CleanupExpired(ctx context.Context) (int64, error) {
	c.calls.Add(1)
	return 1, c.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunOnce_RunsEveryJob(t *testing.T) {
	cm := NewCleanupManager(discardLogger(), time.Hour)
	throttle, limiter := &countingSweeper{}, &countingSweeper{}
	failing, tokens := &stubCleaner{err: errors.New("db down")}, &stubCleaner{}
	cm.AddSweeper("login_throttle", throttle)
	cm.AddSweeper("request_limiter", limiter)
	cm.AddCleaner("broken", failing)
	cm.AddCleaner("verification_tokens", tokens)

	cm.RunOnce(context.Background())

	assert.EqualValues(t, 1, throttle.calls.Load())
	assert.EqualValues(t, 1, limiter.calls.Load())
	assert.EqualValues(t, 1, failing.calls.Load())
	assert.EqualValues(t, 1, tokens.calls.Load(), "a failing cleaner does not block the others")
}

func TestStart_StopsOnStopAndContext(t *testing.T) {
	cm := NewCleanupManager(discardLogger(), 10*time.Millisecond)
	s := &countingSweeper{}
	cm.AddSweeper("throttle", s)

	done := make(chan struct{})
	go func() {
		cm.Start(context.Background())
		close(done)
	}()

	assert.Eventually(t, func() bool { return s.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cm.Stop()
	cm.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after Stop")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cm2 := NewCleanupManager(discardLogger(), time.Hour)
	done2 := make(chan struct{})
	go func() {
		cm2.Start(ctx)
		close(done2)
	}()
	cancel()

	select {
	case <-done2:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after context cancellation")
	}
}

func TestNewCleanupManager_NonPositiveIntervalUsesDefault(t *testing.T) {
	for _, interval := range []time.Duration{0, -time.Second} {
		cm := NewCleanupManager(discardLogger(), interval)
		assert.Equal(t, DefaultInterval, cm.interval)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.NotPanics(t, func() { cm.Start(ctx) })
	}
}
