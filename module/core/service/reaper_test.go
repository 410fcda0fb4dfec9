package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

type countingTarget struct {
	mu     sync.Mutex
	calls  int
	maxAge time.Duration
	ids    []string
}

func (c *countingTarget) ReapInactive(maxAge time.Duration) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	c.maxAge = maxAge
	return c.ids
}

func (c *countingTarget) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func TestNewReaper_Defaults(t *testing.T) {
	r := NewReaper(&countingTarget{}, 0, 0, zap.NewNop())
	assert.Equal(t, DefaultReapInterval, r.interval)
	assert.Equal(t, DefaultBikeMaxAge, r.maxAge)
}

func TestReaper_Sweep(t *testing.T) {
	target := &countingTarget{ids: []string{"BIKE001", "BIKE002"}}
	r := NewReaper(target, time.Minute, 10*time.Minute, zap.NewNop())

	assert.Equal(t, 2, r.Sweep())
	assert.Equal(t, 10*time.Minute, target.maxAge)
}

func TestReaper_RunStopsWithContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	target := &countingTarget{}
	r := NewReaper(target, 5*time.Millisecond, time.Minute, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return target.count() >= 2 }, time.Second, time.Millisecond)
	cancel()
	<-done
}

func TestReaper_EvictsFromEngine(t *testing.T) {
	f := newEngine(t)
	_, err := f.svc.Submit(context.Background(), telemetry("BIKE001", nearBase))
	assert.NoError(t, err)

	r := NewReaper(f.svc, time.Minute, 30*time.Minute, zap.NewNop())
	f.clock.Advance(31 * time.Minute)

	assert.Equal(t, 1, r.Sweep())
	assert.Empty(t, f.svc.Bikes())
}
