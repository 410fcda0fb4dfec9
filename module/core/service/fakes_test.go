package service

import (
	"context"
	"sync"
	"time"

	"github.com/nandanugg/bike-geofence/module/core/domain"
)

type recordingDispatcher struct {
	mu     sync.Mutex
	alerts []domain.AlertEvent
	fences []domain.FenceSession
}

func (d *recordingDispatcher) Dispatch(_ context.Context, alert domain.AlertEvent, fence domain.FenceSession) <-chan domain.DispatchResult {
	d.mu.Lock()
	d.alerts = append(d.alerts, alert)
	d.fences = append(d.fences, fence)
	d.mu.Unlock()

	out := make(chan domain.DispatchResult, 1)
	out <- domain.DispatchResult{Alert: alert}
	return out
}

func (d *recordingDispatcher) sent() []domain.AlertEvent {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]domain.AlertEvent(nil), d.alerts...)
}

// fakeSubscribers records both targeted and broadcast events, in order.
type fakeSubscribers struct {
	mu        sync.Mutex
	connected map[string]bool
	events    []any
	targeted  map[string][]any
}

func newFakeSubscribers(sessions ...string) *fakeSubscribers {
	f := &fakeSubscribers{connected: make(map[string]bool), targeted: make(map[string][]any)}
	for _, s := range sessions {
		f.connected[s] = true
	}
	return f
}

func (f *fakeSubscribers) NotifySession(sessionID string, event any) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected[sessionID] {
		return false
	}
	f.targeted[sessionID] = append(f.targeted[sessionID], event)
	f.events = append(f.events, event)
	return true
}

func (f *fakeSubscribers) Broadcast(event any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *fakeSubscribers) all() []any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]any(nil), f.events...)
}

func (f *fakeSubscribers) forSession(id string) []any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]any(nil), f.targeted[id]...)
}

type fakeDevice struct {
	mu        sync.Mutex
	endpoints []string
	status    int
	err       error
	delay     time.Duration
}

func (f *fakeDevice) NotifyDevice(ctx context.Context, endpoint string, _ domain.AlertEvent) (int, error) {
	f.mu.Lock()
	f.endpoints = append(f.endpoints, endpoint)
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	return f.status, f.err
}

func (f *fakeDevice) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.endpoints...)
}

type fakeJournal struct {
	mu     sync.Mutex
	alerts []domain.AlertEvent
	err    error
}

func (f *fakeJournal) PublishAlert(_ context.Context, alert *domain.AlertEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, *alert)
	return f.err
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
