// Package memory holds the in-process registries that are authoritative for
// bike and fence state during the lifetime of the server.
package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/nandanugg/bike-geofence/module/core/domain"
)

type BikeRegistry struct {
	mu    sync.RWMutex
	bikes map[string]domain.BikeState
}

func NewBikeRegistry() *BikeRegistry {
	return &BikeRegistry{bikes: make(map[string]domain.BikeState)}
}

// Upsert replaces or creates the bike's record. LastSeen never moves backwards
// for a bike, even if the caller's clock does.
func (r *BikeRegistry) Upsert(bikeID string, loc domain.Location, speed, battery float64, now time.Time) domain.BikeState {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.bikes[bikeID]; ok && now.Before(prev.LastSeen) {
		now = prev.LastSeen
	}

	b := domain.BikeState{
		BikeID:   bikeID,
		Location: loc,
		Speed:    speed,
		Battery:  battery,
		LastSeen: now,
		Status:   domain.BikeStatusActive,
	}
	r.bikes[bikeID] = b
	return b
}

func (r *BikeRegistry) Get(bikeID string) (domain.BikeState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.bikes[bikeID]
	return b, ok
}

// All returns a copy of every bike ordered by id.
func (r *BikeRegistry) All() []domain.BikeState {
	r.mu.RLock()
	out := make([]domain.BikeState, 0, len(r.bikes))
	for _, b := range r.bikes {
		out = append(out, b)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].BikeID < out[j].BikeID })
	return out
}

func (r *BikeRegistry) Remove(bikeID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.bikes[bikeID]; !ok {
		return false
	}
	delete(r.bikes, bikeID)
	return true
}

// RemoveIdle deletes every bike whose LastSeen is more than maxAge before now
// and returns the removed ids.
func (r *BikeRegistry) RemoveIdle(now time.Time, maxAge time.Duration) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []string
	for id, b := range r.bikes {
		if now.Sub(b.LastSeen) > maxAge {
			delete(r.bikes, id)
			removed = append(removed, id)
		}
	}
	sort.Strings(removed)
	return removed
}

func (r *BikeRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bikes)
}
