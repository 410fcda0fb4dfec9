package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/nandanugg/bike-geofence/module/core/domain"
	"github.com/nandanugg/bike-geofence/module/core/internal/validate"
)

type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]domain.FenceSession
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{sessions: make(map[string]domain.FenceSession)}
}

// Configure replaces the fence for sessionID. An invalid config leaves any
// previous fence for the session untouched.
func (r *SessionRegistry) Configure(sessionID string, cfg domain.FenceConfig, now time.Time) (domain.FenceSession, error) {
	if err := validate.Struct(domain.ErrInvalidConfig, cfg); err != nil {
		return domain.FenceSession{}, err
	}

	s := domain.FenceSession{
		SessionID:      sessionID,
		BaseLocation:   cfg.BaseLocation,
		RadiusKm:       cfg.RadiusKm,
		DeviceEndpoint: cfg.DeviceEndpoint,
		CreatedAt:      now,
	}

	r.mu.Lock()
	r.sessions[sessionID] = s
	r.mu.Unlock()
	return s, nil
}

func (r *SessionRegistry) Get(sessionID string) (domain.FenceSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[sessionID]
	return s, ok
}

// All returns a copy of every session ordered by id.
func (r *SessionRegistry) All() []domain.FenceSession {
	r.mu.RLock()
	out := make([]domain.FenceSession, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].SessionID < out[j].SessionID })
	return out
}

func (r *SessionRegistry) Remove(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[sessionID]; !ok {
		return false
	}
	delete(r.sessions, sessionID)
	return true
}

func (r *SessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
