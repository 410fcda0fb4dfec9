package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nandanugg/bike-geofence/module/core/domain"
	"github.com/nandanugg/bike-geofence/module/core/internal/repository/memory"
	"github.com/nandanugg/bike-geofence/module/core/internal/validate"
)

type alertDispatcher interface {
	Dispatch(ctx context.Context, alert domain.AlertEvent, fence domain.FenceSession) <-chan domain.DispatchResult
}

type broadcaster interface {
	Broadcast(event any)
}

type Option func(*GeofenceService)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *GeofenceService) { s.now = now }
}

// GeofenceService owns the bike and session registries and the transition
// memory. All mutations are serialized by mu. Subscriber alerts and broadcasts
// are enqueued under mu, in commit order; only the device and journal legs
// run after it is released.
type GeofenceService struct {
	mu sync.Mutex

	bikes      *memory.BikeRegistry
	sessions   *memory.SessionRegistry
	detector   *TransitionDetector
	dispatcher alertDispatcher
	notifier   broadcaster
	logger     *zap.Logger
	now        func() time.Time
}

func NewGeofenceService(dispatcher alertDispatcher, notifier broadcaster, logger *zap.Logger, opts ...Option) *GeofenceService {
	s := &GeofenceService{
		bikes:      memory.NewBikeRegistry(),
		sessions:   memory.NewSessionRegistry(),
		detector:   NewTransitionDetector(),
		dispatcher: dispatcher,
		notifier:   notifier,
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type firedAlert struct {
	alert domain.AlertEvent
	fence domain.FenceSession
}

// Submit ingests one telemetry sample: it commits the bike, evaluates it
// against every session present at the time of the call, dispatches the
// transitions that fired and finally broadcasts the raw sample.
func (s *GeofenceService) Submit(ctx context.Context, t domain.Telemetry) (*domain.IngestResult, error) {
	if err := validate.Struct(domain.ErrValidation, t); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	bike := s.bikes.Upsert(t.BikeID, t.Location, t.Speed, t.Battery, now)
	sessions := s.sessions.All()

	var fired []firedAlert
	for _, fence := range sessions {
		if fa, ok := s.evaluate(bike, fence, now); ok {
			fired = append(fired, fa)
		}
	}

	alerts := s.dispatch(ctx, fired)

	s.notifier.Broadcast(domain.BikeUpdateMessage{
		Type:      domain.EventBikeUpdate,
		BikeID:    bike.BikeID,
		Location:  bike.Location,
		Speed:     bike.Speed,
		Battery:   bike.Battery,
		Timestamp: bike.LastSeen,
	})

	s.logger.Debug("telemetry processed",
		zap.String("bike_id", bike.BikeID),
		zap.Int("sessions", len(sessions)),
		zap.Int("alerts", len(alerts)))

	return &domain.IngestResult{
		BikeID:            bike.BikeID,
		SessionsEvaluated: len(sessions),
		AlertFired:        len(alerts) > 0,
		Alerts:            alerts,
		Timestamp:         bike.LastSeen,
	}, nil
}

// ConfigureFence replaces the fence of sessionID and immediately re-evaluates
// every known bike against it, keeping the existing transition state.
func (s *GeofenceService) ConfigureFence(ctx context.Context, sessionID string, cfg domain.FenceConfig) (*domain.FenceSession, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session id: required", domain.ErrInvalidConfig)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	fence, err := s.sessions.Configure(sessionID, cfg, now)
	if err != nil {
		return nil, err
	}

	bikes := s.bikes.All()
	var fired []firedAlert
	for _, bike := range bikes {
		if fa, ok := s.evaluate(bike, fence, now); ok {
			fired = append(fired, fa)
		}
	}

	alerts := s.dispatch(ctx, fired)

	s.logger.Info("geofence configured",
		zap.String("session_id", sessionID),
		zap.Float64("base_lat", fence.BaseLocation.Lat),
		zap.Float64("base_lng", fence.BaseLocation.Lng),
		zap.Float64("radius_km", fence.RadiusKm),
		zap.String("endpoint", fence.DeviceEndpoint),
		zap.Int("bikes_rechecked", len(bikes)),
		zap.Int("alerts", len(alerts)))

	return &fence, nil
}

// RemoveFence drops the session and the transition memory that belonged to it.
func (s *GeofenceService) RemoveFence(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := s.sessions.Remove(sessionID)
	s.detector.ForgetSession(sessionID)
	if removed {
		s.logger.Info("geofence removed", zap.String("session_id", sessionID))
	}
	return removed
}

// RemoveBike evicts a bike. Its transition memory goes with it, so a later
// sample is treated as a first observation.
func (s *GeofenceService) RemoveBike(bikeID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := s.bikes.Remove(bikeID)
	s.detector.ForgetBike(bikeID)
	if removed {
		s.logger.Info("bike removed", zap.String("bike_id", bikeID))
	}
	return removed
}

// ReapInactive removes bikes not seen for more than maxAge.
func (s *GeofenceService) ReapInactive(maxAge time.Duration) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.bikes.RemoveIdle(s.now(), maxAge)
	for _, id := range ids {
		s.detector.ForgetBike(id)
	}
	return ids
}

func (s *GeofenceService) Bikes() []domain.BikeState {
	return s.bikes.All()
}

func (s *GeofenceService) Bike(bikeID string) (domain.BikeState, bool) {
	return s.bikes.Get(bikeID)
}

func (s *GeofenceService) Sessions() []domain.FenceSession {
	return s.sessions.All()
}

func (s *GeofenceService) Session(sessionID string) (domain.FenceSession, bool) {
	return s.sessions.Get(sessionID)
}

// BikesForSession lists every bike with its containment against the session's fence.
func (s *GeofenceService) BikesForSession(sessionID string) ([]domain.SessionBike, bool) {
	fence, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, false
	}

	bikes := s.bikes.All()
	out := make([]domain.SessionBike, 0, len(bikes))
	for _, b := range bikes {
		c := IsWithin(b, fence)
		out = append(out, domain.SessionBike{
			BikeState:  b,
			SessionID:  sessionID,
			Inside:     c.Inside,
			DistanceKm: c.DistanceKm,
			Fence:      &fence,
		})
	}
	return out, true
}

// Stats counts a bike as outside when it is outside at least one active fence.
func (s *GeofenceService) Stats() domain.Stats {
	bikes := s.bikes.All()
	sessions := s.sessions.All()

	st := domain.Stats{
		TotalBikes:     len(bikes),
		ActiveSessions: len(sessions),
		LastUpdate:     s.now(),
	}
	for _, b := range bikes {
		if b.Status == domain.BikeStatusActive {
			st.ActiveBikes++
		}
		outside := false
		for _, fence := range sessions {
			if !IsWithin(b, fence).Inside {
				outside = true
				break
			}
		}
		if outside {
			st.BikesOutsideFence++
		} else {
			st.BikesInsideFence++
		}
	}
	return st
}

// evaluate must be called with mu held.
func (s *GeofenceService) evaluate(bike domain.BikeState, fence domain.FenceSession, now time.Time) (firedAlert, bool) {
	c := IsWithin(bike, fence)
	tr := s.detector.Observe(bike.BikeID, fence.SessionID, c.Inside)
	if !tr.Fired {
		return firedAlert{}, false
	}

	return firedAlert{
		alert: domain.AlertEvent{
			ID:         uuid.NewString(),
			BikeID:     bike.BikeID,
			SessionID:  fence.SessionID,
			DistanceKm: c.DistanceKm,
			Direction:  tr.Direction(),
			Timestamp:  now,
		},
		fence: fence,
	}, true
}

// dispatch must be called with mu held. Dispatch only enqueues the subscriber
// leg and starts the network legs in the background.
func (s *GeofenceService) dispatch(ctx context.Context, fired []firedAlert) []domain.AlertEvent {
	if len(fired) == 0 {
		return nil
	}

	alerts := make([]domain.AlertEvent, 0, len(fired))
	for _, fa := range fired {
		s.dispatcher.Dispatch(ctx, fa.alert, fa.fence)
		alerts = append(alerts, fa.alert)

		s.logger.Info("geofence alert",
			zap.String("bike_id", fa.alert.BikeID),
			zap.String("session_id", fa.alert.SessionID),
			zap.String("direction", string(fa.alert.Direction)),
			zap.Float64("distance_km", fa.alert.DistanceKm))
	}
	return alerts
}
