package service

import (
	"context"
	"time"

	"github.com/nandanugg/bike-geofence/module/core/domain"
	"github.com/nandanugg/bike-geofence/module/core/internal/repository/database"
)

// HistoryService keeps the telemetry log. It is not engine state: losing it
// never affects geofence evaluation.
type HistoryService struct {
	repo database.TelemetryRepository
}

func NewHistoryService(repo database.TelemetryRepository) *HistoryService {
	return &HistoryService{repo: repo}
}

// Record appends an accepted sample, stamped with the time the engine committed it.
func (s *HistoryService) Record(ctx context.Context, t domain.Telemetry, at time.Time) error {
	return s.repo.Insert(ctx, &domain.TelemetryRecord{
		BikeID:     t.BikeID,
		Lat:        t.Location.Lat,
		Lng:        t.Location.Lng,
		Speed:      t.Speed,
		Battery:    t.Battery,
		RecordedAt: at,
	})
}

func (s *HistoryService) GetLatest(ctx context.Context, bikeID string) (*domain.TelemetryRecord, error) {
	return s.repo.GetLatest(ctx, bikeID)
}

func (s *HistoryService) GetHistory(ctx context.Context, query *domain.HistoryQuery) ([]domain.TelemetryRecord, error) {
	return s.repo.GetHistory(ctx, query)
}
