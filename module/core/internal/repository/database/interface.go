package database

import (
	"context"

	"github.com/nandanugg/bike-geofence/module/core/domain"
)

type TelemetryRepository interface {
	Insert(ctx context.Context, rec *domain.TelemetryRecord) error
	GetLatest(ctx context.Context, bikeID string) (*domain.TelemetryRecord, error)
	GetHistory(ctx context.Context, query *domain.HistoryQuery) ([]domain.TelemetryRecord, error)
}
