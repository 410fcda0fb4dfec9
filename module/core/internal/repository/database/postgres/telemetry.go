package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/nandanugg/bike-geofence/module/core/domain"
	"github.com/nandanugg/bike-geofence/module/core/internal/repository/database"
)

var _ database.TelemetryRepository = (*TelemetryRepo)(nil)

const Schema = `CREATE TABLE IF NOT EXISTS bike_telemetry (
	id          BIGSERIAL PRIMARY KEY,
	bike_id     TEXT NOT NULL,
	latitude    DOUBLE PRECISION NOT NULL,
	longitude   DOUBLE PRECISION NOT NULL,
	speed       DOUBLE PRECISION NOT NULL,
	battery     DOUBLE PRECISION NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS bike_telemetry_bike_time_idx ON bike_telemetry (bike_id, recorded_at)`

type TelemetryRepo struct {
	db *sqlx.DB
}

func NewTelemetryRepo(db *sqlx.DB) *TelemetryRepo {
	return &TelemetryRepo{db: db}
}

// Migrate creates the history table when missing.
func (r *TelemetryRepo) Migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, Schema)
	return err
}

func (r *TelemetryRepo) Insert(ctx context.Context, rec *domain.TelemetryRecord) error {
	_, err := r.db.NamedExecContext(ctx,
		`INSERT INTO bike_telemetry (bike_id, latitude, longitude, speed, battery, recorded_at) VALUES (:bike_id, :latitude, :longitude, :speed, :battery, :recorded_at)`,
		rec,
	)
	return err
}

func (r *TelemetryRepo) GetLatest(ctx context.Context, bikeID string) (*domain.TelemetryRecord, error) {
	var rec domain.TelemetryRecord
	err := r.db.GetContext(ctx, &rec,
		`SELECT bike_id, latitude, longitude, speed, battery, recorded_at FROM bike_telemetry WHERE bike_id = $1 ORDER BY recorded_at DESC LIMIT 1`,
		bikeID,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *TelemetryRepo) GetHistory(ctx context.Context, query *domain.HistoryQuery) ([]domain.TelemetryRecord, error) {
	results := []domain.TelemetryRecord{}
	err := r.db.SelectContext(ctx, &results,
		`SELECT bike_id, latitude, longitude, speed, battery, recorded_at FROM bike_telemetry WHERE bike_id = $1 AND recorded_at >= $2 AND recorded_at <= $3 ORDER BY recorded_at ASC`,
		query.BikeID, query.Start, query.End,
	)
	if err != nil {
		return nil, err
	}
	return results, nil
}
