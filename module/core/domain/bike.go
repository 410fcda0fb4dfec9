package domain

import "time"

const BikeStatusActive = "active"

type Location struct {
	Lat float64 `json:"lat" validate:"finite,gte=-90,lte=90"`
	Lng float64 `json:"lng" validate:"finite,gte=-180,lte=180"`
}

// Telemetry is one report from a bike, as accepted by the ingestion boundary.
type Telemetry struct {
	BikeID   string   `json:"bikeId" validate:"required"`
	Location Location `json:"location"`
	Speed    float64  `json:"speed" validate:"finite,gte=0"`
	Battery  float64  `json:"battery" validate:"finite,gte=0,lte=100"`
}

// BikeState is the last known state of a bike. Fields are replaced wholesale on every sample.
type BikeState struct {
	BikeID   string    `json:"bikeId"`
	Location Location  `json:"location"`
	Speed    float64   `json:"speed"`
	Battery  float64   `json:"battery"`
	LastSeen time.Time `json:"lastSeen"`
	Status   string    `json:"status"`
}

type IngestResult struct {
	BikeID            string       `json:"bikeId"`
	SessionsEvaluated int          `json:"sessionsChecked"`
	AlertFired        bool         `json:"alertFired"`
	Alerts            []AlertEvent `json:"alerts,omitempty"`
	Timestamp         time.Time    `json:"timestamp"`
}

// TelemetryRecord is one row of the telemetry history kept outside the engine.
type TelemetryRecord struct {
	BikeID     string    `json:"bikeId" db:"bike_id"`
	Lat        float64   `json:"lat" db:"latitude"`
	Lng        float64   `json:"lng" db:"longitude"`
	Speed      float64   `json:"speed" db:"speed"`
	Battery    float64   `json:"battery" db:"battery"`
	RecordedAt time.Time `json:"recordedAt" db:"recorded_at"`
}

type HistoryQuery struct {
	BikeID string
	Start  time.Time
	End    time.Time
}
