package domain

import "time"

type Direction string

const (
	DirectionEntered Direction = "entered"
	DirectionLeft    Direction = "left"
)

const (
	EventGeofenceAlert = "geoFenceAlert"
	EventBikeUpdate    = "bikeUpdate"
)

// AlertEvent is produced when a bike crosses a session's fence boundary.
type AlertEvent struct {
	ID         string    `json:"id"`
	BikeID     string    `json:"bikeId"`
	SessionID  string    `json:"sessionId"`
	DistanceKm float64   `json:"distanceKm"`
	Direction  Direction `json:"direction"`
	Timestamp  time.Time `json:"timestamp"`
}

// Outside reports whether the alert puts the bike outside the fence.
func (a AlertEvent) Outside() bool {
	return a.Direction == DirectionLeft
}

type GeofenceAlertMessage struct {
	Type       string    `json:"type"`
	SessionID  string    `json:"sessionId"`
	BikeID     string    `json:"bikeId"`
	DistanceKm float64   `json:"distanceKm"`
	Direction  Direction `json:"direction"`
	Message    string    `json:"message"`
	Timestamp  time.Time `json:"timestamp"`
}

type BikeUpdateMessage struct {
	Type      string    `json:"type"`
	BikeID    string    `json:"bikeId"`
	Location  Location  `json:"location"`
	Speed     float64   `json:"speed"`
	Battery   float64   `json:"battery"`
	Timestamp time.Time `json:"timestamp"`
}

// DispatchResult records the outcome of every leg of one alert dispatch.
// A leg error never aborts the other legs.
type DispatchResult struct {
	Alert               AlertEvent `json:"alert"`
	SubscriberDelivered bool       `json:"subscriberDelivered"`
	DeviceEndpoint      string     `json:"deviceEndpoint"`
	DeviceStatus        int        `json:"deviceStatus,omitempty"`
	DeviceErr           error      `json:"-"`
	JournalErr          error      `json:"-"`
}

func (r DispatchResult) OK() bool {
	return r.DeviceErr == nil && r.JournalErr == nil
}
