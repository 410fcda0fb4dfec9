package domain

import "time"

// FenceConfig is what a subscriber sends to draw or redraw its fence.
type FenceConfig struct {
	BaseLocation   Location `json:"baseLocation"`
	RadiusKm       float64  `json:"radius" validate:"finite,gt=0"`
	DeviceEndpoint string   `json:"esp32Endpoint,omitempty" validate:"omitempty,url"`
}

// FenceSession is one subscriber's circular fence and alert destination.
type FenceSession struct {
	SessionID      string    `json:"sessionId"`
	BaseLocation   Location  `json:"baseLocation"`
	RadiusKm       float64   `json:"radius"`
	DeviceEndpoint string    `json:"esp32Endpoint,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

type Containment struct {
	Inside     bool    `json:"inside"`
	DistanceKm float64 `json:"distanceKm"`
}

// SessionBike is a bike as seen from one session's fence.
type SessionBike struct {
	BikeState
	SessionID  string        `json:"sessionId"`
	Inside     bool          `json:"inside"`
	DistanceKm float64       `json:"distanceKm"`
	Fence      *FenceSession `json:"geoFenceConfig,omitempty"`
}

type Stats struct {
	TotalBikes        int       `json:"totalBikes"`
	ActiveBikes       int       `json:"activeBikes"`
	BikesInsideFence  int       `json:"bikesInsideFence"`
	BikesOutsideFence int       `json:"bikesOutsideFence"`
	ActiveSessions    int       `json:"activeSessions"`
	LastUpdate        time.Time `json:"lastUpdate"`
}
