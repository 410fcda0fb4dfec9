package service

import (
	"github.com/golang/geo/s2"

	"github.com/nandanugg/bike-geofence/module/core/domain"
)

const EarthRadiusKm = 6371.0

// Distance is the haversine great-circle distance in kilometers between two
// points given in degrees. Inputs are not validated; NaN propagates.
func Distance(lat1, lng1, lat2, lng2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lng1)
	p2 := s2.LatLngFromDegrees(lat2, lng2)
	return p1.Distance(p2).Radians() * EarthRadiusKm
}

// IsWithin checks one bike against one fence. A bike exactly on the radius is inside.
func IsWithin(bike domain.BikeState, fence domain.FenceSession) domain.Containment {
	d := Distance(fence.BaseLocation.Lat, fence.BaseLocation.Lng, bike.Location.Lat, bike.Location.Lng)
	return domain.Containment{
		Inside:     d <= fence.RadiusKm,
		DistanceKm: d,
	}
}
