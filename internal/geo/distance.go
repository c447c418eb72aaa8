// Package geo holds small spherical geometry helpers.
package geo

import (
	"fmt"
	"math"

	"github.com/UnknownOlympus/poimap/internal/models"
)

const earthRadiusMeters = 6371000.0

// HaversineMeters returns the great-circle distance between two points in meters.
func HaversineMeters(from, to models.Coordinates) float64 {
	dLat := (to.Latitude - from.Latitude) * math.Pi / 180.0
	dLon := (to.Longitude - from.Longitude) * math.Pi / 180.0

	lat1Rad := from.Latitude * math.Pi / 180.0
	lat2Rad := to.Latitude * math.Pi / 180.0

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Sin(dLon/2)*math.Sin(dLon/2)*math.Cos(lat1Rad)*math.Cos(lat2Rad)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// FormatDistance renders meters as "520m" below one kilometer and "1.5km" otherwise.
func FormatDistance(meters float64) string {
	if meters < 1000 {
		return fmt.Sprintf("%dm", int(math.Round(meters)))
	}

	return fmt.Sprintf("%.1fkm", meters/1000)
}
