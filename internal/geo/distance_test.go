package geo_test

import (
	"testing"

	"github.com/UnknownOlympus/poimap/internal/geo"
	"github.com/UnknownOlympus/poimap/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestHaversineMeters(t *testing.T) {
	point := models.Coordinates{Longitude: 110.313141, Latitude: 20.033586}

	t.Run("same point", func(t *testing.T) {
		assert.InDelta(t, 0, geo.HaversineMeters(point, point), 1e-9)
	})

	t.Run("one degree of latitude", func(t *testing.T) {
		north := models.Coordinates{Longitude: point.Longitude, Latitude: point.Latitude + 1}
		assert.InDelta(t, 111195, geo.HaversineMeters(point, north), 1)
	})

	t.Run("symmetric", func(t *testing.T) {
		other := models.Coordinates{Longitude: 110.350396, Latitude: 20.034733}
		assert.InDelta(t, geo.HaversineMeters(point, other), geo.HaversineMeters(other, point), 1e-9)
	})
}

func TestFormatDistance(t *testing.T) {
	tests := []struct {
		meters float64
		want   string
	}{
		{0, "0m"},
		{519.6, "520m"},
		{999.4, "999m"},
		{1000, "1.0km"},
		{1480, "1.5km"},
		{12345, "12.3km"},
	}

	for _, tc := range tests {
		t.Run(tc.want, func(t *testing.T) {
			assert.Equal(t, tc.want, geo.FormatDistance(tc.meters))
		})
	}
}
