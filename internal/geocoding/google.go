package geocoding

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/UnknownOlympus/poimap/internal/models"
	"googlemaps.github.io/maps"
)

// GoogleProvider is a struct that holds the client for Google Maps API
// and a logger for logging purposes. It is used to interact with the
// Google Maps reverse geocoding service.
type GoogleProvider struct {
	client GoogleAPIClient // client is the Google Maps API client
	log    *slog.Logger    // log is the logger for logging operations
}

type GoogleAPIClient interface {
	ReverseGeocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error)
}

// NewGoogleProvider initializes a new GoogleProvider with the given client and logger.
func NewGoogleProvider(client GoogleAPIClient, log *slog.Logger) *GoogleProvider {
	return &GoogleProvider{client: client, log: log}
}

// Reverse resolves the points one request at a time, since the Google API has no batch mode.
// A point without results is left empty. The first request error fails the whole batch.
func (gp *GoogleProvider) Reverse(ctx context.Context, coords []models.Coordinates) ([]string, error) {
	addresses := make([]string, len(coords))

	for i, coord := range coords {
		gp.log.DebugContext(ctx, "Reverse geocoding using Google Maps", "location", coord.String())

		req := maps.GeocodingRequest{LatLng: &maps.LatLng{Lat: coord.Latitude, Lng: coord.Longitude}}
		results, err := gp.client.ReverseGeocode(ctx, &req)
		if err != nil {
			return nil, fmt.Errorf("failed to reverse geocode %s: %w", coord, err)
		}

		if len(results) == 0 {
			gp.log.DebugContext(ctx, "Google Maps returned no results", "location", coord.String())
			continue
		}
		addresses[i] = results[0].FormattedAddress
	}

	return addresses, nil
}
