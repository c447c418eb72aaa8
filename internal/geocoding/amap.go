package geocoding

import (
	"context"
	"log/slog"

	"github.com/UnknownOlympus/poimap/internal/models"
)

// RegeoClient is the part of the AMap client the provider needs.
type RegeoClient interface {
	Regeo(ctx context.Context, coords []models.Coordinates) ([]string, error)
}

// AMapProvider resolves all points with one AMap batch regeo request.
type AMapProvider struct {
	client RegeoClient  // AMap web service client
	log    *slog.Logger // Logger for logging operations
}

// NewAMapProvider creates a provider backed by the given AMap client.
func NewAMapProvider(client RegeoClient, log *slog.Logger) *AMapProvider {
	return &AMapProvider{client: client, log: log}
}

// Reverse sends every point in a single batch request.
// Results are matched to inputs by position because AMap returns no correlation key.
func (ap *AMapProvider) Reverse(ctx context.Context, coords []models.Coordinates) ([]string, error) {
	ap.log.DebugContext(ctx, "Reverse geocoding using AMap", "count", len(coords))

	return ap.client.Regeo(ctx, coords)
}
