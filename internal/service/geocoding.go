package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/UnknownOlympus/poimap/internal/geocoding"
	"github.com/UnknownOlympus/poimap/internal/httpclient"
	"github.com/UnknownOlympus/poimap/internal/metrics"
	"github.com/UnknownOlympus/poimap/internal/models"
)

// GeocodingService resolves batches of coordinates into addresses through a provider,
// turning every failure into a readable message attached to each point.
type GeocodingService struct {
	log          *slog.Logger       // Logger for logging service activities
	provider     geocoding.Provider // Geocoding provider for external geocoding services
	providerName string             // Name of the provider for metrics labeling
	metrics      *metrics.Metrics   // Metrics for tracking service performance
}

// NewGeocodingService creates a new instance of GeocodingService.
// It takes a logger, a geocoding provider, provider name for metrics and
// metrics for monitoring. It returns a pointer to the newly created GeocodingService.
func NewGeocodingService(
	log *slog.Logger,
	provider geocoding.Provider,
	providerName string,
	metrics *metrics.Metrics,
) *GeocodingService {
	return &GeocodingService{
		log:          log,
		provider:     provider,
		providerName: providerName,
		metrics:      metrics,
	}
}

// ResolveAddresses returns one result per input coordinate, in input order.
// It never fails: a batch-level error is copied into the Address of every result
// and an unresolved point gets geocoding.AddressNotFound.
func (gs *GeocodingService) ResolveAddresses(ctx context.Context, coords []models.Coordinates) []models.GeocodeResult {
	results := make([]models.GeocodeResult, len(coords))
	for i, coord := range coords {
		results[i].Coordinates = coord
	}

	if len(coords) == 0 {
		return results
	}

	gs.log.InfoContext(ctx, "Resolving addresses", "provider", gs.providerName, "count", len(coords))

	startTime := time.Now()
	addresses, err := gs.provider.Reverse(ctx, coords)
	gs.metrics.RequestSeconds.WithLabelValues(gs.providerName).Observe(time.Since(startTime).Seconds())

	if err == nil && len(addresses) != len(coords) {
		err = &httpclient.APIError{
			Service: gs.providerName,
			Info:    fmt.Sprintf("result count mismatch: got %d, want %d", len(addresses), len(coords)),
		}
	}

	if err != nil {
		category := httpclient.Classify(err)
		gs.metrics.UpstreamRequests.WithLabelValues("regeo", "failure").Inc()
		gs.metrics.APIErrors.WithLabelValues(string(category)).Inc()
		gs.log.ErrorContext(ctx, "Failed to resolve addresses", "category", category, "error", err)

		message := describeError(category, err)
		for i := range results {
			results[i].Address = message
		}
		return results
	}

	gs.metrics.UpstreamRequests.WithLabelValues("regeo", "success").Inc()

	for i, address := range addresses {
		if address == "" {
			address = geocoding.AddressNotFound
		}
		results[i].Address = address
	}

	gs.log.InfoContext(ctx, "Addresses resolved", "count", len(results))

	return results
}

// describeError renders err with the prefix of its category.
func describeError(category httpclient.Category, err error) string {
	switch category {
	case httpclient.CategoryAPI:
		var apiErr *httpclient.APIError
		if errors.As(err, &apiErr) {
			return "API error: " + apiErr.Info
		}
		return "API error: " + err.Error()
	case httpclient.CategoryHTTP:
		return "HTTP error: " + err.Error()
	case httpclient.CategoryConnection:
		return "connection error: " + err.Error()
	case httpclient.CategoryTimeout:
		return "request timeout: " + err.Error()
	default:
		return "request error: " + err.Error()
	}
}
