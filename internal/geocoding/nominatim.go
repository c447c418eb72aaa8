package geocoding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/UnknownOlympus/poimap/internal/httpclient"
	"github.com/UnknownOlympus/poimap/internal/models"
	"golang.org/x/time/rate"
)

// NominatimReverseURL is the public Nominatim reverse geocoding endpoint.
const NominatimReverseURL = "https://nominatim.openstreetmap.org/reverse"

// nominatimNoResult is the error text Nominatim sends for a point without an address.
const nominatimNoResult = "Unable to geocode"

// NominatimProvider implements the Provider interface using OpenStreetMap's Nominatim API.
// This is a free geocoding service with usage limits (1 request/second for fair use).
type NominatimProvider struct {
	client  *httpclient.Client // JSON client for making requests
	baseURL string             // Base URL for the Nominatim API
	log     *slog.Logger       // Logger for logging operations
	limiter *rate.Limiter      // Keeps the provider within the fair use policy
}

// nominatimResponse represents the JSON response from Nominatim reverse API.
type nominatimResponse struct {
	DisplayName string `json:"display_name"`
	Error       string `json:"error"`
}

// ErrNominatimRateLimit is returned when waiting for the rate limiter fails.
var ErrNominatimRateLimit = errors.New("rate limit exceeded")

// NewNominatimProvider creates a new Nominatim reverse geocoding provider.
// Uses the public Nominatim API endpoint and a 1 request/second limiter.
func NewNominatimProvider(client *httpclient.Client, log *slog.Logger) *NominatimProvider {
	return NewNominatimProviderWithLimiter(client, rate.NewLimiter(rate.Limit(1), 1), log)
}

// NewNominatimProviderWithLimiter creates a Nominatim provider with a custom limiter.
// Useful for testing without the fair use delay.
func NewNominatimProviderWithLimiter(client *httpclient.Client, limiter *rate.Limiter, log *slog.Logger) *NominatimProvider {
	return &NominatimProvider{
		client:  client,
		baseURL: NominatimReverseURL,
		log:     log,
		limiter: limiter,
	}
}

// Reverse resolves the points one request at a time.
// A point Nominatim cannot geocode is left empty. Any other failure fails the whole batch.
func (np *NominatimProvider) Reverse(ctx context.Context, coords []models.Coordinates) ([]string, error) {
	addresses := make([]string, len(coords))

	for i, coord := range coords {
		address, err := np.reverseSingle(ctx, coord)
		if err != nil {
			return nil, err
		}
		addresses[i] = address
	}

	return addresses, nil
}

func (np *NominatimProvider) reverseSingle(ctx context.Context, coord models.Coordinates) (string, error) {
	if err := np.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: %w", ErrNominatimRateLimit, err)
	}

	np.log.DebugContext(ctx, "Reverse geocoding using Nominatim", "location", coord.String())

	query := url.Values{}
	query.Set("lat", strconv.FormatFloat(coord.Latitude, 'f', -1, 64))
	query.Set("lon", strconv.FormatFloat(coord.Longitude, 'f', -1, 64))
	query.Set("format", "jsonv2")
	query.Set("accept-language", "zh-CN,en")

	var resp nominatimResponse
	if err := np.client.GetJSON(ctx, np.baseURL, query, &resp); err != nil {
		return "", fmt.Errorf("failed to execute reverse geocoding request: %w", err)
	}

	switch resp.Error {
	case "":
		return resp.DisplayName, nil
	case nominatimNoResult:
		np.log.DebugContext(ctx, "Nominatim found no address", "location", coord.String())
		return "", nil
	default:
		return "", &httpclient.APIError{Service: "nominatim", Info: resp.Error}
	}
}
