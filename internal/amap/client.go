package amap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/UnknownOlympus/poimap/internal/httpclient"
	"github.com/UnknownOlympus/poimap/internal/models"
)

const (
	// RegeoURL is the AMap reverse geocoding endpoint.
	RegeoURL = "https://restapi.amap.com/v3/geocode/regeo"
	// PlaceTextURL is the AMap POI keyword search endpoint.
	PlaceTextURL = "https://restapi.amap.com/v3/place/text"

	// StatusOK is the value of "status" on success.
	StatusOK = "1"
	// InfoCodeInvalidKey is reported for an invalid or expired key.
	InfoCodeInvalidKey = "10001"

	serviceName    = "amap"
	unknownAPIInfo = "unknown API error"
)

// Common errors for the AMap client.
var (
	ErrEmptyKey    = errors.New("amap API key is empty")
	ErrInvalidPage = errors.New("page number must be positive")
)

// Client talks to the AMap web service API.
type Client struct {
	http     *httpclient.Client
	key      string
	regeoURL string
	placeURL string
	log      *slog.Logger
}

// NewClient creates an AMap client using the given transport and key.
func NewClient(http *httpclient.Client, key string, log *slog.Logger) *Client {
	return &Client{
		http:     http,
		key:      key,
		regeoURL: RegeoURL,
		placeURL: PlaceTextURL,
		log:      log,
	}
}

// Regeo resolves all coordinates with a single batch request.
// The returned slice is ordered like the input: AMap has no correlation key, so the
// response order is trusted and a length mismatch is reported as an API error.
// An address AMap could not resolve is returned as "".
func (c *Client) Regeo(ctx context.Context, coords []models.Coordinates) ([]string, error) {
	if len(coords) == 0 {
		return []string{}, nil
	}
	if c.key == "" {
		return nil, ErrEmptyKey
	}

	locations := make([]string, len(coords))
	for i, coord := range coords {
		locations[i] = coord.String()
	}

	query := url.Values{}
	query.Set("key", c.key)
	query.Set("location", strings.Join(locations, "|"))
	query.Set("output", "json")
	query.Set("batch", "true")
	query.Set("extensions", "base")

	var resp regeoResponse
	if err := c.http.GetJSON(ctx, c.regeoURL, query, &resp); err != nil {
		return nil, fmt.Errorf("failed to execute regeo request: %w", err)
	}

	if resp.Status.String() != StatusOK || len(resp.Regeocodes) == 0 {
		return nil, newAPIError(resp.envelope)
	}

	if len(resp.Regeocodes) != len(coords) {
		return nil, &httpclient.APIError{
			Service: serviceName,
			Info:    fmt.Sprintf("result count mismatch: got %d, want %d", len(resp.Regeocodes), len(coords)),
		}
	}

	addresses := make([]string, len(resp.Regeocodes))
	for i, rc := range resp.Regeocodes {
		addresses[i] = rc.FormattedAddress.String()
	}

	c.log.DebugContext(ctx, "AMap regeo resolved", "count", len(addresses))

	return addresses, nil
}

// SearchPlaces fetches one page of a keyword search.
func (c *Client) SearchPlaces(ctx context.Context, q PlaceQuery) (*PlacePage, error) {
	if c.key == "" {
		return nil, ErrEmptyKey
	}
	if q.Page < 1 {
		return nil, ErrInvalidPage
	}

	query := url.Values{}
	query.Set("key", c.key)
	query.Set("keywords", q.Keywords)
	query.Set("city", q.City)
	query.Set("citylimit", strconv.FormatBool(q.CityLimit))
	query.Set("offset", strconv.Itoa(q.PageSize))
	query.Set("page", strconv.Itoa(q.Page))
	query.Set("output", "json")

	var resp placeResponse
	if err := c.http.GetJSON(ctx, c.placeURL, query, &resp); err != nil {
		return nil, fmt.Errorf("failed to execute place search request: %w", err)
	}

	if resp.Status.String() != StatusOK {
		apiErr := newAPIError(resp.envelope)
		c.log.ErrorContext(ctx, "AMap returned error", "info", apiErr.Info, "infocode", apiErr.Code)
		return nil, apiErr
	}

	count := 0
	if raw := strings.TrimSpace(resp.Count.String()); raw != "" {
		var err error
		if count, err = strconv.Atoi(raw); err != nil {
			return nil, fmt.Errorf("failed to parse result count %q: %w", raw, err)
		}
	}

	return &PlacePage{Count: count, POIs: resp.POIs}, nil
}

// IsInvalidKey reports whether err is AMap's "invalid or expired key" error.
func IsInvalidKey(err error) bool {
	var apiErr *httpclient.APIError
	return errors.As(err, &apiErr) && apiErr.Service == serviceName && apiErr.Code == InfoCodeInvalidKey
}

func newAPIError(env envelope) *httpclient.APIError {
	info := env.Info.String()
	if info == "" {
		info = unknownAPIInfo
	}

	return &httpclient.APIError{Service: serviceName, Info: info, Code: env.InfoCode.String()}
}
