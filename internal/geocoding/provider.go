package geocoding

import (
	"context"

	"github.com/UnknownOlympus/poimap/internal/models"
)

// AddressNotFound is reported for a point the provider could not resolve.
const AddressNotFound = "address not found"

// Provider is an interface that defines a method for reverse geocoding a batch of points.
// Reverse returns one address per input point, in input order. An address the provider
// could not resolve is returned as "". An error means the whole batch failed.
type Provider interface {
	Reverse(ctx context.Context, coords []models.Coordinates) ([]string, error)
}
