package repository

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/UnknownOlympus/poimap/internal/geo"
	"github.com/UnknownOlympus/poimap/internal/models"
)

// DefaultRadiusMeters is the search radius used when none is given.
const DefaultRadiusMeters = 2000

// Filter names accepted by Nearby. They match the JSON names of models.Properties.
const (
	FilterOpen24h    = "isOpen24h"
	FilterAccessible = "isAccessible"
	FilterBabyCare   = "hasBabyCare"
)

// Query errors.
var (
	ErrNotFound      = errors.New("record not found")
	ErrUnknownFilter = errors.New("unknown filter")
	ErrInvalidRadius = errors.New("radius must be a positive finite number")
	ErrInvalidCenter = errors.New("center coordinates must be finite numbers")
)

var filterFuncs = map[string]func(models.Properties) bool{
	FilterOpen24h:    func(p models.Properties) bool { return p.IsOpen24h },
	FilterAccessible: func(p models.Properties) bool { return p.IsAccessible },
	FilterBabyCare:   func(p models.Properties) bool { return p.HasBabyCare },
}

// Index answers read queries over an in-memory copy of the collected records.
type Index struct {
	records []models.POIRecord
	byID    map[string]int
}

// NewIndex builds an Index. Records with an empty id are searchable but not addressable by id.
// When ids repeat, the first record wins.
func NewIndex(records []models.POIRecord) *Index {
	byID := make(map[string]int, len(records))
	for i, record := range records {
		if record.ID == "" {
			continue
		}
		if _, exists := byID[record.ID]; !exists {
			byID[record.ID] = i
		}
	}

	return &Index{records: records, byID: byID}
}

// Len returns the number of indexed records.
func (idx *Index) Len() int {
	return len(idx.records)
}

// ByID returns the record with the given id.
func (idx *Index) ByID(id string) (models.POIRecord, error) {
	pos, ok := idx.byID[id]
	if !ok {
		return models.POIRecord{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	return idx.records[pos], nil
}

// ParseFilters splits a comma-separated filter list, ignoring blanks.
func ParseFilters(raw string) []string {
	var filters []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			filters = append(filters, trimmed)
		}
	}

	return filters
}

// Nearby returns the records within radiusMeters of center whose properties satisfy every filter,
// closest first.
func (idx *Index) Nearby(center models.Coordinates, radiusMeters float64, filters []string) ([]models.NearbyRecord, error) {
	if !isFinite(center.Longitude) || !isFinite(center.Latitude) {
		return nil, ErrInvalidCenter
	}
	if !isFinite(radiusMeters) || radiusMeters <= 0 {
		return nil, ErrInvalidRadius
	}

	checks := make([]func(models.Properties) bool, 0, len(filters))
	for _, name := range filters {
		check, ok := filterFuncs[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownFilter, name)
		}
		checks = append(checks, check)
	}

	matches := []models.NearbyRecord{}
	for _, record := range idx.records {
		if !matchAll(record.Properties, checks) {
			continue
		}

		distance := geo.HaversineMeters(center, record.Location.Point())
		if distance > radiusMeters {
			continue
		}

		matches = append(matches, models.NearbyRecord{
			POIRecord:      record,
			DistanceMeters: distance,
			Distance:       geo.FormatDistance(distance),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].DistanceMeters < matches[j].DistanceMeters
	})

	return matches, nil
}

func matchAll(props models.Properties, checks []func(models.Properties) bool) bool {
	for _, check := range checks {
		if !check(props) {
			return false
		}
	}

	return true
}

func isFinite(value float64) bool {
	return !math.IsNaN(value) && !math.IsInf(value, 0)
}
