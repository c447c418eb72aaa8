// Package poi turns raw AMap place entries into POIRecords.
package poi

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/UnknownOlympus/poimap/internal/amap"
	"github.com/UnknownOlympus/poimap/internal/models"
)

// Placeholders used when AMap omits a field.
const (
	DefaultID      = ""
	DefaultName    = "未知厕所"
	DefaultAddress = "无详细地址"
)

// TimestampLayout is the ISO-8601 UTC layout of POIRecord.UpdatedAt.
const TimestampLayout = "2006-01-02T15:04:05Z"

// ErrInvalidLocation is returned when a "lon,lat" string cannot be parsed.
var ErrInvalidLocation = errors.New("invalid location")

// Keyword lists for the property heuristics. They are matched against lowercased text.
var (
	open24hTagKeywords    = []string{"24小时"}
	open24hTypeKeywords   = []string{"24h"}
	accessibleTagKeywords = []string{"无障碍", "无障碍设施", "残疾人"}
	babyCareTagKeywords   = []string{"母婴室", "育婴", "哺乳"}
)

var lower = cases.Lower(language.Und)

// ParseLocation parses an AMap "lon,lat" string. Extra components are ignored.
func ParseLocation(raw string) (models.Coordinates, error) {
	const minParts = 2

	parts := strings.Split(raw, ",")
	if len(parts) < minParts {
		return models.Coordinates{}, fmt.Errorf("%w: %q", ErrInvalidLocation, raw)
	}

	lon, err := parseCoordinate(parts[0])
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("%w: longitude %q", ErrInvalidLocation, parts[0])
	}
	lat, err := parseCoordinate(parts[1])
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("%w: latitude %q", ErrInvalidLocation, parts[1])
	}

	return models.Coordinates{Longitude: lon, Latitude: lat}, nil
}

func parseCoordinate(raw string) (float64, error) {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, errors.New("not a finite number")
	}

	return value, nil
}

// InferProperties guesses facility flags from the free-text tag and type fields.
// It is a substring heuristic, not a verified classification.
func InferProperties(tag, typ string) models.Properties {
	tag = lower.String(tag)
	typ = lower.String(typ)

	return models.Properties{
		IsOpen24h:    containsAny(tag, open24hTagKeywords) || containsAny(typ, open24hTypeKeywords),
		IsAccessible: containsAny(tag, accessibleTagKeywords),
		HasBabyCare:  containsAny(tag, babyCareTagKeywords),
	}
}

func containsAny(text string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}

	return false
}

// Normalizer builds POIRecords. The clock is injectable for tests.
type Normalizer struct {
	now func() time.Time
}

// NewNormalizer returns a Normalizer using now for UpdatedAt. A nil now means time.Now.
func NewNormalizer(now func() time.Time) *Normalizer {
	if now == nil {
		now = time.Now
	}

	return &Normalizer{now: now}
}

// Normalize converts one raw entry. It fails only when the location cannot be parsed.
func (n *Normalizer) Normalize(entry amap.POI) (models.POIRecord, error) {
	coords, err := ParseLocation(entry.Location.String())
	if err != nil {
		return models.POIRecord{}, err
	}

	var openingHours *string
	if openTime := entry.BizExt.OpenTime.String(); openTime != "" {
		openingHours = &openTime
	}

	return models.POIRecord{
		ID:           withDefault(entry.ID.String(), DefaultID),
		Name:         withDefault(entry.Name.String(), DefaultName),
		Address:      withDefault(entry.Address.String(), DefaultAddress),
		Location:     models.NewPoint(coords),
		Properties:   InferProperties(entry.Tag.String(), entry.Type.String()),
		OpeningHours: openingHours,
		UpdatedAt:    n.now().UTC().Format(TimestampLayout),
	}, nil
}

func withDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}

	return value
}
