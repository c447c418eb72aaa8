package models

// GeoJSONPointType is the only geometry type a POIRecord carries.
const GeoJSONPointType = "Point"

// Location is a GeoJSON point. Coordinates are [longitude, latitude].
type Location struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

// NewPoint builds a GeoJSON point from the given coordinates.
func NewPoint(coords Coordinates) Location {
	return Location{
		Type:        GeoJSONPointType,
		Coordinates: [2]float64{coords.Longitude, coords.Latitude},
	}
}

// Point returns the location as Coordinates.
func (l Location) Point() Coordinates {
	return Coordinates{Longitude: l.Coordinates[0], Latitude: l.Coordinates[1]}
}

// Properties are facility flags inferred from free-text POI tags.
type Properties struct {
	IsOpen24h    bool `json:"isOpen24h"`
	IsAccessible bool `json:"isAccessible"`
	HasBabyCare  bool `json:"hasBabyCare"`
}

// POIRecord is a normalized point of interest as written to the output file.
type POIRecord struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Address      string     `json:"address"`
	Location     Location   `json:"location"`
	Properties   Properties `json:"properties"`
	OpeningHours *string    `json:"openingHours"` // nil when the source has no opening time
	UpdatedAt    string     `json:"updatedAt"`    // ISO-8601 UTC
}

// NearbyRecord is a POIRecord annotated with its distance from a search center.
type NearbyRecord struct {
	POIRecord

	DistanceMeters float64 `json:"distanceMeters"`
	Distance       string  `json:"distance"` // e.g. "520m" or "1.5km"
}
