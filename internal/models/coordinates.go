package models

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Coordinates represents a geographical point defined by its longitude and latitude.
// The order always follows the AMap convention: longitude first, latitude second.
type Coordinates struct {
	Longitude float64 // Longitude of the geographical point.
	Latitude  float64 // Latitude of the geographical point.
}

// String renders the point as "lon,lat", the form AMap expects in its location parameters.
func (c Coordinates) String() string {
	return strconv.FormatFloat(c.Longitude, 'f', -1, 64) + "," + strconv.FormatFloat(c.Latitude, 'f', -1, 64)
}

// MarshalJSON encodes the point as a [lon, lat] array.
func (c Coordinates) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{c.Longitude, c.Latitude})
}

// UnmarshalJSON decodes a [lon, lat] array.
func (c *Coordinates) UnmarshalJSON(data []byte) error {
	const pairLength = 2

	var pair []float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("failed to decode coordinates: %w", err)
	}
	if len(pair) != pairLength {
		return fmt.Errorf("coordinates must hold exactly two values, got %d", len(pair))
	}
	c.Longitude, c.Latitude = pair[0], pair[1]

	return nil
}

// GeocodeResult pairs an input point with its resolved address.
// Address holds either the formatted address or a category-tagged error message.
type GeocodeResult struct {
	Coordinates Coordinates `json:"coordinates"` // Input point, unchanged.
	Address     string      `json:"address"`     // Formatted address or error text.
}
