package amap

import (
	"encoding/json"
	"fmt"
)

// FlexString decodes a JSON string and tolerates AMap's habit of sending an empty array
// (or any other non-string value) in place of a missing string. Such values decode as "".
// A JSON number keeps its literal text, so numeric fields like "count" survive either encoding.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (s *FlexString) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && (data[0] == '-' || (data[0] >= '0' && data[0] <= '9')) {
		var number json.Number
		if err := json.Unmarshal(data, &number); err != nil {
			return fmt.Errorf("failed to decode numeric field: %w", err)
		}
		*s = FlexString(number.String())
		return nil
	}

	if len(data) == 0 || data[0] != '"' {
		*s = ""
		return nil
	}

	var value string
	if err := json.Unmarshal(data, &value); err != nil {
		return fmt.Errorf("failed to decode string field: %w", err)
	}
	*s = FlexString(value)

	return nil
}

// String returns the plain string value.
func (s FlexString) String() string {
	return string(s)
}

// BizExt is the business extension object attached to a POI.
// AMap sends [] when it has nothing, which decodes as the zero value.
type BizExt struct {
	OpenTime FlexString `json:"open_time"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (b *BizExt) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || data[0] != '{' {
		*b = BizExt{}
		return nil
	}

	type plain BizExt
	var value plain
	if err := json.Unmarshal(data, &value); err != nil {
		return fmt.Errorf("failed to decode biz_ext: %w", err)
	}
	*b = BizExt(value)

	return nil
}

// POI is a raw entry of the place search response.
type POI struct {
	ID       FlexString `json:"id"`
	Name     FlexString `json:"name"`
	Address  FlexString `json:"address"`
	Location FlexString `json:"location"` // "lon,lat"
	Tag      FlexString `json:"tag"`
	Type     FlexString `json:"type"`
	BizExt   BizExt     `json:"biz_ext"`
}

// PlaceQuery holds the parameters of one place text search page.
type PlaceQuery struct {
	Keywords  string // Search keywords.
	City      string // City name or adcode.
	CityLimit bool   // Restrict results to City.
	PageSize  int    // AMap "offset": records per page.
	Page      int    // 1-based page number.
}

// PlacePage is the decoded payload of a successful place search page.
type PlacePage struct {
	Count int   // Total number of matches reported by AMap.
	POIs  []POI // Entries on this page.
}

// response fields shared by every AMap v3 endpoint.
type envelope struct {
	Status   FlexString `json:"status"`
	Info     FlexString `json:"info"`
	InfoCode FlexString `json:"infocode"`
}

type placeResponse struct {
	envelope

	Count FlexString `json:"count"`
	POIs  []POI      `json:"pois"`
}

type regeocode struct {
	FormattedAddress FlexString `json:"formatted_address"`
}

type regeoResponse struct {
	envelope

	Regeocodes []regeocode `json:"regeocodes"`
}
