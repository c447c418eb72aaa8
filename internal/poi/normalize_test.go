package poi_test

import (
	"testing"
	"time"

	"github.com/UnknownOlympus/poimap/internal/amap"
	"github.com/UnknownOlympus/poimap/internal/models"
	"github.com/UnknownOlympus/poimap/internal/poi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLocation(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    models.Coordinates
		wantErr bool
	}{
		{"valid", "110.313141,20.033586", models.Coordinates{Longitude: 110.313141, Latitude: 20.033586}, false},
		{"spaces", " 110.3 , 20.1 ", models.Coordinates{Longitude: 110.3, Latitude: 20.1}, false},
		{"extra parts ignored", "110.3,20.1,5", models.Coordinates{Longitude: 110.3, Latitude: 20.1}, false},
		{"bad longitude", "notanumber,20.1", models.Coordinates{}, true},
		{"bad latitude", "110.3,abc", models.Coordinates{}, true},
		{"single value", "110.3", models.Coordinates{}, true},
		{"empty", "", models.Coordinates{}, true},
		{"nan", "NaN,20.1", models.Coordinates{}, true},
		{"inf", "110.3,+Inf", models.Coordinates{}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := poi.ParseLocation(tc.raw)
			if tc.wantErr {
				require.ErrorIs(t, err, poi.ErrInvalidLocation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestInferProperties(t *testing.T) {
	tests := []struct {
		name string
		tag  string
		typ  string
		want models.Properties
	}{
		{"no keywords", "干净", "生活服务;公共厕所", models.Properties{}},
		{"24 hour tag", "24小时;免费", "", models.Properties{IsOpen24h: true}},
		{"24h in type case-insensitive", "", "公共厕所 24H", models.Properties{IsOpen24h: true}},
		{"24h only counts in type", "24h", "", models.Properties{}},
		{"accessible", "无障碍", "", models.Properties{IsAccessible: true}},
		{"disabled keyword", "残疾人专用", "", models.Properties{IsAccessible: true}},
		{"baby care", "母婴室", "", models.Properties{HasBabyCare: true}},
		{"nursing", "哺乳间", "", models.Properties{HasBabyCare: true}},
		{"all", "24小时;无障碍设施;育婴", "", models.Properties{IsOpen24h: true, IsAccessible: true, HasBabyCare: true}},
		{"baby care only in type is ignored", "", "母婴室", models.Properties{}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, poi.InferProperties(tc.tag, tc.typ))
		})
	}
}

func TestNormalizer_Normalize(t *testing.T) {
	fixed := time.Date(2025, 7, 1, 18, 30, 5, 0, time.FixedZone("CST", 8*3600))
	normalizer := poi.NewNormalizer(func() time.Time { return fixed })

	t.Run("full entry", func(t *testing.T) {
		entry := amap.POI{
			ID:       "B0FFG1",
			Name:     "公共厕所(滨海公园)",
			Address:  "滨海大道",
			Location: "110.3,20.03",
			Tag:      "24小时",
			Type:     "生活服务;公共厕所",
			BizExt:   amap.BizExt{OpenTime: "00:00-24:00"},
		}

		record, err := normalizer.Normalize(entry)

		require.NoError(t, err)
		assert.Equal(t, "B0FFG1", record.ID)
		assert.Equal(t, "公共厕所(滨海公园)", record.Name)
		assert.Equal(t, "滨海大道", record.Address)
		assert.Equal(t, models.GeoJSONPointType, record.Location.Type)
		assert.Equal(t, [2]float64{110.3, 20.03}, record.Location.Coordinates)
		assert.True(t, record.Properties.IsOpen24h)
		require.NotNil(t, record.OpeningHours)
		assert.Equal(t, "00:00-24:00", *record.OpeningHours)
		assert.Equal(t, "2025-07-01T10:30:05Z", record.UpdatedAt)
	})

	t.Run("missing fields fall back to placeholders", func(t *testing.T) {
		record, err := normalizer.Normalize(amap.POI{Location: "110.3,20.03"})

		require.NoError(t, err)
		assert.Equal(t, poi.DefaultID, record.ID)
		assert.Equal(t, poi.DefaultName, record.Name)
		assert.Equal(t, poi.DefaultAddress, record.Address)
		assert.Nil(t, record.OpeningHours)
		assert.Equal(t, models.Properties{}, record.Properties)
	})

	t.Run("malformed location", func(t *testing.T) {
		_, err := normalizer.Normalize(amap.POI{Name: "x", Location: "notanumber,20.1"})

		require.ErrorIs(t, err, poi.ErrInvalidLocation)
	})

	t.Run("default clock", func(t *testing.T) {
		record, err := poi.NewNormalizer(nil).Normalize(amap.POI{Location: "1,2"})

		require.NoError(t, err)
		_, err = time.Parse(poi.TimestampLayout, record.UpdatedAt)
		assert.NoError(t, err)
	})
}
