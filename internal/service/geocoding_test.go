package service_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"testing"

	"github.com/UnknownOlympus/poimap/internal/httpclient"
	"github.com/UnknownOlympus/poimap/internal/metrics"
	"github.com/UnknownOlympus/poimap/internal/models"
	"github.com/UnknownOlympus/poimap/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) Reverse(ctx context.Context, coords []models.Coordinates) ([]string, error) {
	args := m.Called(ctx, coords)
	addresses, _ := args.Get(0).([]string)
	return addresses, args.Error(1)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func haikouPoints() []models.Coordinates {
	return []models.Coordinates{
		{Longitude: 110.313141, Latitude: 20.033586},
		{Longitude: 110.15553, Latitude: 20.05096},
		{Longitude: 110.348442, Latitude: 20.024502},
	}
}

func TestGeocodingService_ResolveAddresses(t *testing.T) {
	ctx := t.Context()
	coords := haikouPoints()

	newService := func(provider *mockProvider) (*service.GeocodingService, *metrics.Metrics) {
		m := metrics.NewMetrics(prometheus.NewRegistry())
		return service.NewGeocodingService(discardLogger(), provider, "amap", m), m
	}

	t.Run("successful resolution keeps order", func(t *testing.T) {
		provider := &mockProvider{}
		svc, m := newService(provider)
		provider.On("Reverse", mock.Anything, coords).
			Return([]string{"海口市龙华区", "", "海口市美兰区"}, nil).Once()

		results := svc.ResolveAddresses(ctx, coords)

		require.Len(t, results, len(coords))
		for i, result := range results {
			assert.Equal(t, coords[i], result.Coordinates)
		}
		assert.Equal(t, "海口市龙华区", results[0].Address)
		assert.Equal(t, "address not found", results[1].Address)
		assert.Equal(t, "海口市美兰区", results[2].Address)
		assert.InDelta(t, 1, testutil.ToFloat64(m.UpstreamRequests.WithLabelValues("regeo", "success")), 0)
		provider.AssertExpectations(t)
	})

	t.Run("empty input sends no request", func(t *testing.T) {
		provider := &mockProvider{}
		svc, _ := newService(provider)

		results := svc.ResolveAddresses(ctx, nil)

		assert.Empty(t, results)
		provider.AssertNotCalled(t, "Reverse", mock.Anything, mock.Anything)
	})

	errorCases := []struct {
		name     string
		err      error
		category string
		want     string
	}{
		{
			name:     "api error carries the info text",
			err:      &httpclient.APIError{Service: "amap", Info: "INVALID_USER_KEY", Code: "10001"},
			category: "api",
			want:     "API error: INVALID_USER_KEY",
		},
		{
			name:     "http status error",
			err:      fmt.Errorf("failed to execute regeo request: %w", &httpclient.StatusError{StatusCode: 502, Body: "bad gateway"}),
			category: "http",
			want:     "HTTP error: ",
		},
		{
			name:     "connection error",
			err:      &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")},
			category: "connection",
			want:     "connection error: ",
		},
		{
			name:     "timeout",
			err:      fmt.Errorf("failed to execute request: %w", context.DeadlineExceeded),
			category: "timeout",
			want:     "request timeout: ",
		},
		{
			name:     "generic request error",
			err:      errors.New("unsupported protocol scheme"),
			category: "request",
			want:     "request error: unsupported protocol scheme",
		},
	}

	for _, tc := range errorCases {
		t.Run(tc.name, func(t *testing.T) {
			provider := &mockProvider{}
			svc, m := newService(provider)
			provider.On("Reverse", mock.Anything, coords).Return(nil, tc.err).Once()

			results := svc.ResolveAddresses(ctx, coords)

			require.Len(t, results, len(coords))
			for i, result := range results {
				assert.Equal(t, coords[i], result.Coordinates)
				assert.NotEmpty(t, result.Address)
				assert.Contains(t, result.Address, tc.want)
			}
			assert.InDelta(t, 1, testutil.ToFloat64(m.APIErrors.WithLabelValues(tc.category)), 0)
			assert.InDelta(t, 1, testutil.ToFloat64(m.UpstreamRequests.WithLabelValues("regeo", "failure")), 0)
		})
	}

	t.Run("short provider answer is an api error", func(t *testing.T) {
		provider := &mockProvider{}
		svc, _ := newService(provider)
		provider.On("Reverse", mock.Anything, coords).Return([]string{"only one"}, nil).Once()

		results := svc.ResolveAddresses(ctx, coords)

		require.Len(t, results, len(coords))
		for _, result := range results {
			assert.Equal(t, "API error: result count mismatch: got 1, want 3", result.Address)
		}
	})
}
