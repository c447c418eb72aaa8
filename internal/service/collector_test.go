package service_test

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Flaque/filet"
	"github.com/UnknownOlympus/poimap/internal/amap"
	"github.com/UnknownOlympus/poimap/internal/httpclient"
	"github.com/UnknownOlympus/poimap/internal/metrics"
	"github.com/UnknownOlympus/poimap/internal/models"
	"github.com/UnknownOlympus/poimap/internal/poi"
	"github.com/UnknownOlympus/poimap/internal/repository"
	"github.com/UnknownOlympus/poimap/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type pageResult struct {
	page *amap.PlacePage
	err  error
}

// scriptedFetcher answers page N with script[N-1] and records every query.
type scriptedFetcher struct {
	mu      sync.Mutex
	script  []pageResult
	queries []amap.PlaceQuery
	times   []time.Time
	onFetch func(q amap.PlaceQuery)
}

func (f *scriptedFetcher) SearchPlaces(_ context.Context, q amap.PlaceQuery) (*amap.PlacePage, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.times = append(f.times, time.Now())
	f.mu.Unlock()

	if f.onFetch != nil {
		f.onFetch(q)
	}
	if q.Page > len(f.script) {
		return &amap.PlacePage{Count: 0}, nil
	}

	res := f.script[q.Page-1]
	return res.page, res.err
}

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) SaveRecords(ctx context.Context, records []models.POIRecord) error {
	return m.Called(ctx, records).Error(0)
}

func (m *mockRepo) LoadRecords(ctx context.Context) ([]models.POIRecord, error) {
	args := m.Called(ctx)
	records, _ := args.Get(0).([]models.POIRecord)
	return records, args.Error(1)
}

var fixedNow = time.Date(2025, 7, 1, 10, 30, 5, 0, time.FixedZone("CST", 8*3600))

func fullPage(page, size, total int) *amap.PlacePage {
	pois := make([]amap.POI, size)
	for i := range pois {
		pois[i] = amap.POI{
			ID:       amap.FlexString(fmt.Sprintf("P%d-%02d", page, i)),
			Name:     "公共厕所",
			Location: amap.FlexString(fmt.Sprintf("110.%06d,20.%06d", page*1000+i, i)),
		}
	}

	return &amap.PlacePage{Count: total, POIs: pois}
}

func newCollector(
	fetcher service.PageFetcher,
	repo repository.Interface,
	delay time.Duration,
) (*service.CollectorService, *metrics.Metrics) {
	m := metrics.NewMetrics(prometheus.NewRegistry())
	cfg := service.CollectorConfig{Keywords: "公共厕所", City: "海口", PageSize: 50, PageDelay: delay}
	normalizer := poi.NewNormalizer(func() time.Time { return fixedNow })

	return service.NewCollectorService(discardLogger(), fetcher, repo, normalizer, m, cfg), m
}

func TestCollectorService_Run(t *testing.T) {
	ctx := t.Context()

	t.Run("two full pages then an empty page", func(t *testing.T) {
		fetcher := &scriptedFetcher{script: []pageResult{
			{page: fullPage(1, 50, 100)},
			{page: fullPage(2, 50, 100)},
			{page: &amap.PlacePage{Count: 100}},
			{page: fullPage(4, 50, 100)},
		}}
		repo := &mockRepo{}
		repo.On("SaveRecords", mock.Anything, mock.AnythingOfType("[]models.POIRecord")).Return(nil).Once()
		collector, m := newCollector(fetcher, repo, 0)

		result := collector.Run(ctx)

		assert.Equal(t, service.StateTerminatedSuccess, result.State)
		require.Len(t, result.Records, 100)
		assert.Equal(t, "P1-00", result.Records[0].ID)
		assert.Equal(t, "P2-49", result.Records[99].ID)
		assert.Equal(t, 100, result.Total)
		assert.Equal(t, 3, result.Pages)
		assert.True(t, result.Saved)
		require.NoError(t, result.Err)
		require.Len(t, fetcher.queries, 3)
		for i, q := range fetcher.queries {
			assert.Equal(t, i+1, q.Page)
			assert.Equal(t, "公共厕所", q.Keywords)
			assert.Equal(t, "海口", q.City)
			assert.True(t, q.CityLimit)
			assert.Equal(t, 50, q.PageSize)
		}
		assert.InDelta(t, 100, testutil.ToFloat64(m.RecordsCollected), 0)
		assert.InDelta(t, 3, testutil.ToFloat64(m.PagesFetched), 0)
		repo.AssertExpectations(t)
	})

	t.Run("malformed location is skipped and siblings kept", func(t *testing.T) {
		page := &amap.PlacePage{Count: 3, POIs: []amap.POI{
			{ID: "A", Location: "110.1,20.1", Tag: "24小时"},
			{ID: "B", Location: "not-a-location"},
			{ID: "C", Location: ""},
			{ID: "D", Location: "110.2,20.2"},
		}}
		fetcher := &scriptedFetcher{script: []pageResult{{page: page}}}
		repo := &mockRepo{}
		repo.On("SaveRecords", mock.Anything, mock.Anything).Return(nil).Once()
		collector, m := newCollector(fetcher, repo, 0)

		result := collector.Run(ctx)

		assert.Equal(t, service.StateTerminatedSuccess, result.State)
		require.Len(t, result.Records, 2)
		assert.Equal(t, "A", result.Records[0].ID)
		assert.True(t, result.Records[0].Properties.IsOpen24h)
		assert.Equal(t, "D", result.Records[1].ID)
		assert.False(t, result.Records[1].Properties.IsOpen24h)
		assert.Equal(t, "未知厕所", result.Records[1].Name)
		assert.Equal(t, "无详细地址", result.Records[1].Address)
		assert.Nil(t, result.Records[1].OpeningHours)
		assert.Equal(t, "2025-07-01T02:30:05Z", result.Records[1].UpdatedAt)
		assert.Equal(t, [2]float64{110.2, 20.2}, result.Records[1].Location.Coordinates)
		assert.Equal(t, 2, result.Skipped)
		assert.InDelta(t, 2, testutil.ToFloat64(m.RecordsSkipped), 0)
	})

	t.Run("zero matches writes nothing", func(t *testing.T) {
		fetcher := &scriptedFetcher{script: []pageResult{{page: &amap.PlacePage{Count: 0}}}}
		repo := &mockRepo{}
		collector, _ := newCollector(fetcher, repo, 0)

		result := collector.Run(ctx)

		assert.Equal(t, service.StateTerminatedEmpty, result.State)
		assert.Equal(t, 0, result.Total)
		assert.Empty(t, result.Records)
		assert.False(t, result.Saved)
		assert.Len(t, fetcher.queries, 1)
		repo.AssertNotCalled(t, "SaveRecords", mock.Anything, mock.Anything)
	})

	t.Run("failure keeps partial results", func(t *testing.T) {
		fetchErr := fmt.Errorf("failed to execute place search request: %w",
			&httpclient.StatusError{StatusCode: 500, Body: "oops"})
		fetcher := &scriptedFetcher{script: []pageResult{
			{page: fullPage(1, 50, 120)},
			{err: fetchErr},
			{page: fullPage(3, 20, 120)},
		}}
		repo := &mockRepo{}
		repo.On("SaveRecords", mock.Anything, mock.MatchedBy(func(records []models.POIRecord) bool {
			return len(records) == 50
		})).Return(nil).Once()
		collector, m := newCollector(fetcher, repo, 0)

		result := collector.Run(ctx)

		assert.Equal(t, service.StateTerminatedFailure, result.State)
		require.ErrorIs(t, result.Err, fetchErr)
		assert.Len(t, result.Records, 50)
		assert.True(t, result.Saved)
		assert.Len(t, fetcher.queries, 2)
		assert.InDelta(t, 1, testutil.ToFloat64(m.APIErrors.WithLabelValues("http")), 0)
		repo.AssertExpectations(t)
	})

	t.Run("invalid key on the first page", func(t *testing.T) {
		fetcher := &scriptedFetcher{script: []pageResult{
			{err: &httpclient.APIError{Service: "amap", Info: "INVALID_USER_KEY", Code: amap.InfoCodeInvalidKey}},
		}}
		repo := &mockRepo{}
		collector, _ := newCollector(fetcher, repo, 0)

		result := collector.Run(ctx)

		assert.Equal(t, service.StateTerminatedFailure, result.State)
		assert.True(t, amap.IsInvalidKey(result.Err))
		assert.Equal(t, -1, result.Total)
		assert.Equal(t, 0, result.Pages)
		assert.False(t, result.Saved)
		repo.AssertNotCalled(t, "SaveRecords", mock.Anything, mock.Anything)
	})

	t.Run("cancellation keeps partial results", func(t *testing.T) {
		runCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		fetcher := &scriptedFetcher{
			script: []pageResult{
				{page: fullPage(1, 50, 200)},
				{page: fullPage(2, 50, 200)},
				{page: fullPage(3, 50, 200)},
			},
			onFetch: func(q amap.PlaceQuery) {
				if q.Page == 1 {
					cancel()
				}
			},
		}
		repo := &mockRepo{}
		repo.On("SaveRecords", mock.Anything, mock.Anything).Return(nil).Once()
		collector, _ := newCollector(fetcher, repo, time.Millisecond)

		result := collector.Run(runCtx)

		assert.Equal(t, service.StateTerminatedFailure, result.State)
		require.ErrorIs(t, result.Err, context.Canceled)
		assert.Len(t, result.Records, 50)
		assert.Len(t, fetcher.queries, 1)
		assert.True(t, result.Saved)
	})

	t.Run("save failure is reported", func(t *testing.T) {
		fetcher := &scriptedFetcher{script: []pageResult{{page: fullPage(1, 3, 3)}}}
		repo := &mockRepo{}
		repo.On("SaveRecords", mock.Anything, mock.Anything).Return(assert.AnError).Once()
		collector, _ := newCollector(fetcher, repo, 0)

		result := collector.Run(ctx)

		assert.Equal(t, service.StateTerminatedSuccess, result.State)
		assert.False(t, result.Saved)
		require.ErrorIs(t, result.SaveErr, assert.AnError)
	})

	t.Run("requests are spaced by the page delay", func(t *testing.T) {
		delay := 30 * time.Millisecond
		fetcher := &scriptedFetcher{script: []pageResult{
			{page: fullPage(1, 2, 4)},
			{page: fullPage(2, 2, 4)},
		}}
		repo := &mockRepo{}
		repo.On("SaveRecords", mock.Anything, mock.Anything).Return(nil).Once()
		collector, _ := newCollector(fetcher, repo, delay)

		start := time.Now()
		result := collector.Run(ctx)

		assert.Equal(t, service.StateTerminatedSuccess, result.State)
		require.Len(t, fetcher.times, 3)
		assert.Less(t, fetcher.times[0].Sub(start), delay)
		for i := 1; i < len(fetcher.times); i++ {
			assert.GreaterOrEqual(t, fetcher.times[i].Sub(fetcher.times[i-1]), delay-5*time.Millisecond)
		}
	})

	t.Run("written file parses back to the records", func(t *testing.T) {
		defer filet.CleanUp(t)
		path := filepath.Join(filet.TmpDir(t, ""), "out", "toilets.json")
		repo := repository.NewRepository(path, discardLogger())
		fetcher := &scriptedFetcher{script: []pageResult{
			{page: &amap.PlacePage{Count: 2, POIs: []amap.POI{
				{ID: "B0FFG1", Name: "公共厕所", Address: "滨海大道", Location: "110.313141,20.033586",
					Tag: "无障碍;母婴室", BizExt: amap.BizExt{OpenTime: "06:00-23:00"}},
				{ID: "B0FFG2", Location: "110.15553,20.05096", Type: "24H服务"},
			}}},
		}}
		collector, _ := newCollector(fetcher, repo, 0)

		result := collector.Run(ctx)
		require.True(t, result.Saved)

		loaded, err := repo.LoadRecords(ctx)
		require.NoError(t, err)
		assert.Equal(t, result.Records, loaded)
		assert.True(t, loaded[0].Properties.IsAccessible)
		assert.True(t, loaded[0].Properties.HasBabyCare)
		assert.True(t, loaded[1].Properties.IsOpen24h)
	})
}

func TestState(t *testing.T) {
	tests := []struct {
		state    service.State
		name     string
		terminal bool
	}{
		{service.StateFetching, "fetching", false},
		{service.StateAccumulating, "accumulating", false},
		{service.StateTerminatedEmpty, "terminated_empty", true},
		{service.StateTerminatedFailure, "terminated_failure", true},
		{service.StateTerminatedSuccess, "terminated_success", true},
		{service.State(42), "unknown", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.state.String())
			assert.Equal(t, tt.terminal, tt.state.Terminal())
		})
	}
}
