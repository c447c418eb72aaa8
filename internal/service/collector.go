package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/UnknownOlympus/poimap/internal/amap"
	"github.com/UnknownOlympus/poimap/internal/httpclient"
	"github.com/UnknownOlympus/poimap/internal/metrics"
	"github.com/UnknownOlympus/poimap/internal/models"
	"github.com/UnknownOlympus/poimap/internal/poi"
	"github.com/UnknownOlympus/poimap/internal/repository"
	"golang.org/x/time/rate"
)

const (
	// DefaultPageSize is the number of entries requested per page.
	DefaultPageSize = 50
	// DefaultPageDelay is the pause between two page requests.
	DefaultPageDelay = 200 * time.Millisecond

	totalUnknown = -1
)

// PageFetcher fetches one page of a POI keyword search.
type PageFetcher interface {
	SearchPlaces(ctx context.Context, q amap.PlaceQuery) (*amap.PlacePage, error)
}

// CollectorConfig holds the search parameters of a collection run.
type CollectorConfig struct {
	Keywords  string        // Search keywords
	City      string        // City the search is limited to
	PageSize  int           // Entries per page, DefaultPageSize when zero
	PageDelay time.Duration // Minimum spacing between page requests, none when not positive
}

// CollectResult describes how a collection run ended.
type CollectResult struct {
	State   State              // Terminal state of the run
	Pages   int                // Pages fetched successfully, including the final empty one
	Total   int                // Match count reported by the first page, -1 if none succeeded
	Records []models.POIRecord // Records accumulated in fetch order
	Skipped int                // Entries dropped because of an unusable location
	Err     error              // Fetch error that ended the run, if any
	Saved   bool               // Whether the records were written
	SaveErr error              // Error from writing the records, if any
}

// CollectorService pages through a keyword search and dumps the normalized results.
type CollectorService struct {
	log        *slog.Logger
	fetcher    PageFetcher
	repo       repository.Interface
	normalizer *poi.Normalizer
	metrics    *metrics.Metrics
	cfg        CollectorConfig
}

// NewCollectorService creates a new instance of CollectorService.
func NewCollectorService(
	log *slog.Logger,
	fetcher PageFetcher,
	repo repository.Interface,
	normalizer *poi.Normalizer,
	metrics *metrics.Metrics,
	cfg CollectorConfig,
) *CollectorService {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}

	return &CollectorService{
		log:        log,
		fetcher:    fetcher,
		repo:       repo,
		normalizer: normalizer,
		metrics:    metrics,
		cfg:        cfg,
	}
}

// Run fetches pages until one comes back empty, the first page reports no matches,
// or a fetch fails. Records gathered before a failure are kept and written like a
// successful run. Nothing is written when no record was gathered.
func (cs *CollectorService) Run(ctx context.Context) *CollectResult {
	result := &CollectResult{
		State:   StateFetching,
		Total:   totalUnknown,
		Records: []models.POIRecord{},
	}

	limiter := cs.newLimiter()

	cs.log.InfoContext(ctx, "Collection started", "keywords", cs.cfg.Keywords, "city", cs.cfg.City)

	for page := 1; !result.State.Terminal(); page++ {
		if err := limiter.Wait(ctx); err != nil {
			cs.fail(ctx, result, page, err)
			break
		}

		resp, err := cs.fetchPage(ctx, page)
		if err != nil {
			cs.fail(ctx, result, page, err)
			break
		}

		result.Pages++
		cs.metrics.PagesFetched.Inc()

		if result.Total == totalUnknown {
			result.Total = resp.Count
			cs.log.InfoContext(ctx, "Search matched", "total", resp.Count)
			if resp.Count == 0 {
				result.State = StateTerminatedEmpty
				break
			}
		}

		if len(resp.POIs) == 0 {
			result.State = StateTerminatedSuccess
			break
		}

		result.State = StateAccumulating
		cs.accumulate(ctx, result, page, resp.POIs)

		cs.log.InfoContext(ctx, "Page processed", "page", page, "collected", len(result.Records), "total", result.Total)
	}

	cs.persist(ctx, result)

	return result
}

func (cs *CollectorService) newLimiter() *rate.Limiter {
	if cs.cfg.PageDelay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}

	return rate.NewLimiter(rate.Every(cs.cfg.PageDelay), 1)
}

func (cs *CollectorService) fetchPage(ctx context.Context, page int) (*amap.PlacePage, error) {
	startTime := time.Now()
	resp, err := cs.fetcher.SearchPlaces(ctx, amap.PlaceQuery{
		Keywords:  cs.cfg.Keywords,
		City:      cs.cfg.City,
		CityLimit: true,
		PageSize:  cs.cfg.PageSize,
		Page:      page,
	})
	cs.metrics.RequestSeconds.WithLabelValues("amap").Observe(time.Since(startTime).Seconds())

	if err != nil {
		cs.metrics.UpstreamRequests.WithLabelValues("place_text", "failure").Inc()
		cs.metrics.APIErrors.WithLabelValues(string(httpclient.Classify(err))).Inc()
		return nil, err
	}

	cs.metrics.UpstreamRequests.WithLabelValues("place_text", "success").Inc()

	return resp, nil
}

func (cs *CollectorService) accumulate(ctx context.Context, result *CollectResult, page int, entries []amap.POI) {
	for _, entry := range entries {
		record, err := cs.normalizer.Normalize(entry)
		if err != nil {
			result.Skipped++
			cs.metrics.RecordsSkipped.Inc()
			cs.log.WarnContext(
				ctx,
				"Skipping entry with unusable location",
				"page", page,
				"id", entry.ID.String(),
				"name", entry.Name.String(),
				"location", entry.Location.String(),
				"error", err,
			)
			continue
		}

		result.Records = append(result.Records, record)
		cs.metrics.RecordsCollected.Inc()
	}
}

func (cs *CollectorService) fail(ctx context.Context, result *CollectResult, page int, err error) {
	result.State = StateTerminatedFailure
	result.Err = err

	switch {
	case amap.IsInvalidKey(err):
		cs.log.ErrorContext(ctx, "AMap key is invalid or expired, check POIMAP_AMAP_KEY", "page", page, "error", err)
	case errors.Is(err, context.Canceled) || ctx.Err() != nil:
		cs.log.WarnContext(ctx, "Collection interrupted", "page", page, "collected", len(result.Records))
	default:
		cs.log.ErrorContext(ctx, "Failed to fetch page, stopping collection", "page", page, "error", err)
	}
}

func (cs *CollectorService) persist(ctx context.Context, result *CollectResult) {
	if len(result.Records) == 0 {
		cs.log.WarnContext(ctx, "No records collected, nothing written", "state", result.State.String())
		return
	}

	// The records must be written even when the run context is already cancelled.
	if err := cs.repo.SaveRecords(context.WithoutCancel(ctx), result.Records); err != nil {
		result.SaveErr = err
		cs.log.ErrorContext(ctx, "Failed to save records", "error", err)
		return
	}

	result.Saved = true
	cs.log.InfoContext(
		ctx,
		"Collection finished",
		"state", result.State.String(),
		"pages", result.Pages,
		"records", len(result.Records),
		"skipped", result.Skipped,
	)
}
