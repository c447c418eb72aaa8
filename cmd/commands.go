package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/UnknownOlympus/poimap/internal/amap"
	"github.com/UnknownOlympus/poimap/internal/api"
	"github.com/UnknownOlympus/poimap/internal/geocoding"
	"github.com/UnknownOlympus/poimap/internal/httpclient"
	"github.com/UnknownOlympus/poimap/internal/models"
	"github.com/UnknownOlympus/poimap/internal/poi"
	"github.com/UnknownOlympus/poimap/internal/repository"
	"github.com/UnknownOlympus/poimap/internal/service"
)

const (
	readTimeout     = 5 * time.Second
	writeTimeout    = 10 * time.Second
	shutdownTimeout = 5 * time.Second
)

// samplePoints are resolved by regeo when no coordinates are given.
var samplePoints = []models.Coordinates{
	{Longitude: 110.313141, Latitude: 20.033586},
	{Longitude: 110.15553, Latitude: 20.05096},
	{Longitude: 110.350396, Latitude: 20.034733},
	{Longitude: 110.298882, Latitude: 19.702901},
	{Longitude: 110.363983, Latitude: 20.030725},
}

// ErrCollectFailed is returned by collect when the search stopped on an error.
var ErrCollectFailed = errors.New("collection stopped before the last page")

type regeoCommand struct {
	app *app

	Provider string `short:"p" long:"provider" description:"Reverse geocoding provider: amap, google, nominatim (overrides POIMAP_PROVIDER_TYPE)"`
}

func (c *regeoCommand) Execute(args []string) error {
	coords, err := parseCoordinates(args)
	if err != nil {
		return err
	}

	providerType := c.app.cfg.Provider.Type
	if c.Provider != "" {
		providerType = c.Provider
	}

	apiKey := c.app.cfg.Provider.APIKey
	if geocoding.ProviderType(providerType) == geocoding.ProviderTypeAMap {
		apiKey = c.app.cfg.AMapKey
	}

	provider, err := geocoding.NewProvider(geocoding.ProviderConfig{
		Type:      geocoding.ProviderType(providerType),
		APIKey:    apiKey,
		RateLimit: c.app.cfg.Provider.RateLimit,
		Timeout:   c.app.cfg.HTTPTimeout,
		Logger:    c.app.log,
	})
	if err != nil {
		return fmt.Errorf("failed to create geocoding provider: %w", err)
	}

	c.app.log.InfoContext(c.app.ctx, "Geocoding provider initialized", "type", providerType)

	geoService := service.NewGeocodingService(c.app.log, provider, providerType, c.app.metrics)
	results := geoService.ResolveAddresses(c.app.ctx, coords)
	printGeocodeResults(os.Stdout, results)

	c.app.dumpMetrics()

	return nil
}

// parseCoordinates turns "lon,lat" arguments into points, falling back to samplePoints.
func parseCoordinates(args []string) ([]models.Coordinates, error) {
	if len(args) == 0 {
		return samplePoints, nil
	}

	coords := make([]models.Coordinates, len(args))
	for i, arg := range args {
		coord, err := poi.ParseLocation(arg)
		if err != nil {
			return nil, fmt.Errorf("argument %d %q: %w", i+1, arg, err)
		}
		coords[i] = coord
	}

	return coords, nil
}

func printGeocodeResults(w io.Writer, results []models.GeocodeResult) {
	for _, result := range results {
		fmt.Fprintf(w, "coordinates: %s\n", result.Coordinates)
		fmt.Fprintf(w, "address: %s\n", result.Address)
		fmt.Fprintln(w, "------------------------------")
	}
}

type collectCommand struct {
	app *app

	City     string `short:"c" long:"city"     description:"City to search in (overrides POIMAP_CITY)"`
	Keywords string `short:"k" long:"keywords" description:"Search keywords (overrides POIMAP_KEYWORDS)"`
	Output   string `short:"o" long:"output"   description:"Output JSON file (overrides POIMAP_OUTPUT)"`
}

func (c *collectCommand) Execute(_ []string) error {
	cfg := c.app.cfg
	if cfg.AMapKey == "" {
		return fmt.Errorf("POIMAP_AMAP_KEY is not set: %w", amap.ErrEmptyKey)
	}

	output := firstNonEmpty(c.Output, cfg.Output)
	client := amap.NewClient(httpclient.New(cfg.HTTPTimeout, c.app.log), cfg.AMapKey, c.app.log)
	repo := repository.NewRepository(output, c.app.log)

	collector := service.NewCollectorService(
		c.app.log,
		client,
		repo,
		poi.NewNormalizer(nil),
		c.app.metrics,
		service.CollectorConfig{
			Keywords:  firstNonEmpty(c.Keywords, cfg.Keywords),
			City:      firstNonEmpty(c.City, cfg.City),
			PageSize:  cfg.PageSize,
			PageDelay: cfg.PageDelay,
		},
	)

	result := collector.Run(c.app.ctx)
	printCollectResult(os.Stdout, result, repo.Path())

	c.app.dumpMetrics()

	if result.SaveErr != nil {
		return fmt.Errorf("failed to save records: %w", result.SaveErr)
	}
	if result.State == service.StateTerminatedFailure {
		return fmt.Errorf("%w: %w", ErrCollectFailed, result.Err)
	}

	return nil
}

func printCollectResult(w io.Writer, result *service.CollectResult, output string) {
	fmt.Fprintf(w, "state: %s\n", result.State)
	fmt.Fprintf(w, "pages: %d\n", result.Pages)
	fmt.Fprintf(w, "total reported: %d\n", result.Total)
	fmt.Fprintf(w, "records: %d\n", len(result.Records))
	fmt.Fprintf(w, "skipped: %d\n", result.Skipped)
	if result.Saved {
		fmt.Fprintf(w, "written to: %s\n", output)
	}
}

type nearbyCommand struct {
	app *app

	Longitude float64 `long:"longitude" required:"true" description:"Longitude of the search center"`
	Latitude  float64 `long:"latitude"  required:"true" description:"Latitude of the search center"`
	Radius    float64 `short:"r" long:"radius" default:"2000" description:"Search radius in meters"`
	Filters   string  `short:"f" long:"filters" description:"Comma separated properties that must be true: isOpen24h, isAccessible, hasBabyCare"`
	Output    string  `short:"o" long:"output" description:"Collected JSON file (overrides POIMAP_OUTPUT)"`
}

func (c *nearbyCommand) Execute(_ []string) error {
	index, err := c.app.loadIndex(firstNonEmpty(c.Output, c.app.cfg.Output))
	if err != nil {
		return err
	}

	center := models.Coordinates{Longitude: c.Longitude, Latitude: c.Latitude}
	matches, err := index.Nearby(center, c.Radius, repository.ParseFilters(c.Filters))
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "    ")

	return encoder.Encode(matches)
}

type serveCommand struct {
	app *app

	Port   int    `short:"p" long:"port"   description:"Port to listen on (overrides POIMAP_PORT)"`
	Output string `short:"o" long:"output" description:"Collected JSON file (overrides POIMAP_OUTPUT)"`
}

func (c *serveCommand) Execute(_ []string) error {
	ctx := c.app.ctx

	index, err := c.app.loadIndex(firstNonEmpty(c.Output, c.app.cfg.Output))
	if err != nil {
		return err
	}

	port := c.app.cfg.Port
	if c.Port != 0 {
		port = c.Port
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      api.NewHandler(c.app.log, index, c.app.metrics, c.app.reg),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		c.app.log.InfoContext(ctx, "Starting API server", "port", port, "records", index.Len())
		errCh <- server.ListenAndServe()
	}()

	select {
	case err = <-errCh:
		return fmt.Errorf("API server failed: %w", err)
	case <-ctx.Done():
	}

	c.app.log.InfoContext(ctx, "Shutdown signal received. Stopping API server...")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err = server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down API server: %w", err)
	}

	c.app.log.InfoContext(ctx, "API server stopped gracefully.")

	return nil
}

func (a *app) loadIndex(path string) (*repository.Index, error) {
	records, err := repository.NewRepository(path, a.log).LoadRecords(a.ctx)
	if err != nil {
		return nil, err
	}

	return repository.NewIndex(records), nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}

	return ""
}
