package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/UnknownOlympus/poimap/internal/config"
	"github.com/UnknownOlympus/poimap/internal/metrics"
	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Constants for different environment types.
const (
	envLocal = "local"
	envDev   = "development"
	envProd  = "production"
)

// app carries what every command needs.
type app struct {
	ctx     context.Context
	cfg     *config.Config
	log     *slog.Logger
	reg     *prometheus.Registry
	metrics *metrics.Metrics
}

// main is the entry point of the application.
func main() {
	// Create a context that will be canceled when an interrupt signal is received.
	// This allows for graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	// Load application configuration.
	cfg := config.MustLoad()

	// Set up the logger based on the environment.
	logger := setupLogger(cfg.Env)

	// Create a separate registry for metrics.
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	application := &app{
		ctx:     ctx,
		cfg:     cfg,
		log:     logger,
		reg:     reg,
		metrics: metrics.NewMetrics(reg),
	}

	parser := newParser(application)
	_, err := parser.Parse()
	stop()

	if err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}
}

// newParser registers every command on a go-flags parser.
func newParser(a *app) *flags.Parser {
	parser := flags.NewParser(nil, flags.Default)
	parser.ShortDescription = "AMap POI collection and reverse geocoding"

	commands := []struct {
		name  string
		short string
		long  string
		data  any
	}{
		{
			"regeo", "Resolve coordinates into addresses",
			"Resolves lon,lat pairs given as arguments (or a built-in sample of Haikou points) with the configured provider.",
			&regeoCommand{app: a},
		},
		{
			"collect", "Collect POIs into a JSON file",
			"Pages through an AMap keyword search and writes the normalized records to the output file.",
			&collectCommand{app: a},
		},
		{
			"nearby", "List collected POIs near a point",
			"Reads the collected file and prints the records within a radius, closest first.",
			&nearbyCommand{app: a},
		},
		{
			"serve", "Serve the collected POIs over HTTP",
			"Starts the read API with health and metrics endpoints over the collected file.",
			&serveCommand{app: a},
		},
	}

	for _, cmd := range commands {
		if _, err := parser.AddCommand(cmd.name, cmd.short, cmd.long, cmd.data); err != nil {
			panic("failed to register command " + cmd.name + ": " + err.Error())
		}
	}

	return parser
}

// dumpMetrics writes the registry to the node-exporter textfile when one is configured.
func (a *app) dumpMetrics() {
	if a.cfg.MetricsFile == "" {
		return
	}

	if err := prometheus.WriteToTextfile(a.cfg.MetricsFile, a.reg); err != nil {
		a.log.ErrorContext(a.ctx, "Failed to write metrics file", "path", a.cfg.MetricsFile, "error", err)
	}
}

// setupLogger initializes and returns a logger based on the environment provided.
// Logs go to stderr, stdout is reserved for command output.
func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level:     slog.LevelDebug,
				AddSource: true,
			}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
				Level:     slog.LevelInfo,
				AddSource: false,
			}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
				Level:       slog.LevelWarn,
				AddSource:   false,
				ReplaceAttr: dropTime,
			}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
				Level:       slog.LevelError,
				AddSource:   false,
				ReplaceAttr: dropTime,
			}),
		)

		log.Error(
			"The env parameter was not specified or was invalid. Logging will be minimal, by default.",
			slog.String("available_envs", "local, development, production"))
	}

	return log
}

func dropTime(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey {
		return slog.Attr{}
	}
	return a
}
