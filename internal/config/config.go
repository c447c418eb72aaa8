package config

import (
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable the service reads.
const EnvPrefix = "POIMAP"

// Config holds the configuration settings for poimap.
// Every field is read from a POIMAP_* environment variable, optionally
// provided through a .env file in the working directory.
//
// Fields:
// - Env: The current environment (local, development, production).
// - AMapKey: The AMap web service key used by regeo and collect.
// - City, Keywords: The POI search performed by collect.
// - Output: The JSON file collect writes and nearby/serve read.
// - PageSize, PageDelay: Paging parameters of the POI search.
// - HTTPTimeout: Timeout of every upstream request.
// - Provider: Reverse geocoding provider settings.
// - Port: The port of the read API server.
// - MetricsFile: Optional node-exporter textfile for one-shot commands.
type Config struct {
	Env         string         // Env is the current environment: local, development, production.
	AMapKey     string         // AMapKey is the AMap web service key.
	City        string         // City restricts the POI search.
	Keywords    string         // Keywords of the POI search.
	Output      string         // Output is the path of the collected JSON file.
	PageSize    int            // PageSize is the number of entries per search page.
	PageDelay   time.Duration  // PageDelay is the pause between two search pages.
	HTTPTimeout time.Duration  // HTTPTimeout bounds each upstream request.
	Provider    ProviderConfig // Provider holds the reverse geocoding provider settings.
	Port        int            // Port is the read API server port.
	MetricsFile string         // MetricsFile receives a metrics dump when set.
}

// ProviderConfig selects and configures the reverse geocoding provider.
type ProviderConfig struct {
	Type      string // Type is one of amap, google, nominatim.
	APIKey    string // APIKey is the Google key, the AMap key is used for amap.
	RateLimit int    // RateLimit is the Google client request rate per second.
}

var defaults = map[string]string{
	"env":                 "production",
	"amap_key":            "",
	"city":                "海口",
	"keywords":            "公共厕所",
	"output":              "haikou_toilets.json",
	"page_size":           "50",
	"page_delay":          "200ms",
	"http_timeout":        "10s",
	"provider_type":       "amap",
	"provider_key":        "",
	"provider_rate_limit": "10",
	"port":                "8080",
	"metrics_file":        "",
}

// MustLoad reads the configuration from the environment and returns a Config struct.
// It panics when a numeric or duration value cannot be parsed.
func MustLoad() *Config {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	pageSize, err := strconv.Atoi(v.GetString("page_size"))
	if err != nil || pageSize <= 0 {
		panic("failed to parse page size from configuration, must be a positive integer")
	}

	pageDelay, err := time.ParseDuration(v.GetString("page_delay"))
	if err != nil {
		panic("failed to parse page delay from configuration")
	}

	httpTimeout, err := time.ParseDuration(v.GetString("http_timeout"))
	if err != nil {
		panic("failed to parse http timeout from configuration")
	}

	rateLimit, err := strconv.Atoi(v.GetString("provider_rate_limit"))
	if err != nil {
		panic("failed to parse provider rate limit from configuration, must be an integer types")
	}

	port, err := strconv.Atoi(v.GetString("port"))
	if err != nil {
		panic("failed to parse port for api server from configuration")
	}

	return &Config{
		Env:         v.GetString("env"),
		AMapKey:     v.GetString("amap_key"),
		City:        v.GetString("city"),
		Keywords:    v.GetString("keywords"),
		Output:      v.GetString("output"),
		PageSize:    pageSize,
		PageDelay:   pageDelay,
		HTTPTimeout: httpTimeout,
		Provider: ProviderConfig{
			Type:      v.GetString("provider_type"),
			APIKey:    v.GetString("provider_key"),
			RateLimit: rateLimit,
		},
		Port:        port,
		MetricsFile: v.GetString("metrics_file"),
	}
}
