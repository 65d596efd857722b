package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/placematch/internal/model"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Google     GoogleConfig     `yaml:"google" mapstructure:"google"`
	Search     SearchConfig     `yaml:"search" mapstructure:"search"`
	Policy     PolicyConfig     `yaml:"policy" mapstructure:"policy"`
	Share      ShareConfig      `yaml:"share" mapstructure:"share"`
	Debounce   DebounceConfig   `yaml:"debounce" mapstructure:"debounce"`
	Resilience ResilienceConfig `yaml:"resilience" mapstructure:"resilience"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the place store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// GoogleConfig holds Places API settings.
type GoogleConfig struct {
	Key       string  `yaml:"key" mapstructure:"key"`
	BaseURL   string  `yaml:"base_url" mapstructure:"base_url"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// SearchConfig configures the candidate search pipeline.
type SearchConfig struct {
	ResultCap           int     `yaml:"result_cap" mapstructure:"result_cap"`
	Language            string  `yaml:"language" mapstructure:"language"`
	Workers             int     `yaml:"workers" mapstructure:"workers"`
	DefaultRadiusMeters float64 `yaml:"default_radius_meters" mapstructure:"default_radius_meters"`
}

// PolicyConfig points at an optional YAML policy overriding the built-in
// dedupe tiers, category rules and bio vocabulary.
type PolicyConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ShareConfig holds share ingestion fallbacks.
type ShareConfig struct {
	PlaceholderQuery    string  `yaml:"placeholder_query" mapstructure:"placeholder_query"`
	PlaceholderLocation string  `yaml:"placeholder_location" mapstructure:"placeholder_location"`
	FallbackImageURL    string  `yaml:"fallback_image_url" mapstructure:"fallback_image_url"`
	DefaultLat          float64 `yaml:"default_lat" mapstructure:"default_lat"`
	DefaultLng          float64 `yaml:"default_lng" mapstructure:"default_lng"`

	// Share searches are location-biased when SearchRadiusMeters > 0. The
	// bias center falls back to DefaultLat/DefaultLng when unset.
	SearchLat          float64 `yaml:"search_lat" mapstructure:"search_lat"`
	SearchLng          float64 `yaml:"search_lng" mapstructure:"search_lng"`
	SearchRadiusMeters float64 `yaml:"search_radius_meters" mapstructure:"search_radius_meters"`
}

// SearchBias returns the center and radius applied to share searches, or a
// nil center when share searches are unbiased.
func (c ShareConfig) SearchBias() (*model.Coordinate, float64) {
	if c.SearchRadiusMeters <= 0 {
		return nil, 0
	}
	center := model.Coordinate{Lat: c.SearchLat, Lng: c.SearchLng}
	if center == (model.Coordinate{}) {
		center = model.Coordinate{Lat: c.DefaultLat, Lng: c.DefaultLng}
	}
	return &center, c.SearchRadiusMeters
}

// DebounceConfig configures the live search quiet period.
type DebounceConfig struct {
	QuietMs int `yaml:"quiet_ms" mapstructure:"quiet_ms"`
}

// ResilienceConfig configures provider retries and the circuit breaker.
type ResilienceConfig struct {
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int     `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	Multiplier       float64 `yaml:"multiplier" mapstructure:"multiplier"`
	JitterFraction   float64 `yaml:"jitter_fraction" mapstructure:"jitter_fraction"`
	BreakerThreshold int     `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerResetSecs int     `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port              int      `yaml:"port" mapstructure:"port"`
	CORSOrigins       []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	RequestsPerMinute int      `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PLACEMATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.sqlite_path", "placematch.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("google.key", "")
	v.SetDefault("google.base_url", "https://places.googleapis.com/v1")
	v.SetDefault("google.rate_limit", 10.0)
	v.SetDefault("search.result_cap", 10)
	v.SetDefault("search.language", "ja")
	v.SetDefault("search.workers", 4)
	v.SetDefault("search.default_radius_meters", 2000.0)
	v.SetDefault("policy.path", "")
	v.SetDefault("share.placeholder_query", "カフェ")
	v.SetDefault("share.placeholder_location", "位置情報なし")
	v.SetDefault("share.fallback_image_url", "https://placehold.jp/600x400.png?text=No+Image")
	v.SetDefault("share.default_lat", 35.681236)
	v.SetDefault("share.default_lng", 139.767125)
	v.SetDefault("share.search_lat", 0.0)
	v.SetDefault("share.search_lng", 0.0)
	v.SetDefault("share.search_radius_meters", 0.0)
	v.SetDefault("debounce.quiet_ms", 500)
	v.SetDefault("resilience.max_attempts", 3)
	v.SetDefault("resilience.initial_backoff_ms", 200)
	v.SetDefault("resilience.max_backoff_ms", 2000)
	v.SetDefault("resilience.multiplier", 2.0)
	v.SetDefault("resilience.jitter_fraction", 0.25)
	v.SetDefault("resilience.breaker_threshold", 5)
	v.SetDefault("resilience.breaker_reset_secs", 30)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.requests_per_minute", 120)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command mode depends on. Modes are
// "search" (provider-backed commands), "store" (database-only commands)
// and "serve".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch c.Store.Driver {
	case "sqlite":
		if c.Store.SQLitePath == "" {
			errs = append(errs, "store.sqlite_path is required for the sqlite driver")
		}
	case "postgres":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required for the postgres driver")
		}
	default:
		errs = append(errs, fmt.Sprintf("store.driver %q is not one of sqlite, postgres", c.Store.Driver))
	}

	switch mode {
	case "store":
	case "search":
		errs = append(errs, c.validateSearch()...)
	case "serve":
		errs = append(errs, c.validateSearch()...)
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		if c.Server.RequestsPerMinute < 0 {
			errs = append(errs, "server.requests_per_minute must be >= 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: invalid: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateSearch() []string {
	var errs []string
	if c.Google.Key == "" {
		errs = append(errs, "google.key is required")
	}
	if c.Search.ResultCap < 1 || c.Search.ResultCap > 20 {
		errs = append(errs, "search.result_cap must be between 1 and 20")
	}
	if c.Search.Workers < 1 || c.Search.Workers > 32 {
		errs = append(errs, "search.workers must be between 1 and 32")
	}
	if c.Google.RateLimit <= 0 {
		errs = append(errs, "google.rate_limit must be > 0")
	}
	if c.Share.SearchRadiusMeters < 0 {
		errs = append(errs, "share.search_radius_meters must be >= 0")
	}
	return errs
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
