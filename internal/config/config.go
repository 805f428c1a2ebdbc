package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/svg-world-map/internal/domain"
)

const defaultSourceURLs = "https://coronavirus-tracker-api.herokuapp.com/all,https://covid-tracker-us.herokuapp.com/all"

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Map assets.
	SVGPath      string
	MetadataPath string
	StylePath    string

	// Time-series source.
	SourceURLs         []string
	SourceFallbackPath string
	SourceTimeout      time.Duration
	SourceRetries      int

	// Normalization and snapshots.
	NonNationalCode string
	ReferenceRegion string
	DisplayMode     domain.DisplayMode
	ClampActive     bool

	// Playback.
	TimelineInterval    time.Duration
	TimelineSpeed       int
	TimelineLoop        bool
	TimelineAutoplay    bool
	TimelineStartOffset int

	RefreshInterval time.Duration

	// Payload cache, enabled when RedisAddr is set.
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	SourceCacheTTL time.Duration

	// Optional loaders.
	KafkaEnabled       bool
	KafkaBrokers       []string
	KafkaSnapshotTopic string
	PostgresDSN        string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	sourceTimeout, err := parsePositiveDuration("SOURCE_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	interval, err := parsePositiveDuration("TIMELINE_INTERVAL", "100ms")
	if err != nil {
		return nil, err
	}
	cacheTTL, err := parsePositiveDuration("SOURCE_CACHE_TTL", "1h")
	if err != nil {
		return nil, err
	}
	refresh, err := time.ParseDuration(sharedcfg.EnvOrDefault("REFRESH_INTERVAL", "0s"))
	if err != nil || refresh < 0 {
		return nil, errors.New("invalid REFRESH_INTERVAL")
	}

	mode, err := domain.ParseDisplayMode(sharedcfg.EnvOrDefault("DISPLAY_MODE", string(domain.DisplayDetailed)))
	if err != nil {
		return nil, fmt.Errorf("invalid DISPLAY_MODE: %w", err)
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		SVGPath:      sharedcfg.EnvOrDefault("MAP_SVG_PATH", "data/world-states-provinces.svg"),
		MetadataPath: sharedcfg.EnvOrDefault("REGION_METADATA_PATH", "data/country-data.json"),
		StylePath:    os.Getenv("MAP_STYLE_PATH"),

		SourceURLs:         sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("SOURCE_URLS", defaultSourceURLs)),
		SourceFallbackPath: envOrDefaultAllowEmpty("SOURCE_FALLBACK_PATH", "data/corona-data-fallback.json"),
		SourceTimeout:      sourceTimeout,

		NonNationalCode: sharedcfg.EnvOrDefault("NON_NATIONAL_CODE", "XX"),
		ReferenceRegion: sharedcfg.EnvOrDefault("REFERENCE_REGION", "CN"),
		DisplayMode:     mode,

		TimelineInterval: interval,

		RefreshInterval: refresh,

		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		SourceCacheTTL: cacheTTL,

		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSnapshotTopic: sharedcfg.EnvOrDefault("KAFKA_SNAPSHOT_TOPIC", "map-day-snapshots"),
		PostgresDSN:        os.Getenv("POSTGRES_DSN"),
	}

	for _, n := range []struct {
		name string
		def  int
		dst  *int
	}{
		{"SOURCE_RETRIES", 3, &cfg.SourceRetries},
		{"TIMELINE_SPEED", 10, &cfg.TimelineSpeed},
		{"TIMELINE_START_OFFSET", 14, &cfg.TimelineStartOffset},
		{"REDIS_DB", 0, &cfg.RedisDB},
	} {
		v, err := parseNonNegativeInt(n.name, n.def)
		if err != nil {
			return nil, err
		}
		*n.dst = v
	}

	for _, b := range []struct {
		name string
		def  bool
		dst  *bool
	}{
		{"CLAMP_ACTIVE", true, &cfg.ClampActive},
		{"TIMELINE_LOOP", false, &cfg.TimelineLoop},
		{"TIMELINE_AUTOPLAY", false, &cfg.TimelineAutoplay},
		{"KAFKA_ENABLED", false, &cfg.KafkaEnabled},
	} {
		v, err := parseBool(b.name, b.def)
		if err != nil {
			return nil, err
		}
		*b.dst = v
	}

	if len(cfg.SourceURLs) == 0 && cfg.SourceFallbackPath == "" {
		return nil, errors.New("SOURCE_URLS or SOURCE_FALLBACK_PATH is required")
	}
	if cfg.SVGPath == "" {
		return nil, errors.New("MAP_SVG_PATH is required")
	}
	if cfg.TimelineSpeed < 1 || cfg.TimelineSpeed > 20 {
		return nil, errors.New("TIMELINE_SPEED must be between 1 and 20")
	}
	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
		}
		if cfg.KafkaSnapshotTopic == "" {
			return nil, errors.New("KAFKA_SNAPSHOT_TOPIC is required when KAFKA_ENABLED is true")
		}
	}

	return cfg, nil
}

// NormalizerOptions maps the normalization settings onto the domain options.
func (c *Config) NormalizerOptions() domain.NormalizerOptions {
	return domain.NormalizerOptions{
		NonNationalCode: c.NonNationalCode,
		ReferenceRegion: c.ReferenceRegion,
		ClampActive:     c.ClampActive,
	}
}

func parsePositiveDuration(name, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(name, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return d, nil
}

func parseNonNegativeInt(name string, def int) (int, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return n, nil
}

func parseBool(name string, def bool) (bool, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s", name)
	}
	return v, nil
}

// envOrDefaultAllowEmpty distinguishes an explicitly empty variable from an
// unset one.
func envOrDefaultAllowEmpty(name, def string) string {
	if v, ok := os.LookupEnv(name); ok {
		return v
	}
	return def
}
