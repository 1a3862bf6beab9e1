package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/cabinet-calculator/internal/autosave"
	"github.com/eugenenazirov/cabinet-calculator/internal/display"
	"github.com/eugenenazirov/cabinet-calculator/internal/geometry"
	"github.com/eugenenazirov/cabinet-calculator/internal/persistence"
	"github.com/eugenenazirov/cabinet-calculator/internal/storage/mongostore"
)

const (
	defaultPort           = "8080"
	defaultRateLimitRPS   = 25.0
	defaultRateLimitBurst = 50
	defaultLogLevel       = "info"
	defaultDataDir        = "data"
	defaultMongoDatabase  = "cabinet"
)

// Storage backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendMongo  = "mongo"
)

// ErrInvalidConfig is returned when the resolved configuration fails validation.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config aggregates runtime configuration resolved from multiple sources.
// Precedence: CLI flags > YAML config > Environment variables > Defaults
type Config struct {
	Port                 string
	ShutdownGracePeriod  time.Duration
	ReadHeaderTimeout    time.Duration
	WriteTimeout         time.Duration
	IdleTimeout          time.Duration
	EnableRequestLogging bool
	RateLimitRPS         float64
	RateLimitBurst       int
	LogLevel             string
	Locale               display.Locale

	Container        geometry.Container
	AutosaveInterval time.Duration
	SnapshotKey      string

	StorageBackend  string
	DataDir         string
	MongoURI        string
	MongoDatabase   string
	MongoCollection string
}

// yamlConfig represents the YAML configuration file structure.
type yamlConfig struct {
	Port                 string         `yaml:"port"`
	ShutdownGracePeriod  string         `yaml:"shutdown_grace_period"`
	ReadHeaderTimeout    string         `yaml:"read_header_timeout"`
	WriteTimeout         string         `yaml:"write_timeout"`
	IdleTimeout          string         `yaml:"idle_timeout"`
	EnableRequestLogging *bool          `yaml:"enable_request_logging"`
	RateLimit            *yamlRateLimit `yaml:"rate_limit"`
	LogLevel             string         `yaml:"log_level"`
	Locale               string         `yaml:"locale"`
	Container            yamlContainer  `yaml:"container"`
	AutosaveInterval     string         `yaml:"autosave_interval"`
	SnapshotKey          string         `yaml:"snapshot_key"`
	Storage              yamlStorage    `yaml:"storage"`
}

// yamlRateLimit represents the rate limit section in YAML.
type yamlRateLimit struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type yamlContainer struct {
	Width  float64 `yaml:"width"`
	Depth  float64 `yaml:"depth"`
	Height float64 `yaml:"height"`
}

type yamlStorage struct {
	Backend string    `yaml:"backend"`
	DataDir string    `yaml:"data_dir"`
	Mongo   yamlMongo `yaml:"mongo"`
}

type yamlMongo struct {
	URI        string `yaml:"uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

// CLIOverrides holds command-line flag overrides.
type CLIOverrides struct {
	ConfigFile       string
	Port             *string
	RateLimitRPS     *float64
	RateLimitBurst   *int
	LogLevel         *string
	Locale           *string
	ContainerWidth   *float64
	ContainerDepth   *float64
	ContainerHeight  *float64
	AutosaveInterval *time.Duration
	StorageBackend   *string
	DataDir          *string
	MongoURI         *string
}

// Load extracts configuration from multiple sources with precedence:
// CLI flags > YAML config > Environment variables > Defaults
func Load(overrides *CLIOverrides) (Config, error) {
	cfg := defaultConfig()

	if err := applyEnvConfig(&cfg); err != nil {
		return Config{}, err
	}

	if overrides != nil && overrides.ConfigFile != "" {
		yamlCfg, err := loadFromFile(overrides.ConfigFile)
		if err != nil {
			return Config{}, fmt.Errorf("load YAML config: %w", err)
		}
		if err := applyYAMLConfig(&cfg, yamlCfg); err != nil {
			return Config{}, err
		}
	}

	if overrides != nil {
		applyCLIOverrides(&cfg, overrides)
	}

	locale, err := display.ParseLocale(string(cfg.Locale))
	if err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	cfg.Locale = locale

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// defaultConfig returns a Config with default values.
func defaultConfig() Config {
	return Config{
		Port:                 defaultPort,
		ShutdownGracePeriod:  10 * time.Second,
		ReadHeaderTimeout:    5 * time.Second,
		WriteTimeout:         15 * time.Second,
		IdleTimeout:          60 * time.Second,
		EnableRequestLogging: true,
		RateLimitRPS:         defaultRateLimitRPS,
		RateLimitBurst:       defaultRateLimitBurst,
		LogLevel:             defaultLogLevel,
		Locale:               display.DefaultLocale,
		Container:            geometry.DefaultContainer(),
		AutosaveInterval:     autosave.DefaultInterval,
		SnapshotKey:          persistence.DefaultKey,
		StorageBackend:       BackendMemory,
		DataDir:              defaultDataDir,
		MongoDatabase:        defaultMongoDatabase,
		MongoCollection:      mongostore.DefaultCollection,
	}
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(path string) (*yamlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	return &yamlCfg, nil
}

// applyYAMLConfig applies YAML configuration to the Config struct. Duration and locale
// values that do not parse are rejected rather than silently ignored.
func applyYAMLConfig(cfg *Config, yamlCfg *yamlConfig) error {
	if yamlCfg.Port != "" {
		cfg.Port = yamlCfg.Port
	}

	durations := []struct {
		name  string
		raw   string
		field *time.Duration
	}{
		{"shutdown_grace_period", yamlCfg.ShutdownGracePeriod, &cfg.ShutdownGracePeriod},
		{"read_header_timeout", yamlCfg.ReadHeaderTimeout, &cfg.ReadHeaderTimeout},
		{"write_timeout", yamlCfg.WriteTimeout, &cfg.WriteTimeout},
		{"idle_timeout", yamlCfg.IdleTimeout, &cfg.IdleTimeout},
		{"autosave_interval", yamlCfg.AutosaveInterval, &cfg.AutosaveInterval},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		value, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, d.name, err)
		}
		*d.field = value
	}

	if yamlCfg.EnableRequestLogging != nil {
		cfg.EnableRequestLogging = *yamlCfg.EnableRequestLogging
	}

	if yamlCfg.RateLimit != nil {
		cfg.RateLimitRPS = yamlCfg.RateLimit.RPS
		cfg.RateLimitBurst = yamlCfg.RateLimit.Burst
	}

	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = yamlCfg.LogLevel
	}

	if yamlCfg.Locale != "" {
		cfg.Locale = display.Locale(yamlCfg.Locale)
	}

	if yamlCfg.Container.Width != 0 {
		cfg.Container.Width = yamlCfg.Container.Width
	}
	if yamlCfg.Container.Depth != 0 {
		cfg.Container.Depth = yamlCfg.Container.Depth
	}
	if yamlCfg.Container.Height != 0 {
		cfg.Container.Height = yamlCfg.Container.Height
	}

	if yamlCfg.SnapshotKey != "" {
		cfg.SnapshotKey = yamlCfg.SnapshotKey
	}

	if yamlCfg.Storage.Backend != "" {
		cfg.StorageBackend = yamlCfg.Storage.Backend
	}
	if yamlCfg.Storage.DataDir != "" {
		cfg.DataDir = yamlCfg.Storage.DataDir
	}
	if yamlCfg.Storage.Mongo.URI != "" {
		cfg.MongoURI = yamlCfg.Storage.Mongo.URI
	}
	if yamlCfg.Storage.Mongo.Database != "" {
		cfg.MongoDatabase = yamlCfg.Storage.Mongo.Database
	}
	if yamlCfg.Storage.Mongo.Collection != "" {
		cfg.MongoCollection = yamlCfg.Storage.Mongo.Collection
	}

	return nil
}

// applyEnvConfig applies environment variable configuration.
func applyEnvConfig(cfg *Config) error {
	setString := func(name string, field *string) {
		if value := strings.TrimSpace(os.Getenv(name)); value != "" {
			*field = value
		}
	}

	setString("PORT", &cfg.Port)
	setString("LOG_LEVEL", &cfg.LogLevel)
	setString("SNAPSHOT_KEY", &cfg.SnapshotKey)
	setString("STORAGE_BACKEND", &cfg.StorageBackend)
	setString("DATA_DIR", &cfg.DataDir)
	setString("MONGO_URI", &cfg.MongoURI)
	setString("MONGO_DATABASE", &cfg.MongoDatabase)
	setString("MONGO_COLLECTION", &cfg.MongoCollection)

	if locale := strings.TrimSpace(os.Getenv("LOCALE")); locale != "" {
		cfg.Locale = display.Locale(locale)
	}

	if rps := strings.TrimSpace(os.Getenv("RATE_LIMIT_RPS")); rps != "" {
		if value, err := strconv.ParseFloat(rps, 64); err == nil && value >= 0 {
			cfg.RateLimitRPS = value
		}
	}

	if burst := strings.TrimSpace(os.Getenv("RATE_LIMIT_BURST")); burst != "" {
		if value, err := strconv.Atoi(burst); err == nil && value >= 0 {
			cfg.RateLimitBurst = value
		}
	}

	dims := []struct {
		name  string
		field *float64
	}{
		{"CABINET_WIDTH", &cfg.Container.Width},
		{"CABINET_DEPTH", &cfg.Container.Depth},
		{"CABINET_HEIGHT", &cfg.Container.Height},
	}
	for _, d := range dims {
		raw := strings.TrimSpace(os.Getenv(d.name))
		if raw == "" {
			continue
		}
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("%w: %s: invalid number %q", ErrInvalidConfig, d.name, raw)
		}
		*d.field = value
	}

	if raw := strings.TrimSpace(os.Getenv("AUTOSAVE_INTERVAL")); raw != "" {
		value, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("%w: AUTOSAVE_INTERVAL: %v", ErrInvalidConfig, err)
		}
		cfg.AutosaveInterval = value
	}

	return nil
}

// applyCLIOverrides applies command-line flag overrides.
func applyCLIOverrides(cfg *Config, overrides *CLIOverrides) {
	if overrides.Port != nil && *overrides.Port != "" {
		cfg.Port = *overrides.Port
	}

	if overrides.RateLimitRPS != nil && *overrides.RateLimitRPS >= 0 {
		cfg.RateLimitRPS = *overrides.RateLimitRPS
	}

	if overrides.RateLimitBurst != nil && *overrides.RateLimitBurst >= 0 {
		cfg.RateLimitBurst = *overrides.RateLimitBurst
	}

	if overrides.LogLevel != nil && *overrides.LogLevel != "" {
		cfg.LogLevel = *overrides.LogLevel
	}

	if overrides.Locale != nil && *overrides.Locale != "" {
		cfg.Locale = display.Locale(*overrides.Locale)
	}

	if overrides.ContainerWidth != nil && *overrides.ContainerWidth != 0 {
		cfg.Container.Width = *overrides.ContainerWidth
	}
	if overrides.ContainerDepth != nil && *overrides.ContainerDepth != 0 {
		cfg.Container.Depth = *overrides.ContainerDepth
	}
	if overrides.ContainerHeight != nil && *overrides.ContainerHeight != 0 {
		cfg.Container.Height = *overrides.ContainerHeight
	}

	if overrides.AutosaveInterval != nil && *overrides.AutosaveInterval != 0 {
		cfg.AutosaveInterval = *overrides.AutosaveInterval
	}

	if overrides.StorageBackend != nil && *overrides.StorageBackend != "" {
		cfg.StorageBackend = *overrides.StorageBackend
	}

	if overrides.DataDir != nil && *overrides.DataDir != "" {
		cfg.DataDir = *overrides.DataDir
	}

	if overrides.MongoURI != nil && *overrides.MongoURI != "" {
		cfg.MongoURI = *overrides.MongoURI
	}
}

// validateConfig validates the final configuration.
func validateConfig(cfg Config) error {
	if cfg.RateLimitRPS < 0 {
		return fmt.Errorf("%w: RATE_LIMIT_RPS must be >= 0", ErrInvalidConfig)
	}
	if cfg.RateLimitBurst < 0 {
		return fmt.Errorf("%w: RATE_LIMIT_BURST must be >= 0", ErrInvalidConfig)
	}
	if err := cfg.Container.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if cfg.AutosaveInterval <= 0 {
		return fmt.Errorf("%w: autosave interval must be positive, got %s", ErrInvalidConfig, cfg.AutosaveInterval)
	}
	if strings.TrimSpace(cfg.SnapshotKey) == "" {
		return fmt.Errorf("%w: snapshot key cannot be empty", ErrInvalidConfig)
	}
	if cfg.Locale != display.Japanese && cfg.Locale != display.English {
		return fmt.Errorf("%w: unsupported locale %q", ErrInvalidConfig, cfg.Locale)
	}

	switch cfg.StorageBackend {
	case BackendMemory:
	case BackendFile:
		if strings.TrimSpace(cfg.DataDir) == "" {
			return fmt.Errorf("%w: data dir is required for the file backend", ErrInvalidConfig)
		}
	case BackendMongo:
		if strings.TrimSpace(cfg.MongoURI) == "" {
			return fmt.Errorf("%w: mongo uri is required for the mongo backend", ErrInvalidConfig)
		}
		if strings.TrimSpace(cfg.MongoDatabase) == "" {
			return fmt.Errorf("%w: mongo database cannot be empty", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown storage backend %q", ErrInvalidConfig, cfg.StorageBackend)
	}

	return nil
}
