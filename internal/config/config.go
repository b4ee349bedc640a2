// Package config loads orientation-cli settings from config.yaml and the
// environment and initialises the global logger.
package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Input       InputConfig       `yaml:"input" mapstructure:"input"`
	Orientation OrientationConfig `yaml:"orientation" mapstructure:"orientation"`
	Output      OutputConfig      `yaml:"output" mapstructure:"output"`
	Batch       BatchConfig       `yaml:"batch" mapstructure:"batch"`
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Fetch       FetchConfig       `yaml:"fetch" mapstructure:"fetch"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// InputConfig locates the three input datasets and their columns. Paths may
// be local files, directories, .zip archives, or http/https/ftp URLs.
type InputConfig struct {
	Transactions   string `yaml:"transactions" mapstructure:"transactions"`
	Properties     string `yaml:"properties" mapstructure:"properties"`
	Roads          string `yaml:"roads" mapstructure:"roads"`
	RoadsLayer     string `yaml:"roads_layer" mapstructure:"roads_layer"`
	KeyColumn      string `yaml:"key_column" mapstructure:"key_column"`
	AddressColumn  string `yaml:"address_column" mapstructure:"address_column"`
	GeometryColumn string `yaml:"geometry_column" mapstructure:"geometry_column"`
	XColumn        string `yaml:"x_column" mapstructure:"x_column"`
	YColumn        string `yaml:"y_column" mapstructure:"y_column"`
	SourceCRS      string `yaml:"source_crs" mapstructure:"source_crs"`
	TempDir        string `yaml:"temp_dir" mapstructure:"temp_dir"`
}

// OrientationConfig tunes the resolver and the enhancer.
type OrientationConfig struct {
	SearchRadiusM     float64 `yaml:"search_radius_m" mapstructure:"search_radius_m"`
	ChordIndexCap     int     `yaml:"chord_index_cap" mapstructure:"chord_index_cap"`
	MinChordComponent float64 `yaml:"min_chord_component" mapstructure:"min_chord_component"`
	ImputeFraction    float64 `yaml:"impute_fraction" mapstructure:"impute_fraction"`
	Seed              uint64  `yaml:"seed" mapstructure:"seed"`
	TargetCRS         string  `yaml:"target_crs" mapstructure:"target_crs"`
	ProgressEvery     int     `yaml:"progress_every" mapstructure:"progress_every"`
}

// OutputConfig configures the result file.
type OutputConfig struct {
	Path           string `yaml:"path" mapstructure:"path"`
	Format         string `yaml:"format" mapstructure:"format"`
	MissingAddress string `yaml:"missing_address" mapstructure:"missing_address"`
}

// BatchConfig configures parallel resolution.
type BatchConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// StoreConfig configures the run database.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// FetchConfig configures remote input downloads.
type FetchConfig struct {
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// ServerConfig configures the read API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
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
	v.SetEnvPrefix("ORIENTATION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("input.transactions", "data/raw/transactions.csv")
	v.SetDefault("input.properties", "data/raw/gnaf_prop.csv")
	v.SetDefault("input.roads", "data/raw/roads.shp")
	v.SetDefault("input.roads_layer", "")
	v.SetDefault("input.key_column", "gnaf_pid")
	v.SetDefault("input.address_column", "street")
	v.SetDefault("input.geometry_column", "geom")
	v.SetDefault("input.x_column", "x")
	v.SetDefault("input.y_column", "y")
	v.SetDefault("input.source_crs", "EPSG:4326")
	v.SetDefault("input.temp_dir", "")
	v.SetDefault("orientation.search_radius_m", 3000.0)
	v.SetDefault("orientation.chord_index_cap", 10)
	v.SetDefault("orientation.min_chord_component", 1.0)
	v.SetDefault("orientation.impute_fraction", 0.10)
	v.SetDefault("orientation.seed", 42)
	v.SetDefault("orientation.target_crs", "EPSG:7856")
	v.SetDefault("orientation.progress_every", 2000)
	v.SetDefault("output.path", "data/processed/property_orientations_final.csv")
	v.SetDefault("output.format", "")
	v.SetDefault("output.missing_address", "Unknown Address")
	v.SetDefault("batch.workers", 4)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "")
	v.SetDefault("fetch.timeout_secs", 60)
	v.SetDefault("fetch.user_agent", "orientation-cli/1.0")
	v.SetDefault("fetch.rate_per_sec", 0.0)
	v.SetDefault("server.port", 8080)
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

// Validate checks the settings a command needs. Mode is one of "run",
// "runs" or "serve".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "run":
		if c.Input.Transactions == "" {
			errs = append(errs, "input.transactions is required")
		}
		if c.Input.Properties == "" {
			errs = append(errs, "input.properties is required")
		}
		if c.Input.Roads == "" {
			errs = append(errs, "input.roads is required")
		}
		if c.Output.Path == "" {
			errs = append(errs, "output.path is required")
		}
		switch strings.ToLower(c.Output.Format) {
		case "", "csv", "xlsx":
		default:
			errs = append(errs, fmt.Sprintf("output.format %q must be csv or xlsx", c.Output.Format))
		}
		errs = append(errs, c.validateOrientation()...)
		if c.Batch.Workers < 1 || c.Batch.Workers > 64 {
			errs = append(errs, "batch.workers must be between 1 and 64")
		}
	case "runs":
		if strings.EqualFold(c.Store.Driver, "none") {
			errs = append(errs, "store.driver must not be none")
		}
	case "serve":
		if strings.EqualFold(c.Store.Driver, "none") {
			errs = append(errs, "store.driver must not be none")
		}
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be > 0 and <= 65535")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if strings.EqualFold(c.Store.Driver, "postgres") && c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required for the postgres driver")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateOrientation() []string {
	var errs []string
	o := c.Orientation
	if o.SearchRadiusM <= 0 {
		errs = append(errs, "orientation.search_radius_m must be > 0")
	}
	if o.ChordIndexCap < 1 {
		errs = append(errs, "orientation.chord_index_cap must be >= 1")
	}
	if o.MinChordComponent <= 0 {
		errs = append(errs, "orientation.min_chord_component must be > 0")
	}
	if o.ImputeFraction < 0 || o.ImputeFraction > 1 {
		errs = append(errs, "orientation.impute_fraction must be between 0 and 1")
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
