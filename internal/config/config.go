// Package config loads yearview settings from defaults, an optional YAML file
// and YEARVIEW_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"github.com/nconklindev/yearview/internal/tabular"
)

// EnvPrefix prefixes every environment variable, e.g. YEARVIEW_LOGGING_LEVEL.
const EnvPrefix = "YEARVIEW"

// Config represents the complete application configuration
type Config struct {
	Years   YearsConfig   `yaml:"years" envconfig:"YEARS"`
	Ingest  IngestConfig  `yaml:"ingest" envconfig:"INGEST"`
	Export  ExportConfig  `yaml:"export" envconfig:"EXPORT"`
	Logging LoggingConfig `yaml:"logging" envconfig:"LOGGING"`
	Session SessionConfig `yaml:"session" envconfig:"SESSION"`
	Server  ServerConfig  `yaml:"server" envconfig:"SERVER"`
}

// YearsConfig bounds year detection
type YearsConfig struct {
	MinYear      int `yaml:"min_year" envconfig:"MIN_YEAR" validate:"gte=1000,lte=9999"`
	FutureSpan   int `yaml:"future_span" envconfig:"FUTURE_SPAN" validate:"gte=0,lte=100"`
	ScanRows     int `yaml:"scan_rows" envconfig:"SCAN_ROWS" validate:"gte=1"`
	FallbackSpan int `yaml:"fallback_span" envconfig:"FALLBACK_SPAN" validate:"gte=1,lte=200"`
}

// IngestConfig controls workbook loading
type IngestConfig struct {
	MaxFileSize int64  `yaml:"max_file_size" envconfig:"MAX_FILE_SIZE" validate:"gt=0"`
	Charset     string `yaml:"charset" envconfig:"CHARSET"`
}

// ExportConfig controls exported files
type ExportConfig struct {
	Dir         string  `yaml:"dir" envconfig:"DIR" validate:"required"`
	Orientation string  `yaml:"orientation" envconfig:"ORIENTATION" validate:"oneof=portrait landscape"`
	ChartWidth  int     `yaml:"chart_width" envconfig:"CHART_WIDTH" validate:"gte=200,lte=8000"`
	ChartHeight int     `yaml:"chart_height" envconfig:"CHART_HEIGHT" validate:"gte=150,lte=8000"`
	FontSize    float64 `yaml:"font_size" envconfig:"FONT_SIZE" validate:"gt=0,lte=72"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`
	// File receives log output. Empty means stderr.
	File string `yaml:"file" envconfig:"FILE"`
}

// SessionConfig controls wizard state persistence
type SessionConfig struct {
	Enabled bool   `yaml:"enabled" envconfig:"ENABLED"`
	File    string `yaml:"file" envconfig:"FILE" validate:"required_if=Enabled true"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Addr            string        `yaml:"addr" envconfig:"ADDR" validate:"required"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" validate:"gt=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" validate:"gt=0"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Years: YearsConfig{
			MinYear:      tabular.MinYear,
			FutureSpan:   tabular.FutureYears,
			ScanRows:     tabular.ScanRowLimit,
			FallbackSpan: tabular.FallbackSpan,
		},
		Ingest: IngestConfig{
			MaxFileSize: 10 << 20,
		},
		Export: ExportConfig{
			Dir:         ".",
			Orientation: "landscape",
			ChartWidth:  1024,
			ChartHeight: 600,
			FontSize:    8,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "yearview.log",
		},
		Session: SessionConfig{
			Enabled: true,
			File:    ".yearview-session.json",
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if
// path is not empty), then environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// loadFromFile overlays the YAML file onto cfg; keys missing from the file
// keep their current value.
func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.UnmarshalStrict(data, cfg)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every field constraint.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%s: failed %q check", verrs[0].Namespace(), verrs[0].Tag())
		}
		return err
	}
	return nil
}

// Range returns the plausible year range relative to now.
func (y YearsConfig) Range(now time.Time) tabular.YearRange {
	return tabular.YearRange{Min: y.MinYear, Max: now.Year() + y.FutureSpan}
}

// DetectOptions returns detection options; full requests a whole-grid scan.
func (y YearsConfig) DetectOptions(now time.Time, full bool) tabular.DetectOptions {
	return tabular.DetectOptions{
		Range:    y.Range(now),
		ScanRows: y.ScanRows,
		FullScan: full,
	}
}
