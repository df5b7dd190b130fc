// Package config loads NeuroAssist configuration from an optional YAML file
// with NEUROASSIST_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix         = "NEUROASSIST_"
	maxConfigFileSize = 1024 * 1024 // 1MB
)

// Config holds the complete NeuroAssist configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Scoring   ScoringConfig   `koanf:"scoring"`
	NATS      NATSConfig      `koanf:"nats"`
	Logging   LoggingConfig   `koanf:"logging"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr            string        `koanf:"addr"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	AllowedOrigins  []string      `koanf:"allowed_origins"`
}

// DatabaseConfig holds the SQLite database location.
type DatabaseConfig struct {
	Path string `koanf:"path"`
}

// ScoringConfig controls the risk window and the local calendar.
type ScoringConfig struct {
	Timezone             string `koanf:"timezone"`
	WindowDays           int    `koanf:"window_days"`
	MedicationCutoffHour int    `koanf:"medication_cutoff_hour"`
}

// Location resolves Timezone. Call Validate first.
func (s ScoringConfig) Location() *time.Location {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// NATSConfig holds alert publication settings. An empty URL disables publishing.
type NATSConfig struct {
	URL           string `koanf:"url"`
	SubjectPrefix string `koanf:"subject_prefix"`
}

// LoggingConfig selects the zap preset and level.
type LoggingConfig struct {
	Mode  string `koanf:"mode"`
	Level string `koanf:"level"`
}

// TelemetryConfig holds OpenTelemetry tracing configuration.
type TelemetryConfig struct {
	Enabled     bool    `koanf:"enabled"`
	Exporter    string  `koanf:"exporter"`
	Endpoint    string  `koanf:"endpoint"`
	SampleRatio float64 `koanf:"sample_ratio"`
	ServiceName string  `koanf:"service_name"`
}

// Load reads configuration from configPath (skipped when empty), then
// overrides it with environment variables.
//
// Environment variables drop the NEUROASSIST_ prefix and split on the first
// underscore into section and field:
//
//	NEUROASSIST_SERVER_ADDR          -> server.addr
//	NEUROASSIST_SCORING_WINDOW_DAYS  -> scoring.window_days
//	NEUROASSIST_NATS_SUBJECT_PREFIX  -> nats.subject_prefix
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath != "" {
		content, err := readConfigFile(configPath)
		if err != nil {
			return nil, err
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, envPrefix))
	section, field, ok := strings.Cut(lower, "_")
	if !ok {
		return lower
	}
	return section + "." + field
}

func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{"*"}
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = "neuroassist.db"
	}

	if cfg.Scoring.Timezone == "" {
		cfg.Scoring.Timezone = "UTC"
	}
	if cfg.Scoring.WindowDays == 0 {
		cfg.Scoring.WindowDays = 7
	}
	if cfg.Scoring.MedicationCutoffHour == 0 {
		cfg.Scoring.MedicationCutoffHour = 18
	}

	if cfg.NATS.SubjectPrefix == "" {
		cfg.NATS.SubjectPrefix = "alerts"
	}

	if cfg.Logging.Mode == "" {
		cfg.Logging.Mode = "production"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	if cfg.Telemetry.Exporter == "" {
		cfg.Telemetry.Exporter = "stdout"
	}
	if cfg.Telemetry.SampleRatio == 0 {
		cfg.Telemetry.SampleRatio = 0.1
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "neuroassist"
	}
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if _, err := time.LoadLocation(c.Scoring.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("scoring.timezone: %w", err))
	}
	if c.Scoring.WindowDays <= 0 {
		errs = append(errs, fmt.Errorf("scoring.window_days must be positive, got %d", c.Scoring.WindowDays))
	}
	// 0 means unset and is defaulted before Validate runs.
	if c.Scoring.MedicationCutoffHour < 1 || c.Scoring.MedicationCutoffHour > 23 {
		errs = append(errs, fmt.Errorf("scoring.medication_cutoff_hour must be 1-23, got %d", c.Scoring.MedicationCutoffHour))
	}
	switch c.Logging.Mode {
	case "production", "development":
	default:
		errs = append(errs, fmt.Errorf("logging.mode must be production or development, got %q", c.Logging.Mode))
	}
	switch c.Telemetry.Exporter {
	case "stdout", "otlp":
	default:
		errs = append(errs, fmt.Errorf("telemetry.exporter must be stdout or otlp, got %q", c.Telemetry.Exporter))
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		errs = append(errs, fmt.Errorf("telemetry.sample_ratio must be 0-1, got %v", c.Telemetry.SampleRatio))
	}

	return errors.Join(errs...)
}
