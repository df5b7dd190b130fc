package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "neuroassist.db", cfg.Database.Path)
	assert.Equal(t, "UTC", cfg.Scoring.Timezone)
	assert.Equal(t, 7, cfg.Scoring.WindowDays)
	assert.Equal(t, 18, cfg.Scoring.MedicationCutoffHour)
	assert.Equal(t, "alerts", cfg.NATS.SubjectPrefix)
	assert.Empty(t, cfg.NATS.URL)
	assert.Equal(t, "production", cfg.Logging.Mode)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "neuroassist", cfg.Telemetry.ServiceName)
	assert.Equal(t, time.UTC, cfg.Scoring.Location())
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  addr: ":9000"
  shutdown_timeout: 3s
scoring:
  timezone: America/New_York
  window_days: 14
nats:
  url: nats://localhost:4222
logging:
  mode: development
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	t.Setenv("NEUROASSIST_SCORING_WINDOW_DAYS", "30")
	t.Setenv("NEUROASSIST_NATS_SUBJECT_PREFIX", "care.alerts")
	t.Setenv("NEUROASSIST_DATABASE_PATH", "/tmp/na.db")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "America/New_York", cfg.Scoring.Timezone)
	assert.Equal(t, 30, cfg.Scoring.WindowDays)
	assert.Equal(t, "nats://localhost:4222", cfg.NATS.URL)
	assert.Equal(t, "care.alerts", cfg.NATS.SubjectPrefix)
	assert.Equal(t, "/tmp/na.db", cfg.Database.Path)
	assert.Equal(t, "development", cfg.Logging.Mode)
	assert.Equal(t, "America/New_York", cfg.Scoring.Location().String())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown timezone", func(c *Config) { c.Scoring.Timezone = "Mars/Olympus" }},
		{"negative window", func(c *Config) { c.Scoring.WindowDays = -1 }},
		{"cutoff hour", func(c *Config) { c.Scoring.MedicationCutoffHour = 24 }},
		{"cutoff hour zero", func(c *Config) { c.Scoring.MedicationCutoffHour = 0 }},
		{"logging mode", func(c *Config) { c.Logging.Mode = "verbose" }},
		{"exporter", func(c *Config) { c.Telemetry.Exporter = "zipkin" }},
		{"sample ratio", func(c *Config) { c.Telemetry.SampleRatio = 1.5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg Config
			applyDefaults(&cfg)
			require.NoError(t, cfg.Validate())

			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "server.addr", envKey("NEUROASSIST_SERVER_ADDR"))
	assert.Equal(t, "scoring.medication_cutoff_hour", envKey("NEUROASSIST_SCORING_MEDICATION_CUTOFF_HOUR"))
	assert.Equal(t, "debug", envKey("NEUROASSIST_DEBUG"))
}
