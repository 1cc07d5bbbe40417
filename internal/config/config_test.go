package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "yearview.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), *cfg)
}

func TestLoadFileOverlay(t *testing.T) {
	path := writeConfig(t, `
years:
  min_year: 2000
  scan_rows: 3
export:
  orientation: portrait
server:
  read_timeout: 5s
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2000, cfg.Years.MinYear)
	assert.Equal(t, 3, cfg.Years.ScanRows)
	assert.Equal(t, "portrait", cfg.Export.Orientation)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	// untouched keys keep their defaults
	assert.Equal(t, Default().Years.FallbackSpan, cfg.Years.FallbackSpan)
	assert.Equal(t, Default().Logging, cfg.Logging)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "logging:\n  level: warn\n")
	t.Setenv("YEARVIEW_LOGGING_LEVEL", "debug")
	t.Setenv("YEARVIEW_YEARS_FUTURE_SPAN", "2")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 2, cfg.Years.FutureSpan)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		env  map[string]string
	}{
		{name: "Unknown key", body: "nope: 1\n"},
		{name: "Bad level", body: "logging:\n  level: loud\n"},
		{name: "Bad orientation", body: "export:\n  orientation: diagonal\n"},
		{name: "Scan rows zero", body: "years:\n  scan_rows: 0\n"},
		{name: "Bad env value", body: "", env: map[string]string{"YEARVIEW_YEARS_MIN_YEAR": "soon"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestYearsRange(t *testing.T) {
	now := time.Date(2026, time.October, 19, 0, 0, 0, 0, time.UTC)
	y := Default().Years
	r := y.Range(now)
	assert.Equal(t, 1990, r.Min)
	assert.Equal(t, 2031, r.Max)

	opts := y.DetectOptions(now, true)
	assert.True(t, opts.FullScan)
	assert.Equal(t, y.ScanRows, opts.ScanRows)
	assert.Equal(t, r, opts.Range)
}
