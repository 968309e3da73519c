package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hansonjake/valleyclub-guest-checkin/internal/config"
	"github.com/hansonjake/valleyclub-guest-checkin/internal/domain"
)

var configKeys = []string{
	"PORT", "DATABASE_URL", "DATA_FILE", "LOG_LEVEL", "CORS_ORIGINS", "CLUB_TIMEZONE",
	"MAX_VISITS_PER_YEAR", "JULY_VISIT_CAP", "AUGUST_VISIT_CAP", "WATCHLIST_THRESHOLD",
	"CATALOG_FILE", "MAX_BODY_BYTES",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configKeys {
		t.Setenv(k, "")
	}
}

// TestLoad_defaults verifies that every optional variable falls back to its default.
func TestLoad_defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := config.Load()

	require.NoError(t, err)
	require.Equal(t, "8080", cfg.Port)
	require.Equal(t, "info", cfg.LogLevel)
	require.Empty(t, cfg.DatabaseURL)
	require.Equal(t, "data/guestbook.json", cfg.DataFile)
	require.Equal(t, []string{"http://localhost:5173"}, cfg.CORSOrigins)
	require.Equal(t, time.Local, cfg.Location)
	require.Equal(t, domain.DefaultPolicy(), cfg.Policy)
	require.Equal(t, domain.DefaultCatalog(), cfg.Catalog)
	require.EqualValues(t, 1<<20, cfg.MaxBodyBytes)
}

// TestLoad_overrides verifies that all values can be overridden via env vars.
func TestLoad_overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://user:pass@db:5432/guestbook")
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("CORS_ORIGINS", "https://desk.example.com, https://admin.example.com")
	t.Setenv("CLUB_TIMEZONE", "UTC")
	t.Setenv("MAX_VISITS_PER_YEAR", "12")
	t.Setenv("JULY_VISIT_CAP", "2")
	t.Setenv("AUGUST_VISIT_CAP", "0")
	t.Setenv("WATCHLIST_THRESHOLD", "10")
	t.Setenv("MAX_BODY_BYTES", "4096")

	cfg, err := config.Load()

	require.NoError(t, err)
	require.Equal(t, "9090", cfg.Port)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, "postgres://user:pass@db:5432/guestbook", cfg.DatabaseURL)
	require.Equal(t, []string{"https://desk.example.com", "https://admin.example.com"}, cfg.CORSOrigins)
	require.Equal(t, "UTC", cfg.Location.String())
	require.Equal(t, 12, cfg.Policy.MaxVisitsPerYear)
	require.Equal(t, map[time.Month]int{time.July: 2, time.August: 0}, cfg.Policy.MonthlyCaps)
	require.Equal(t, 10, cfg.Policy.WatchListThreshold)
	require.EqualValues(t, 4096, cfg.MaxBodyBytes)

	level, err := cfg.SlogLevel()
	require.NoError(t, err)
	require.Equal(t, slog.LevelDebug, level)
}

// TestLoad_reportsEveryInvalidValue verifies that bad values are collected
// into a single error naming each variable.
func TestLoad_reportsEveryInvalidValue(t *testing.T) {
	clearEnv(t)
	t.Setenv("MAX_VISITS_PER_YEAR", "nine")
	t.Setenv("CLUB_TIMEZONE", "Mars/Olympus_Mons")
	t.Setenv("LOG_LEVEL", "loud")
	t.Setenv("MAX_BODY_BYTES", "0")

	_, err := config.Load()

	require.Error(t, err)
	require.ErrorContains(t, err, "MAX_VISITS_PER_YEAR")
	require.ErrorContains(t, err, "CLUB_TIMEZONE")
	require.ErrorContains(t, err, "LOG_LEVEL")
	require.ErrorContains(t, err, "MAX_BODY_BYTES")
}

func TestLoad_rejectsImpossiblePolicy(t *testing.T) {
	clearEnv(t)
	t.Setenv("MAX_VISITS_PER_YEAR", "0")

	_, err := config.Load()

	require.ErrorContains(t, err, "max visits per year")
}

func TestLoad_catalogFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
campuses:
  North Course:
    - Golf Round
    - " Range Bucket "
  Spa: [Massage]
`), 0o644))
	t.Setenv("CATALOG_FILE", path)

	cfg, err := config.Load()

	require.NoError(t, err)
	require.Equal(t, domain.Catalog{
		"North Course": {"Golf Round", "Range Bucket"},
		"Spa":          {"Massage"},
	}, cfg.Catalog)
}

func TestLoadCatalog_errors(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
		return p
	}

	tests := []struct {
		name string
		path string
		want string
	}{
		{"missing file", filepath.Join(dir, "nope.yaml"), "no such file"},
		{"bad yaml", write("bad.yaml", "campuses: [unclosed"), "parsing"},
		{"empty", write("empty.yaml", "campuses: {}\n"), "no campuses"},
		{"campus without departments", write("nodept.yaml", "campuses:\n  Spa: []\n"), "at least one department"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.LoadCatalog(tt.path)
			require.ErrorContains(t, err, tt.want)
		})
	}
}
