// Package config loads and validates application configuration from
// environment variables, an optional .env file and an optional catalog file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/hansonjake/valleyclub-guest-checkin/internal/domain"
)

// Config holds all configuration values for the guestbook commands.
// Values are populated by Load from environment variables.
type Config struct {
	// Port is the TCP port the HTTP server listens on. Defaults to "8080".
	Port string

	// DatabaseURL is the Postgres connection string. When empty the JSON
	// file store at DataFile is used instead.
	DatabaseURL string

	// DataFile is the path of the JSON document store. Defaults to
	// "data/guestbook.json".
	DataFile string

	// LogLevel controls the minimum log level. Defaults to "info".
	// Valid values: debug, info, warn, error.
	LogLevel string

	// CORSOrigins is the list of allowed cross-origin request origins.
	// Defaults to ["http://localhost:5173"].
	// Set CORS_ORIGINS to a comma-separated list to override.
	CORSOrigins []string

	// Location is the club's time zone (CLUB_TIMEZONE). Defaults to the
	// host's local zone.
	Location *time.Location

	// Policy holds the quota rules.
	Policy domain.Policy

	// Catalog lists campuses and their departments. Loaded from the YAML file
	// named by CATALOG_FILE, otherwise domain.DefaultCatalog.
	Catalog domain.Catalog

	// MaxBodyBytes caps request bodies. Defaults to 1 MiB.
	MaxBodyBytes int64
}

// Load reads a .env file from the working directory when one exists, then
// builds a Config from the environment. Every invalid value is reported in
// the returned error, not just the first.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config: reading .env: %w", err)
	}

	cfg := Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		DataFile:    getEnv("DATA_FILE", "data/guestbook.json"),
		LogLevel:    strings.ToLower(getEnv("LOG_LEVEL", "info")),
		CORSOrigins: splitCSV(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		Location:    time.Local,
		Policy:      domain.DefaultPolicy(),
		Catalog:     domain.DefaultCatalog(),
	}

	var errs []error
	intVar := func(key string, dst *int) {
		v := os.Getenv(key)
		if v == "" {
			return
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %q is not a whole number", key, v))
			return
		}
		*dst = n
	}

	intVar("MAX_VISITS_PER_YEAR", &cfg.Policy.MaxVisitsPerYear)
	july, august := cfg.Policy.MonthlyCaps[time.July], cfg.Policy.MonthlyCaps[time.August]
	intVar("JULY_VISIT_CAP", &july)
	intVar("AUGUST_VISIT_CAP", &august)
	cfg.Policy.MonthlyCaps = map[time.Month]int{time.July: july, time.August: august}
	intVar("WATCHLIST_THRESHOLD", &cfg.Policy.WatchListThreshold)
	if err := cfg.Policy.Validate(); err != nil {
		errs = append(errs, err)
	}

	maxBody := 1 << 20
	intVar("MAX_BODY_BYTES", &maxBody)
	if maxBody < 1 {
		errs = append(errs, fmt.Errorf("MAX_BODY_BYTES: must be positive, got %d", maxBody))
	}
	cfg.MaxBodyBytes = int64(maxBody)

	if tz := strings.TrimSpace(os.Getenv("CLUB_TIMEZONE")); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			errs = append(errs, fmt.Errorf("CLUB_TIMEZONE: %w", err))
		} else {
			cfg.Location = loc
		}
	}

	if _, err := cfg.SlogLevel(); err != nil {
		errs = append(errs, err)
	}

	if path := os.Getenv("CATALOG_FILE"); path != "" {
		catalog, err := LoadCatalog(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("CATALOG_FILE: %w", err))
		} else {
			cfg.Catalog = catalog
		}
	}

	if len(errs) > 0 {
		return Config{}, fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return cfg, nil
}

// SlogLevel maps LogLevel onto a slog.Level.
func (c Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL: %q is not one of debug, info, warn, error", c.LogLevel)
	}
	return level, nil
}

// catalogFile is the YAML layout of CATALOG_FILE:
//
//	campuses:
//	  Main Clubhouse: [Golf Round, Simulator Round]
//	  Fitness Center: [Pool Entry, Gym Entry]
type catalogFile struct {
	Campuses map[string][]string `yaml:"campuses"`
}

// LoadCatalog reads a campus/department catalog from a YAML file. Every
// campus must list at least one department.
func LoadCatalog(path string) (domain.Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f catalogFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(f.Campuses) == 0 {
		return nil, fmt.Errorf("%s: no campuses defined", path)
	}

	catalog := make(domain.Catalog, len(f.Campuses))
	for campus, depts := range f.Campuses {
		campus = strings.TrimSpace(campus)
		var clean []string
		for _, d := range depts {
			if d = strings.TrimSpace(d); d != "" {
				clean = append(clean, d)
			}
		}
		if campus == "" || len(clean) == 0 {
			return nil, fmt.Errorf("%s: campus %q needs a name and at least one department", path, campus)
		}
		catalog[campus] = clean
	}
	return catalog, nil
}

// getEnv returns the value of the environment variable named by key,
// or fallback if the variable is not set or is empty.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// splitCSV splits a comma-separated string into a trimmed slice, ignoring empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}
