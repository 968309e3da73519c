package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hansonjake/valleyclub-guest-checkin/internal/config"
	"github.com/hansonjake/valleyclub-guest-checkin/internal/metrics"
	"github.com/hansonjake/valleyclub-guest-checkin/internal/repo"
	"github.com/hansonjake/valleyclub-guest-checkin/internal/service"
)

// backend is the storage selected by the configuration: Postgres when
// DATABASE_URL is set, the JSON file store otherwise.
type backend struct {
	guests repo.GuestRepo
	visits repo.VisitRepo
	pool   *pgxpool.Pool
	name   string
}

func openBackend(ctx context.Context, cfg config.Config) (*backend, error) {
	if cfg.DatabaseURL == "" {
		store, err := repo.OpenFileStore(cfg.DataFile)
		if err != nil {
			return nil, fmt.Errorf("open data file %s: %w", cfg.DataFile, err)
		}
		return &backend{guests: store.Guests(), visits: store.Visits(), name: "file"}, nil
	}

	// New() does not open connections immediately; Ping verifies the
	// database is reachable before any command proceeds.
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("create database pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return &backend{
		guests: repo.NewGuestRepo(pool),
		visits: repo.NewVisitRepo(pool),
		pool:   pool,
		name:   "postgres",
	}, nil
}

func (b *backend) Close() {
	if b.pool != nil {
		b.pool.Close()
	}
}

// services is the service layer wired over one backend.
type services struct {
	guests   *service.GuestService
	visits   *service.VisitService
	checkins *service.CheckinService
	summary  *service.SummaryService
}

func newServices(cfg config.Config, b *backend, log *slog.Logger, m *metrics.Metrics) services {
	opts := []service.Option{
		service.WithLogger(log),
		service.WithLocation(cfg.Location),
		service.WithMetrics(m),
	}
	guests := service.NewGuestService(b.guests, opts...)
	visits := service.NewVisitService(b.visits, opts...)
	return services{
		guests:   guests,
		visits:   visits,
		checkins: service.NewCheckinService(guests, visits, cfg.Policy, cfg.Catalog, opts...),
		summary:  service.NewSummaryService(b.guests, b.visits, cfg.Policy, opts...),
	}
}
