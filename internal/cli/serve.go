package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/hansonjake/valleyclub-guest-checkin/internal/config"
	"github.com/hansonjake/valleyclub-guest-checkin/internal/handler"
	"github.com/hansonjake/valleyclub-guest-checkin/internal/metrics"
	"github.com/hansonjake/valleyclub-guest-checkin/internal/middleware"
	"github.com/hansonjake/valleyclub-guest-checkin/openapi"
)

func newServeCmd() *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the front-desk HTTP API",
		Long:  "Start the HTTP API on PORT. Stops gracefully on SIGINT or SIGTERM.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			slog.SetDefault(log)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, log, migrate)
		},
	}

	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply pending Postgres migrations before serving")

	return cmd
}

func runServe(ctx context.Context, cfg config.Config, log *slog.Logger, migrate bool) error {
	if migrate {
		if cfg.DatabaseURL == "" {
			return errNoDatabase
		}
		provider, db, err := newMigrationProvider(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		err = runMigrate(ctx, io.Discard, provider, "up", log)
		db.Close()
		if err != nil {
			return err
		}
	}

	b, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()
	log.Info("storage ready", "backend", b.name)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	svc := newServices(cfg, b, log, metrics.New(reg))

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      newRouter(cfg, log, svc, reg),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	log.Info("shutting down server")

	// Give in-flight requests up to 15 seconds to complete.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("server stopped")
	return nil
}

// newRouter builds the full HTTP stack.
// Middleware is applied in order: RequestID -> RealIP -> SlogLogger ->
// Recoverer -> CORS -> body limit.
func newRouter(cfg config.Config, log *slog.Logger, svc services, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(middleware.NewMaxBodySizeHandler(cfg.MaxBodyBytes))

	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Handle("/openapi.yaml", openapi.Handler())

	api := handler.NewServer(svc.guests, svc.visits, svc.checkins, svc.summary, log)
	r.Mount("/", api.Routes())
	return r
}
