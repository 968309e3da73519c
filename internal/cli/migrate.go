package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx" driver for database/sql
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	"github.com/hansonjake/valleyclub-guest-checkin/migrations"
)

var errNoDatabase = errors.New("DATABASE_URL is not set; migrations apply to Postgres only")

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "migrate [up|down|status]",
		Short:     "Apply or inspect the Postgres schema migrations",
		Long:      "Apply pending migrations (up, the default), roll back the latest one (down), or list them (status).",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down", "status"},
		RunE: func(cmd *cobra.Command, args []string) error {
			action := "up"
			if len(args) == 1 {
				action = args[0]
			}
			cfg, log, err := loadConfig(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return errNoDatabase
			}
			provider, db, err := newMigrationProvider(cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer db.Close()
			return runMigrate(cmd.Context(), cmd.OutOrStdout(), provider, action, log)
		},
	}
	return cmd
}

// newMigrationProvider opens a database/sql handle (goose needs one, not a
// pgx pool) and a goose provider over the embedded migrations.
func newMigrationProvider(dsn string) (*goose.Provider, *sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("create goose provider: %w", err)
	}
	return provider, db, nil
}

func runMigrate(ctx context.Context, out io.Writer, provider *goose.Provider, action string, log *slog.Logger) error {
	switch action {
	case "up":
		results, err := provider.Up(ctx)
		if err != nil {
			return fmt.Errorf("migrate up: %w", err)
		}
		for _, r := range results {
			log.Info("migration applied", "version", r.Source.Version, "duration_ms", r.Duration.Milliseconds())
		}
		log.Info("migrations up to date", "applied", len(results))
	case "down":
		r, err := provider.Down(ctx)
		if err != nil {
			return fmt.Errorf("migrate down: %w", err)
		}
		log.Info("migration rolled back", "version", r.Source.Version)
	case "status":
		statuses, err := provider.Status(ctx)
		if err != nil {
			return fmt.Errorf("migrate status: %w", err)
		}
		for _, s := range statuses {
			fmt.Fprintf(out, "%-8d %-8s %s\n", s.Source.Version, s.State, s.Source.Path)
		}
	}
	return nil
}
