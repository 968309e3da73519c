package repo_test

import (
	"context"
	"log"
	"os"
	"testing"

	"github.com/hansonjake/valleyclub-guest-checkin/testutil"
)

// TestMain migrates the integration database once when one is configured.
// Without it only the in-memory store tests run; the Postgres tests skip.
func TestMain(m *testing.M) {
	if dsn := os.Getenv(testutil.DSNEnv); dsn != "" {
		if err := testutil.MigrateUp(context.Background(), dsn); err != nil {
			log.Fatalf("repo tests: %v", err)
		}
	}
	os.Exit(m.Run())
}
