package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"PORT", "DATABASE_URL", "DATA_FILE", "LOG_LEVEL", "CORS_ORIGINS", "CLUB_TIMEZONE",
	"MAX_VISITS_PER_YEAR", "JULY_VISIT_CAP", "AUGUST_VISIT_CAP", "WATCHLIST_THRESHOLD",
	"CATALOG_FILE", "MAX_BODY_BYTES",
}

// isolateEnv clears every configuration variable and points the file store
// at dataFile.
func isolateEnv(t *testing.T, dataFile string) {
	t.Helper()
	for _, k := range configKeys {
		t.Setenv(k, "")
	}
	t.Setenv("DATA_FILE", dataFile)
}

// executeCommand runs a command with the given args and captures stdout and
// stderr separately.
func executeCommand(args ...string) (stdout, stderr string, err error) {
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err = root.Execute()
	return out.String(), errOut.String(), err
}

func TestRootHelp(t *testing.T) {
	out, _, err := executeCommand("--help")

	require.NoError(t, err)
	for _, sub := range []string{"serve", "migrate", "report", "import"} {
		assert.Contains(t, out, sub)
	}
}

func TestServeFlags(t *testing.T) {
	serve, _, err := NewRootCmd().Find([]string{"serve"})
	require.NoError(t, err)

	f := serve.Flags().Lookup("migrate")
	require.NotNil(t, f)
	assert.Equal(t, "false", f.DefValue)
}

func TestMigrate_RequiresDatabase(t *testing.T) {
	isolateEnv(t, t.TempDir()+"/guestbook.json")

	_, _, err := executeCommand("migrate")

	require.ErrorIs(t, err, errNoDatabase)
}

func TestMigrate_RejectsUnknownAction(t *testing.T) {
	_, _, err := executeCommand("migrate", "sideways")

	require.Error(t, err)
}

func TestImport_RequiresFile(t *testing.T) {
	_, _, err := executeCommand("import")

	require.Error(t, err)
}

func TestConfigErrorsSurface(t *testing.T) {
	isolateEnv(t, t.TempDir()+"/guestbook.json")
	t.Setenv("MAX_VISITS_PER_YEAR", "lots")

	_, _, err := executeCommand("report")

	require.ErrorContains(t, err, "MAX_VISITS_PER_YEAR")
}
