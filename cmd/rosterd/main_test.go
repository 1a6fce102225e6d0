package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/event-roster/internal/application"
	"github.com/example/event-roster/internal/config"
	"github.com/example/event-roster/internal/logging"
	"github.com/example/event-roster/internal/tabular"
	"github.com/example/event-roster/internal/testfixtures"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	root := newRootCommand(&stdout, &stderr)
	root.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "missing.env")}, args...))
	err := root.ExecuteContext(context.Background())
	return stdout.String(), err
}

func useSQLite(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "roster.db")
	t.Setenv("ROSTER_STORE_DRIVER", config.DriverSQLite)
	t.Setenv("ROSTER_SQLITE_DSN", path)
	t.Setenv("ROSTER_LOG_LEVEL", "error")
	return path
}

func TestHashKeyCommand(t *testing.T) {
	out, err := runCommand(t, "hash-key", "correct horse")
	require.NoError(t, err)

	encoded := strings.TrimSpace(out)
	require.True(t, strings.HasPrefix(encoded, "$argon2id$"), encoded)

	verifier, err := application.NewAdminKeyVerifier(encoded)
	require.NoError(t, err)
	assert.NoError(t, verifier.Verify("correct horse"))
	assert.ErrorIs(t, verifier.Verify("battery staple"), application.ErrUnauthorized)
}

func TestImportAndExportCommands(t *testing.T) {
	useSQLite(t)

	first := testfixtures.NewMemberFixture(testfixtures.WithMemberName("Asha Rao"))
	second := testfixtures.NewMemberFixture(testfixtures.WithMemberName("Ravi Kumar"))

	workbookPath := filepath.Join(t.TempDir(), "members.xlsx")
	f, err := os.Create(workbookPath)
	require.NoError(t, err)
	columns := []string{"Mobile no", " Name", "UJB Code", "Category"}
	require.NoError(t, tabular.WriteWorkbook(f, "Members", columns, []map[string]any{
		first.Row(),
		second.Row(),
		{},
		{" Name": "Nobody"},
	}))
	require.NoError(t, f.Close())

	out, err := runCommand(t, "import", workbookPath)
	require.NoError(t, err)
	assert.Contains(t, out, "imported 2 of 3 rows")
	assert.Contains(t, out, "line 5: missing phone number")

	eventID := registerForNewEvent(t, first.Phone, "9333333333")

	exportPath := filepath.Join(t.TempDir(), "export.xlsx")
	out, err = runCommand(t, "export", eventID, exportPath)
	require.NoError(t, err)
	assert.Contains(t, out, "exported 2 rows")

	exported, err := os.Open(exportPath)
	require.NoError(t, err)
	defer exported.Close()
	rows, err := tabular.ReadWorkbook(exported)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	names := []string{application.CellString(rows[0]["Name"]), application.CellString(rows[1]["Name"])}
	assert.ElementsMatch(t, []string{"Asha Rao", application.Unknown}, names)
}

func TestExportCommandWithoutRegistrations(t *testing.T) {
	useSQLite(t)

	eventID := registerForNewEvent(t)
	_, err := runCommand(t, "export", eventID, filepath.Join(t.TempDir(), "export.xlsx"))
	assert.ErrorIs(t, err, application.ErrEmptyExport)
}

func TestColumnMapping(t *testing.T) {
	t.Parallel()

	defaults := columnMapping(config.Config{})
	assert.Equal(t, application.DefaultColumnMapping(), defaults)

	custom := columnMapping(config.Config{PhoneColumns: []string{"Contact"}, NameColumn: "Full Name"})
	assert.Equal(t, []string{"Contact"}, custom.PhoneColumns)
	assert.Equal(t, "Full Name", custom.NameColumn)
	assert.Equal(t, defaults.CodeColumn, custom.CodeColumn)
}

func TestRandomHex(t *testing.T) {
	t.Parallel()

	token := randomHex(32)
	assert.Len(t, token, 64)
	assert.NotEqual(t, token, randomHex(32))
	assert.Len(t, randomHex(0), 32)
}

// registerForNewEvent creates an event in the configured store and registers
// phones for it, closing the store before returning.
func registerForNewEvent(t *testing.T, phones ...string) string {
	t.Helper()

	cfg, err := config.LoadTooling()
	require.NoError(t, err)
	logger := logging.New(&bytes.Buffer{}, cfg.LogLevel)
	ctx := context.Background()

	store, err := openStore(ctx, cfg, logger)
	require.NoError(t, err)
	defer store.Close()

	svc := newServices(store, cfg, nil, logger)
	event, err := svc.events.Create(ctx, testfixtures.NewEventFixture().Input())
	require.NoError(t, err)
	for _, phone := range phones {
		_, err := svc.ledger.Register(ctx, event.ID, phone)
		require.NoError(t, err)
	}
	return event.ID
}
