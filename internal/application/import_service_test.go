package application

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportService_Import_SkipsRowsWithoutPhone(t *testing.T) {
	t.Parallel()

	directory := newMemDirectory()
	svc := NewImportService(directory, DefaultColumnMapping(), 2)

	report, err := svc.Import(context.Background(), []Row{
		{"Mobile": "111", "Name": "A"},
		{"Mobile": "", "Name": "B"},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 1, report.Imported)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, 2, report.Failed[0].Row)
	assert.Equal(t, "missing phone number", report.Failed[0].Reason)

	require.Len(t, directory.entries, 1)
	assert.Equal(t, "A", directory.entries["111"]["Name"])
}

func TestImportService_Import_StoresEveryColumnAndReplaces(t *testing.T) {
	t.Parallel()

	directory := newMemDirectory()
	directory.entries["9876543210"] = map[string]any{"Name": "Old", "Stale": "yes"}
	svc := NewImportService(directory, DefaultColumnMapping(), 0)

	report, err := svc.Import(context.Background(), []Row{
		{"Mobile no": float64(9876543210), "Name": "New", "City": "Pune"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Imported)

	fields := directory.entries["9876543210"]
	assert.Equal(t, "New", fields["Name"])
	assert.Equal(t, "Pune", fields["City"])
	assert.NotContains(t, fields, "Stale")
}

func TestImportService_Import_DuplicatePhoneLastRowWins(t *testing.T) {
	t.Parallel()

	directory := newMemDirectory()
	svc := NewImportService(directory, DefaultColumnMapping(), 4)

	rows := make([]Row, 0, 20)
	for i := 0; i < 20; i++ {
		rows = append(rows, Row{"Phone": "222", "Name": fmt.Sprintf("v%d", i)})
	}
	report, err := svc.Import(context.Background(), rows)
	require.NoError(t, err)

	assert.Equal(t, 20, report.Imported)
	assert.Empty(t, report.Failed)
	assert.Equal(t, "v19", directory.entries["222"]["Name"])
}

func TestImportService_Import_ContinuesAfterStoreFailure(t *testing.T) {
	t.Parallel()

	directory := newMemDirectory()
	failure := &StoreError{Op: "put", Err: errors.New("disk full")}
	directory.putErr["222"] = failure
	svc := NewImportService(directory, DefaultColumnMapping(), 1)

	report, err := svc.Import(context.Background(), []Row{
		{"Mobile": "111"},
		{"Mobile": "222"},
		{"Mobile": "333"},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, report.Imported)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, "222", report.Failed[0].Phone)
	assert.ErrorIs(t, report.Failed[0], ErrStoreUnavailable)
	assert.Contains(t, directory.entries, "111")
	assert.Contains(t, directory.entries, "333")
}

func TestImportService_Import_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := NewImportService(newMemDirectory(), DefaultColumnMapping(), 1)
	report, err := svc.Import(ctx, []Row{{"Mobile": "111"}})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, report.Imported)
}

func TestImportService_Import_MissingPhoneLogsRowImportKind(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	svc := NewImportServiceWithLogger(newMemDirectory(), DefaultColumnMapping(), 1, logger)

	report, err := svc.Import(context.Background(), []Row{{"Name": "no phone"}})
	require.NoError(t, err)
	require.Len(t, report.Failed, 1)

	assert.Equal(t, "row_import", ErrorKind(report.Failed[0]))
	assert.Contains(t, buf.String(), "error_kind=row_import")
	assert.NotContains(t, buf.String(), "error_kind=unexpected")
}

func TestImportService_Import_InvalidPhoneIsNotStoreFailure(t *testing.T) {
	t.Parallel()

	directory := newMemDirectory()
	directory.putErr["12/34"] = &ValidationError{Message: "The identifier cannot be stored.", FieldErrors: map[string]string{"key": "must not contain \"/\""}}
	svc := NewImportService(directory, DefaultColumnMapping(), 1)

	report, err := svc.Import(context.Background(), []Row{{"Mobile": "12/34"}, {"Mobile": "111"}})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Imported)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, "invalid phone number", report.Failed[0].Reason)
	assert.Equal(t, "validation", ErrorKind(report.Failed[0]))
	assert.NotErrorIs(t, report.Failed[0], ErrStoreUnavailable)
}

func TestImportService_ImportLines_ReportsSheetLines(t *testing.T) {
	t.Parallel()

	svc := NewImportService(newMemDirectory(), DefaultColumnMapping(), 2)

	rows := []Row{{"Mobile": "111"}, {"Name": "B"}, {"Mobile": "333"}}
	report, err := svc.ImportLines(context.Background(), rows, []int{2, 5, 6})
	require.NoError(t, err)

	assert.Equal(t, 2, report.Imported)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, 5, report.Failed[0].Row)

	report, err = svc.ImportLines(context.Background(), rows, []int{2})
	require.NoError(t, err)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, 2, report.Failed[0].Row)
}
