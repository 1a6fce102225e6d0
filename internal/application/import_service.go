package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

const defaultImportConcurrency = 4

// ImportService loads spreadsheet rows into the user master directory.
type ImportService struct {
	directory   DirectoryRepository
	columns     ColumnMapping
	concurrency int
	logger      *slog.Logger
}

// NewImportService wires dependencies for the import service.
func NewImportService(directory DirectoryRepository, columns ColumnMapping, concurrency int) *ImportService {
	return NewImportServiceWithLogger(directory, columns, concurrency, nil)
}

// NewImportServiceWithLogger wires dependencies with a specified logger.
func NewImportServiceWithLogger(directory DirectoryRepository, columns ColumnMapping, concurrency int, logger *slog.Logger) *ImportService {
	if concurrency <= 0 {
		concurrency = defaultImportConcurrency
	}
	return &ImportService{
		directory:   directory,
		columns:     columns.withDefaults(),
		concurrency: concurrency,
		logger:      defaultLogger(logger),
	}
}

func (s *ImportService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ImportService", operation, attrs...)
}

type importOutcome struct {
	phone      string
	superseded bool
	err        error
}

// Import upserts one directory record per row, keyed by the row's phone.
// Every column of the row is stored. A row without a phone, or whose write
// fails, is reported in ImportReport.Failed while the rest of the batch
// continues. When several rows share a phone the last one wins, matching a
// sequential import.
func (s *ImportService) Import(ctx context.Context, rows []Row) (ImportReport, error) {
	return s.ImportLines(ctx, rows, nil)
}

// ImportLines is Import for rows read from a sheet. lines[i] is the sheet
// line of rows[i] and is reported as RowImportError.Row. When lines does not
// cover every row, rows are numbered by their position in the batch.
func (s *ImportService) ImportLines(ctx context.Context, rows []Row, lines []int) (report ImportReport, err error) {
	if s == nil || s.directory == nil {
		return ImportReport{}, fmt.Errorf("directory repository not configured")
	}

	logger := s.loggerWith(ctx, "Import", "rows", len(rows))
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "roster import aborted", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "roster import finished",
			"imported", report.Imported,
			"failed", len(report.Failed),
		)
	}()

	outcomes := make([]importOutcome, len(rows))
	lastRow := make(map[string]int, len(rows))
	for i, row := range rows {
		phone, ok := s.columns.Phone(row)
		if !ok {
			outcomes[i].err = errMissingPhone
			continue
		}
		outcomes[i].phone = phone
		if prev, seen := lastRow[phone]; seen {
			outcomes[prev].superseded = true
		}
		lastRow[phone] = i
	}

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i := range rows {
		if outcomes[i].err != nil || outcomes[i].superseded {
			continue
		}
		g.Go(func() error {
			if ctxErr := ctx.Err(); ctxErr != nil {
				outcomes[i].err = ctxErr
				return nil
			}
			fields := make(map[string]any, len(rows[i]))
			for k, v := range rows[i] {
				fields[k] = v
			}
			outcomes[i].err = s.directory.PutEntry(ctx, DirectoryEntry{Phone: outcomes[i].phone, Fields: fields})
			return nil
		})
	}
	_ = g.Wait()

	report.Total = len(rows)
	for i, outcome := range outcomes {
		if outcome.superseded {
			outcome.err = outcomes[lastRow[outcome.phone]].err
		}
		if outcome.err == nil {
			report.Imported++
			continue
		}
		rowErr := RowImportError{Row: i + 1, Phone: outcome.phone, Err: outcome.err}
		if len(lines) == len(rows) {
			rowErr.Row = lines[i]
		}
		var vErr *ValidationError
		switch {
		case errors.Is(outcome.err, errMissingPhone):
			rowErr.Reason = "missing phone number"
			rowErr.Err = nil
		case errors.As(outcome.err, &vErr):
			rowErr.Reason = "invalid phone number"
		default:
			rowErr.Reason = "failed to store directory record"
		}
		logger.WarnContext(ctx, "row skipped", "row", rowErr.Row, "reason", rowErr.Reason, "error_kind", ErrorKind(rowErr))
		report.Failed = append(report.Failed, rowErr)
	}

	if ctxErr := ctx.Err(); ctxErr != nil && report.Imported == 0 && report.Total > 0 {
		err = ctxErr
	}
	return
}

var errMissingPhone = errors.New("missing phone number")
