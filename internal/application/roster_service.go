package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"
)

const defaultJoinConcurrency = 8

// RosterService joins an event ledger with the user master directory.
type RosterService struct {
	registrations RegistrationRepository
	directory     DirectoryRepository
	columns       ColumnMapping
	concurrency   int
	logger        *slog.Logger
}

// NewRosterService wires dependencies for the roster service.
func NewRosterService(registrations RegistrationRepository, directory DirectoryRepository, columns ColumnMapping, concurrency int) *RosterService {
	return NewRosterServiceWithLogger(registrations, directory, columns, concurrency, nil)
}

// NewRosterServiceWithLogger wires dependencies with a specified logger.
func NewRosterServiceWithLogger(registrations RegistrationRepository, directory DirectoryRepository, columns ColumnMapping, concurrency int, logger *slog.Logger) *RosterService {
	if concurrency <= 0 {
		concurrency = defaultJoinConcurrency
	}
	return &RosterService{
		registrations: registrations,
		directory:     directory,
		columns:       columns.withDefaults(),
		concurrency:   concurrency,
		logger:        defaultLogger(logger),
	}
}

func (s *RosterService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "RosterService", operation, attrs...)
}

// BuildRoster returns one row per registration of eventID, in ledger order.
// Registrants without a directory record show Unknown for name, code and
// category. Any other lookup failure fails the whole build.
func (s *RosterService) BuildRoster(ctx context.Context, eventID string) (rows []RosterRow, err error) {
	if s == nil || s.registrations == nil || s.directory == nil {
		return nil, fmt.Errorf("roster repositories not configured")
	}

	eventID = strings.TrimSpace(eventID)
	logger := s.loggerWith(ctx, "BuildRoster", "event_id", eventID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to build roster", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	var registrations []Registration
	registrations, err = s.registrations.ListRegistrations(ctx, eventID)
	if err != nil {
		return
	}

	rows = make([]RosterRow, len(registrations))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, registration := range registrations {
		g.Go(func() error {
			record, found, lookupErr := lookupDirectory(gctx, s.directory, s.columns, registration.Phone)
			if lookupErr != nil {
				return lookupErr
			}
			rows[i] = joinRow(registration, record, found)
			return nil
		})
	}
	if err = g.Wait(); err != nil {
		rows = nil
		return
	}
	return
}

// Search builds the roster of eventID and applies filter to it.
func (s *RosterService) Search(ctx context.Context, eventID string, filter RosterFilter) ([]RosterRow, error) {
	rows, err := s.BuildRoster(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return FilterRoster(rows, filter), nil
}

// Export returns the roster of eventID as numbered export rows. An empty
// roster yields ErrEmptyExport.
func (s *RosterService) Export(ctx context.Context, eventID string) ([]ExportRow, error) {
	rows, err := s.BuildRoster(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrEmptyExport
	}

	out := make([]ExportRow, len(rows))
	for i, row := range rows {
		out[i] = ExportRow{SrNo: i + 1, Name: row.Name, Phone: row.Phone}
	}
	return out, nil
}

func joinRow(registration Registration, record DirectoryRecord, found bool) RosterRow {
	row := RosterRow{
		Phone:        registration.Phone,
		RegisteredAt: registration.RegisteredAt,
		AttendedAt:   registration.AttendedAt,
		Feedback:     append([]FeedbackEntry(nil), registration.Feedback...),
	}
	if !found {
		row.Name, row.Code, row.Category = Unknown, Unknown, Unknown
		return row
	}
	row.Name = record.Name
	row.Code = record.Code
	row.Category = record.Category
	return row
}
