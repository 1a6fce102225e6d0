package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// DirectoryRepository captures the persistence operations needed for the user master directory.
type DirectoryRepository interface {
	GetEntry(ctx context.Context, phone string) (DirectoryEntry, error)
	PutEntry(ctx context.Context, entry DirectoryEntry) error
	DeleteEntry(ctx context.Context, phone string) error
	ListEntries(ctx context.Context) ([]DirectoryEntry, error)
}

// DirectoryService reads and writes user master records keyed by phone.
type DirectoryService struct {
	directory DirectoryRepository
	columns   ColumnMapping
	logger    *slog.Logger
}

// NewDirectoryService wires dependencies for the directory service.
func NewDirectoryService(directory DirectoryRepository, columns ColumnMapping) *DirectoryService {
	return NewDirectoryServiceWithLogger(directory, columns, nil)
}

// NewDirectoryServiceWithLogger wires dependencies with a specified logger.
func NewDirectoryServiceWithLogger(directory DirectoryRepository, columns ColumnMapping, logger *slog.Logger) *DirectoryService {
	return &DirectoryService{directory: directory, columns: columns.withDefaults(), logger: defaultLogger(logger)}
}

func (s *DirectoryService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "DirectoryService", operation, attrs...)
}

// Get returns the directory record for phone or ErrNotFound.
func (s *DirectoryService) Get(ctx context.Context, phone string) (DirectoryRecord, error) {
	if s == nil || s.directory == nil {
		return DirectoryRecord{}, fmt.Errorf("directory repository not configured")
	}
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return DirectoryRecord{}, ErrNotFound
	}
	entry, err := s.directory.GetEntry(ctx, phone)
	if err != nil {
		return DirectoryRecord{}, err
	}
	return s.columns.Record(entry), nil
}

// Upsert replaces the directory record of phone with fields. Nothing of the
// previous record survives.
func (s *DirectoryService) Upsert(ctx context.Context, phone string, fields map[string]any) (record DirectoryRecord, err error) {
	if s == nil || s.directory == nil {
		return DirectoryRecord{}, fmt.Errorf("directory repository not configured")
	}

	phone = strings.TrimSpace(phone)
	logger := s.loggerWith(ctx, "Upsert", "phone", phone)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to upsert directory record", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	if phone == "" {
		vErr := &ValidationError{Message: "Phone number is required."}
		vErr.add("phone", "phone is required")
		err = vErr
		return
	}
	if fields == nil {
		fields = map[string]any{}
	}

	entry := DirectoryEntry{Phone: phone, Fields: fields}
	if err = s.directory.PutEntry(ctx, entry); err != nil {
		return
	}
	record = s.columns.Record(entry)
	return
}

// Delete removes the directory record of phone. Registrations that refer to
// the phone are left in place and render as Unknown.
func (s *DirectoryService) Delete(ctx context.Context, phone string) (err error) {
	if s == nil || s.directory == nil {
		return fmt.Errorf("directory repository not configured")
	}

	phone = strings.TrimSpace(phone)
	logger := s.loggerWith(ctx, "Delete", "phone", phone)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete directory record", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "directory record deleted")
	}()

	if phone == "" {
		err = ErrNotFound
		return
	}
	err = s.directory.DeleteEntry(ctx, phone)
	return
}

// List returns directory records matching filter, ordered by name then phone.
func (s *DirectoryService) List(ctx context.Context, filter DirectoryFilter) ([]DirectoryRecord, error) {
	if s == nil || s.directory == nil {
		return nil, fmt.Errorf("directory repository not configured")
	}

	entries, err := s.directory.ListEntries(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]DirectoryRecord, 0, len(entries))
	for _, entry := range entries {
		record := s.columns.Record(entry)
		if !containsFold(record.Name, filter.Name) ||
			!containsFold(record.Phone, filter.Phone) ||
			!containsFold(record.Category, filter.Category) {
			continue
		}
		records = append(records, record)
	}

	sort.Slice(records, func(i, j int) bool {
		if strings.EqualFold(records[i].Name, records[j].Name) {
			return records[i].Phone < records[j].Phone
		}
		return strings.ToLower(records[i].Name) < strings.ToLower(records[j].Name)
	})
	return records, nil
}

// lookupDirectory resolves phone to a directory record, reporting absence as ok=false.
func lookupDirectory(ctx context.Context, directory DirectoryRepository, columns ColumnMapping, phone string) (DirectoryRecord, bool, error) {
	entry, err := directory.GetEntry(ctx, phone)
	if errors.Is(err, ErrNotFound) {
		return DirectoryRecord{}, false, nil
	}
	if err != nil {
		return DirectoryRecord{}, false, err
	}
	return columns.Record(entry), true, nil
}
