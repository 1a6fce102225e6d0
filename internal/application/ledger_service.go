package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// RegistrationRepository captures the persistence operations for event ledgers.
type RegistrationRepository interface {
	UpsertRegistration(ctx context.Context, eventID, phone string, registeredAt time.Time) error
	GetRegistration(ctx context.Context, eventID, phone string) (Registration, error)
	ListRegistrations(ctx context.Context, eventID string) ([]Registration, error)
	DeleteRegistration(ctx context.Context, eventID, phone string) error
	AppendFeedback(ctx context.Context, eventID, phone string, entry FeedbackEntry) error
	MarkAttended(ctx context.Context, eventID, phone string, at time.Time) error
}

// LedgerService records which phones registered for which event. The
// ledger is the only source of truth for registration status and counts.
type LedgerService struct {
	registrations RegistrationRepository
	now           func() time.Time
	logger        *slog.Logger
}

// NewLedgerService wires dependencies for the ledger service.
func NewLedgerService(registrations RegistrationRepository, now func() time.Time) *LedgerService {
	return NewLedgerServiceWithLogger(registrations, now, nil)
}

// NewLedgerServiceWithLogger wires dependencies with a specified logger.
func NewLedgerServiceWithLogger(registrations RegistrationRepository, now func() time.Time, logger *slog.Logger) *LedgerService {
	if now == nil {
		now = time.Now
	}
	return &LedgerService{registrations: registrations, now: now, logger: defaultLogger(logger)}
}

func (s *LedgerService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "LedgerService", operation, attrs...)
}

// Register records phone against eventID. Registering again overwrites the
// registration instant and never creates a second entry; feedback already
// recorded is kept.
func (s *LedgerService) Register(ctx context.Context, eventID, phone string) (registration Registration, err error) {
	if s == nil || s.registrations == nil {
		return Registration{}, fmt.Errorf("registration repository not configured")
	}

	eventID = strings.TrimSpace(eventID)
	phone = strings.TrimSpace(phone)
	logger := s.loggerWith(ctx, "Register", "event_id", eventID, "phone", phone)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to register", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "registration recorded")
	}()

	vErr := &ValidationError{Message: "Please fill in all fields."}
	if eventID == "" {
		vErr.add("event_id", "event id is required")
	}
	if phone == "" {
		vErr.add("phone_number", "phone number is required")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	registeredAt := s.now()
	if err = s.registrations.UpsertRegistration(ctx, eventID, phone, registeredAt); err != nil {
		return
	}
	registration = Registration{EventID: eventID, Phone: phone, RegisteredAt: registeredAt}
	return
}

// List returns the ledger of eventID ordered by registration instant. An
// unknown or deleted event yields an empty ledger.
func (s *LedgerService) List(ctx context.Context, eventID string) ([]Registration, error) {
	if s == nil || s.registrations == nil {
		return nil, fmt.Errorf("registration repository not configured")
	}
	return s.registrations.ListRegistrations(ctx, strings.TrimSpace(eventID))
}

// IsRegistered reports whether phone has a ledger entry for eventID.
func (s *LedgerService) IsRegistered(ctx context.Context, eventID, phone string) (bool, error) {
	if s == nil || s.registrations == nil {
		return false, fmt.Errorf("registration repository not configured")
	}
	eventID = strings.TrimSpace(eventID)
	phone = strings.TrimSpace(phone)
	if eventID == "" || phone == "" {
		return false, nil
	}
	if _, err := s.registrations.GetRegistration(ctx, eventID, phone); err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Count returns the number of registrations for eventID. It is always
// computed from the ledger, never cached.
func (s *LedgerService) Count(ctx context.Context, eventID string) (int, error) {
	registrations, err := s.List(ctx, eventID)
	if err != nil {
		return 0, err
	}
	return len(registrations), nil
}

// Remove deletes one registration together with its feedback log.
func (s *LedgerService) Remove(ctx context.Context, eventID, phone string) (err error) {
	if s == nil || s.registrations == nil {
		return fmt.Errorf("registration repository not configured")
	}

	logger := s.loggerWith(ctx, "Remove", "event_id", eventID, "phone", phone)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to remove registration", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "registration removed")
	}()

	err = s.registrations.DeleteRegistration(ctx, strings.TrimSpace(eventID), strings.TrimSpace(phone))
	return
}

// MarkAttendance records that the registrant of (eventID, phone) attended.
// Only registered phones can be marked. Marking again is a no-op and keeps
// the first attendance instant.
func (s *LedgerService) MarkAttendance(ctx context.Context, eventID, phone string) (registration Registration, err error) {
	if s == nil || s.registrations == nil {
		return Registration{}, fmt.Errorf("registration repository not configured")
	}

	eventID = strings.TrimSpace(eventID)
	phone = strings.TrimSpace(phone)
	logger := s.loggerWith(ctx, "MarkAttendance", "event_id", eventID, "phone", phone)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to mark attendance", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "attendance marked", "attended_at", registration.AttendedAt)
	}()

	vErr := &ValidationError{Message: "Please fill in all fields."}
	if eventID == "" {
		vErr.add("event_id", "event id is required")
	}
	if phone == "" {
		vErr.add("phone_number", "phone number is required")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	if registration, err = s.registrations.GetRegistration(ctx, eventID, phone); err != nil {
		return
	}
	if registration.Attended() {
		return
	}

	at := s.now()
	if err = s.registrations.MarkAttended(ctx, eventID, phone, at); err != nil {
		return
	}
	registration.AttendedAt = at
	return
}
