package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// PhoneVerifier asks the external verification service whether a phone
// number belongs to a known member.
type PhoneVerifier interface {
	VerifyPhone(ctx context.Context, phone string) (bool, error)
}

// SessionRepository stores registrant sessions.
type SessionRepository interface {
	CreateSession(ctx context.Context, session RegistrantSession) error
	GetSession(ctx context.Context, token string) (RegistrantSession, error)
	DeleteSession(ctx context.Context, token string) error
}

// registrationLedger is the slice of LedgerService the check-in flow needs.
type registrationLedger interface {
	Register(ctx context.Context, eventID, phone string) (Registration, error)
	IsRegistered(ctx context.Context, eventID, phone string) (bool, error)
	Count(ctx context.Context, eventID string) (int, error)
}

// CheckInService runs the registrant flow: verify the phone, register it
// for the event and hand back an explicit session token. Every later view
// re-checks the ledger, so a removed registration invalidates the session.
type CheckInService struct {
	verifier       PhoneVerifier
	events         EventRepository
	ledger         registrationLedger
	sessions       SessionRepository
	directory      DirectoryRepository
	columns        ColumnMapping
	tokenGenerator func() string
	now            func() time.Time
	sessionTTL     time.Duration
	logger         *slog.Logger
}

// CheckInDeps groups the collaborators of the check-in service.
type CheckInDeps struct {
	Verifier       PhoneVerifier
	Events         EventRepository
	Ledger         *LedgerService
	Sessions       SessionRepository
	Directory      DirectoryRepository
	Columns        ColumnMapping
	TokenGenerator func() string
	Now            func() time.Time
	SessionTTL     time.Duration
	Logger         *slog.Logger
}

// NewCheckInService constructs a CheckInService from deps.
func NewCheckInService(deps CheckInDeps) *CheckInService {
	if deps.TokenGenerator == nil {
		deps.TokenGenerator = func() string { return "" }
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.SessionTTL <= 0 {
		deps.SessionTTL = 30 * 24 * time.Hour
	}
	svc := &CheckInService{
		verifier:       deps.Verifier,
		events:         deps.Events,
		sessions:       deps.Sessions,
		directory:      deps.Directory,
		columns:        deps.Columns.withDefaults(),
		tokenGenerator: deps.TokenGenerator,
		now:            deps.Now,
		sessionTTL:     deps.SessionTTL,
		logger:         defaultLogger(deps.Logger),
	}
	if deps.Ledger != nil {
		svc.ledger = deps.Ledger
	}
	return svc
}

func (s *CheckInService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "CheckInService", operation, attrs...)
}

// Login verifies phone with the external service, registers it for eventID
// and issues a session token.
func (s *CheckInService) Login(ctx context.Context, eventID, phone string) (session RegistrantSession, view EventView, err error) {
	if s == nil || s.verifier == nil || s.events == nil || s.ledger == nil || s.sessions == nil {
		err = fmt.Errorf("CheckInService is not configured")
		return
	}

	eventID = strings.TrimSpace(eventID)
	phone = strings.TrimSpace(phone)
	logger := s.loggerWith(ctx, "Login", "event_id", eventID, "phone", phone)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "registrant login failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "registrant logged in")
	}()

	if phone == "" {
		vErr := &ValidationError{Message: "Please enter your phone number."}
		vErr.add("phone_number", "phone number is required")
		err = vErr
		return
	}

	var event Event
	if event, err = s.events.GetEvent(ctx, eventID); err != nil {
		return
	}

	var ok bool
	ok, err = s.verifier.VerifyPhone(ctx, phone)
	if err != nil {
		err = classifyVerificationError(err)
		return
	}
	if !ok {
		err = ErrPhoneNotVerified
		return
	}

	if _, err = s.ledger.Register(ctx, eventID, phone); err != nil {
		return
	}

	now := s.now()
	session = RegistrantSession{
		Token:     s.tokenGenerator(),
		EventID:   eventID,
		Phone:     phone,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}
	if err = s.sessions.CreateSession(ctx, session); err != nil {
		session = RegistrantSession{}
		return
	}

	view, err = s.buildView(ctx, event, phone)
	return
}

// View returns the event view for the session identified by token.
func (s *CheckInService) View(ctx context.Context, token string) (view EventView, err error) {
	if s == nil || s.events == nil || s.ledger == nil || s.sessions == nil {
		err = fmt.Errorf("CheckInService is not configured")
		return
	}

	logger := s.loggerWith(ctx, "View")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "registrant view failed", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	var session RegistrantSession
	if session, err = s.validSession(ctx, token); err != nil {
		return
	}

	var registered bool
	registered, err = s.ledger.IsRegistered(ctx, session.EventID, session.Phone)
	if err != nil {
		return
	}
	if !registered {
		s.discardSession(ctx, token)
		err = ErrSessionInvalid
		return
	}

	var event Event
	if event, err = s.events.GetEvent(ctx, session.EventID); err != nil {
		return
	}
	view, err = s.buildView(ctx, event, session.Phone)
	return
}

// Logout discards the session. Unknown tokens are ignored.
func (s *CheckInService) Logout(ctx context.Context, token string) error {
	if s == nil || s.sessions == nil {
		return fmt.Errorf("CheckInService is not configured")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	if err := s.sessions.DeleteSession(ctx, token); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}

func (s *CheckInService) validSession(ctx context.Context, token string) (RegistrantSession, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return RegistrantSession{}, ErrSessionInvalid
	}
	session, err := s.sessions.GetSession(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return RegistrantSession{}, ErrSessionInvalid
		}
		return RegistrantSession{}, err
	}
	if !session.ExpiresAt.IsZero() && !s.now().Before(session.ExpiresAt) {
		s.discardSession(ctx, token)
		return RegistrantSession{}, ErrSessionInvalid
	}
	return session, nil
}

func (s *CheckInService) discardSession(ctx context.Context, token string) {
	if err := s.sessions.DeleteSession(ctx, token); err != nil && !errors.Is(err, ErrNotFound) {
		s.loggerWith(ctx, "discardSession").WarnContext(ctx, "failed to discard session", "error", err, "error_kind", ErrorKind(err))
	}
}

func (s *CheckInService) buildView(ctx context.Context, event Event, phone string) (EventView, error) {
	count, err := s.ledger.Count(ctx, event.ID)
	if err != nil {
		return EventView{}, err
	}
	view := EventView{Event: event, Phone: phone, DisplayName: Unknown, RegisteredCount: count}
	if s.directory != nil {
		record, found, err := lookupDirectory(ctx, s.directory, s.columns, phone)
		if err != nil {
			return EventView{}, err
		}
		if found && record.Name != "" {
			view.DisplayName = record.Name
		}
	}
	return view, nil
}

func classifyVerificationError(err error) error {
	if errors.Is(err, ErrTimeout) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return &ExternalServiceError{Service: "phone verification", Err: err}
}
