// Package adapters bridges the persistence repositories to the interfaces the
// application services depend on, translating types and error kinds.
package adapters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/event-roster/internal/application"
	"github.com/example/event-roster/internal/persistence"
)

// Set groups one adapter per application repository interface.
type Set struct {
	Directory     *DirectoryAdapter
	Events        *EventAdapter
	Registrations *RegistrationAdapter
	Sessions      *SessionAdapter
}

// New adapts repos for the application layer.
func New(repos *persistence.Repositories) Set {
	return Set{
		Directory:     &DirectoryAdapter{repo: repos},
		Events:        &EventAdapter{repo: repos},
		Registrations: &RegistrationAdapter{repo: repos},
		Sessions:      &SessionAdapter{repo: repos},
	}
}

// translate maps persistence failures onto application error kinds.
func translate(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, persistence.ErrNotFound):
		return fmt.Errorf("%s: %w", op, application.ErrNotFound)
	case errors.Is(err, persistence.ErrTimeout):
		return fmt.Errorf("%s: %w: %w", op, application.ErrTimeout, err)
	case errors.Is(err, persistence.ErrInvalidKey):
		return &application.ValidationError{
			Message:     "The phone number or id cannot be used as a record key.",
			FieldErrors: map[string]string{"key": "must be non-empty and must not contain \"/\""},
		}
	case errors.Is(err, context.Canceled):
		return err
	default:
		return &application.StoreError{Op: op, Err: err}
	}
}

// DirectoryAdapter implements application.DirectoryRepository.
type DirectoryAdapter struct {
	repo persistence.DirectoryRepository
}

func (a *DirectoryAdapter) GetEntry(ctx context.Context, phone string) (application.DirectoryEntry, error) {
	stored, err := a.repo.GetEntry(ctx, phone)
	if err != nil {
		return application.DirectoryEntry{}, translate("get directory entry", err)
	}
	return application.DirectoryEntry{Phone: stored.Phone, Fields: stored.Fields}, nil
}

func (a *DirectoryAdapter) PutEntry(ctx context.Context, entry application.DirectoryEntry) error {
	return translate("put directory entry", a.repo.PutEntry(ctx, persistence.DirectoryEntry{Phone: entry.Phone, Fields: entry.Fields}))
}

func (a *DirectoryAdapter) DeleteEntry(ctx context.Context, phone string) error {
	return translate("delete directory entry", a.repo.DeleteEntry(ctx, phone))
}

func (a *DirectoryAdapter) ListEntries(ctx context.Context) ([]application.DirectoryEntry, error) {
	stored, err := a.repo.ListEntries(ctx)
	if err != nil {
		return nil, translate("list directory", err)
	}
	entries := make([]application.DirectoryEntry, 0, len(stored))
	for _, model := range stored {
		entries = append(entries, application.DirectoryEntry{Phone: model.Phone, Fields: model.Fields})
	}
	return entries, nil
}

// EventAdapter implements application.EventRepository.
type EventAdapter struct {
	repo persistence.EventRepository
}

func (a *EventAdapter) CreateEvent(ctx context.Context, event application.Event) error {
	return translate("create event", a.repo.CreateEvent(ctx, toPersistenceEvent(event)))
}

func (a *EventAdapter) UpdateEvent(ctx context.Context, event application.Event) error {
	return translate("update event", a.repo.UpdateEvent(ctx, toPersistenceEvent(event)))
}

func (a *EventAdapter) GetEvent(ctx context.Context, id string) (application.Event, error) {
	stored, err := a.repo.GetEvent(ctx, id)
	if err != nil {
		return application.Event{}, translate("get event", err)
	}
	return toApplicationEvent(stored), nil
}

func (a *EventAdapter) ListEvents(ctx context.Context) ([]application.Event, error) {
	stored, err := a.repo.ListEvents(ctx)
	if err != nil {
		return nil, translate("list events", err)
	}
	events := make([]application.Event, 0, len(stored))
	for _, model := range stored {
		events = append(events, toApplicationEvent(model))
	}
	return events, nil
}

func (a *EventAdapter) DeleteEvent(ctx context.Context, id string) error {
	return translate("delete event", a.repo.DeleteEvent(ctx, id))
}

// RegistrationAdapter implements application.RegistrationRepository.
type RegistrationAdapter struct {
	repo persistence.RegistrationRepository
}

func (a *RegistrationAdapter) UpsertRegistration(ctx context.Context, eventID, phone string, registeredAt time.Time) error {
	return translate("upsert registration", a.repo.UpsertRegistration(ctx, eventID, phone, registeredAt))
}

func (a *RegistrationAdapter) GetRegistration(ctx context.Context, eventID, phone string) (application.Registration, error) {
	stored, err := a.repo.GetRegistration(ctx, eventID, phone)
	if err != nil {
		return application.Registration{}, translate("get registration", err)
	}
	return toApplicationRegistration(stored), nil
}

func (a *RegistrationAdapter) ListRegistrations(ctx context.Context, eventID string) ([]application.Registration, error) {
	stored, err := a.repo.ListRegistrations(ctx, eventID)
	if err != nil {
		return nil, translate("list registrations", err)
	}
	registrations := make([]application.Registration, 0, len(stored))
	for _, model := range stored {
		registrations = append(registrations, toApplicationRegistration(model))
	}
	return registrations, nil
}

func (a *RegistrationAdapter) DeleteRegistration(ctx context.Context, eventID, phone string) error {
	return translate("delete registration", a.repo.DeleteRegistration(ctx, eventID, phone))
}

func (a *RegistrationAdapter) AppendFeedback(ctx context.Context, eventID, phone string, entry application.FeedbackEntry) error {
	return translate("append feedback", a.repo.AppendFeedback(ctx, eventID, phone, persistence.FeedbackEntry{
		Category:  entry.Category,
		Remark:    entry.Remark,
		Timestamp: entry.Timestamp,
	}))
}

func (a *RegistrationAdapter) MarkAttended(ctx context.Context, eventID, phone string, at time.Time) error {
	return translate("mark attendance", a.repo.MarkAttended(ctx, eventID, phone, at))
}

// SessionAdapter implements application.SessionRepository.
type SessionAdapter struct {
	repo persistence.SessionRepository
}

func (a *SessionAdapter) CreateSession(ctx context.Context, session application.RegistrantSession) error {
	return translate("create session", a.repo.CreateSession(ctx, persistence.Session{
		Token:     session.Token,
		EventID:   session.EventID,
		Phone:     session.Phone,
		CreatedAt: session.CreatedAt,
		ExpiresAt: session.ExpiresAt,
	}))
}

func (a *SessionAdapter) GetSession(ctx context.Context, token string) (application.RegistrantSession, error) {
	stored, err := a.repo.GetSession(ctx, token)
	if err != nil {
		return application.RegistrantSession{}, translate("get session", err)
	}
	return application.RegistrantSession{
		Token:     stored.Token,
		EventID:   stored.EventID,
		Phone:     stored.Phone,
		CreatedAt: stored.CreatedAt,
		ExpiresAt: stored.ExpiresAt,
	}, nil
}

func (a *SessionAdapter) DeleteSession(ctx context.Context, token string) error {
	return translate("delete session", a.repo.DeleteSession(ctx, token))
}

func toApplicationEvent(model persistence.Event) application.Event {
	return application.Event{
		ID:          model.ID,
		Name:        model.Name,
		Time:        model.Time,
		Agenda:      append([]string(nil), model.Agenda...),
		MeetingLink: model.MeetingLink,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

func toPersistenceEvent(event application.Event) persistence.Event {
	return persistence.Event{
		ID:          event.ID,
		Name:        event.Name,
		Time:        event.Time,
		Agenda:      append([]string(nil), event.Agenda...),
		MeetingLink: event.MeetingLink,
		CreatedAt:   event.CreatedAt,
		UpdatedAt:   event.UpdatedAt,
	}
}

func toApplicationRegistration(model persistence.Registration) application.Registration {
	feedback := make([]application.FeedbackEntry, 0, len(model.Feedback))
	for _, entry := range model.Feedback {
		feedback = append(feedback, application.FeedbackEntry{
			Category:  entry.Category,
			Remark:    entry.Remark,
			Timestamp: entry.Timestamp,
		})
	}
	return application.Registration{
		EventID:      model.EventID,
		Phone:        model.Phone,
		RegisteredAt: model.RegisteredAt,
		AttendedAt:   model.AttendedAt,
		Feedback:     feedback,
	}
}
