package persistence

import (
	"context"
	"time"
)

// DirectoryRepository stores user master records keyed by phone.
type DirectoryRepository interface {
	GetEntry(ctx context.Context, phone string) (DirectoryEntry, error)
	PutEntry(ctx context.Context, entry DirectoryEntry) error
	DeleteEntry(ctx context.Context, phone string) error
	ListEntries(ctx context.Context) ([]DirectoryEntry, error)
}

// EventRepository exposes CRUD operations for events.
type EventRepository interface {
	CreateEvent(ctx context.Context, event Event) error
	UpdateEvent(ctx context.Context, event Event) error
	GetEvent(ctx context.Context, id string) (Event, error)
	ListEvents(ctx context.Context) ([]Event, error)
	DeleteEvent(ctx context.Context, id string) error
}

// RegistrationRepository stores per-event registration ledgers.
type RegistrationRepository interface {
	UpsertRegistration(ctx context.Context, eventID, phone string, registeredAt time.Time) error
	GetRegistration(ctx context.Context, eventID, phone string) (Registration, error)
	ListRegistrations(ctx context.Context, eventID string) ([]Registration, error)
	DeleteRegistration(ctx context.Context, eventID, phone string) error
	AppendFeedback(ctx context.Context, eventID, phone string, entry FeedbackEntry) error
	MarkAttended(ctx context.Context, eventID, phone string, at time.Time) error
}

// SessionRepository stores registrant sessions.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) error
	GetSession(ctx context.Context, token string) (Session, error)
	DeleteSession(ctx context.Context, token string) error
}
