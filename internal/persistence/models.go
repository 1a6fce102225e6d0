package persistence

import "time"

// DirectoryEntry is a user master record keyed by phone. Fields holds every
// imported column verbatim.
type DirectoryEntry struct {
	Phone  string
	Fields map[string]any
}

// Event represents a stored event document.
type Event struct {
	ID          string
	Name        string
	Time        time.Time
	Agenda      []string
	MeetingLink string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Registration is a ledger entry for one phone within one event.
type Registration struct {
	EventID      string
	Phone        string
	RegisteredAt time.Time
	// AttendedAt is the first recorded attendance, zero when never marked.
	AttendedAt time.Time
	Feedback   []FeedbackEntry
}

// FeedbackEntry is one element of a registration's feedback log.
type FeedbackEntry struct {
	Category  string
	Remark    string
	Timestamp string
}

// Session is a registrant session issued after phone verification.
type Session struct {
	Token     string
	EventID   string
	Phone     string
	CreatedAt time.Time
	ExpiresAt time.Time
}
