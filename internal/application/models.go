package application

import "time"

// Unknown is the sentinel shown for roster fields whose directory record is missing.
const Unknown = "Unknown"

// Row is one imported spreadsheet row keyed by column header. Values are
// strings, numbers or absent; there is no fixed schema.
type Row map[string]any

// DirectoryEntry is the raw user master record as stored: every imported
// column keyed by header.
type DirectoryEntry struct {
	Phone  string
	Fields map[string]any
}

// DirectoryRecord is a directory entry with its well known columns resolved.
type DirectoryRecord struct {
	Phone      string
	Name       string
	Code       string
	Category   string
	Attributes map[string]any
}

// DirectoryFilter narrows the user master listing. Empty fields match everything.
type DirectoryFilter struct {
	Name     string
	Phone    string
	Category string
}

// ImportReport summarises a roster import. Rows are processed independently
// so a report may contain both successes and failures.
type ImportReport struct {
	Total    int
	Imported int
	Failed   []RowImportError
}

// EventInput captures caller provided event fields before validation.
type EventInput struct {
	Name        string   `json:"name" validate:"required"`
	Time        string   `json:"time" validate:"required"`
	Agenda      []string `json:"agenda" validate:"required,min=1,dive,required"`
	MeetingLink string   `json:"meeting_link" validate:"required"`
}

// Event represents a scheduled online event.
type Event struct {
	ID          string
	Name        string
	Time        time.Time
	Agenda      []string
	MeetingLink string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// EventSummary is an event with aggregates derived from its ledger.
type EventSummary struct {
	Event           Event
	RegisteredCount int
	ShareLink       string
}

// Registration is one ledger entry: a phone registered for an event.
type Registration struct {
	EventID      string
	Phone        string
	RegisteredAt time.Time
	AttendedAt   time.Time
	Feedback     []FeedbackEntry
}

// Attended reports whether attendance was marked for the registration.
func (r Registration) Attended() bool { return !r.AttendedAt.IsZero() }

// FeedbackInput is the admin supplied content of a feedback entry.
type FeedbackInput struct {
	Category string
	Remark   string
}

// FeedbackEntry is an immutable element of a registration's feedback log.
// Category and Remark may each be empty but never both.
type FeedbackEntry struct {
	Category  string
	Remark    string
	Timestamp string
}

// RosterRow is a registration joined with its directory record.
type RosterRow struct {
	Phone        string
	Code         string
	Name         string
	Category     string
	RegisteredAt time.Time
	AttendedAt   time.Time
	Feedback     []FeedbackEntry
}

// RosterFilter holds the roster search criteria. Every non-empty field must
// match as a case-insensitive substring.
type RosterFilter struct {
	RegisteredNumber string
	Code             string
	Name             string
	Category         string
}

// ExportRow is one line of a roster export.
type ExportRow struct {
	SrNo  int
	Name  string
	Phone string
}

// ExportColumns is the fixed column order of a roster export.
var ExportColumns = []string{"SrNo", "Name", "Phone"}

// Values returns the row keyed by ExportColumns.
func (r ExportRow) Values() map[string]any {
	return map[string]any{
		"SrNo":  r.SrNo,
		"Name":  r.Name,
		"Phone": r.Phone,
	}
}

// RegistrantSession is the explicit token a registrant presents after
// verifying their phone for an event.
type RegistrantSession struct {
	Token     string
	EventID   string
	Phone     string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// EventView is what a registered participant sees for an event.
type EventView struct {
	Event           Event
	Phone           string
	DisplayName     string
	RegisteredCount int
}
