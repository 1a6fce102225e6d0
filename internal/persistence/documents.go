package persistence

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// Collection layout shared by every backend.
const (
	DirectoryCollection = "userdetails"
	EventCollection     = "monthlymeet"
	SessionCollection   = "sessions"

	registrationsSegment = "registeredUsers"
)

// Document field names.
const (
	fieldEventName     = "name"
	fieldEventTime     = "time"
	fieldEventAgenda   = "agenda"
	fieldEventLink     = "meetingLink"
	fieldEventUniqueID = "uniqueId"
	fieldCreatedAt     = "createdAt"
	fieldUpdatedAt     = "updatedAt"

	fieldPhoneNumber  = "phoneNumber"
	fieldRegisteredAt = "registeredAt"
	fieldFeedback     = "feedback"
	fieldAttendance   = "attendance"

	fieldFeedbackCategory  = "predefined"
	fieldFeedbackRemark    = "custom"
	fieldFeedbackTimestamp = "timestamp"

	fieldSessionEventID = "eventId"
	fieldSessionPhone   = "phoneNumber"
	fieldExpiresAt      = "expiresAt"
)

// RegistrationCollection returns the ledger collection path of an event.
func RegistrationCollection(eventID string) string {
	return CollectionPath(EventCollection, eventID, registrationsSegment)
}

// Repositories implements the typed repositories on top of a Store.
type Repositories struct {
	store Store
}

// NewRepositories wraps store with the typed repository API.
func NewRepositories(store Store) *Repositories {
	return &Repositories{store: store}
}

// Store exposes the underlying document store.
func (r *Repositories) Store() Store {
	return r.store
}

// --- DirectoryRepository implementation ---

// GetEntry retrieves the directory record stored under phone.
func (r *Repositories) GetEntry(ctx context.Context, phone string) (DirectoryEntry, error) {
	doc, err := r.store.Get(ctx, DirectoryCollection, phone)
	if err != nil {
		return DirectoryEntry{}, err
	}
	return DirectoryEntry{Phone: phone, Fields: map[string]any(doc)}, nil
}

// PutEntry replaces the directory record of entry.Phone with entry.Fields.
func (r *Repositories) PutEntry(ctx context.Context, entry DirectoryEntry) error {
	return r.store.Put(ctx, DirectoryCollection, entry.Phone, Document(entry.Fields).Clone())
}

// DeleteEntry removes the directory record stored under phone.
func (r *Repositories) DeleteEntry(ctx context.Context, phone string) error {
	return r.store.Delete(ctx, DirectoryCollection, phone)
}

// ListEntries returns every directory record ordered by phone.
func (r *Repositories) ListEntries(ctx context.Context) ([]DirectoryEntry, error) {
	snapshots, err := r.store.List(ctx, DirectoryCollection)
	if err != nil {
		return nil, err
	}
	entries := make([]DirectoryEntry, 0, len(snapshots))
	for _, snap := range snapshots {
		entries = append(entries, DirectoryEntry{Phone: snap.Key, Fields: map[string]any(snap.Data)})
	}
	return entries, nil
}

// --- EventRepository implementation ---

// CreateEvent stores a new event document.
func (r *Repositories) CreateEvent(ctx context.Context, event Event) error {
	return r.store.Put(ctx, EventCollection, event.ID, encodeEvent(event))
}

// UpdateEvent replaces an existing event document.
func (r *Repositories) UpdateEvent(ctx context.Context, event Event) error {
	if _, err := r.store.Get(ctx, EventCollection, event.ID); err != nil {
		return err
	}
	return r.store.Put(ctx, EventCollection, event.ID, encodeEvent(event))
}

// GetEvent retrieves an event by id.
func (r *Repositories) GetEvent(ctx context.Context, id string) (Event, error) {
	doc, err := r.store.Get(ctx, EventCollection, id)
	if err != nil {
		return Event{}, err
	}
	return decodeEvent(id, doc)
}

// ListEvents returns every event ordered by time, then id.
func (r *Repositories) ListEvents(ctx context.Context) ([]Event, error) {
	snapshots, err := r.store.List(ctx, EventCollection)
	if err != nil {
		return nil, err
	}
	events := make([]Event, 0, len(snapshots))
	for _, snap := range snapshots {
		event, err := decodeEvent(snap.Key, snap.Data)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	sort.Slice(events, func(i, j int) bool {
		if events[i].Time.Equal(events[j].Time) {
			return events[i].ID < events[j].ID
		}
		return events[i].Time.Before(events[j].Time)
	})
	return events, nil
}

// DeleteEvent removes the event document only. Its ledger is left in place.
func (r *Repositories) DeleteEvent(ctx context.Context, id string) error {
	return r.store.Delete(ctx, EventCollection, id)
}

// --- RegistrationRepository implementation ---

// UpsertRegistration writes the phone and registration instant, keeping any
// feedback already recorded on the document.
func (r *Repositories) UpsertRegistration(ctx context.Context, eventID, phone string, registeredAt time.Time) error {
	return r.store.Merge(ctx, RegistrationCollection(eventID), phone, Document{
		fieldPhoneNumber:  phone,
		fieldRegisteredAt: formatTime(registeredAt),
	})
}

// GetRegistration retrieves the ledger entry for phone within eventID.
func (r *Repositories) GetRegistration(ctx context.Context, eventID, phone string) (Registration, error) {
	doc, err := r.store.Get(ctx, RegistrationCollection(eventID), phone)
	if err != nil {
		return Registration{}, err
	}
	return decodeRegistration(eventID, phone, doc)
}

// ListRegistrations returns the ledger of eventID ordered by registration instant.
func (r *Repositories) ListRegistrations(ctx context.Context, eventID string) ([]Registration, error) {
	snapshots, err := r.store.List(ctx, RegistrationCollection(eventID))
	if err != nil {
		return nil, err
	}
	registrations := make([]Registration, 0, len(snapshots))
	for _, snap := range snapshots {
		reg, err := decodeRegistration(eventID, snap.Key, snap.Data)
		if err != nil {
			return nil, err
		}
		registrations = append(registrations, reg)
	}
	sort.SliceStable(registrations, func(i, j int) bool {
		return registrations[i].RegisteredAt.Before(registrations[j].RegisteredAt)
	})
	return registrations, nil
}

// DeleteRegistration removes one ledger entry.
func (r *Repositories) DeleteRegistration(ctx context.Context, eventID, phone string) error {
	return r.store.Delete(ctx, RegistrationCollection(eventID), phone)
}

// AppendFeedback appends entry to the registration's feedback log. The
// registration must already exist.
func (r *Repositories) AppendFeedback(ctx context.Context, eventID, phone string, entry FeedbackEntry) error {
	return r.store.Append(ctx, RegistrationCollection(eventID), phone, fieldFeedback, encodeFeedback(entry))
}

// MarkAttended appends at to the registration's attendance marks. The
// registration must already exist; the earliest mark is reported as
// AttendedAt.
func (r *Repositories) MarkAttended(ctx context.Context, eventID, phone string, at time.Time) error {
	return r.store.Append(ctx, RegistrationCollection(eventID), phone, fieldAttendance, formatTime(at))
}

// --- SessionRepository implementation ---

// CreateSession stores a registrant session under its token.
func (r *Repositories) CreateSession(ctx context.Context, session Session) error {
	return r.store.Put(ctx, SessionCollection, session.Token, Document{
		fieldSessionEventID: session.EventID,
		fieldSessionPhone:   session.Phone,
		fieldCreatedAt:      formatTime(session.CreatedAt),
		fieldExpiresAt:      formatTime(session.ExpiresAt),
	})
}

// GetSession retrieves a session by token.
func (r *Repositories) GetSession(ctx context.Context, token string) (Session, error) {
	doc, err := r.store.Get(ctx, SessionCollection, token)
	if err != nil {
		return Session{}, err
	}
	session := Session{
		Token:   token,
		EventID: stringField(doc, fieldSessionEventID),
		Phone:   stringField(doc, fieldSessionPhone),
	}
	if session.CreatedAt, err = timeField(doc, fieldCreatedAt); err != nil {
		return Session{}, err
	}
	if session.ExpiresAt, err = timeField(doc, fieldExpiresAt); err != nil {
		return Session{}, err
	}
	return session, nil
}

// DeleteSession removes a session by token.
func (r *Repositories) DeleteSession(ctx context.Context, token string) error {
	return r.store.Delete(ctx, SessionCollection, token)
}

func encodeEvent(event Event) Document {
	agenda := make([]any, len(event.Agenda))
	for i, item := range event.Agenda {
		agenda[i] = item
	}
	return Document{
		fieldEventName:     event.Name,
		fieldEventTime:     formatTime(event.Time),
		fieldEventAgenda:   agenda,
		fieldEventLink:     event.MeetingLink,
		fieldEventUniqueID: event.ID,
		fieldCreatedAt:     formatTime(event.CreatedAt),
		fieldUpdatedAt:     formatTime(event.UpdatedAt),
	}
}

func decodeEvent(id string, doc Document) (Event, error) {
	event := Event{
		ID:          id,
		Name:        stringField(doc, fieldEventName),
		Agenda:      stringSlice(doc, fieldEventAgenda),
		MeetingLink: stringField(doc, fieldEventLink),
	}
	var err error
	if event.Time, err = timeField(doc, fieldEventTime); err != nil {
		return Event{}, err
	}
	if event.CreatedAt, err = timeField(doc, fieldCreatedAt); err != nil {
		return Event{}, err
	}
	if event.UpdatedAt, err = timeField(doc, fieldUpdatedAt); err != nil {
		return Event{}, err
	}
	return event, nil
}

func decodeRegistration(eventID, phone string, doc Document) (Registration, error) {
	reg := Registration{EventID: eventID, Phone: phone}
	if stored := stringField(doc, fieldPhoneNumber); stored != "" {
		reg.Phone = stored
	}
	var err error
	if reg.RegisteredAt, err = timeField(doc, fieldRegisteredAt); err != nil {
		return Registration{}, err
	}
	for _, item := range stringSlice(doc, fieldAttendance) {
		marked, err := time.Parse(time.RFC3339Nano, item)
		if err != nil {
			return Registration{}, fmt.Errorf("%w: attendance of %s/%s: %v", ErrInvalidDocument, eventID, phone, err)
		}
		if reg.AttendedAt.IsZero() || marked.Before(reg.AttendedAt) {
			reg.AttendedAt = marked
		}
	}
	if raw, ok := doc[fieldFeedback].([]any); ok {
		reg.Feedback = make([]FeedbackEntry, 0, len(raw))
		for _, item := range raw {
			fields, ok := item.(map[string]any)
			if !ok {
				return Registration{}, fmt.Errorf("%w: feedback entry of %s/%s is %T", ErrInvalidDocument, eventID, phone, item)
			}
			reg.Feedback = append(reg.Feedback, FeedbackEntry{
				Category:  stringField(fields, fieldFeedbackCategory),
				Remark:    stringField(fields, fieldFeedbackRemark),
				Timestamp: stringField(fields, fieldFeedbackTimestamp),
			})
		}
	}
	return reg, nil
}

func encodeFeedback(entry FeedbackEntry) map[string]any {
	fields := map[string]any{fieldFeedbackTimestamp: entry.Timestamp}
	if entry.Category != "" {
		fields[fieldFeedbackCategory] = entry.Category
	}
	if entry.Remark != "" {
		fields[fieldFeedbackRemark] = entry.Remark
	}
	return fields
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339Nano)
}

func stringField(doc map[string]any, name string) string {
	value, _ := doc[name].(string)
	return value
}

func stringSlice(doc map[string]any, name string) []string {
	raw, ok := doc[name].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func timeField(doc map[string]any, name string) (time.Time, error) {
	value := stringField(doc, name)
	if value == "" {
		return time.Time{}, nil
	}
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: field %s: %v", ErrInvalidDocument, name, err)
	}
	return parsed, nil
}
