package application

import (
	"context"
	"sort"
	"sync"
	"time"
)

type memDirectory struct {
	mu      sync.Mutex
	entries map[string]map[string]any
	getErr  error
	putErr  map[string]error
}

func newMemDirectory() *memDirectory {
	return &memDirectory{entries: map[string]map[string]any{}, putErr: map[string]error{}}
}

func (m *memDirectory) GetEntry(_ context.Context, phone string) (DirectoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return DirectoryEntry{}, m.getErr
	}
	fields, ok := m.entries[phone]
	if !ok {
		return DirectoryEntry{}, ErrNotFound
	}
	return DirectoryEntry{Phone: phone, Fields: fields}, nil
}

func (m *memDirectory) PutEntry(_ context.Context, entry DirectoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.putErr[entry.Phone]; err != nil {
		return err
	}
	m.entries[entry.Phone] = entry.Fields
	return nil
}

func (m *memDirectory) DeleteEntry(_ context.Context, phone string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[phone]; !ok {
		return ErrNotFound
	}
	delete(m.entries, phone)
	return nil
}

func (m *memDirectory) ListEntries(context.Context) ([]DirectoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]DirectoryEntry, 0, len(m.entries))
	for phone, fields := range m.entries {
		out = append(out, DirectoryEntry{Phone: phone, Fields: fields})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Phone < out[j].Phone })
	return out, nil
}

type memRegistrations struct {
	mu      sync.Mutex
	ledgers map[string]map[string]*Registration
	listErr error
}

func newMemRegistrations() *memRegistrations {
	return &memRegistrations{ledgers: map[string]map[string]*Registration{}}
}

func (m *memRegistrations) UpsertRegistration(_ context.Context, eventID, phone string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ledger, ok := m.ledgers[eventID]
	if !ok {
		ledger = map[string]*Registration{}
		m.ledgers[eventID] = ledger
	}
	if reg, ok := ledger[phone]; ok {
		reg.RegisteredAt = at
		return nil
	}
	ledger[phone] = &Registration{EventID: eventID, Phone: phone, RegisteredAt: at}
	return nil
}

func (m *memRegistrations) GetRegistration(_ context.Context, eventID, phone string) (Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	reg, ok := m.ledgers[eventID][phone]
	if !ok {
		return Registration{}, ErrNotFound
	}
	out := *reg
	out.Feedback = append([]FeedbackEntry(nil), reg.Feedback...)
	return out, nil
}

func (m *memRegistrations) ListRegistrations(_ context.Context, eventID string) ([]Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]Registration, 0, len(m.ledgers[eventID]))
	for _, reg := range m.ledgers[eventID] {
		copied := *reg
		copied.Feedback = append([]FeedbackEntry(nil), reg.Feedback...)
		out = append(out, copied)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RegisteredAt.Equal(out[j].RegisteredAt) {
			return out[i].Phone < out[j].Phone
		}
		return out[i].RegisteredAt.Before(out[j].RegisteredAt)
	})
	return out, nil
}

func (m *memRegistrations) DeleteRegistration(_ context.Context, eventID, phone string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.ledgers[eventID][phone]; !ok {
		return ErrNotFound
	}
	delete(m.ledgers[eventID], phone)
	return nil
}

func (m *memRegistrations) AppendFeedback(_ context.Context, eventID, phone string, entry FeedbackEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	reg, ok := m.ledgers[eventID][phone]
	if !ok {
		return ErrNotFound
	}
	reg.Feedback = append(reg.Feedback, entry)
	return nil
}

func (m *memRegistrations) MarkAttended(_ context.Context, eventID, phone string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	reg, ok := m.ledgers[eventID][phone]
	if !ok {
		return ErrNotFound
	}
	if reg.AttendedAt.IsZero() || at.Before(reg.AttendedAt) {
		reg.AttendedAt = at
	}
	return nil
}

type memEvents struct {
	mu     sync.Mutex
	events map[string]Event
}

func newMemEvents() *memEvents {
	return &memEvents{events: map[string]Event{}}
}

func (m *memEvents) CreateEvent(_ context.Context, event Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[event.ID] = event
	return nil
}

func (m *memEvents) UpdateEvent(_ context.Context, event Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[event.ID]; !ok {
		return ErrNotFound
	}
	m.events[event.ID] = event
	return nil
}

func (m *memEvents) GetEvent(_ context.Context, id string) (Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	event, ok := m.events[id]
	if !ok {
		return Event{}, ErrNotFound
	}
	return event, nil
}

func (m *memEvents) ListEvents(context.Context) ([]Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, 0, len(m.events))
	for _, event := range m.events {
		out = append(out, event)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out, nil
}

func (m *memEvents) DeleteEvent(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[id]; !ok {
		return ErrNotFound
	}
	delete(m.events, id)
	return nil
}

type memSessions struct {
	mu       sync.Mutex
	sessions map[string]RegistrantSession
}

func newMemSessions() *memSessions {
	return &memSessions{sessions: map[string]RegistrantSession{}}
}

func (m *memSessions) CreateSession(_ context.Context, session RegistrantSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.Token] = session
	return nil
}

func (m *memSessions) GetSession(_ context.Context, token string) (RegistrantSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[token]
	if !ok {
		return RegistrantSession{}, ErrNotFound
	}
	return session, nil
}

func (m *memSessions) DeleteSession(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[token]; !ok {
		return ErrNotFound
	}
	delete(m.sessions, token)
	return nil
}

type stubVerifier struct {
	known map[string]bool
	err   error
	calls int
}

func (s *stubVerifier) VerifyPhone(_ context.Context, phone string) (bool, error) {
	s.calls++
	if s.err != nil {
		return false, s.err
	}
	return s.known[phone], nil
}

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFixedClock() *fixedClock {
	return &fixedClock{now: time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC)}
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
