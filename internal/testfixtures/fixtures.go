package testfixtures

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/example/event-roster/internal/application"
)

var (
	eventCounter  uint64
	memberCounter uint64
)

var referenceTime = time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- Event fixtures -----------------------------

// EventFixture is a deterministic event definition.
type EventFixture struct {
	Name        string
	Time        time.Time
	Agenda      []string
	MeetingLink string
}

// EventOption configures the generated event fixture.
type EventOption func(*EventFixture)

// NewEventFixture returns a deterministic event fixture with optional overrides.
func NewEventFixture(opts ...EventOption) EventFixture {
	idx := atomic.AddUint64(&eventCounter, 1)
	fixture := EventFixture{
		Name:        fmt.Sprintf("Monthly Meet %03d", idx),
		Time:        referenceTime.Add(time.Duration(idx) * 24 * time.Hour),
		Agenda:      []string{"Welcome", "Member introductions", "Open floor"},
		MeetingLink: fmt.Sprintf("https://meet.example.com/m-%03d", idx),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithEventName overrides the event name.
func WithEventName(name string) EventOption {
	return func(f *EventFixture) { f.Name = name }
}

// WithEventAgenda overrides the agenda items.
func WithEventAgenda(items ...string) EventOption {
	return func(f *EventFixture) { f.Agenda = append([]string(nil), items...) }
}

// WithEventTime overrides the event instant.
func WithEventTime(t time.Time) EventOption {
	return func(f *EventFixture) { f.Time = t }
}

// Input converts the fixture into service input.
func (f EventFixture) Input() application.EventInput {
	return application.EventInput{
		Name:        f.Name,
		Time:        f.Time.UTC().Format(time.RFC3339),
		Agenda:      append([]string(nil), f.Agenda...),
		MeetingLink: f.MeetingLink,
	}
}

// ----------------------------- Member fixtures -----------------------------

// MemberFixture is one row of the user master sheet.
type MemberFixture struct {
	Phone    string
	Name     string
	Code     string
	Category string
	Extra    map[string]any
}

// MemberOption configures the generated member fixture.
type MemberOption func(*MemberFixture)

// NewMemberFixture returns a deterministic member fixture with optional overrides.
func NewMemberFixture(opts ...MemberOption) MemberFixture {
	idx := atomic.AddUint64(&memberCounter, 1)
	fixture := MemberFixture{
		Phone:    fmt.Sprintf("98765%05d", idx),
		Name:     fmt.Sprintf("Member %03d", idx),
		Code:     fmt.Sprintf("UJB-%03d", idx),
		Category: "Orbiter",
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithMemberPhone overrides the member phone.
func WithMemberPhone(phone string) MemberOption {
	return func(f *MemberFixture) { f.Phone = phone }
}

// WithMemberName overrides the member name.
func WithMemberName(name string) MemberOption {
	return func(f *MemberFixture) { f.Name = name }
}

// WithMemberCategory overrides the member category.
func WithMemberCategory(category string) MemberOption {
	return func(f *MemberFixture) { f.Category = category }
}

// WithMemberColumn adds an arbitrary spreadsheet column.
func WithMemberColumn(header string, value any) MemberOption {
	return func(f *MemberFixture) {
		if f.Extra == nil {
			f.Extra = map[string]any{}
		}
		f.Extra[header] = value
	}
}

// Row renders the fixture with the headers of the member master sheet,
// including its leading-space name header.
func (f MemberFixture) Row() application.Row {
	row := application.Row{
		"Mobile no": f.Phone,
		" Name":     f.Name,
		"UJB Code":  f.Code,
		"Category":  f.Category,
	}
	for k, v := range f.Extra {
		row[k] = v
	}
	return row
}

// ----------------------------- Verifier -----------------------------

// StaticVerifier accepts a fixed set of phone numbers.
type StaticVerifier struct {
	mu    sync.Mutex
	known map[string]bool
	err   error
	calls []string
}

// NewStaticVerifier accepts phones.
func NewStaticVerifier(phones ...string) *StaticVerifier {
	known := make(map[string]bool, len(phones))
	for _, phone := range phones {
		known[phone] = true
	}
	return &StaticVerifier{known: known}
}

// Allow adds phone to the accepted set.
func (v *StaticVerifier) Allow(phone string) {
	v.mu.Lock()
	v.known[phone] = true
	v.mu.Unlock()
}

// FailWith makes every later call return err. A nil err restores normal answers.
func (v *StaticVerifier) FailWith(err error) {
	v.mu.Lock()
	v.err = err
	v.mu.Unlock()
}

// Calls returns the phones checked so far.
func (v *StaticVerifier) Calls() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.calls...)
}

// VerifyPhone implements application.PhoneVerifier.
func (v *StaticVerifier) VerifyPhone(_ context.Context, phone string) (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls = append(v.calls, phone)
	if v.err != nil {
		return false, v.err
	}
	return v.known[phone], nil
}
