package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequenceIDs(ids ...string) func() string {
	i := 0
	return func() string {
		id := ids[i%len(ids)]
		i++
		return id
	}
}

func validEventInput() EventInput {
	return EventInput{
		Name:        "Monthly Meet",
		Time:        "2024-02-10T18:30",
		Agenda:      []string{"Welcome", "Member spotlight"},
		MeetingLink: "https://meet.example.com/abc",
	}
}

func TestEventService_CreateAndGet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clock := newFixedClock()
	ist := time.FixedZone("IST", 5*3600+1800)
	svc := NewEventService(newMemEvents(), nil, sequenceIDs("evt-1"), clock.Now, EventServiceConfig{Location: ist})

	created, err := svc.Create(ctx, validEventInput())
	require.NoError(t, err)
	assert.Equal(t, "evt-1", created.ID)
	assert.True(t, created.Time.Equal(time.Date(2024, time.February, 10, 13, 0, 0, 0, time.UTC)))
	assert.Equal(t, clock.Now(), created.CreatedAt)

	got, err := svc.Get(ctx, "evt-1")
	require.NoError(t, err)
	assert.Equal(t, created.Name, got.Name)
	assert.Equal(t, created.Agenda, got.Agenda)
	assert.Equal(t, created.MeetingLink, got.MeetingLink)
	assert.True(t, got.Time.Equal(created.Time))
	_, offset := got.Time.Zone()
	assert.Equal(t, 5*3600+1800, offset, "event time keeps the configured offset")
}

func TestEventService_CreateValidation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(*EventInput)
		field  string
	}{
		{"empty agenda item", func(in *EventInput) { in.Agenda = []string{"Welcome", "  "} }, "agenda[1]"},
		{"no agenda", func(in *EventInput) { in.Agenda = nil }, "agenda"},
		{"missing name", func(in *EventInput) { in.Name = "" }, "name"},
		{"missing link", func(in *EventInput) { in.MeetingLink = " " }, "meeting_link"},
		{"bad time", func(in *EventInput) { in.Time = "tomorrow" }, "time"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			events := newMemEvents()
			svc := NewEventService(events, nil, sequenceIDs("evt-1"), nil, EventServiceConfig{})

			input := validEventInput()
			tc.mutate(&input)
			_, err := svc.Create(context.Background(), input)

			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr), "expected validation error, got %v", err)
			assert.Equal(t, "Please fill in all fields.", vErr.Message)
			assert.Contains(t, vErr.FieldErrors, tc.field)
			assert.Empty(t, events.events)
		})
	}
}

func TestEventService_Update(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clock := newFixedClock()
	svc := NewEventService(newMemEvents(), nil, sequenceIDs("evt-1"), clock.Now, EventServiceConfig{})

	created, err := svc.Create(ctx, validEventInput())
	require.NoError(t, err)

	clock.Advance(time.Hour)
	input := validEventInput()
	input.Name = "Renamed"
	updated, err := svc.Update(ctx, created.ID, input)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))

	_, err = svc.Update(ctx, "missing", input)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEventService_SummaryAndShareLink(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ledger := NewLedgerService(newMemRegistrations(), nil)
	svc := NewEventService(newMemEvents(), ledger, sequenceIDs("evt-1"), nil, EventServiceConfig{PublicBaseURL: "https://events.example.com/"})

	created, err := svc.Create(ctx, validEventInput())
	require.NoError(t, err)
	for _, phone := range []string{"111", "222"} {
		_, err := ledger.Register(ctx, created.ID, phone)
		require.NoError(t, err)
	}

	summary, err := svc.Summary(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.RegisteredCount)
	assert.Equal(t, "https://events.example.com/events/evt-1", summary.ShareLink)

	assert.Equal(t, "/events/x", NewEventService(nil, nil, nil, nil, EventServiceConfig{}).ShareLink("x"))
}

func TestEventService_DeleteLeavesLedger(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ledger := NewLedgerService(newMemRegistrations(), nil)
	svc := NewEventService(newMemEvents(), ledger, sequenceIDs("evt-1"), nil, EventServiceConfig{})

	created, err := svc.Create(ctx, validEventInput())
	require.NoError(t, err)
	_, err = ledger.Register(ctx, created.ID, "111")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created.ID))
	_, err = svc.Get(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	count, err := ledger.Count(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestEventService_ListSummaries(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ledger := NewLedgerService(newMemRegistrations(), nil)
	svc := NewEventService(newMemEvents(), ledger, sequenceIDs("evt-1", "evt-2"), nil, EventServiceConfig{})

	early := validEventInput()
	early.Time = "2024-02-01T10:00"
	late := validEventInput()
	late.Time = "2024-03-01T10:00"

	second, err := svc.Create(ctx, late)
	require.NoError(t, err)
	first, err := svc.Create(ctx, early)
	require.NoError(t, err)
	_, err = ledger.Register(ctx, second.ID, "111")
	require.NoError(t, err)

	summaries, err := svc.ListSummaries(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, first.ID, summaries[0].Event.ID)
	assert.Zero(t, summaries[0].RegisteredCount)
	assert.Equal(t, 1, summaries[1].RegisteredCount)
	assert.Equal(t, "/events/"+second.ID, summaries[1].ShareLink)
}
