package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerService_RegisterTwiceKeepsOneEntry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clock := newFixedClock()
	repo := newMemRegistrations()
	svc := NewLedgerService(repo, clock.Now)

	first, err := svc.Register(ctx, "evt-1", "111")
	require.NoError(t, err)

	require.NoError(t, repo.AppendFeedback(ctx, "evt-1", "111", FeedbackEntry{Remark: "called"}))

	clock.Advance(time.Hour)
	second, err := svc.Register(ctx, "evt-1", "111")
	require.NoError(t, err)
	assert.True(t, second.RegisteredAt.After(first.RegisteredAt))

	list, err := svc.List(ctx, "evt-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, second.RegisteredAt, list[0].RegisteredAt)
	assert.Len(t, list[0].Feedback, 1, "feedback survives re-registration")
}

func TestLedgerService_CountMatchesList(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := NewLedgerService(newMemRegistrations(), newFixedClock().Now)

	for _, phone := range []string{"111", "222", "333", "222"} {
		_, err := svc.Register(ctx, "evt-1", phone)
		require.NoError(t, err)
	}
	_, err := svc.Register(ctx, "evt-2", "111")
	require.NoError(t, err)

	list, err := svc.List(ctx, "evt-1")
	require.NoError(t, err)
	count, err := svc.Count(ctx, "evt-1")
	require.NoError(t, err)
	assert.Equal(t, len(list), count)
	assert.Equal(t, 3, count)

	empty, err := svc.Count(ctx, "missing")
	require.NoError(t, err)
	assert.Zero(t, empty)
}

func TestLedgerService_RegisterValidation(t *testing.T) {
	t.Parallel()

	svc := NewLedgerService(newMemRegistrations(), nil)
	_, err := svc.Register(context.Background(), "evt-1", "  ")

	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "Please fill in all fields.", vErr.Message)
	assert.Contains(t, vErr.FieldErrors, "phone_number")
}

func TestLedgerService_IsRegisteredAndRemove(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := NewLedgerService(newMemRegistrations(), nil)

	_, err := svc.Register(ctx, "evt-1", "111")
	require.NoError(t, err)

	ok, err := svc.IsRegistered(ctx, "evt-1", "111")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, svc.Remove(ctx, "evt-1", "111"))

	ok, err = svc.IsRegistered(ctx, "evt-1", "111")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.ErrorIs(t, svc.Remove(ctx, "evt-1", "111"), ErrNotFound)
}

func TestLedgerService_MarkAttendanceIsIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clock := newFixedClock()
	repo := newMemRegistrations()
	svc := NewLedgerService(repo, clock.Now)

	_, err := svc.MarkAttendance(ctx, "evt-1", "111")
	assert.ErrorIs(t, err, ErrNotFound, "only registered phones can be marked")

	_, err = svc.Register(ctx, "evt-1", "111")
	require.NoError(t, err)

	clock.Advance(time.Minute)
	first, err := svc.MarkAttendance(ctx, "evt-1", "111")
	require.NoError(t, err)
	assert.True(t, first.Attended())

	clock.Advance(time.Hour)
	again, err := svc.MarkAttendance(ctx, "evt-1", " 111 ")
	require.NoError(t, err)
	assert.True(t, again.AttendedAt.Equal(first.AttendedAt))

	list, err := svc.List(ctx, "evt-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].AttendedAt.Equal(first.AttendedAt))
}

func TestLedgerService_MarkAttendanceRequiresFields(t *testing.T) {
	t.Parallel()

	svc := NewLedgerService(newMemRegistrations(), newFixedClock().Now)
	_, err := svc.MarkAttendance(context.Background(), "", " ")

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.FieldErrors, "event_id")
	assert.Contains(t, vErr.FieldErrors, "phone_number")
}
