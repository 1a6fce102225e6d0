package application

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type checkInFixture struct {
	svc      *CheckInService
	verifier *stubVerifier
	ledger   *LedgerService
	sessions *memSessions
	clock    *fixedClock
}

func newCheckInFixture(t *testing.T) checkInFixture {
	t.Helper()

	clock := newFixedClock()
	events := newMemEvents()
	require.NoError(t, events.CreateEvent(context.Background(), Event{ID: "evt-1", Name: "Monthly Meet", Agenda: []string{"Welcome"}}))

	directory := newMemDirectory()
	directory.entries["111"] = map[string]any{"Name": "Asha Rao"}

	ledger := NewLedgerService(newMemRegistrations(), clock.Now)
	verifier := &stubVerifier{known: map[string]bool{"111": true, "222": true}}
	sessions := newMemSessions()

	n := 0
	svc := NewCheckInService(CheckInDeps{
		Verifier:  verifier,
		Events:    events,
		Ledger:    ledger,
		Sessions:  sessions,
		Directory: directory,
		TokenGenerator: func() string {
			n++
			return fmt.Sprintf("tok-%d", n)
		},
		Now:        clock.Now,
		SessionTTL: 24 * time.Hour,
	})
	return checkInFixture{svc: svc, verifier: verifier, ledger: ledger, sessions: sessions, clock: clock}
}

func TestCheckInService_LoginRegistersAndIssuesSession(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newCheckInFixture(t)

	session, view, err := f.svc.Login(ctx, "evt-1", " 111 ")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", session.Token)
	assert.Equal(t, "111", session.Phone)
	assert.Equal(t, f.clock.Now().Add(24*time.Hour), session.ExpiresAt)

	assert.Equal(t, "Monthly Meet", view.Event.Name)
	assert.Equal(t, "Asha Rao", view.DisplayName)
	assert.Equal(t, 1, view.RegisteredCount)

	registered, err := f.ledger.IsRegistered(ctx, "evt-1", "111")
	require.NoError(t, err)
	assert.True(t, registered)
}

func TestCheckInService_LoginUnknownNameShowsUnknown(t *testing.T) {
	t.Parallel()

	f := newCheckInFixture(t)
	_, view, err := f.svc.Login(context.Background(), "evt-1", "222")
	require.NoError(t, err)
	assert.Equal(t, Unknown, view.DisplayName)
}

func TestCheckInService_LoginFailures(t *testing.T) {
	t.Parallel()

	t.Run("empty phone", func(t *testing.T) {
		f := newCheckInFixture(t)
		_, _, err := f.svc.Login(context.Background(), "evt-1", "")
		var vErr *ValidationError
		require.True(t, errors.As(err, &vErr))
		assert.Equal(t, "Please enter your phone number.", vErr.Message)
		assert.Zero(t, f.verifier.calls)
	})

	t.Run("unknown event", func(t *testing.T) {
		f := newCheckInFixture(t)
		_, _, err := f.svc.Login(context.Background(), "evt-x", "111")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("phone not verified", func(t *testing.T) {
		f := newCheckInFixture(t)
		_, _, err := f.svc.Login(context.Background(), "evt-1", "999")
		assert.ErrorIs(t, err, ErrPhoneNotVerified)

		count, cErr := f.ledger.Count(context.Background(), "evt-1")
		require.NoError(t, cErr)
		assert.Zero(t, count)
	})

	t.Run("verifier unavailable", func(t *testing.T) {
		f := newCheckInFixture(t)
		f.verifier.err = errors.New("status 502")
		_, _, err := f.svc.Login(context.Background(), "evt-1", "111")
		assert.ErrorIs(t, err, ErrVerificationUnavailable)
	})

	t.Run("verifier deadline", func(t *testing.T) {
		f := newCheckInFixture(t)
		f.verifier.err = fmt.Errorf("post: %w", context.DeadlineExceeded)
		_, _, err := f.svc.Login(context.Background(), "evt-1", "111")
		assert.ErrorIs(t, err, ErrTimeout)
	})
}

func TestCheckInService_ViewChecksLedger(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newCheckInFixture(t)

	session, _, err := f.svc.Login(ctx, "evt-1", "111")
	require.NoError(t, err)

	view, err := f.svc.View(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, "111", view.Phone)

	require.NoError(t, f.ledger.Remove(ctx, "evt-1", "111"))

	_, err = f.svc.View(ctx, session.Token)
	assert.ErrorIs(t, err, ErrSessionInvalid)
	assert.NotContains(t, f.sessions.sessions, session.Token)
}

func TestCheckInService_ViewExpiredSession(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newCheckInFixture(t)

	session, _, err := f.svc.Login(ctx, "evt-1", "111")
	require.NoError(t, err)

	f.clock.Advance(25 * time.Hour)
	_, err = f.svc.View(ctx, session.Token)
	assert.ErrorIs(t, err, ErrSessionInvalid)

	_, err = f.svc.View(ctx, "")
	assert.ErrorIs(t, err, ErrSessionInvalid)
}

func TestCheckInService_Logout(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newCheckInFixture(t)

	session, _, err := f.svc.Login(ctx, "evt-1", "111")
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(ctx, session.Token))
	require.NoError(t, f.svc.Logout(ctx, session.Token))

	_, err = f.svc.View(ctx, session.Token)
	assert.ErrorIs(t, err, ErrSessionInvalid)
}
