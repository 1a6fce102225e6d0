package verification

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func TestClient_VerifyPhone(t *testing.T) {
	t.Parallel()

	server := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		if body["MobileNo"] == "9876543210" {
			_, _ = w.Write([]byte(`{"message":[{"type":"SUCCESS","message":"Mobile exists"}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"message":[{"type":"ERROR","message":"Mobile not found"}]}`))
	})

	client := NewClient(server.URL, time.Second)

	ok, err := client.VerifyPhone(context.Background(), "9876543210")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = client.VerifyPhone(context.Background(), "1111111111")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClient_VerifyPhoneFailures(t *testing.T) {
	t.Parallel()

	t.Run("non 2xx status", func(t *testing.T) {
		server := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "down", http.StatusBadGateway)
		})
		_, err := NewClient(server.URL, time.Second).VerifyPhone(context.Background(), "1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "502")
	})

	t.Run("empty message list", func(t *testing.T) {
		server := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"message":[]}`))
		})
		_, err := NewClient(server.URL, time.Second).VerifyPhone(context.Background(), "1")
		assert.ErrorIs(t, err, ErrMalformedResponse)
	})

	t.Run("not json", func(t *testing.T) {
		server := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`<html>`))
		})
		_, err := NewClient(server.URL, time.Second).VerifyPhone(context.Background(), "1")
		assert.ErrorIs(t, err, ErrMalformedResponse)
	})

	t.Run("timeout", func(t *testing.T) {
		release := make(chan struct{})
		server := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		})
		defer close(release)

		_, err := NewClient(server.URL, 50*time.Millisecond).VerifyPhone(context.Background(), "1")
		assert.True(t, errors.Is(err, context.DeadlineExceeded), "expected deadline error, got %v", err)
	})

	t.Run("unreachable", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		url := server.URL
		server.Close()

		_, err := NewClient(url, time.Second).VerifyPhone(context.Background(), "1")
		require.Error(t, err)
		assert.False(t, errors.Is(err, context.DeadlineExceeded))
	})
}
