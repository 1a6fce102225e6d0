// Package verification talks to the external member check service that
// decides whether a phone number may register.
package verification

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/example/event-roster/internal/logging"
)

const successType = "SUCCESS"

// ErrMalformedResponse is returned when the service answers 2xx with a body
// that does not carry a result message.
var ErrMalformedResponse = errors.New("verification: malformed response")

// Client posts {"MobileNo": phone} to the verification endpoint.
type Client struct {
	endpoint string
	timeout  time.Duration
	http     *http.Client
	logger   *slog.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithLogger sets the fallback logger used when the context carries none.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient returns a client for endpoint. Every call is bounded by timeout.
func NewClient(endpoint string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		endpoint: strings.TrimSpace(endpoint),
		timeout:  timeout,
		http:     &http.Client{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type checkRequest struct {
	MobileNo string `json:"MobileNo"`
}

type checkResponse struct {
	Message []struct {
		Type string `json:"type"`
		Text string `json:"message,omitempty"`
	} `json:"message"`
}

// VerifyPhone reports whether the service accepts phone. Transport failures,
// non-2xx statuses and unreadable bodies are returned as errors; timeouts wrap
// context.DeadlineExceeded.
func (c *Client) VerifyPhone(ctx context.Context, phone string) (ok bool, err error) {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = c.logger
	}
	logger = logger.With("component", "verification", "phone", phone)

	started := time.Now()
	defer func() {
		attrs := []any{"duration_ms", time.Since(started).Milliseconds(), "verified", ok}
		if err != nil {
			logger.WarnContext(ctx, "phone verification failed", append(attrs, "error", err)...)
			return
		}
		logger.DebugContext(ctx, "phone verification completed", attrs...)
	}()

	body, err := json.Marshal(checkRequest{MobileNo: phone})
	if err != nil {
		return false, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("verification: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return false, transportError(ctx, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return false, transportError(ctx, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false, fmt.Errorf("verification: unexpected status %d", resp.StatusCode)
	}

	var decoded checkResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return false, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(decoded.Message) == 0 {
		return false, ErrMalformedResponse
	}
	return decoded.Message[0].Type == successType, nil
}

func transportError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("verification: %w", context.DeadlineExceeded)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("verification: %w: %v", context.DeadlineExceeded, err)
	}
	return fmt.Errorf("verification: %w", err)
}
