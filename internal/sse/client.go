// Package sse maintains the long-lived event stream connection used in
// remote mode and fans incoming frames out through the event bus. One
// physical connection is shared by all subscribers; subscription changes
// never affect the connection lifecycle.
package sse

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rcmate/rcmate/internal/eventbus"
)

const (
	defaultBaseDelay   = time.Second
	defaultMaxAttempts = 5

	scannerInitialBuf = 64 * 1024
	scannerMaxBuf     = 1024 * 1024

	// keepAliveSentinel is sent by the backend purely for connection liveness.
	keepAliveSentinel = "keep-alive"

	// devPortEnv redirects the stream to an alternate port on the same
	// host, for running against a local development backend.
	devPortEnv = "RCMATE_DEV_EVENTS_PORT"
)

// ErrGaveUp indicates the client exhausted its reconnection attempts. The
// stream does not auto-resume afterwards; a new Run call starts fresh.
var ErrGaveUp = errors.New("event stream: giving up after repeated connection failures")

// State labels the connection lifecycle.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
)

// DeriveURL builds the stream endpoint from a backend base URL. When
// RCMATE_DEV_EVENTS_PORT is set the derived URL is rewritten to that
// port, keeping the host.
func DeriveURL(base string) string {
	derived := strings.TrimRight(base, "/") + "/api/events"

	port := os.Getenv(devPortEnv)
	if port == "" {
		return derived
	}
	u, err := url.Parse(derived)
	if err != nil || u.Host == "" {
		return derived
	}
	u.Host = net.JoinHostPort(u.Hostname(), port)
	return u.String()
}

// Client consumes the backend's text/event-stream endpoint.
type Client struct {
	url        string
	token      string
	httpClient *http.Client
	bus        *eventbus.Bus
	logger     *log.Logger

	baseDelay   time.Duration
	maxAttempts int

	mu       sync.Mutex
	state    State
	attempts int
}

// Option customises client behaviour.
type Option func(*Client)

// WithLogger overrides the logger used for warnings.
func WithLogger(logger *log.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithBaseDelay overrides the initial reconnection delay.
func WithBaseDelay(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.baseDelay = d
		}
	}
}

// WithMaxAttempts overrides the consecutive-failure ceiling.
func WithMaxAttempts(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// New builds a stream client. httpClient should have no overall timeout;
// pass the transport's streaming client.
func New(streamURL, token string, httpClient *http.Client, bus *eventbus.Bus, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	c := &Client{
		url:         streamURL,
		token:       strings.TrimSpace(token),
		httpClient:  httpClient,
		bus:         bus,
		logger:      log.Default(),
		baseDelay:   defaultBaseDelay,
		maxAttempts: defaultMaxAttempts,
		state:       StateDisconnected,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Backoff computes the reconnection delay before the given attempt
// (1-based): base * 2^(attempt-1).
func Backoff(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return base << (attempt - 1)
}

// Run connects and consumes frames until ctx is cancelled, or until the
// consecutive-failure ceiling is reached (ErrGaveUp). A successful
// connection resets the attempt counter and backoff delay.
func (c *Client) Run(ctx context.Context) error {
	for {
		c.setState(ctx, StateConnecting, "")

		err := c.connectAndRead(ctx)
		if ctx.Err() != nil {
			c.setState(context.Background(), StateDisconnected, "")
			return ctx.Err()
		}

		c.mu.Lock()
		c.attempts++
		attempt := c.attempts
		c.mu.Unlock()

		if attempt >= c.maxAttempts {
			c.logger.Printf("[sse] giving up after %d consecutive failures: %v", attempt, err)
			c.setState(ctx, StateDisconnected, fmt.Sprint(err))
			return fmt.Errorf("%w: %v", ErrGaveUp, err)
		}

		delay := Backoff(c.baseDelay, attempt)
		c.logger.Printf("[sse] connection failed (attempt %d/%d), retrying in %s: %v",
			attempt, c.maxAttempts, delay, err)
		c.setState(ctx, StateReconnecting, fmt.Sprint(err))

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			c.setState(context.Background(), StateDisconnected, "")
			return ctx.Err()
		}
	}
}

// connectAndRead opens one connection and consumes it until failure.
// A nil return only happens on context cancellation.
func (c *Client) connectAndRead(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, http.NoBody)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("event stream: unexpected status %s", resp.Status)
	}

	// The stream is open; reset failure accounting.
	c.mu.Lock()
	c.attempts = 0
	c.mu.Unlock()
	c.setState(ctx, StateConnected, "")

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, scannerInitialBuf), scannerMaxBuf)

	var data strings.Builder
	for scanner.Scan() {
		line := scanner.Text()

		if line == "" {
			if data.Len() > 0 {
				c.handleFrame(ctx, data.String())
				data.Reset()
			}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue // SSE comment
		}
		if value, ok := strings.CutPrefix(line, "data:"); ok {
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(value, " "))
		}
		// Other SSE fields (event:, id:, retry:) are unused by this backend.
	}
	if data.Len() > 0 {
		c.handleFrame(ctx, data.String())
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("event stream: read: %w", err)
	}
	return errors.New("event stream: connection closed by server")
}

// handleFrame parses one data payload and publishes it. Keep-alive frames
// are filtered; invalid JSON is logged and dropped; well-formed JSON of an
// unexpected shape is wrapped as a generic message event so no data is lost.
func (c *Client) handleFrame(ctx context.Context, data string) {
	trimmed := strings.TrimSpace(data)
	if trimmed == "" || trimmed == keepAliveSentinel || trimmed == `"`+keepAliveSentinel+`"` {
		return
	}

	if !json.Valid([]byte(trimmed)) {
		c.logger.Printf("[sse] dropping non-JSON frame: %.120s", trimmed)
		return
	}

	var frame struct {
		Event   string          `json:"event"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal([]byte(trimmed), &frame); err != nil || frame.Event == "" {
		c.bus.Publish(ctx, eventbus.Envelope{
			Event:   eventbus.EventMessage,
			Source:  eventbus.SourceStream,
			Payload: json.RawMessage(trimmed),
		})
		return
	}

	c.bus.Publish(ctx, eventbus.Envelope{
		Event:   eventbus.Event(frame.Event),
		Source:  eventbus.SourceStream,
		Payload: frame.Payload,
	})
}

func (c *Client) setState(ctx context.Context, state State, lastErr string) {
	c.mu.Lock()
	if c.state == state {
		c.mu.Unlock()
		return
	}
	c.state = state
	attempt := c.attempts
	c.mu.Unlock()

	payload, err := json.Marshal(eventbus.StreamStateEvent{
		State:   string(state),
		Attempt: attempt,
		LastErr: lastErr,
	})
	if err != nil {
		return
	}
	c.bus.Publish(ctx, eventbus.Envelope{
		Event:   eventbus.EventStreamState,
		Source:  eventbus.SourceClient,
		Payload: payload,
	})
}
