// Package bridge implements the engine-attached transport: a single duplex
// WebSocket control channel to a locally supervised engine. Command
// invocations and event push share the connection; invocations are
// correlated to results by id.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/rcmate/rcmate/internal/eventbus"
)

const (
	handshakeTimeout = 10 * time.Second
	writeTimeout     = 5 * time.Second
)

// ErrClosed indicates the control channel is no longer usable.
var ErrClosed = errors.New("bridge: control channel closed")

type outboundFrame struct {
	Type    string         `json:"type"`
	ID      string         `json:"id"`
	Command string         `json:"command"`
	Args    map[string]any `json:"args,omitempty"`
}

type inboundFrame struct {
	Type    string          `json:"type"`
	ID      string          `json:"id"`
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

type result struct {
	data json.RawMessage
	err  error
}

// Client holds one control-channel connection to the engine.
type Client struct {
	conn   *websocket.Conn
	bus    *eventbus.Bus
	logger *log.Logger

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[string]chan result
	failure error

	done      chan struct{}
	closeOnce sync.Once
}

// Dial connects to the engine control endpoint. rawURL accepts http(s) or
// ws(s) schemes; http(s) is rewritten to the WebSocket equivalent. Events
// received on the channel are published to bus.
func Dial(ctx context.Context, rawURL, token string, bus *eventbus.Bus, logger *log.Logger) (*Client, error) {
	target, err := controlURL(rawURL)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Default()
	}

	dialer := &websocket.Dialer{
		Proxy:             http.ProxyFromEnvironment,
		HandshakeTimeout:  handshakeTimeout,
		EnableCompression: true,
	}

	header := http.Header{}
	if token = strings.TrimSpace(token); token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	conn, _, err := dialer.DialContext(ctx, target, header)
	if err != nil {
		return nil, fmt.Errorf("bridge: dial %s: %w", target, err)
	}

	c := &Client{
		conn:    conn,
		bus:     bus,
		logger:  logger,
		pending: make(map[string]chan result),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Invoke sends a command over the control channel and waits for its result.
func (c *Client) Invoke(ctx context.Context, command string, args map[string]any) (json.RawMessage, error) {
	id := uuid.NewString()
	ch := make(chan result, 1)

	c.mu.Lock()
	if c.failure != nil {
		err := c.failure
		c.mu.Unlock()
		return nil, err
	}
	c.pending[id] = ch
	c.mu.Unlock()

	frame := outboundFrame{Type: "invoke", ID: id, Command: command, Args: args}
	if err := c.writeJSON(frame); err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, fmt.Errorf("bridge: send %s: %w", command, err)
	}

	select {
	case res := <-ch:
		return res.data, res.err
	case <-c.done:
		return nil, c.closeError()
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, ctx.Err()
	}
}

// Close shuts down the control channel. Pending invocations fail with ErrClosed.
func (c *Client) Close() error {
	c.shutdown(ErrClosed)

	c.writeMu.Lock()
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(2*time.Second))
	c.writeMu.Unlock()

	return c.conn.Close()
}

// Done is closed when the control channel terminates.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) writeJSON(payload any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(payload)
}

func (c *Client) readLoop() {
	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if isNormalClose(err) {
				err = ErrClosed
			} else {
				err = fmt.Errorf("bridge: connection lost: %w", err)
			}
			c.shutdown(err)
			return
		}

		var frame inboundFrame
		if err := json.Unmarshal(payload, &frame); err != nil {
			c.logger.Printf("[bridge] dropping malformed frame: %v", err)
			continue
		}

		switch frame.Type {
		case "result":
			c.resolve(frame)
		case "event":
			if frame.Event == "" {
				continue
			}
			c.bus.Publish(context.Background(), eventbus.Envelope{
				Event:   eventbus.Event(frame.Event),
				Source:  eventbus.SourceBridge,
				Payload: frame.Payload,
			})
		default:
			// Unknown frame types are ignored so the protocol can grow.
		}
	}
}

func (c *Client) resolve(frame inboundFrame) {
	c.mu.Lock()
	ch, ok := c.pending[frame.ID]
	if ok {
		delete(c.pending, frame.ID)
	}
	c.mu.Unlock()

	if !ok {
		c.logger.Printf("[bridge] result for unknown invocation %s", frame.ID)
		return
	}

	if frame.Success {
		ch <- result{data: frame.Data}
		return
	}
	msg := strings.TrimSpace(frame.Error)
	if msg == "" {
		msg = "engine command failed"
	}
	ch <- result{err: errors.New(msg)}
}

// shutdown fails all pending invocations and marks the channel terminal.
func (c *Client) shutdown(err error) {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.failure = err
		pending := c.pending
		c.pending = make(map[string]chan result)
		c.mu.Unlock()

		for _, ch := range pending {
			ch <- result{err: err}
		}
		close(c.done)
	})
}

func (c *Client) closeError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failure != nil {
		return c.failure
	}
	return ErrClosed
}

func isNormalClose(err error) bool {
	if err == nil {
		return true
	}
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return true
	}
	return errors.Is(err, io.EOF)
}

// controlURL normalizes the configured engine endpoint to a ws(s) URL.
func controlURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", errors.New("bridge: engine URL is empty")
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "ws://" + trimmed
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("bridge: parse engine URL: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "ws", "wss":
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("bridge: unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", errors.New("bridge: engine URL missing host")
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/bridge"
	}
	return u.String(), nil
}
