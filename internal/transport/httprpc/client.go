// Package httprpc implements the remote-mode transport: plain HTTP
// request/response against the backend's REST surface, with every response
// carried in a {success, data, error} envelope.
package httprpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"sync"
	"time"
)

const (
	defaultHTTPTimeout = 10 * time.Second
	maxErrorBody       = 8 << 10
)

// ErrServerUnreachable indicates the backend could not be reached at the
// transport level. Callers present this differently from structured backend
// errors: the recommended user action is to check the configured address.
var ErrServerUnreachable = errors.New("backend server unreachable")

// Client wraps HTTP interactions with the backend.
type Client struct {
	client  *http.Client
	baseURL string
	token   string

	streamClient *http.Client
	streamOnce   sync.Once
}

// New builds an HTTP client with optional custom transport.
func New(baseURL, token string, transport http.RoundTripper) *Client {
	trimmed := strings.TrimRight(baseURL, "/")
	client := &http.Client{Timeout: defaultHTTPTimeout}
	if transport != nil {
		client.Transport = transport
	}

	return &Client{
		client:  client,
		baseURL: trimmed,
		token:   strings.TrimSpace(token),
	}
}

// BaseURL returns the base HTTP URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Token returns the configured bearer token.
func (c *Client) Token() string {
	return c.token
}

// StreamingClient returns an HTTP client configured for long-lived streams
// (timeouts disabled). Used by the event stream connection.
func (c *Client) StreamingClient() *http.Client {
	c.streamOnce.Do(func() {
		clone := *c.client
		clone.Timeout = 0
		c.streamClient = &clone
	})
	return c.streamClient
}

// Get issues a GET request with args serialized as query parameters.
// Slice values repeat the key once per element.
func (c *Client) Get(ctx context.Context, path string, args map[string]any) (json.RawMessage, error) {
	target := c.baseURL + path
	if query := encodeQuery(args); query != "" {
		target += "?" + query
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, err
	}
	c.attachToken(req)

	return c.do(req)
}

// Post issues a POST request with args as a JSON body.
func (c *Client) Post(ctx context.Context, path string, args map[string]any) (json.RawMessage, error) {
	if args == nil {
		args = map[string]any{}
	}
	payload, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("marshal request payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	c.attachToken(req)

	return c.do(req)
}

func (c *Client) do(req *http.Request) (json.RawMessage, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrServerUnreachable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	var env envelope
	if json.Unmarshal(body, &env) == nil && env.seen {
		if env.Success {
			return env.Data, nil
		}
		msg := strings.TrimSpace(env.Error)
		if msg == "" {
			msg = resp.Status
		}
		return nil, errors.New(msg)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, readHTTPError(resp.Status, body)
	}
	return nil, fmt.Errorf("malformed response envelope from %s", req.URL.Path)
}

func (c *Client) attachToken(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// envelope is the backend's uniform response shape. The custom unmarshaler
// distinguishes "envelope with success:false" from "not an envelope at all"
// so non-enveloped error bodies still produce a useful message.
type envelope struct {
	Success bool
	Data    json.RawMessage
	Error   string
	seen    bool
}

func (e *envelope) UnmarshalJSON(data []byte) error {
	var raw struct {
		Success *bool           `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   string          `json:"error"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Success == nil {
		return nil
	}
	e.seen = true
	e.Success = *raw.Success
	e.Data = raw.Data
	e.Error = raw.Error
	return nil
}

func readHTTPError(status string, body []byte) error {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return errors.New(status)
	}
	return fmt.Errorf("%s: %s", status, trimmed)
}

// encodeQuery serializes an argument map as URL query parameters. Slices and
// arrays repeat the key once per element; everything else is formatted with
// fmt.Sprint semantics via its JSON-compatible string form.
func encodeQuery(args map[string]any) string {
	if len(args) == 0 {
		return ""
	}

	values := url.Values{}
	for key, value := range args {
		switch v := reflect.ValueOf(value); v.Kind() {
		case reflect.Slice, reflect.Array:
			for i := 0; i < v.Len(); i++ {
				values.Add(key, stringify(v.Index(i).Interface()))
			}
		default:
			values.Add(key, stringify(value))
		}
	}
	return values.Encode()
}

func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
