package sse_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rcmate/rcmate/internal/eventbus"
	"github.com/rcmate/rcmate/internal/sse"
)

func streamServer(t *testing.T, frames []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher, ok := w.(http.Flusher)
		if !ok {
			t.Error("response writer is not a flusher")
			return
		}
		for _, frame := range frames {
			fmt.Fprintf(w, "data: %s\n\n", frame)
			flusher.Flush()
		}
		<-r.Context().Done()
	}))
}

func TestFramesAreDispatchedByName(t *testing.T) {
	payload, _ := json.Marshal(map[string]any{"jobid": 42, "finished": true})
	frame, _ := json.Marshal(map[string]any{"event": "job.finished", "payload": json.RawMessage(payload)})
	server := streamServer(t, []string{string(frame)})
	defer server.Close()

	bus := eventbus.New()
	sub := bus.Subscribe(eventbus.EventJobFinished)
	defer sub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := sse.New(server.URL, "", nil, bus, sse.WithLogger(log.New(io.Discard, "", 0)))
	go client.Run(ctx)

	select {
	case env := <-sub.C():
		var finished eventbus.JobFinishedEvent
		if err := json.Unmarshal(env.Payload, &finished); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if finished.JobID != 42 {
			t.Fatalf("unexpected payload: %+v", finished)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestKeepAliveAndMalformedFramesFiltered(t *testing.T) {
	server := streamServer(t, []string{
		`keep-alive`,
		`"keep-alive"`,
		`{not valid json`,
		`{"event": "notice", "payload": {"text": "after the noise"}}`,
	})
	defer server.Close()

	bus := eventbus.New()
	noticeSub := bus.Subscribe(eventbus.EventNotice)
	defer noticeSub.Close()
	messageSub := bus.Subscribe(eventbus.EventMessage)
	defer messageSub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := sse.New(server.URL, "", nil, bus, sse.WithLogger(log.New(io.Discard, "", 0)))
	go client.Run(ctx)

	// The notice after the keep-alive and malformed frames must still arrive:
	// the stream survives bad frames and the sentinels emit nothing.
	select {
	case env := <-noticeSub.C():
		if string(env.Payload) != `{"text": "after the noise"}` {
			t.Fatalf("unexpected payload: %s", env.Payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notice")
	}

	select {
	case env := <-messageSub.C():
		t.Fatalf("unexpected message event: %s", env.Payload)
	default:
	}
}

func TestWrongShapeWrappedAsMessage(t *testing.T) {
	server := streamServer(t, []string{`{"kind": "legacy", "value": 3}`})
	defer server.Close()

	bus := eventbus.New()
	sub := bus.Subscribe(eventbus.EventMessage)
	defer sub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := sse.New(server.URL, "", nil, bus, sse.WithLogger(log.New(io.Discard, "", 0)))
	go client.Run(ctx)

	select {
	case env := <-sub.C():
		if string(env.Payload) != `{"kind": "legacy", "value": 3}` {
			t.Fatalf("expected raw body preserved, got %s", env.Payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message event")
	}
}

func TestBackoffDoublesPerAttempt(t *testing.T) {
	base := 250 * time.Millisecond
	previous := time.Duration(0)
	for attempt := 1; attempt <= 5; attempt++ {
		delay := sse.Backoff(base, attempt)
		expected := base << (attempt - 1)
		if delay != expected {
			t.Fatalf("attempt %d: expected %s, got %s", attempt, expected, delay)
		}
		if delay < previous {
			t.Fatalf("backoff decreased at attempt %d", attempt)
		}
		previous = delay
	}
}

func TestGivesUpAfterMaxAttempts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := sse.New(server.URL, "", nil, eventbus.New(),
		sse.WithLogger(log.New(io.Discard, "", 0)),
		sse.WithBaseDelay(time.Millisecond),
		sse.WithMaxAttempts(3))

	err := client.Run(context.Background())
	if !errors.Is(err, sse.ErrGaveUp) {
		t.Fatalf("expected ErrGaveUp, got %v", err)
	}
	if client.State() != sse.StateDisconnected {
		t.Fatalf("expected disconnected state, got %s", client.State())
	}
}

func TestSuccessfulConnectionResetsAttempts(t *testing.T) {
	// Connection sequence: fail, succeed (one frame, then close), then fail
	// until the ceiling. The successful connection resets the counter, and
	// its eventual closure counts as the first failure of a fresh run, so
	// the client makes 1 + 1 + (maxAttempts-1) + 1 = 4 connections. Without
	// the reset it would give up one connection earlier.
	var connections atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := connections.Add(1)
		if n == 2 {
			w.Header().Set("Content-Type", "text/event-stream")
			fmt.Fprint(w, "data: {\"event\": \"notice\", \"payload\": null}\n\n")
			return // server closes; client must treat this as a fresh failure run
		}
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := sse.New(server.URL, "", nil, eventbus.New(),
		sse.WithLogger(log.New(io.Discard, "", 0)),
		sse.WithBaseDelay(time.Millisecond),
		sse.WithMaxAttempts(3))

	err := client.Run(context.Background())
	if !errors.Is(err, sse.ErrGaveUp) {
		t.Fatalf("expected ErrGaveUp, got %v", err)
	}
	if got := connections.Load(); got != 4 {
		t.Fatalf("expected 4 connection attempts (counter reset after success), got %d", got)
	}
}

func TestDeriveURL(t *testing.T) {
	if got := sse.DeriveURL("http://localhost:5572/"); got != "http://localhost:5572/api/events" {
		t.Fatalf("unexpected derived URL: %s", got)
	}
}

func TestDeriveURLDevPortOverride(t *testing.T) {
	t.Setenv("RCMATE_DEV_EVENTS_PORT", "8080")

	if got := sse.DeriveURL("http://localhost:5572"); got != "http://localhost:8080/api/events" {
		t.Fatalf("unexpected derived URL with port override: %s", got)
	}
	if got := sse.DeriveURL("https://backend.example.com/"); got != "https://backend.example.com:8080/api/events" {
		t.Fatalf("unexpected derived URL for unported base: %s", got)
	}
}
