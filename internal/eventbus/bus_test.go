package eventbus_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rcmate/rcmate/internal/eventbus"
)

func TestBusPublishDeliver(t *testing.T) {
	bus := eventbus.New()
	sub := bus.Subscribe(eventbus.EventJobProgress)
	defer sub.Close()

	payload, _ := json.Marshal(eventbus.JobProgressEvent{JobID: 7, Bytes: 1024})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	bus.Publish(ctx, eventbus.Envelope{
		Event:   eventbus.EventJobProgress,
		Source:  eventbus.SourceStream,
		Payload: payload,
	})

	select {
	case env := <-sub.C():
		if env.Event != eventbus.EventJobProgress {
			t.Fatalf("unexpected event: %s", env.Event)
		}
		var progress eventbus.JobProgressEvent
		if err := json.Unmarshal(env.Payload, &progress); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if progress.JobID != 7 || progress.Bytes != 1024 {
			t.Fatalf("unexpected payload: %+v", progress)
		}
		if env.Source != eventbus.SourceStream {
			t.Fatalf("unexpected source: %s", env.Source)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for event")
	}

	if bus.Published() != 1 {
		t.Fatalf("expected 1 published envelope, got %d", bus.Published())
	}
}

func TestBusDropOldest(t *testing.T) {
	bus := eventbus.New()
	sub := bus.Subscribe(eventbus.EventJobProgress, eventbus.WithSubscriptionBuffer(1))
	defer sub.Close()

	ctx := context.Background()
	for seq := 1; seq <= 2; seq++ {
		payload, _ := json.Marshal(eventbus.JobProgressEvent{JobID: int64(seq)})
		bus.Publish(ctx, eventbus.Envelope{
			Event:   eventbus.EventJobProgress,
			Source:  eventbus.SourceStream,
			Payload: payload,
		})
	}

	env := <-sub.C()
	var progress eventbus.JobProgressEvent
	if err := json.Unmarshal(env.Payload, &progress); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if progress.JobID != 2 {
		t.Fatalf("expected newest envelope to survive, got job %d", progress.JobID)
	}
	if sub.Dropped() != 1 {
		t.Fatalf("expected 1 drop, got %d", sub.Dropped())
	}
}

func TestBusDropNewestPolicy(t *testing.T) {
	bus := eventbus.New(eventbus.WithEventPolicy(eventbus.EventNotice, eventbus.DeliveryPolicy{
		Strategy: eventbus.StrategyDropNewest,
	}))
	sub := bus.Subscribe(eventbus.EventNotice, eventbus.WithSubscriptionBuffer(1))
	defer sub.Close()

	ctx := context.Background()
	for _, text := range []string{`"first"`, `"second"`} {
		bus.Publish(ctx, eventbus.Envelope{
			Event:   eventbus.EventNotice,
			Payload: json.RawMessage(text),
		})
	}

	env := <-sub.C()
	if string(env.Payload) != `"first"` {
		t.Fatalf("expected oldest envelope to survive, got %s", env.Payload)
	}
}

func TestSubscriptionCloseStopsDelivery(t *testing.T) {
	bus := eventbus.New()
	sub := bus.Subscribe(eventbus.EventMountState)
	sub.Close()

	// Closed subscriptions no longer receive envelopes; Publish must not panic.
	bus.Publish(context.Background(), eventbus.Envelope{
		Event:   eventbus.EventMountState,
		Payload: json.RawMessage(`{}`),
	})

	if _, ok := <-sub.C(); ok {
		t.Fatal("expected closed channel")
	}
}

func TestSubscriptionContextBound(t *testing.T) {
	bus := eventbus.New()
	ctx, cancel := context.WithCancel(context.Background())
	sub := bus.Subscribe(eventbus.EventNotice, eventbus.WithContext(ctx))

	cancel()

	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-sub.C():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("subscription not closed after context cancellation")
		}
	}
}

func TestNilBusIsSafe(t *testing.T) {
	var bus *eventbus.Bus

	bus.Publish(context.Background(), eventbus.Envelope{Event: eventbus.EventNotice})

	sub := bus.Subscribe(eventbus.EventNotice)
	if _, ok := <-sub.C(); ok {
		t.Fatal("expected closed channel from nil bus")
	}
	sub.Close()
}

func TestSubscribeDecoded(t *testing.T) {
	bus := eventbus.New()
	sub := eventbus.SubscribeDecoded[eventbus.JobFinishedEvent](bus, eventbus.EventJobFinished)
	defer sub.Close()

	ctx := context.Background()

	// A frame that does not decode into the target type is skipped.
	bus.Publish(ctx, eventbus.Envelope{
		Event:   eventbus.EventJobFinished,
		Payload: json.RawMessage(`"not an object"`),
	})
	payload, _ := json.Marshal(eventbus.JobFinishedEvent{JobID: 3, Success: true})
	bus.Publish(ctx, eventbus.Envelope{
		Event:   eventbus.EventJobFinished,
		Payload: payload,
	})

	select {
	case env := <-sub.C():
		if env.Payload.JobID != 3 || !env.Payload.Success {
			t.Fatalf("unexpected decoded payload: %+v", env.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for decoded event")
	}
}
