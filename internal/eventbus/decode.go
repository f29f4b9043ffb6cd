package eventbus

import (
	"encoding/json"
	"sync"
	"time"
)

// DecodedEnvelope is an Envelope whose JSON payload was unmarshalled into T.
type DecodedEnvelope[T any] struct {
	Event     Event
	Timestamp time.Time
	Source    Source
	Payload   T
}

// DecodedSubscription wraps a raw Subscription and delivers only payloads
// that unmarshal cleanly into T. Frames that fail to decode are skipped;
// the raw JSON is still available to plain subscribers of the same event.
type DecodedSubscription[T any] struct {
	raw       *Subscription
	ch        chan DecodedEnvelope[T]
	done      chan struct{}
	quit      chan struct{}
	closeOnce sync.Once
}

// SubscribeDecoded creates a decoded subscription on the given bus and event.
// A bridge goroutine reads the underlying Subscription, unmarshals each
// payload into T, and forwards decoded events. If bus is nil the returned
// subscription's channel is immediately closed and Close is a no-op,
// symmetric with Publish's nil-bus handling.
func SubscribeDecoded[T any](bus *Bus, event Event, opts ...SubscriptionOption) *DecodedSubscription[T] {
	if bus == nil {
		ch := make(chan DecodedEnvelope[T])
		done := make(chan struct{})
		close(ch)
		close(done)
		return &DecodedSubscription[T]{
			ch:   ch,
			done: done,
			quit: make(chan struct{}),
		}
	}

	raw := bus.Subscribe(event, opts...)

	ds := &DecodedSubscription[T]{
		raw:  raw,
		ch:   make(chan DecodedEnvelope[T]),
		done: make(chan struct{}),
		quit: make(chan struct{}),
	}

	go ds.bridge()
	return ds
}

// C returns the decoded event channel.
func (ds *DecodedSubscription[T]) C() <-chan DecodedEnvelope[T] {
	return ds.ch
}

// Close stops the bridge goroutine and closes the underlying subscription.
// It is safe to call Close multiple times.
func (ds *DecodedSubscription[T]) Close() {
	ds.closeOnce.Do(func() {
		close(ds.quit)
		if ds.raw != nil {
			ds.raw.Close()
		}
		<-ds.done
	})
}

func (ds *DecodedSubscription[T]) bridge() {
	defer close(ds.done)
	defer close(ds.ch)

	for env := range ds.raw.C() {
		var payload T
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			continue
		}
		decoded := DecodedEnvelope[T]{
			Event:     env.Event,
			Timestamp: env.Timestamp,
			Source:    env.Source,
			Payload:   payload,
		}
		select {
		case ds.ch <- decoded:
		case <-ds.quit:
			return
		}
	}
}
