package observability

import (
	"sync"
	"sync/atomic"

	"github.com/rcmate/rcmate/internal/eventbus"
)

// EventCounter counts published envelopes grouped by event name. It
// satisfies the bus's publish-counter hook.
type EventCounter struct {
	counts sync.Map // map[eventbus.Event]*atomic.Uint64
}

// NewEventCounter creates a counter suitable for attaching to a bus.
func NewEventCounter() *EventCounter {
	return &EventCounter{}
}

// Record tracks one published envelope of the named event.
func (c *EventCounter) Record(event eventbus.Event) {
	if event == "" {
		return
	}
	c.counterFor(event).Add(1)
}

// Snapshot exposes a stable copy of the current counts.
func (c *EventCounter) Snapshot() map[eventbus.Event]uint64 {
	out := make(map[eventbus.Event]uint64)
	c.counts.Range(func(key, value any) bool {
		event, ok := key.(eventbus.Event)
		if !ok {
			return true
		}
		counter, ok := value.(*atomic.Uint64)
		if !ok || counter == nil {
			return true
		}
		out[event] = counter.Load()
		return true
	})
	return out
}

func (c *EventCounter) counterFor(event eventbus.Event) *atomic.Uint64 {
	if counter, ok := c.counts.Load(event); ok {
		if typed, ok := counter.(*atomic.Uint64); ok && typed != nil {
			return typed
		}
	}
	newCounter := &atomic.Uint64{}
	actual, _ := c.counts.LoadOrStore(event, newCounter)
	if typed, ok := actual.(*atomic.Uint64); ok && typed != nil {
		return typed
	}
	return newCounter
}
