// Package observability provides lightweight in-process counters for
// dispatched commands.
package observability

import (
	"sync"
	"sync/atomic"

	"github.com/rcmate/rcmate/internal/commands"
)

// CommandCounter counts dispatched commands grouped by name.
type CommandCounter struct {
	counts sync.Map // map[commands.Name]*atomic.Uint64
}

// NewCommandCounter creates a counter suitable for wiring into the dispatcher.
func NewCommandCounter() *CommandCounter {
	return &CommandCounter{}
}

// Record tracks one dispatch of the named command.
func (c *CommandCounter) Record(name commands.Name) {
	if name == "" {
		return
	}
	c.counterFor(name).Add(1)
}

// Snapshot exposes a stable copy of the current counts.
func (c *CommandCounter) Snapshot() map[commands.Name]uint64 {
	out := make(map[commands.Name]uint64)
	c.counts.Range(func(key, value any) bool {
		name, ok := key.(commands.Name)
		if !ok {
			return true
		}
		counter, ok := value.(*atomic.Uint64)
		if !ok || counter == nil {
			return true
		}
		out[name] = counter.Load()
		return true
	})
	return out
}

func (c *CommandCounter) counterFor(name commands.Name) *atomic.Uint64 {
	if counter, ok := c.counts.Load(name); ok {
		if typed, ok := counter.(*atomic.Uint64); ok && typed != nil {
			return typed
		}
	}
	newCounter := &atomic.Uint64{}
	actual, _ := c.counts.LoadOrStore(name, newCounter)
	if typed, ok := actual.(*atomic.Uint64); ok && typed != nil {
		return typed
	}
	return newCounter
}
