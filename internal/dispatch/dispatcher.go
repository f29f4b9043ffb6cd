// Package dispatch provides the single call surface used by every domain
// service: one Invoke that works identically whether the client is attached
// to a local engine or talking to a remote backend over HTTP, and one
// Listen that hides which transport delivers events.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/rcmate/rcmate/internal/commands"
	"github.com/rcmate/rcmate/internal/eventbus"
	"github.com/rcmate/rcmate/internal/observability"
	"github.com/rcmate/rcmate/internal/transport/httprpc"
)

// Mode identifies which transport serves commands. It is decided once at
// construction and never re-evaluated for the lifetime of the dispatcher.
type Mode string

const (
	// ModeEngine routes commands over the engine control channel.
	ModeEngine Mode = "engine"
	// ModeRemote routes commands over HTTP against a remote backend.
	ModeRemote Mode = "remote"
)

// EngineTransport is the invocation contract of the engine bridge.
type EngineTransport interface {
	Invoke(ctx context.Context, command string, args map[string]any) (json.RawMessage, error)
}

// StreamRunner is the contract of the event stream client. It is started
// lazily, at most once, the first time a remote-mode subscriber listens.
type StreamRunner interface {
	Run(ctx context.Context) error
}

// Config assembles a dispatcher. Engine non-nil selects engine-attached
// mode; otherwise HTTP is required and the dispatcher runs in remote mode.
type Config struct {
	Engine EngineTransport
	HTTP   *httprpc.Client
	Stream StreamRunner
	Bus    *eventbus.Bus
	Logger *log.Logger
}

// Dispatcher routes logical commands to the active transport and
// normalizes both transports' outcomes into one (payload, error) shape.
type Dispatcher struct {
	mode    Mode
	engine  EngineTransport
	http    *httprpc.Client
	stream  StreamRunner
	bus     *eventbus.Bus
	logger  *log.Logger
	counter *observability.CommandCounter
	events  *observability.EventCounter

	streamOnce   sync.Once
	streamCancel context.CancelFunc

	local map[commands.Name]func(args map[string]any) (json.RawMessage, error)
}

// New constructs a dispatcher, fixing the runtime mode.
func New(cfg Config) (*Dispatcher, error) {
	if cfg.Bus == nil {
		return nil, errors.New("dispatch: event bus is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}

	d := &Dispatcher{
		engine:  cfg.Engine,
		http:    cfg.HTTP,
		stream:  cfg.Stream,
		bus:     cfg.Bus,
		logger:  cfg.Logger,
		counter: observability.NewCommandCounter(),
		events:  observability.NewEventCounter(),
	}
	d.bus.SetCounter(d.events)

	if cfg.Engine != nil {
		d.mode = ModeEngine
	} else {
		if cfg.HTTP == nil {
			return nil, errors.New("dispatch: remote mode requires an HTTP client")
		}
		d.mode = ModeRemote
	}

	d.local = localHandlers()
	return d, nil
}

// Mode returns the transport mode fixed at construction.
func (d *Dispatcher) Mode() Mode {
	return d.mode
}

// Invoke routes one logical command to the active transport. Failures from
// either transport arrive as plain errors carrying a human-readable
// message; callers never see transport-specific shapes. The dispatcher
// itself never retries.
func (d *Dispatcher) Invoke(ctx context.Context, name commands.Name, args map[string]any) (json.RawMessage, error) {
	if name == "" {
		return nil, errors.New("dispatch: empty command name")
	}
	d.counter.Record(name)

	if d.mode == ModeEngine {
		return d.engine.Invoke(ctx, string(name), args)
	}

	// A few commands only have meaning inside the engine-attached shell;
	// in remote mode they are answered client-side without a network call.
	if handler, ok := d.local[name]; ok {
		return handler(args)
	}

	path, ok := commands.Route(name)
	if !ok {
		path = commands.DerivedPath(name)
		d.logger.Printf("[dispatch] no route mapping for %q, using derived path %s", name, path)
	}

	if commands.IsWrite(name) {
		return d.http.Post(ctx, path, args)
	}
	return d.http.Get(ctx, path, args)
}

// Call invokes a command and decodes its payload into T.
func Call[T any](ctx context.Context, d *Dispatcher, name commands.Name, args map[string]any) (T, error) {
	var out T
	data, err := d.Invoke(ctx, name, args)
	if err != nil {
		return out, err
	}
	if len(data) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("dispatch: decode %s response: %w", name, err)
	}
	return out, nil
}

// Listen subscribes to a named event regardless of which transport delivers
// it. In remote mode the first call starts the shared event stream; in
// engine-attached mode the bridge already feeds the bus. Closing the
// subscription never affects the underlying connection.
func (d *Dispatcher) Listen(event eventbus.Event, opts ...eventbus.SubscriptionOption) *eventbus.Subscription {
	d.ensureStream()
	return d.bus.Subscribe(event, opts...)
}

// Bus exposes the shared event bus for decoded subscriptions.
func (d *Dispatcher) Bus() *eventbus.Bus {
	d.ensureStream()
	return d.bus
}

// Counts reports how many times each command was dispatched.
func (d *Dispatcher) Counts() map[commands.Name]uint64 {
	return d.counter.Snapshot()
}

// EventCounts reports how many envelopes were published per event name.
func (d *Dispatcher) EventCounts() map[eventbus.Event]uint64 {
	return d.events.Snapshot()
}

// Close stops the event stream, if one was started.
func (d *Dispatcher) Close() {
	if d.streamCancel != nil {
		d.streamCancel()
	}
}

func (d *Dispatcher) ensureStream() {
	if d.mode != ModeRemote || d.stream == nil {
		return
	}
	d.streamOnce.Do(func() {
		ctx, cancel := context.WithCancel(context.Background())
		d.streamCancel = cancel
		go func() {
			if err := d.stream.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				d.logger.Printf("[dispatch] event stream terminated: %v", err)
			}
		}()
	})
}

func localHandlers() map[commands.Name]func(args map[string]any) (json.RawMessage, error) {
	return map[commands.Name]func(args map[string]any) (json.RawMessage, error){
		commands.GetAppTheme: func(map[string]any) (json.RawMessage, error) {
			return json.RawMessage(`{"theme":"system"}`), nil
		},
		commands.CheckForUpdates: func(map[string]any) (json.RawMessage, error) {
			return json.RawMessage(`{"available":false}`), nil
		},
	}
}
