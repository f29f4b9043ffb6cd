// Package eventbus fans backend events out to in-process subscribers.
// One physical transport (the SSE stream or the engine bridge) publishes;
// any number of subscribers listen per event name. Delivery is at-most-once
// per frame per subscriber; there is no buffering or replay for late joiners.
package eventbus

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// PublishCounter observes every envelope the bus accepts, grouped by
// event name. Implementations must be safe for concurrent use.
type PublishCounter interface {
	Record(event Event)
}

// Bus orchestrates event-name-based publish/subscribe messaging.
type Bus struct {
	logger       *log.Logger
	mu           sync.RWMutex
	subscribers  map[Event]map[uint64]*Subscription
	eventBuffers map[Event]int
	policies     map[Event]DeliveryPolicy
	counter      PublishCounter
	nextID       uint64

	published atomic.Uint64
}

// New constructs a bus with default per-event buffer sizes.
func New(opts ...BusOption) *Bus {
	defaults := map[Event]int{
		EventJobProgress:   256,
		EventJobFinished:   64,
		EventMountState:    64,
		EventRemoteChanged: 64,
		EventSettingsSaved: 64,
		EventNotice:        64,
		EventMessage:       64,
		EventStreamState:   16,
	}

	bus := &Bus{
		logger:       log.Default(),
		subscribers:  make(map[Event]map[uint64]*Subscription),
		eventBuffers: defaults,
		policies:     make(map[Event]DeliveryPolicy),
	}

	for _, opt := range opts {
		opt(bus)
	}

	return bus
}

// BusOption customises bus behaviour.
type BusOption func(*Bus)

// WithLogger overrides the logger used for drop warnings.
func WithLogger(logger *log.Logger) BusOption {
	return func(b *Bus) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithEventBuffer sets the default subscription buffer size for an event.
func WithEventBuffer(event Event, size int) BusOption {
	return func(b *Bus) {
		if size <= 0 {
			size = 1
		}
		b.eventBuffers[event] = size
	}
}

// SetCounter attaches a per-event publish counter. Pass nil to detach.
func (b *Bus) SetCounter(c PublishCounter) {
	if b == nil {
		return
	}
	b.mu.Lock()
	b.counter = c
	b.mu.Unlock()
}

// WithEventPolicy overrides the delivery policy for a specific event.
func WithEventPolicy(event Event, policy DeliveryPolicy) BusOption {
	return func(b *Bus) {
		b.policies[event] = policy
	}
}

// Publish sends the envelope to all subscribers of the event.
// If b is nil the call is a no-op.
func (b *Bus) Publish(ctx context.Context, env Envelope) {
	if b == nil || env.Event == "" {
		return
	}
	if env.Timestamp.IsZero() {
		env.Timestamp = time.Now().UTC()
	}
	if env.Source == "" {
		env.Source = SourceUnknown
	}
	b.published.Add(1)

	b.mu.RLock()
	if b.counter != nil {
		b.counter.Record(env.Event)
	}
	subs := b.subscribers[env.Event]
	for _, sub := range subs {
		sub.deliver(ctx, env, b.logger)
	}
	b.mu.RUnlock()
}

// Published returns the total number of envelopes accepted by the bus.
func (b *Bus) Published() uint64 {
	if b == nil {
		return 0
	}
	return b.published.Load()
}

// Subscribe registers a subscriber for the given event name.
// If b is nil the returned Subscription has a closed channel and Close is a no-op.
func (b *Bus) Subscribe(event Event, opts ...SubscriptionOption) *Subscription {
	if b == nil {
		ch := make(chan Envelope)
		close(ch)
		done := make(chan struct{})
		close(done)
		sub := &Subscription{ch: ch, done: done}
		sub.closed.Store(true)
		return sub
	}

	cfg := subscriptionConfig{
		bufferSize: b.eventBuffers[event],
	}
	if cfg.bufferSize <= 0 {
		cfg.bufferSize = 1
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	id := atomic.AddUint64(&b.nextID, 1)
	sub := &Subscription{
		event:  event,
		id:     id,
		name:   cfg.name,
		ch:     make(chan Envelope, cfg.bufferSize),
		done:   make(chan struct{}),
		bus:    b,
		policy: policyFor(event, b.policies),
	}

	b.mu.Lock()
	if _, exists := b.subscribers[event]; !exists {
		b.subscribers[event] = make(map[uint64]*Subscription)
	}
	b.subscribers[event][id] = sub
	b.mu.Unlock()

	if cfg.ctx != nil {
		go func() {
			select {
			case <-cfg.ctx.Done():
				sub.Close()
			case <-sub.done:
			}
		}()
	}

	return sub
}

// Shutdown closes all subscriptions and empties routing tables.
// If b is nil the call is a no-op.
func (b *Bus) Shutdown() {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	for event, subs := range b.subscribers {
		for id, sub := range subs {
			sub.closeLocked()
			delete(subs, id)
		}
		delete(b.subscribers, event)
	}
}

// SubscriptionOption customises individual subscriptions.
type SubscriptionOption func(*subscriptionConfig)

type subscriptionConfig struct {
	bufferSize int
	name       string
	ctx        context.Context
}

// WithSubscriptionBuffer overrides the channel buffer for a subscription.
func WithSubscriptionBuffer(size int) SubscriptionOption {
	return func(cfg *subscriptionConfig) {
		if size > 0 {
			cfg.bufferSize = size
		}
	}
}

// WithSubscriptionName records a human friendly identifier used in logs.
func WithSubscriptionName(name string) SubscriptionOption {
	return func(cfg *subscriptionConfig) {
		cfg.name = name
	}
}

// WithContext ties the subscription lifecycle to a context.
// When the context is cancelled the subscription is automatically closed.
// A nil context is ignored.
func WithContext(ctx context.Context) SubscriptionOption {
	return func(cfg *subscriptionConfig) {
		if ctx != nil {
			cfg.ctx = ctx
		}
	}
}

// Subscription represents a consumer listening to one event name.
type Subscription struct {
	event Event
	id    uint64
	name  string
	ch    chan Envelope
	done  chan struct{} // closed when the subscription is closed

	bus     *Bus
	closed  atomic.Bool
	dropped atomic.Uint64
	policy  DeliveryPolicy
}

// C exposes the event channel.
func (s *Subscription) C() <-chan Envelope {
	return s.ch
}

// Event returns the event name this subscription listens to.
func (s *Subscription) Event() Event {
	return s.event
}

// Dropped returns how many envelopes were discarded for this subscription.
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}

// Close removes the subscription and closes the channel.
func (s *Subscription) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	close(s.done)

	if s.bus == nil {
		close(s.ch)
		return
	}

	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()

	if subs, ok := s.bus.subscribers[s.event]; ok {
		delete(subs, s.id)
	}
	close(s.ch)
}

func (s *Subscription) closeLocked() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	close(s.done)
	close(s.ch)
}

func (s *Subscription) deliver(ctx context.Context, env Envelope, logger *log.Logger) {
	if s.closed.Load() {
		return
	}

	select {
	case <-ctx.Done():
		return
	default:
	}

	// Fast path: non-blocking send.
	select {
	case s.ch <- env:
		return
	default:
	}

	// Channel full, apply policy.
	switch s.policy.Strategy {
	case StrategyDropNewest:
		s.recordDrop(logger, "drop-newest")
	default: // StrategyDropOldest
		s.dropOldestAndEnqueue(env, logger)
	}
}

func (s *Subscription) dropOldestAndEnqueue(env Envelope, logger *log.Logger) {
	select {
	case <-s.ch:
		s.recordDrop(logger, "drop-oldest")
	default:
	}

	select {
	case s.ch <- env:
	default:
		s.recordDrop(logger, "drop-current")
	}
}

func (s *Subscription) recordDrop(logger *log.Logger, reason string) {
	count := s.dropped.Add(1)
	if logger != nil {
		name := s.name
		if name == "" {
			name = "subscription"
		}
		logger.Printf("[eventbus] dropped event #%d for %s on %s (%s)", count, name, s.event, reason)
	}
}
