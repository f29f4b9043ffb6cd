package eventbus

// DeliveryStrategy determines behaviour when a subscriber's channel is full.
type DeliveryStrategy string

const (
	// StrategyDropOldest removes the oldest event from the channel and enqueues the new one.
	StrategyDropOldest DeliveryStrategy = "drop-oldest"
	// StrategyDropNewest discards the incoming event when the channel is full.
	StrategyDropNewest DeliveryStrategy = "drop-newest"
)

// DeliveryPolicy controls how an event handles backpressure.
type DeliveryPolicy struct {
	Strategy DeliveryStrategy
}

// defaultPolicy is used for events without an explicit entry in defaultPolicies.
var defaultPolicy = DeliveryPolicy{Strategy: StrategyDropOldest}

// defaultPolicies maps known events to their delivery policies.
var defaultPolicies = map[Event]DeliveryPolicy{
	// High-volume progress frames tolerate drops; newer frames supersede older ones.
	EventJobProgress: {Strategy: StrategyDropOldest},

	// Informational; a slow subscriber should not displace what it already has.
	EventNotice:  {Strategy: StrategyDropNewest},
	EventMessage: {Strategy: StrategyDropNewest},
}

// policyFor returns the delivery policy for an event, falling back to defaultPolicy.
func policyFor(event Event, overrides map[Event]DeliveryPolicy) DeliveryPolicy {
	if overrides != nil {
		if p, ok := overrides[event]; ok {
			return p
		}
	}
	if p, ok := defaultPolicies[event]; ok {
		return p
	}
	return defaultPolicy
}
