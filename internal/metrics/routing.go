//go:generate go run golang.org/x/tools/cmd/stringer -type=RoutingPolicy

package metrics

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync/atomic"
)

// RoutingPolicy formalizes how envelopes are distributed when several sinks are configured.
type RoutingPolicy int

// RoutedSinkFactory is a type alias for a unary constructor function that returns a single Sink
// that abstracts delivery among several child Sinks.
type RoutedSinkFactory func([]Sink) Sink

// BroadcastSink delivers every envelope to every child sink.
type BroadcastSink struct {
	sinks []Sink
}

// RoundRobinSink shards envelopes among sinks fairly in round-robin order.
type RoundRobinSink struct {
	sinks []Sink

	// Monotonic counter from which the next round robin index is derived
	rrIdx atomic.Uint64
}

// RandomSink shards envelopes among sinks randomly.
type RandomSink struct {
	sinks []Sink
}

// FailoverSink delivers envelopes in priority order, serially failing over to the next sink(s) in
// the list when the primary fails.
type FailoverSink struct {
	sinks []Sink
}

const (
	// Broadcast sends each envelope to all sinks. Delivery fails if any sink fails.
	Broadcast RoutingPolicy = iota
	// RoundRobin statefully iterates through each sink on every envelope.
	RoundRobin
	// Random selects a sink at random to receive the envelope.
	Random
	// Failover delivers to the first sink that accepts the envelope, in serial order, only
	// failing over to secondary sinks when the primary fails.
	Failover
)

// NewRoutedSink creates a single Sink that delivers to several other Sinks governed by a routing
// policy. A single sink is returned as is. It returns an error if no sinks are specified or if
// the routing policy has no associated factory.
func NewRoutedSink(sinks []Sink, policy RoutingPolicy) (Sink, error) {
	factories := map[RoutingPolicy]RoutedSinkFactory{
		Broadcast:  NewBroadcastSink,
		RoundRobin: NewRoundRobinSink,
		Random:     NewRandomSink,
		Failover:   NewFailoverSink,
	}

	factory, ok := factories[policy]
	if !ok {
		return nil, fmt.Errorf("routing: no factory configured for routing policy: policy=%s", policy)
	}

	switch len(sinks) {
	case 0:
		return nil, fmt.Errorf("routing: no sinks specified")
	case 1:
		return sinks[0], nil
	default:
		return factory(sinks), nil
	}
}

// NewBroadcastSink is a sink factory for the broadcast routing policy.
func NewBroadcastSink(sinks []Sink) Sink {
	return &BroadcastSink{sinks}
}

// Send delivers the envelope to every sink, joining all errors.
func (s *BroadcastSink) Send(ctx context.Context, envelope Envelope) error {
	var errs []error

	for _, sink := range s.sinks {
		if err := sink.Send(ctx, envelope); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// NewRoundRobinSink is a sink factory for the round robin routing policy.
func NewRoundRobinSink(sinks []Sink) Sink {
	return &RoundRobinSink{sinks: sinks}
}

// Send delivers the envelope to the next sink in the round robin index.
func (s *RoundRobinSink) Send(ctx context.Context, envelope Envelope) error {
	idx := (s.rrIdx.Add(1) - 1) % uint64(len(s.sinks))

	return s.sinks[idx].Send(ctx, envelope)
}

// NewRandomSink is a sink factory for the random routing policy.
func NewRandomSink(sinks []Sink) Sink {
	return &RandomSink{sinks}
}

// Send selects a sink at random to receive the envelope.
func (s *RandomSink) Send(ctx context.Context, envelope Envelope) error {
	return s.sinks[rand.Intn(len(s.sinks))].Send(ctx, envelope)
}

// NewFailoverSink is a sink factory for the failover routing policy.
func NewFailoverSink(sinks []Sink) Sink {
	return &FailoverSink{sinks}
}

// Send attempts delivery with sinks in serial order, failing over to the next sink on error.
func (s *FailoverSink) Send(ctx context.Context, envelope Envelope) error {
	var errs []error

	for _, sink := range s.sinks {
		err := sink.Send(ctx, envelope)
		if err == nil {
			return nil
		}

		errs = append(errs, err)
	}

	return fmt.Errorf("routing: all sinks failed to accept envelope: %w", errors.Join(errs...))
}

// ParseRoutingPolicy parses a RoutingPolicy constant from its stringified representation in a
// case-insensitive manner.
func ParseRoutingPolicy(policy string) (RoutingPolicy, bool) {
	knownPolicies := []RoutingPolicy{
		Broadcast,
		RoundRobin,
		Random,
		Failover,
	}

	for _, knownPolicy := range knownPolicies {
		if strings.EqualFold(policy, knownPolicy.String()) {
			return knownPolicy, true
		}
	}

	return Broadcast, false
}
