package metrics

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// recordingSink captures every envelope it is handed, in delivery order.
type recordingSink struct {
	envelopes []Envelope
	err       error
	gate      chan struct{}
	mutex     sync.Mutex
}

func (s *recordingSink) Send(ctx context.Context, envelope Envelope) error {
	if s.gate != nil {
		<-s.gate
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.envelopes = append(s.envelopes, envelope)

	return s.err
}

func (s *recordingSink) received() []Envelope {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return append([]Envelope(nil), s.envelopes...)
}

func (s *recordingSink) names() []string {
	var names []string
	for _, envelope := range s.received() {
		names = append(names, envelope.MetricName)
	}

	return names
}

// countingHook tallies hook emissions.
type countingHook struct {
	enqueued  int
	dropped   map[DropReason]int
	delivered int
	latencies []time.Duration
	failed    int
	mutex     sync.Mutex
}

func newCountingHook() *countingHook {
	return &countingHook{dropped: make(map[DropReason]int)}
}

func (h *countingHook) EmitEnqueued(metric string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.enqueued++
}

func (h *countingHook) EmitDropped(metric string, reason DropReason) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.dropped[reason]++
}

func (h *countingHook) EmitDelivered(metric string, latency time.Duration) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.delivered++
	h.latencies = append(h.latencies, latency)
}

func (h *countingHook) EmitSinkError(metric string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.failed++
}

func (h *countingHook) droppedFor(reason DropReason) int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return h.dropped[reason]
}

// steppingClock advances by a fixed step on every reading.
type steppingClock struct {
	start time.Time
	step  time.Duration
	ticks atomic.Int64
}

func (c *steppingClock) now() time.Time {
	return c.start.Add(time.Duration(c.ticks.Add(1)) * c.step)
}
