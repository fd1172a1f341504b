package metrics

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/getsentry/raven-go"

	"agentrix/internal/data"
	"agentrix/internal/log"
	"agentrix/internal/session"
)

var (
	// ErrPipelineStarted is returned when Start is called on a pipeline whose worker is already
	// running.
	ErrPipelineStarted = errors.New("pipeline: already started")
	// ErrPipelineStopped is returned when Start is called on a pipeline that was shut down.
	ErrPipelineStopped = errors.New("pipeline: already shut down")
)

// Emitter is implemented by anything that accepts named metric events. Emission never fails from
// the caller's point of view and never blocks on backend I/O.
type Emitter interface {
	// Send emits a metric with the specified name and payload, attributed to the session in
	// effect for ctx.
	Send(ctx context.Context, metricName string, data interface{})
}

// PipelineOpts formalizes configuration options for the delivery pipeline.
type PipelineOpts struct {
	// QueueCapacity is the maximum number of envelopes awaiting delivery. Envelopes emitted while
	// the queue is full are dropped with a warning rather than blocking the producer. Any
	// non-positive value leaves the queue unbounded.
	QueueCapacity int
	// SendTimeout bounds each individual sink call. Any non-positive value disables the bound.
	SendTimeout time.Duration
}

// Stats describes cumulative envelope counts observed by a pipeline.
type Stats struct {
	// Enqueued is the number of envelopes accepted into the queue.
	Enqueued uint64
	// Dropped is the number of envelopes discarded before reaching the sink.
	Dropped uint64
	// Delivered is the number of envelopes accepted by the sink.
	Delivered uint64
	// Failed is the number of envelopes the sink failed to accept.
	Failed uint64
}

// Pipeline decouples metric producers from the backend sink. Any number of goroutines may emit
// concurrently; a single worker goroutine, started with Start and stopped with Shutdown, drains
// the queue in FIFO order and performs every sink call.
type Pipeline struct {
	sink     Sink
	resolver *session.Resolver
	hook     PipelineHook
	logger   log.Logger
	opts     PipelineOpts
	queue    *data.Queue[Envelope]
	clock    func() time.Time
	done     chan struct{}

	// Lifecycle state, protected by mutex
	started bool
	stopped bool
	mutex   sync.Mutex

	enqueued  atomic.Uint64
	dropped   atomic.Uint64
	delivered atomic.Uint64
	failed    atomic.Uint64
}

// NewPipeline creates a pipeline delivering to the specified sink. Session identifiers are
// resolved with resolver, which may be nil to use ambient context identifiers only.
func NewPipeline(sink Sink, resolver *session.Resolver, hook PipelineHook, logger log.Logger, opts PipelineOpts) *Pipeline {
	if hook == nil {
		hook = NewNoopPipelineHook()
	}

	if logger == nil {
		logger = log.NewNoopLogger()
	}

	return &Pipeline{
		sink:     sink,
		resolver: resolver,
		hook:     hook,
		logger:   logger,
		opts:     opts,
		queue:    data.NewQueue[Envelope](opts.QueueCapacity),
		clock:    time.Now,
		done:     make(chan struct{}),
	}
}

// Start launches the delivery worker. A pipeline runs at most one worker over its lifetime.
func (p *Pipeline) Start() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.stopped {
		return ErrPipelineStopped
	}

	if p.started {
		return ErrPipelineStarted
	}

	p.started = true
	go p.work()

	p.logger.Debug(
		"pipeline: started delivery worker: capacity=%d send_timeout=%v",
		p.opts.QueueCapacity,
		p.opts.SendTimeout,
	)

	return nil
}

// Send builds an envelope stamped with the caller's session identifier and the current time, and
// enqueues it for delivery. Envelopes that cannot be enqueued are dropped with a warning.
func (p *Pipeline) Send(ctx context.Context, metricName string, data interface{}) {
	sessionID, _ := p.resolver.Resolve(ctx)

	p.Enqueue(NewEnvelope(sessionID, metricName, data, p.clock()))
}

// Enqueue hands a prebuilt envelope to the worker without blocking.
func (p *Pipeline) Enqueue(envelope Envelope) {
	err := p.queue.Push(envelope)

	switch {
	case err == nil:
		p.enqueued.Add(1)
		p.hook.EmitEnqueued(envelope.MetricName)
	case errors.Is(err, data.ErrQueueFull):
		p.logger.Warn(
			"pipeline: queue at capacity; dropping metric: metric=%s capacity=%d",
			envelope.MetricName,
			p.opts.QueueCapacity,
		)
		p.drop(envelope, DropReasonFull)
	default:
		p.logger.Warn(
			"pipeline: pipeline is shut down; dropping metric: metric=%s",
			envelope.MetricName,
		)
		p.drop(envelope, DropReasonClosed)
	}
}

// Shutdown stops accepting envelopes and waits for the worker to deliver everything enqueued
// before the call. If ctx expires first, envelopes still queued are abandoned and an error
// wrapping the context's error is returned; a sink call already in flight is left to complete on
// its own. Subsequent calls return nil immediately.
func (p *Pipeline) Shutdown(ctx context.Context) error {
	p.mutex.Lock()
	if p.stopped {
		p.mutex.Unlock()
		return nil
	}
	p.stopped = true
	started := p.started
	p.mutex.Unlock()

	p.queue.Close()

	if !started {
		p.abandon()
		close(p.done)
		return nil
	}

	select {
	case <-p.done:
		stats := p.Stats()
		p.logger.Info(
			"pipeline: delivery worker stopped: delivered=%d failed=%d dropped=%d",
			stats.Delivered,
			stats.Failed,
			stats.Dropped,
		)

		return nil
	case <-ctx.Done():
		abandoned := p.abandon()

		return fmt.Errorf(
			"pipeline: worker did not stop before deadline: abandoned=%d: %w",
			abandoned,
			ctx.Err(),
		)
	}
}

// Done returns a channel that is closed once the worker has exited.
func (p *Pipeline) Done() <-chan struct{} {
	return p.done
}

// Stats reads the pipeline's cumulative envelope counts.
func (p *Pipeline) Stats() Stats {
	return Stats{
		Enqueued:  p.enqueued.Load(),
		Dropped:   p.dropped.Load(),
		Delivered: p.delivered.Load(),
		Failed:    p.failed.Load(),
	}
}

// work is the worker loop: it delivers envelopes until the queue is closed and drained.
func (p *Pipeline) work() {
	defer close(p.done)

	for {
		envelope, ok := p.queue.Pop()
		if !ok {
			return
		}

		p.deliver(envelope)
	}
}

// deliver makes exactly one delivery attempt for an envelope. Failures are logged, reported, and
// counted, but never retried.
func (p *Pipeline) deliver(envelope Envelope) {
	ctx := context.Background()
	if p.opts.SendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.SendTimeout)
		defer cancel()
	}

	elapsed := p.stopwatch()

	if err := p.send(ctx, envelope); err != nil {
		p.failed.Add(1)
		p.hook.EmitSinkError(envelope.MetricName)
		p.logger.Error("pipeline: failed to send metric: metric=%s err=%v", envelope.MetricName, err)

		raven.CaptureError(err, map[string]string{
			"metric": envelope.MetricName,
		})

		return
	}

	latency := elapsed()

	p.delivered.Add(1)
	p.hook.EmitDelivered(envelope.MetricName, latency)
	p.logger.Debug(
		"pipeline: delivered metric: metric=%s session=%s latency=%v",
		envelope.MetricName,
		envelope.SessionID,
		latency,
	)
}

// stopwatch starts measuring sink latency on the pipeline's clock, the same clock that stamps
// envelopes.
func (p *Pipeline) stopwatch() func() time.Duration {
	start := p.clock()

	return func() time.Duration {
		return p.clock().Sub(start)
	}
}

// send calls the sink, converting a sink panic into an error so that the worker survives it.
func (p *Pipeline) send(ctx context.Context, envelope Envelope) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pipeline: sink panicked: metric=%s panic=%v", envelope.MetricName, r)
		}
	}()

	return p.sink.Send(ctx, envelope)
}

// abandon discards every envelope still queued, returning how many were discarded.
func (p *Pipeline) abandon() int {
	abandoned := p.queue.Abandon()

	for _, envelope := range abandoned {
		p.drop(envelope, DropReasonAbandoned)
	}

	if len(abandoned) > 0 {
		p.logger.Warn("pipeline: abandoned undelivered metrics: count=%d", len(abandoned))
	}

	return len(abandoned)
}

// drop accounts for an envelope that will never reach the sink.
func (p *Pipeline) drop(envelope Envelope, reason DropReason) {
	p.dropped.Add(1)
	p.hook.EmitDropped(envelope.MetricName, reason)
}
