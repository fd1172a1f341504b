// Package metrics contains the asynchronous, session-aware delivery pipeline for metric events
// generated throughout the lifetime of the application.
//
// Call sites hand named events with arbitrary payloads to a Pipeline. The pipeline stamps each
// event with the session identifier in effect for the caller and the current wall clock time,
// then enqueues the resulting Envelope without ever waiting on the backend. A single worker
// goroutine drains the queue in FIFO order and forwards each envelope to a Sink, so backend
// latency and failures are isolated from application code. Delivery is best-effort and
// at-most-once: a failed sink call is logged and never retried.
//
// As with the rest of the application, the pipeline's own health is reported through hooks: a
// hook interface defines methods that the pipeline invokes at lifecycle points of every envelope,
// and its implementations (statsd, Prometheus) decide where those observations are output.
package metrics
