//go:generate go run golang.org/x/tools/cmd/stringer -type=Level -linecomment=true

package log

import (
	"strings"
)

// Level orders log messages by how much of the pipeline's activity they expose.
type Level int

const (
	// Debug traces each envelope: enqueue, delivery, and per-sink latency.
	Debug Level = iota // DEBUG
	// Info covers lifecycle: sinks and hooks configured, worker started and stopped.
	Info // INFO
	// Warn covers lost metrics that are not faults: full queue, emission after shutdown, envelopes
	// abandoned when shutdown runs out of time.
	Warn // WARN
	// Error covers sink failures and anything reported to Sentry.
	Error // ERROR
)

// DefaultLevel is used when no verbosity, or an unknown one, is requested.
const DefaultLevel = Error

// ParseLevel looks up a Level by name, ignoring case and surrounding whitespace. Unknown names
// yield DefaultLevel and false.
func ParseLevel(level string) (Level, bool) {
	level = strings.TrimSpace(level)

	for _, known := range []Level{Debug, Info, Warn, Error} {
		if strings.EqualFold(level, known.String()) {
			return known, true
		}
	}

	return DefaultLevel, false
}

// Enables reports whether a logger configured at l emits messages at other. Levels are ordered
// from most to least verbose, so a Warn logger emits Warn and Error only.
func (l Level) Enables(other Level) bool {
	return l <= other
}
