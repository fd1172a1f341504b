// Package data contains generic, concurrency-safe data structures used by the metrics pipeline.
package data
