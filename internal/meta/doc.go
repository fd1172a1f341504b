// Package meta contains application-level metadata: the build version and the YAML configuration
// describing the delivery pipeline, its sinks, and the HTTP server.
package meta
