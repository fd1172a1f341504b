// Package server exposes an instrumented chat endpoint over HTTP. Requests are attributed to a
// conversation through the Conversation-ID header, and every response body is recorded as
// displayed output.
package server
