// Package session carries the session identifier attached to every emitted metric.
//
// The identifier is ambient state scoped to a call chain: it travels inside a context.Context, so
// each goroutine observes exactly the identifier of the context it was handed. Deriving a context
// with With opens a nested scope; the enclosing context is never mutated, so the outer identifier
// is in effect again as soon as the nested context goes out of use, regardless of how the nested
// code exited.
//
// Environments that tie the session to an external request object rather than to call-chain
// nesting register a Provider on a Resolver, which then supersedes the ambient identifier.
package session
