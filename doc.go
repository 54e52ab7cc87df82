// Package mailauth provides a passwordless email authentication engine:
// a user requests a login link or a short numeric code, receives it
// out-of-band, and exchanges it for a signed, time-bounded identity token.
//
// The package is designed for concurrent server workloads: Engine methods
// are safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// mailauth is the public surface. It exposes [Engine], [Builder],
// [Config], the [UserDirectory] contract, and value types
// (TokenVerification, Notification, MetricsSnapshot). Token signing lives
// in the jwt subpackage; directory adapters live under directory/.
//
// # What this package must NOT do
//
//   - Hold durable state. Every mutable fact (current login code,
//     confirmation flag) lives behind [UserDirectory]; the engine keeps
//     no cache that could desynchronize from the store of record.
//   - Deliver email. The engine produces a verification URL and a login
//     code and hands them to the injected notifier; transport is the
//     caller's problem.
//   - Retry directory calls. Backend failures propagate to the caller
//     unchanged.
package mailauth
