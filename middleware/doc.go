// Package middleware exposes HTTP middleware adapters for token-only and
// directory-checked authorization built on top of mailauth.Engine.
//
// # Guards
//
//   - [RequireToken] — stateless bearer token verification, no directory call.
//   - [RequireUser] — token verification plus a directory existence check.
//
// Each guard reads the Authorization header, delegates to the engine, and
// injects the resolved user ID into the request context.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement authentication logic itself — all decisions are delegated to
// the engine.
package middleware
