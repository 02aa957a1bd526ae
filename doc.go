// Package authclient provides an authenticated HTTP client for a JSON backend: bearer
// attachment, transparent single-flight token refresh with retry-once replay, durable
// credential storage and one-time session teardown.
//
// The package is designed for concurrent use: Client methods are safe to call from
// multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// authclient is the public surface. It exposes [Client], [Builder], [Config], and value
// types ([Response], [UploadFile], [LoginRequest], MetricsSnapshot). Request orchestration
// lives under internal/flows; credential persistence, refresh coordination and teardown
// live in the credential, refresh and session packages.
//
// # What this package must NOT do
//
//   - Return Go errors for HTTP-level failures; every request yields a [Response].
//   - Log or audit token values.
//   - Replay a request more than once.
//
// # Performance contract
//
// A request whose token is accepted costs one credential read and one round-trip. A 401
// adds one refresh exchange shared with every concurrent caller, one credential write
// and one replay.
package authclient
