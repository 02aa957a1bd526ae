// Package refresh coordinates access-token renewal so that any number of concurrent
// callers observing an expired token share one refresh exchange.
//
// # Single-flight slot
//
// A [Coordinator] owns one pending-exchange slot. The first caller fills the slot and
// starts the exchange; later callers join it and receive the same outcome. The slot is
// cleared exactly once per exchange, after the new pair has been written to the
// [TokenStore] on success or after the pair has been removed on failure.
//
// # Session generations
//
// [Coordinator.Supersede] marks a session change. An exchange that started before it, or
// whose refresh token was replaced in the store while it ran, settles with
// [ErrSuperseded]: nothing is written, cleared or hooked. Writers that replace the pair
// outside the coordinator use [Coordinator.Exclusive].
//
// # Architecture boundaries
//
// This package owns ordering and fan-out only. The network call is supplied as an
// [Exchanger]; session teardown is supplied as a failure hook.
//
// # What this package must NOT do
//
//   - Import authclient, session, or any HTTP transport.
//   - Retry a failed exchange.
//   - Log token values.
package refresh
