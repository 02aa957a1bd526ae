// Package credential provides durable client-side storage for the access token, refresh
// token, and authenticated user profile.
//
// # Storage model
//
// Three fixed keys hold the credential: access token, refresh token, and the serialized
// profile. A [Backend] applies multi-key writes and removals atomically so the token pair
// is never observed half-written. Backends: [MemoryBackend] (process-local),
// [RedisBackend] (MULTI/EXEC transactions), and [FileBackend] (JSON document replaced by
// rename).
//
// # Architecture boundaries
//
// This package owns persistence and the pair invariant. It does NOT talk to the remote
// API, decide when to refresh, or tear down sessions; those responsibilities belong to the
// refresh coordinator and the root client.
//
// # What this package must NOT do
//
//   - Import authclient, refresh, or session (no upward imports).
//   - Log token values.
//   - Persist one token of the pair without the other.
package credential
