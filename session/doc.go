// Package session ends an authenticated session when the credential can no longer be
// renewed.
//
// # Teardown
//
// A [Teardown] clears every stored credential entry on each run. The first run after
// [Teardown.Arm] also emits one user-facing [Notice] and schedules one navigation to the
// login location. Later runs only clear, so concurrent failures collapse into a single
// notice and a single redirect.
//
// # What this package must NOT do
//
//   - Perform HTTP calls or token refreshes.
//   - Return errors to callers; clear failures are logged.
package session
