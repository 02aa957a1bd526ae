// Package flows contains the request orchestrators behind every Client operation.
//
// Each flow function (RunDispatch, RunRefreshExchange, RunLogin, RunLogout) accepts a
// typed dependency struct and returns a result struct carrying either the raw backend
// reply or failure metadata. Normalization into the caller-facing response shape, metrics
// and audit happen in the root package.
//
// # Architecture boundaries
//
// Flow functions coordinate the HTTP doer, the credential store accessors and the refresh
// coordinator. They do NOT own any of these resources; ownership stays with the Client.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import authclient (to avoid import cycles).
//   - Retry anything except the single post-refresh replay.
package flows
