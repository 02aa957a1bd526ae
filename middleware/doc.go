// Package middleware adapts the authenticated request pipeline to net/http.
//
// # Transport
//
// [Transport] is an [http.RoundTripper] that attaches the stored bearer token, and on a
// 401 obtains a renewed token from a [Refresher] and replays the request once. Any
// *http.Client built on it gets the same single-flight refresh and retry-once behavior
// as the authclient.Client request methods.
//
// # Architecture boundaries
//
// This package translates HTTP round trips into token reads and refresh calls. It does NOT
// store credentials, run exchanges, or tear down sessions; those stay with the credential
// store, the refresh coordinator, and the client.
//
// # What this package must NOT do
//
//   - Replay a request more than once.
//   - Refresh on requests to the configured skip paths (login, refresh).
//   - Mutate the caller's *http.Request.
package middleware
