// Package internal groups the packages private to authclient.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher and Sink implementations)
//   - flows: request, refresh exchange, login and logout orchestration
//   - logging: logrus formatter and rotating file output
//   - metrics: lock-free counters and latency histograms
//   - testbackend: in-process fake backend used by tests, the load generator and the example
//
// # What this package must NOT do
//
//   - Export types that appear in the public authclient API.
//   - Be imported by any package outside the authclient module.
package internal
