// Package prometheus renders authclient metrics in Prometheus text exposition format.
//
// [NewPrometheusExporter] accepts a [authclient.Client] and exposes an [http.Handler]
// for a scrape endpoint. Counters are named authclient_*_total; request and refresh
// latency are histograms in seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry. Callers mount the Handler.
//   - Mutate client state.
package prometheus
