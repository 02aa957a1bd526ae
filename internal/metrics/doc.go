// Package metrics keeps the client's outcome counters and two latency histograms.
//
// Every write is a single atomic add and never allocates. Latency buckets are inclusive
// upper bounds at 5, 10, 25, 50, 100, 250 and 500 milliseconds plus an overflow bucket;
// exporters under metrics/export read them through Snapshot.
//
// The package does no I/O and imports nothing from the rest of the module.
package metrics
