package main

import (
	"fmt"
	"io"
	"slices"
	"time"
)

type runSummary struct {
	elapsed  time.Duration
	samples  []time.Duration
	failures int64
}

// summarize sorts samples in place.
func summarize(elapsed time.Duration, samples []time.Duration, failures int64) runSummary {
	slices.Sort(samples)
	return runSummary{elapsed: elapsed, samples: samples, failures: failures}
}

// quantile uses nearest rank on the sorted samples.
func (r runSummary) quantile(q float64) time.Duration {
	n := len(r.samples)
	if n == 0 {
		return 0
	}
	rank := int(q*float64(n)+0.5) - 1
	return r.samples[min(max(rank, 0), n-1)]
}

func (r runSummary) throughput() float64 {
	if r.elapsed <= 0 {
		return 0
	}
	return float64(len(r.samples)) / r.elapsed.Seconds()
}

func (r runSummary) print(w io.Writer, label string) {
	fmt.Fprintf(w, "%s: ops=%d failures=%d elapsed=%s ops/sec=%.0f",
		label, len(r.samples), r.failures, r.elapsed.Round(time.Millisecond), r.throughput())
	for _, q := range []float64{0.50, 0.95, 0.99} {
		fmt.Fprintf(w, " p%.0f=%s", q*100, r.quantile(q).Round(time.Microsecond))
	}
	fmt.Fprintln(w)
}
