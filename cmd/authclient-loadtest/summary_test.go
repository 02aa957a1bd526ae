package main

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestSummaryQuantiles(t *testing.T) {
	var samples []time.Duration
	for i := 100; i >= 1; i-- {
		samples = append(samples, time.Duration(i)*time.Millisecond)
	}
	s := summarize(time.Second, samples, 3)

	if got := s.quantile(0.50); got != 50*time.Millisecond {
		t.Fatalf("p50 = %s", got)
	}
	if got := s.quantile(0.99); got != 99*time.Millisecond {
		t.Fatalf("p99 = %s", got)
	}
	if got := s.throughput(); got != 100 {
		t.Fatalf("throughput = %v", got)
	}

	var buf bytes.Buffer
	s.print(&buf, "requests")
	if !strings.Contains(buf.String(), "ops=100 failures=3") || !strings.Contains(buf.String(), "p95=95ms") {
		t.Fatalf("unexpected summary line %q", buf.String())
	}
}

func TestSummaryEmpty(t *testing.T) {
	s := summarize(0, nil, 0)
	if s.quantile(0.5) != 0 || s.throughput() != 0 {
		t.Fatalf("empty summary should report zeros")
	}
}
