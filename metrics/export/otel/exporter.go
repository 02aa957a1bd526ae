package otel

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/authclient"
	"github.com/MrEthical07/authclient/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

// OTelExporter observes a client's snapshot on every collection. It holds the callback
// registration until Close.
type OTelExporter struct {
	registration metric.Registration
}

// NewOTelExporter registers instruments on meter that observe client.
func NewOTelExporter(meter metric.Meter, client *authclient.Client) (*OTelExporter, error) {
	if client == nil {
		return nil, ErrNilSource
	}
	return NewOTelExporterFromSource(meter, client)
}

// NewOTelExporterFromSource is NewOTelExporter for any snapshot source.
func NewOTelExporterFromSource(meter metric.Meter, source internaldefs.Source) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	set, err := newInstrumentSet(meter, source)
	if err != nil {
		return nil, err
	}
	registration, err := meter.RegisterCallback(set.observe, set.observables...)
	if err != nil {
		return nil, fmt.Errorf("otel: register callback: %w", err)
	}
	return &OTelExporter{registration: registration}, nil
}

// Close unregisters the callback. It is safe on a nil exporter.
func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}

type latencyInstruments struct {
	id      authclient.MetricID
	buckets [8]metric.Int64ObservableGauge
	count   metric.Int64ObservableGauge
}

// instrumentSet binds every exported series to its instrument.
type instrumentSet struct {
	source      internaldefs.Source
	pending     internaldefs.PendingSource
	counters    map[authclient.MetricID]metric.Int64ObservableCounter
	latencies   []latencyInstruments
	dropped     metric.Int64ObservableCounter
	inFlight    metric.Int64ObservableGauge
	observables []metric.Observable
}

func newInstrumentSet(meter metric.Meter, source internaldefs.Source) (*instrumentSet, error) {
	s := &instrumentSet{
		source:   source,
		counters: make(map[authclient.MetricID]metric.Int64ObservableCounter, len(internaldefs.CounterDefs)),
	}

	for _, def := range internaldefs.CounterDefs {
		c, err := s.counter(meter, def.Name, def.Help)
		if err != nil {
			return nil, err
		}
		s.counters[def.ID] = c
	}

	for _, def := range internaldefs.HistogramDefs {
		l := latencyInstruments{id: def.ID}
		for i, suffix := range internaldefs.HistogramBoundSuffix {
			g, err := s.gauge(meter, def.Name+"_bucket_le_"+suffix, "Cumulative count of "+def.Help)
			if err != nil {
				return nil, err
			}
			l.buckets[i] = g
		}
		g, err := s.gauge(meter, def.Name+"_count", "Sample count of "+def.Help)
		if err != nil {
			return nil, err
		}
		l.count = g
		s.latencies = append(s.latencies, l)
	}

	var err error
	if s.dropped, err = s.counter(meter, internaldefs.AuditDroppedName, internaldefs.AuditDroppedHelp); err != nil {
		return nil, err
	}
	if ps, ok := source.(internaldefs.PendingSource); ok {
		s.pending = ps
		if s.inFlight, err = s.gauge(meter, internaldefs.RefreshInFlightName, internaldefs.RefreshInFlightHelp); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *instrumentSet) counter(meter metric.Meter, name, help string) (metric.Int64ObservableCounter, error) {
	c, err := meter.Int64ObservableCounter(name, metric.WithDescription(help))
	if err != nil {
		return nil, fmt.Errorf("otel: counter %s: %w", name, err)
	}
	s.observables = append(s.observables, c)
	return c, nil
}

func (s *instrumentSet) gauge(meter metric.Meter, name, help string) (metric.Int64ObservableGauge, error) {
	g, err := meter.Int64ObservableGauge(name, metric.WithDescription(help))
	if err != nil {
		return nil, fmt.Errorf("otel: gauge %s: %w", name, err)
	}
	s.observables = append(s.observables, g)
	return g, nil
}

func (s *instrumentSet) observe(_ context.Context, o metric.Observer) error {
	snapshot := s.source.MetricsSnapshot()
	for id, c := range s.counters {
		o.ObserveInt64(c, int64(snapshot.Counters[id]))
	}
	for _, l := range s.latencies {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snapshot.Histograms[l.id]))
		for i, g := range l.buckets {
			o.ObserveInt64(g, int64(cumulative[i]))
		}
		o.ObserveInt64(l.count, int64(cumulative[len(cumulative)-1]))
	}
	o.ObserveInt64(s.dropped, int64(s.source.AuditDropped()))
	if s.pending != nil {
		var v int64
		if s.pending.RefreshPending() {
			v = 1
		}
		o.ObserveInt64(s.inFlight, v)
	}
	return nil
}
