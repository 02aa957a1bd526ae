package prometheus

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/MrEthical07/authclient"
	"github.com/MrEthical07/authclient/metrics/export/internaldefs"
)

const contentType = "text/plain; version=0.0.4; charset=utf-8"

// PrometheusExporter renders client metrics in Prometheus text exposition format.
type PrometheusExporter struct {
	source internaldefs.Source
}

// NewPrometheusExporter creates an exporter that reads from client.
func NewPrometheusExporter(client *authclient.Client) *PrometheusExporter {
	if client == nil {
		return &PrometheusExporter{}
	}
	return &PrometheusExporter{source: client}
}

// NewPrometheusExporterFromSource creates an exporter from any snapshot source. A source
// that also implements internaldefs.PendingSource gets the in-flight refresh gauge.
func NewPrometheusExporterFromSource(source internaldefs.Source) *PrometheusExporter {
	return &PrometheusExporter{source: source}
}

// Handler returns an http.Handler that serves the rendered metrics.
func (p *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write([]byte(p.Render()))
	})
}

// Render returns the current metrics. It returns "" while metrics are disabled and no
// audit event has been dropped.
func (p *PrometheusExporter) Render() string {
	if p == nil || p.source == nil {
		return ""
	}

	snapshot := p.source.MetricsSnapshot()
	dropped := p.source.AuditDropped()
	if len(snapshot.Counters) == 0 && len(snapshot.Histograms) == 0 && dropped == 0 {
		return ""
	}

	w := textWriter{}
	w.b.Grow(4096)

	for _, def := range internaldefs.CounterDefs {
		w.header(def.Name, def.Help, "counter")
		w.sample(def.Name, "", snapshot.Counters[def.ID])
	}
	for _, def := range internaldefs.HistogramDefs {
		w.histogram(def, internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snapshot.Histograms[def.ID])))
	}

	w.header(internaldefs.AuditDroppedName, internaldefs.AuditDroppedHelp, "counter")
	w.sample(internaldefs.AuditDroppedName, "", dropped)

	if ps, ok := p.source.(internaldefs.PendingSource); ok {
		var v uint64
		if ps.RefreshPending() {
			v = 1
		}
		w.header(internaldefs.RefreshInFlightName, internaldefs.RefreshInFlightHelp, "gauge")
		w.sample(internaldefs.RefreshInFlightName, "", v)
	}

	return w.b.String()
}

type textWriter struct {
	b strings.Builder
}

func (w *textWriter) header(name, help, kind string) {
	w.b.WriteString("# HELP " + name + " " + escapeHelp(help) + "\n")
	w.b.WriteString("# TYPE " + name + " " + kind + "\n")
}

func (w *textWriter) sample(name, labels string, value uint64) {
	w.b.WriteString(name)
	if labels != "" {
		w.b.WriteString("{" + labels + "}")
	}
	w.b.WriteByte(' ')
	w.b.WriteString(strconv.FormatUint(value, 10))
	w.b.WriteByte('\n')
}

func (w *textWriter) histogram(def internaldefs.HistogramDef, cumulative [8]uint64) {
	w.header(def.Name, def.Help, "histogram")
	for i, le := range internaldefs.HistogramBounds {
		w.sample(def.Name+"_bucket", `le="`+le+`"`, cumulative[i])
	}
	// snapshots carry bucket counts only, so no _sum series
	w.sample(def.Name+"_count", "", cumulative[len(cumulative)-1])
}

func escapeHelp(help string) string {
	help = strings.ReplaceAll(help, "\\", "\\\\")
	help = strings.ReplaceAll(help, "\n", "\\n")
	return help
}
