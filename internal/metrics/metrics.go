// Package metrics provides Prometheus instrumentation for the prepare and
// run phases, trimmed from a server-oriented metrics surface (the teacher
// exposes these over HTTP; adcube has no server, so metrics are gathered
// in-process instead). cmd/prepare dumps them to text at the end of the
// prepare phase; cmd/run does not write a dump.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BuildCubeDuration records wall-clock time spent building cubes
	// during prepare, labeled by cube. cmd/prepare observes the whole
	// family's build once, under the label "family".
	BuildCubeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "adcube_build_cube_duration_seconds",
			Help:    "Duration of cube building during prepare",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"cube"},
	)

	// RowsFolded counts raw event rows folded into batch partials,
	// labeled by cube name.
	RowsFolded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adcube_rows_folded_total",
			Help: "Total raw rows folded into a cube's accumulator",
		},
		[]string{"cube"},
	)

	// CubeKeyCount is a gauge of the final distinct-tuple count for each
	// cube, set once at the end of prepare.
	CubeKeyCount = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "adcube_cube_key_count",
			Help: "Distinct dimension tuples stored in a finalized cube",
		},
		[]string{"cube"},
	)

	// QueryDuration records end-to-end query execution time, labeled by
	// the route taken: a cube name or "fallback".
	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "adcube_query_duration_seconds",
			Help:    "Duration of a single query's routing+execution",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	// QueryErrors counts per-query failures by error kind.
	QueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adcube_query_errors_total",
			Help: "Total per-query failures, labeled by error kind",
		},
		[]string{"kind"},
	)
)

// Timer returns a function that, when called, observes the elapsed time
// since Timer was invoked into the given histogram vec under labels.
func Timer(h *prometheus.HistogramVec, labels ...string) func() {
	start := time.Now()
	return func() {
		h.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
	}
}

// Gather renders all registered metric families as text, one family per
// line in the protobuf text form of MetricFamily.String(), for dumping to
// a file at the end of a phase. The output is not the Prometheus text
// exposition format.
func Gather() (string, error) {
	mfs, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return "", err
	}
	var out []byte
	for _, mf := range mfs {
		out = append(out, []byte(mf.String())...)
		out = append(out, '\n')
	}
	return string(out), nil
}
