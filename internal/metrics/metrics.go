// Package metrics records report store activity as Prometheus collectors.
//
// A nil *Recorder is valid and records nothing, so components take one as an
// optional dependency.
package metrics

import (
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "epcr"

// Operation outcomes.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Recorder holds the report store collectors.
type Recorder struct {
	operations       *prometheus.CounterVec
	duration         *prometheus.HistogramVec
	cacheReports     prometheus.Gauge
	snapshotFailures prometheus.Counter
}

// NewRecorder creates the collectors and registers them on reg.
// A nil reg leaves them unregistered.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_operations_total",
			Help:      "Report manager operations by operation and outcome.",
		}, []string{"op", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_operation_duration_seconds",
			Help:      "Time spent in report manager operations, including the medium call.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"op"}),
		cacheReports: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cache_reports",
			Help:      "Reports currently held in the manager cache.",
		}),
		snapshotFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_write_failures_total",
			Help:      "Cache snapshot writes that failed.",
		}),
	}

	if reg != nil {
		reg.MustRegister(r.operations, r.duration, r.cacheReports, r.snapshotFailures)
	}
	return r
}

// Observe records one finished operation.
func (r *Recorder) Observe(op string, start time.Time, err error) {
	if r == nil {
		return
	}
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	r.operations.WithLabelValues(op, outcome).Inc()
	r.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// SetCacheSize records the number of cached reports.
func (r *Recorder) SetCacheSize(n int) {
	if r == nil {
		return
	}
	r.cacheReports.Set(float64(n))
}

// SnapshotFailed counts a failed snapshot write.
func (r *Recorder) SnapshotFailed() {
	if r == nil {
		return
	}
	r.snapshotFailures.Inc()
}

// Summary flattens the counters and gauges gathered from g into
// "name{labels}" -> value, for log lines. Histograms are skipped.
func Summary(g prometheus.Gatherer) (map[string]float64, error) {
	families, err := g.Gather()
	if err != nil {
		return nil, err
	}

	out := map[string]float64{}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			key := mf.GetName()
			var labels []string
			for _, lp := range m.GetLabel() {
				labels = append(labels, lp.GetName()+"="+lp.GetValue())
			}
			if len(labels) > 0 {
				sort.Strings(labels)
				key += "{" + strings.Join(labels, ",") + "}"
			}

			switch {
			case m.GetCounter() != nil:
				out[key] = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				out[key] = m.GetGauge().GetValue()
			}
		}
	}
	return out, nil
}
