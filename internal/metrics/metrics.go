package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the pipeline counters exposed on /metrics.
type Registry struct {
	reg            *prometheus.Registry
	RecordsTotal   prometheus.Counter
	RejectedTotal  *prometheus.CounterVec
	LookupFailures *prometheus.CounterVec
	RunsTotal      prometheus.Counter
	RunDuration    prometheus.Histogram
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	records := prometheus.NewCounter(prometheus.CounterOpts{Name: "salespipe_records_total"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "salespipe_rejected_total"}, []string{"reason"})
	lookupFailures := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "salespipe_lookup_failures_total"}, []string{"kind"})
	runs := prometheus.NewCounter(prometheus.CounterOpts{Name: "salespipe_runs_total"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "salespipe_run_duration_seconds",
		Buckets: prometheus.DefBuckets,
	})

	r.MustRegister(records, rejected, lookupFailures, runs, duration)
	return &Registry{
		reg:            r,
		RecordsTotal:   records,
		RejectedTotal:  rejected,
		LookupFailures: lookupFailures,
		RunsTotal:      runs,
		RunDuration:    duration,
	}
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }
