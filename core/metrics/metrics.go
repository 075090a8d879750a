// Package metrics owns the prometheus registry for the runtime.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"latke.GO/core/stopwatch"
)

const namespace = "latke"

var (
	// Registry is served at /metrics by the host.
	Registry = prometheus.NewRegistry()

	BootstrapPhaseSeconds = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "bootstrap_phase_seconds",
		Help:      "Duration of each timed bootstrap phase of the last context start.",
	}, []string{"phase"})

	RequestsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "requests_in_flight",
		Help:      "Requests currently between request start and request end.",
	})

	DataHandlesDisposed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "data_handles_disposed_total",
		Help:      "Request-end data handle disposals.",
	})

	SessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sessions_active",
		Help:      "Sessions created and not yet destroyed.",
	})

	JobRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "job_runs_total",
		Help:      "Background job executions by outcome.",
	}, []string{"job", "outcome"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		BootstrapPhaseSeconds,
		RequestsInFlight,
		DataHandlesDisposed,
		SessionsActive,
		JobRuns,
	)
}

// Handler returns the /metrics handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// ObserveBootstrap exports every recorded frame, nested ones included,
// as a phase gauge.
func ObserveBootstrap(frames []stopwatch.Frame) {
	for i := range frames {
		observeFrame(&frames[i])
	}
}

func observeFrame(f *stopwatch.Frame) {
	BootstrapPhaseSeconds.WithLabelValues(f.Name).Set(f.Elapsed.Seconds())
	for _, c := range f.Children {
		observeFrame(c)
	}
}
