package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	apiRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "textfill_api_requests_total",
			Help: "Panel messages, generation and export requests served, by route pattern and response code.",
		},
		[]string{"route", "code"},
	)
	apiRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "textfill_api_request_duration_seconds",
			Help:    "Time to answer an API request, by route pattern.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"route"},
	)
	generatedTextsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "textfill_generated_texts_total",
			Help: "Total number of placeholder strings generated, by category.",
		},
		[]string{"category"},
	)
	pluginResultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "textfill_plugin_results_total",
			Help: "Fill and apply results reported to the panel.",
		},
		[]string{"kind", "status", "reason"},
	)
	layersAppliedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "textfill_layers_applied_total",
			Help: "Total number of text layers rewritten or created.",
		},
	)
	fontLoadFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "textfill_font_load_failures_total",
			Help: "Fallback font candidates that failed to load, by family.",
		},
		[]string{"family"},
	)
	rollbacksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "textfill_rollbacks_total",
			Help: "Total number of partially applied operations that were rolled back.",
		},
	)
	sampleExportRowsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "textfill_sample_export_rows_total",
			Help: "Total number of sample rows encoded for export.",
		},
	)
	sampleExportLatencyMs = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "textfill_sample_export_latency_ms",
			Help:    "Sample export latency in milliseconds.",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		},
	)
)

func init() {
	prometheus.MustRegister(
		apiRequestsTotal,
		apiRequestDurationSeconds,
		generatedTextsTotal,
		pluginResultsTotal,
		layersAppliedTotal,
		fontLoadFailuresTotal,
		rollbacksTotal,
		sampleExportRowsTotal,
		sampleExportLatencyMs,
	)
}

func observeRequest(route string, code int, elapsed time.Duration) {
	apiRequestsTotal.WithLabelValues(route, strconv.Itoa(code)).Inc()
	apiRequestDurationSeconds.WithLabelValues(route).Observe(elapsed.Seconds())
}

func ObserveGenerated(category string, count int) {
	if count <= 0 {
		return
	}
	generatedTextsTotal.WithLabelValues(category).Add(float64(count))
}

func ObservePluginResult(kind, status, reason string) {
	pluginResultsTotal.WithLabelValues(kind, status, reason).Inc()
}

func ObserveLayersApplied(count int) {
	if count > 0 {
		layersAppliedTotal.Add(float64(count))
	}
}

func IncrementFontLoadFailure(family string) {
	fontLoadFailuresTotal.WithLabelValues(family).Inc()
}

func IncrementRollback() {
	rollbacksTotal.Inc()
}

func ObserveSampleExport(rows int, elapsed time.Duration) {
	if rows > 0 {
		sampleExportRowsTotal.Add(float64(rows))
	}
	sampleExportLatencyMs.Observe(float64(elapsed.Milliseconds()))
}
