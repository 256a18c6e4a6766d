package main

import "github.com/prometheus/client_golang/prometheus"

// Local-process counters only: xray is a one-shot CLI, so no HTTP exporter is
// wired. The import and query commands update them; nothing in the process
// reads them back, and the end-of-run klog summaries are built from the
// command results instead.

func init() {
	prometheus.MustRegister(metrics_documentsImported)
	prometheus.MustRegister(metrics_documentsDropped)
	prometheus.MustRegister(metrics_shardsWritten)
	prometheus.MustRegister(metrics_queryDuration)
}

var metrics_documentsImported = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "documents_imported",
		Help: "Documents assigned an id and indexed",
	},
)

var metrics_documentsDropped = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "documents_dropped",
		Help: "Documents dropped for language or body-length reasons",
	},
)

var metrics_shardsWritten = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "shards_written",
		Help: "Shard files written, by kind",
	},
	[]string{"kind"},
)

var metrics_queryDuration = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name: "query_duration_seconds",
		Help: "Query execution time",
	},
)
