// Package metrics provides Prometheus instrumentation for the parsing
// engine: rows and bytes ingested, malformed rows, chunk dispatch counts,
// type promotions, and end-to-end parse latency.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RowsParsed counts rows successfully parsed, labeled by outcome
	// ("ok" or "skipped").
	RowsParsed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tabread",
		Name:      "rows_parsed_total",
		Help:      "Total number of rows parsed",
	}, []string{"outcome"})

	// BytesIngested counts input bytes consumed by workers.
	BytesIngested = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tabread",
		Name:      "bytes_ingested_total",
		Help:      "Total input bytes consumed",
	})

	// ChunksDispatched counts chunks handed to workers.
	ChunksDispatched = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tabread",
		Name:      "chunks_dispatched_total",
		Help:      "Total chunks dispatched to workers",
	})

	// TypePromotions counts column type promotions, labeled by the type
	// promoted to.
	TypePromotions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tabread",
		Name:      "type_promotions_total",
		Help:      "Total column type promotions",
	}, []string{"to"})

	// ParseDuration observes end-to-end parse latency in seconds.
	ParseDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "tabread",
		Name:      "parse_duration_seconds",
		Help:      "End-to-end parse duration",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 16),
	})
)

// Timer measures a single operation's duration.
type Timer struct {
	start time.Time
	obs   prometheus.Observer
}

// NewParseTimer starts a timer feeding the parse duration histogram.
func NewParseTimer() *Timer {
	return &Timer{start: time.Now(), obs: ParseDuration}
}

// Stop records the elapsed time and returns it.
func (t *Timer) Stop() time.Duration {
	d := time.Since(t.start)
	t.obs.Observe(d.Seconds())
	return d
}
