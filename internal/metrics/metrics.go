// Package metrics exposes Prometheus collectors for harvest runs.
package metrics

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fetchesTotal       *prometheus.CounterVec
	fetchBytesTotal    *prometheus.CounterVec
	recordsTotal       *prometheus.CounterVec
	savesTotal         *prometheus.CounterVec
	pacingDelaySeconds *prometheus.HistogramVec
	runDurationSeconds *prometheus.GaugeVec

	once sync.Once
)

// Init initializes the Prometheus collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		fetchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_fetches_total",
				Help: "Total number of HTTP fetches, labeled by source and status.",
			},
			[]string{"source", "status"},
		)

		fetchBytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_fetch_bytes_total",
				Help: "Total number of response bytes fetched, labeled by source.",
			},
			[]string{"source"},
		)

		recordsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_records_total",
				Help: "Total number of records extracted, labeled by source.",
			},
			[]string{"source"},
		)

		savesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_saves_total",
				Help: "Total number of corpus writes, labeled by status.",
			},
			[]string{"status"},
		)

		pacingDelaySeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "harvester_pacing_delay_seconds",
				Help:    "Histogram of time spent waiting between requests.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
			},
			[]string{"host"},
		)

		runDurationSeconds = promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "harvester_run_duration_seconds",
				Help: "Wall-clock duration of the last run, labeled by source.",
			},
			[]string{"source"},
		)
	})
}

// Host extracts a lowercase hostname from a URL, or "unknown".
func Host(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// ObserveFetch counts one fetch and the bytes it returned.
func ObserveFetch(source, status string, bytesFetched int) {
	Init()
	fetchesTotal.WithLabelValues(source, status).Inc()
	if bytesFetched > 0 {
		fetchBytesTotal.WithLabelValues(source).Add(float64(bytesFetched))
	}
}

// ObserveRecords adds n extracted records for source.
func ObserveRecords(source string, n int) {
	Init()
	if n > 0 {
		recordsTotal.WithLabelValues(source).Add(float64(n))
	}
}

// ObserveSave counts a corpus write with status "ok" or "error".
func ObserveSave(status string) {
	Init()
	savesTotal.WithLabelValues(status).Inc()
}

// ObservePacingDelay records the duration of a pacing wait.
func ObservePacingDelay(host string, duration time.Duration) {
	Init()
	pacingDelaySeconds.WithLabelValues(host).Observe(duration.Seconds())
}

// ObserveRun records how long a run for source took.
func ObserveRun(source string, duration time.Duration) {
	Init()
	runDurationSeconds.WithLabelValues(source).Set(duration.Seconds())
}

// WriteTextfile dumps the default registry in the text exposition format,
// suitable for the node_exporter textfile collector.
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	Init()
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
