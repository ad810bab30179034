package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Scans = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "campusattend", Name: "scans_total", Help: "Processed scans by resulting action",
	}, []string{"action"})
	ScanConflicts = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "campusattend", Name: "scan_conflicts_total", Help: "Open-record write conflicts (before retry)",
	})
	RecordEdits = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "campusattend", Name: "record_edits_total", Help: "Administrative record updates and soft deletes",
	})
	StatsDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "campusattend", Name: "stats_duration_seconds", Help: "Event stats computation latency",
		Buckets: prometheus.DefBuckets,
	})
	AggregatePages = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "campusattend", Name: "aggregate_pages", Help: "Store pages fetched per aggregation",
		Buckets: []float64{1, 2, 3, 5, 8, 13, 21},
	})
)

func init() {
	prometheus.MustRegister(Scans, ScanConflicts, RecordEdits, StatsDuration, AggregatePages)
}

func Handler() http.Handler { return promhttp.Handler() }

func ObserveStats(d time.Duration) { StatsDuration.Observe(d.Seconds()) }
