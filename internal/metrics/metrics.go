package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "seedvault",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method, path and status code.",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "seedvault",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.3, 0.5, 1, 2, 5},
	}, []string{"method", "path"})

	ReclaimCycles = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "seedvault",
		Name:      "reclaim_cycles_total",
		Help:      "Total number of completed reclaim cycles.",
	})

	ReclaimCycleFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "seedvault",
		Name:      "reclaim_cycle_failures_total",
		Help:      "Total number of reclaim cycles refused or aborted.",
	})

	Evictions = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "seedvault",
		Name:      "evictions_total",
		Help:      "Total number of torrents deleted to reclaim space.",
	})

	EvictionFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "seedvault",
		Name:      "eviction_failures_total",
		Help:      "Total number of failed torrent deletions.",
	})

	BytesReclaimed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "seedvault",
		Name:      "bytes_reclaimed_total",
		Help:      "Total bytes freed by evictions.",
	})

	DiskFreeBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "seedvault",
		Name:      "disk_free_bytes",
		Help:      "Free bytes on the filesystem holding the torrent data dir.",
	})

	PlanItems = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "seedvault",
		Name:      "plan_items",
		Help:      "Number of eviction candidates in the last computed plan.",
	})

	PlanBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "seedvault",
		Name:      "plan_bytes",
		Help:      "Total reclaimable bytes in the last computed plan.",
	})

	PinnedTorrents = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "seedvault",
		Name:      "pinned_torrents",
		Help:      "Number of torrents pinned in the last decision pass.",
	})

	SelectionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "seedvault",
		Name:      "selections_total",
		Help:      "Total candidate selections by strategy.",
	}, []string{"strategy"})
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		ReclaimCycles,
		ReclaimCycleFailures,
		Evictions,
		EvictionFailures,
		BytesReclaimed,
		DiskFreeBytes,
		PlanItems,
		PlanBytes,
		PinnedTorrents,
		SelectionsTotal,
	)
}
