package skiplist

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Package-level vectors registered once per process, labeled per Index by
// its configured name.
var (
	upsertsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skiplist_upserts_total",
		Help: "Total number of Upsert calls, labeled by whether they inserted a new key or updated an existing one.",
	}, []string{"index", "kind" /* insert | update */})

	findsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skiplist_finds_total",
		Help: "Total number of Find calls, labeled by result.",
	}, []string{"index", "result" /* hit | miss | prefiltered */})

	towerHeight = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "skiplist_tower_height",
		Help:    "Distribution of tower heights produced by promotion on insert.",
		Buckets: prometheus.LinearBuckets(1, 1, 16),
	}, []string{"index"})

	arenaBlocksInUse = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "skiplist_arena_blocks",
		Help: "Number of node blocks currently allocated by the arena.",
	}, []string{"index"})

	leafEntries = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "skiplist_leaf_entries",
		Help: "Number of keys currently present at the leaf level.",
	}, []string{"index"})
)

// metrics bundles the label-bound collectors for one Index so the hot path
// doesn't re-resolve label values on every call.
type metrics struct {
	insert      prometheus.Counter
	update      prometheus.Counter
	findHit     prometheus.Counter
	findMiss    prometheus.Counter
	findPrefilt prometheus.Counter
	height      prometheus.Observer
	arenaBlocks prometheus.Gauge
	entries     prometheus.Gauge
}

func newMetrics(name string) *metrics {
	return &metrics{
		insert:      upsertsTotal.WithLabelValues(name, "insert"),
		update:      upsertsTotal.WithLabelValues(name, "update"),
		findHit:     findsTotal.WithLabelValues(name, "hit"),
		findMiss:    findsTotal.WithLabelValues(name, "miss"),
		findPrefilt: findsTotal.WithLabelValues(name, "prefiltered"),
		height:      towerHeight.WithLabelValues(name),
		arenaBlocks: arenaBlocksInUse.WithLabelValues(name),
		entries:     leafEntries.WithLabelValues(name),
	}
}
