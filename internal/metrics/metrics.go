// Package metrics exposes the Prometheus counters and histograms the
// history walk and searcher update, replacing the teacher's symbol-graph
// CodebaseStats calculator (which had no ongoing-process metrics concern
// of its own) with process-level instrumentation for this module's
// indexing and query paths.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// CommitsWalked counts commits processed by a history walk, labeled
	// by the outcome of applying that commit's diffs.
	CommitsWalked = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crep",
		Subsystem: "index",
		Name:      "commits_walked_total",
		Help:      "Commits processed during a history walk, by outcome.",
	}, []string{"outcome"})

	// FilesIndexed counts file-diff applications during a walk, labeled
	// by change type (added/modified/deleted/renamed), with an "_error"
	// suffix when applying the diff failed.
	FilesIndexed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crep",
		Subsystem: "index",
		Name:      "files_indexed_total",
		Help:      "File diffs applied during a history walk, by change type.",
	}, []string{"change"})

	// WalkDuration observes the wall-clock time of a full history walk.
	WalkDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "crep",
		Subsystem: "index",
		Name:      "walk_duration_seconds",
		Help:      "Time to walk a repository's full commit history into a GitIndex.",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
	})

	// QueryDuration observes per-query latency, labeled by query mode.
	QueryDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "crep",
		Subsystem: "search",
		Name:      "query_duration_seconds",
		Help:      "Time to answer a search query, by mode.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"mode"})

	// QueryHits observes the number of hits a query returned, labeled by
	// query mode, to distinguish empty-result queries from broad scans.
	QueryHits = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "crep",
		Subsystem: "search",
		Name:      "query_hits",
		Help:      "Number of hits returned per query, by mode.",
		Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100, 250},
	}, []string{"mode"})

	// ShortTokenCacheResults counts short-token global_fst cache lookups
	// by hit/miss outcome.
	ShortTokenCacheResults = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crep",
		Subsystem: "search",
		Name:      "short_token_cache_results_total",
		Help:      "Short-token global_fst cache lookups, by outcome.",
	}, []string{"outcome"})
)

// Registry is the process-wide collector registry. The collectors above
// are registered with it in init; cmd/lci gathers from it. Tests construct their own Searcher/Walk calls without
// ever needing to touch it.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(CommitsWalked, FilesIndexed, WalkDuration, QueryDuration, QueryHits, ShortTokenCacheResults)
}
