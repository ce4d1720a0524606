package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("github.com/emrgen/exploration/internal/service")

var (
	commitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "exploration",
		Name:      "commits_total",
		Help:      "Committed versions by commit type.",
	}, []string{"type"})

	staleCommitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "exploration",
		Name:      "stale_commits_total",
		Help:      "Commits rejected because the live version moved on.",
	})

	sinkFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "exploration",
		Name:      "sink_failures_total",
		Help:      "Failed best-effort updates after a commit.",
	}, []string{"sink"})

	commitDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "exploration",
		Name:      "commit_duration_seconds",
		Help:      "Time spent persisting a commit.",
		Buckets:   prometheus.DefBuckets,
	})
)
