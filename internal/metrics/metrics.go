// Package metrics exposes Prometheus instrumentation for the
// generation pipeline and the build machine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StageRequests counts chat-stage invocations by stage, model and
	// outcome.
	StageRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ideaforge_stage_requests_total",
		Help: "Chat stage invocations by stage, model and outcome.",
	}, []string{"stage", "model", "outcome"})

	// StageDuration tracks end-to-end stage latency in seconds.
	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ideaforge_stage_duration_seconds",
		Help:    "Chat stage latency.",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	}, []string{"stage"})

	// BuildAttempts counts build-machine runs by outcome, including
	// disk-pressure retries.
	BuildAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ideaforge_build_attempts_total",
		Help: "Build machine attempts by outcome.",
	}, []string{"outcome"})

	// BuildStepDuration tracks per-step build latency in seconds.
	BuildStepDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ideaforge_build_step_duration_seconds",
		Help:    "Build machine step latency.",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
	}, []string{"step"})

	// ArchiveBytes tracks the size of uploaded project archives.
	ArchiveBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ideaforge_archive_bytes",
		Help:    "Size of uploaded project archives.",
		Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
	})
)
