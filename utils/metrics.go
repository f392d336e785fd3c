package utils

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReqCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "app_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	ReqDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "app_request_duration_seconds",
			Help:    "Request duration seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// handler is the endpoint, type the failure class
	ErrorCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "app_errors_total",
			Help: "Total app errors",
		},
		[]string{"handler", "type"},
	)

	// outcome: marked, unmarked, not_found, failed
	ToggleCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "habit_completion_toggles_total",
			Help: "Completion toggles by outcome",
		},
		[]string{"outcome"},
	)

	TxRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "db_transaction_retries_total",
			Help: "Atomic transaction attempts retried after a conflict",
		},
	)

	AssistantReplies = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reflection_assistant_replies_total",
			Help: "Delayed assistant replies appended to the reflection log",
		},
		[]string{"status"},
	)
)
