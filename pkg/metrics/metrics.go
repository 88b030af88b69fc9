// Package metrics 提供 Prometheus 指标采集功能
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "tattoo_ai"
)

var (
	// HTTP 请求指标
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	HTTPResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "response_size_bytes",
			Help:      "HTTP response size in bytes",
			Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
		},
		[]string{"method", "path"},
	)

	// 业务指标 - 提示词增强
	PromptEnhanceTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "prompt",
			Name:      "enhance_total",
			Help:      "Total number of prompt enhancements",
		},
		[]string{"status"},
	)

	PromptEnhanceConfidence = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "prompt",
			Name:      "enhance_confidence",
			Help:      "Confidence score of enhanced prompts",
			Buckets:   []float64{0, 60, 65, 70, 75, 80, 85, 90, 95},
		},
	)

	PromptStageApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "prompt",
			Name:      "stage_applied_total",
			Help:      "Total number of enhancement stages that changed the prompt",
		},
		[]string{"stage"},
	)

	PromptStageFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "prompt",
			Name:      "stage_failed_total",
			Help:      "Total number of enhancement stages that failed",
		},
		[]string{"stage"},
	)

	// 风格迁移指标
	StyleTransferTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "style",
			Name:      "transfer_total",
			Help:      "Total number of style transfers",
		},
		[]string{"outcome"}, // outcome: rule/fallback/rejected
	)

	// 模型推荐指标
	ModelRecommendationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "model",
			Name:      "recommendation_total",
			Help:      "Total number of model recommendations by chosen backend",
		},
		[]string{"backend"},
	)

	// 记录持久化指标
	RecordPersistTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "record",
			Name:      "persist_total",
			Help:      "Total number of prompt record persist attempts",
		},
		[]string{"status"},
	)

	RecordPurgedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "record",
			Name:      "purged_total",
			Help:      "Total number of prompt records removed by retention",
		},
	)

	// 规则表指标
	CatalogReloadTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "reload_total",
			Help:      "Total number of rule table reloads",
		},
		[]string{"status"},
	)

	// 队列指标
	RedisStreamProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "redis",
			Name:      "stream_processed_total",
			Help:      "Total number of Redis stream messages processed",
		},
		[]string{"stream", "status"},
	)

	RedisStreamDLQLength = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "redis",
			Name:      "stream_dlq_length",
			Help:      "Number of entries in the dead letter stream",
		},
		[]string{"stream"},
	)
)
