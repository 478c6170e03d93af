// Package metrics 提供 saturn-risk 服务的 Prometheus 监控指标
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "saturn_risk"

// 规则评估指标
var (
	// EvaluationsTotal 规则评估请求总数
	EvaluationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "规则评估请求总数",
		},
	)

	// EvaluationDuration 单次评估耗时
	EvaluationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "evaluation_duration_seconds",
			Help:      "单次规则评估耗时(秒)",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
	)

	// EvaluationErrors 单条规则评估失败数
	EvaluationErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluation_errors_total",
			Help:      "单条规则评估失败总数",
		},
	)

	// RuleViolations 规则违规总数
	RuleViolations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rule_violations_total",
			Help:      "规则违规总数",
		},
		[]string{"rule_type"}, // THRESHOLD/TREND/CORRELATION/ANOMALY
	)

	// ActiveRulesGauge 当前活跃规则数
	ActiveRulesGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_rules_total",
			Help:      "当前活跃规则数",
		},
	)
)

// 告警与事件指标
var (
	// AlertsCreated 创建的告警总数
	AlertsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_created_total",
			Help:      "创建的告警总数",
		},
		[]string{"severity"}, // LOW/MEDIUM/HIGH/CRITICAL
	)

	// AlertTransitions 告警状态变更总数
	AlertTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alert_transitions_total",
			Help:      "告警状态变更总数",
		},
		[]string{"to_status"}, // ACKNOWLEDGED/RESOLVED/DISMISSED
	)

	// EventsCreated 创建的风险事件总数
	EventsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_created_total",
			Help:      "创建的风险事件总数",
		},
		[]string{"type"},
	)

	// EventsCleanedUp 保留期清理删除的事件总数
	EventsCleanedUp = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_cleaned_up_total",
			Help:      "保留期清理删除的事件总数",
		},
	)
)

// HTTP 服务指标
var (
	// HTTPRequestsTotal HTTP 请求总数
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP 请求总数",
		},
		[]string{"method", "path", "code"},
	)

	// HTTPRequestDuration HTTP 请求耗时
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP 请求耗时(秒)",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"method", "path"},
	)
)

// Kafka 生产指标
var (
	// KafkaMessagesProduced Kafka 生产消息数
	KafkaMessagesProduced = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_messages_produced_total",
			Help:      "Kafka 生产消息总数",
		},
		[]string{"topic"},
	)

	// KafkaProduceErrors Kafka 生产失败数
	KafkaProduceErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_produce_errors_total",
			Help:      "Kafka 生产失败总数",
		},
		[]string{"topic"},
	)
)

// RecordHTTPRequest 记录 HTTP 请求
func RecordHTTPRequest(method, path, code string, durationSeconds float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, code).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(durationSeconds)
}

// RecordKafkaProduce 记录 Kafka 生产结果
func RecordKafkaProduce(topic string, err error) {
	if err != nil {
		KafkaProduceErrors.WithLabelValues(topic).Inc()
		return
	}
	KafkaMessagesProduced.WithLabelValues(topic).Inc()
}
