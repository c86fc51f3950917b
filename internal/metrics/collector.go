// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器
type Collector struct {
	// HTTP 指标
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpRequestSize     *prometheus.HistogramVec
	httpResponseSize    *prometheus.HistogramVec

	// LLM 指标
	llmRequestsTotal   *prometheus.CounterVec
	llmRequestDuration *prometheus.HistogramVec
	llmTokensUsed      *prometheus.CounterVec

	// 执行指标
	executionsTotal   *prometheus.CounterVec
	executionDuration *prometheus.HistogramVec
	executionsActive  prometheus.Gauge
	teamsGauge        prometheus.Gauge

	// 路由指标
	routingDecisions  *prometheus.CounterVec
	routingConfidence *prometheus.HistogramVec

	// 校验与评估指标
	validationScore *prometheus.HistogramVec
	evaluationsTotal *prometheus.CounterVec
	evaluationScore  prometheus.Histogram

	// 数据库指标
	dbConnectionsOpen *prometheus.GaugeVec
	dbConnectionsIdle *prometheus.GaugeVec

	gatherer prometheus.Gatherer
	logger   *zap.Logger
}

// NewCollector 在默认 registry 上创建指标收集器
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	return NewCollectorWithRegistry(namespace, prometheus.DefaultRegisterer, prometheus.DefaultGatherer, logger)
}

// NewCollectorWithRegistry 在指定 registry 上创建指标收集器
func NewCollectorWithRegistry(namespace string, reg prometheus.Registerer, gatherer prometheus.Gatherer, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	f := promauto.With(reg)
	c := &Collector{
		gatherer: gatherer,
		logger:   logger.With(zap.String("component", "metrics")),
	}

	// HTTP 指标
	c.httpRequestsTotal = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	c.httpRequestDuration = f.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path"})

	c.httpRequestSize = f.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_size_bytes",
		Help:      "HTTP request size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 8),
	}, []string{"method", "path"})

	c.httpResponseSize = f.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 8),
	}, []string{"method", "path"})

	// LLM 指标
	c.llmRequestsTotal = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "llm_requests_total",
		Help:      "Total number of LLM requests",
	}, []string{"provider", "model", "status"})

	c.llmRequestDuration = f.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "llm_request_duration_seconds",
		Help:      "LLM request duration in seconds",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"provider", "model"})

	c.llmTokensUsed = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "llm_tokens_used_total",
		Help:      "Total number of tokens used",
	}, []string{"provider", "model", "type"}) // type: prompt, completion

	// 执行指标
	c.executionsTotal = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "team_executions_total",
		Help:      "Total number of finished team executions",
	}, []string{"status"})

	c.executionDuration = f.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "team_execution_duration_seconds",
		Help:      "Team execution duration in seconds",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
	}, []string{"status"})

	c.executionsActive = f.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "team_executions_active",
		Help:      "Number of pending or running executions",
	})

	c.teamsGauge = f.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "teams",
		Help:      "Number of team runtimes loaded",
	})

	// 路由指标
	c.routingDecisions = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "routing_decisions_total",
		Help:      "Total number of routing decisions",
	}, []string{"level", "strategy"})

	c.routingConfidence = f.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "routing_confidence",
		Help:      "Confidence of routing decisions",
		Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
	}, []string{"level", "strategy"})

	// 校验与评估指标
	c.validationScore = f.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "hierarchy_validation_score",
		Help:      "Overall score of hierarchy validation reports",
		Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
	}, []string{"valid"})

	c.evaluationsTotal = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "team_evaluations_total",
		Help:      "Total number of team evaluations",
	}, []string{"grade"})

	c.evaluationScore = f.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "team_evaluation_score",
		Help:      "Overall score of team evaluations",
		Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
	})

	// 数据库指标
	c.dbConnectionsOpen = f.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "db_connections_open",
		Help:      "Number of open database connections",
	}, []string{"database"})

	c.dbConnectionsIdle = f.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "db_connections_idle",
		Help:      "Number of idle database connections",
	}, []string{"database"})

	c.logger.Info("metrics collector initialized", zap.String("namespace", namespace))
	return c
}

// Handler 暴露 /metrics
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

// =============================================================================
// 🎯 记录
// =============================================================================

// RecordHTTPRequest 记录 HTTP 请求
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration, requestSize, responseSize int64) {
	c.httpRequestsTotal.WithLabelValues(method, path, statusClass(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	c.httpRequestSize.WithLabelValues(method, path).Observe(float64(max(requestSize, 0)))
	c.httpResponseSize.WithLabelValues(method, path).Observe(float64(responseSize))
}

// RecordLLMRequest 记录 LLM 请求
func (c *Collector) RecordLLMRequest(provider, model, status string, duration time.Duration, promptTokens, completionTokens int) {
	c.llmRequestsTotal.WithLabelValues(provider, model, status).Inc()
	c.llmRequestDuration.WithLabelValues(provider, model).Observe(duration.Seconds())
	c.llmTokensUsed.WithLabelValues(provider, model, "prompt").Add(float64(promptTokens))
	c.llmTokensUsed.WithLabelValues(provider, model, "completion").Add(float64(completionTokens))
}

// RecordExecution 记录一次进入终态的执行
func (c *Collector) RecordExecution(status string, duration time.Duration) {
	c.executionsTotal.WithLabelValues(status).Inc()
	c.executionDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// SetActiveExecutions 当前活跃执行数
func (c *Collector) SetActiveExecutions(n int) {
	c.executionsActive.Set(float64(n))
}

// SetTeams 已加载的团队运行时数量
func (c *Collector) SetTeams(n int) {
	c.teamsGauge.Set(float64(n))
}

// RecordRoutingDecision level 为 coordinator 或 supervisor
func (c *Collector) RecordRoutingDecision(level, strategy string, confidence float64) {
	c.routingDecisions.WithLabelValues(level, strategy).Inc()
	c.routingConfidence.WithLabelValues(level, strategy).Observe(confidence)
}

// RecordValidation 记录层级校验结果
func (c *Collector) RecordValidation(valid bool, score float64) {
	c.validationScore.WithLabelValues(strconv.FormatBool(valid)).Observe(score)
}

// RecordEvaluation 记录团队评估
func (c *Collector) RecordEvaluation(grade string, score float64) {
	c.evaluationsTotal.WithLabelValues(grade).Inc()
	c.evaluationScore.Observe(score)
}

// RecordDBConnections 记录数据库连接数
func (c *Collector) RecordDBConnections(database string, open, idle int) {
	c.dbConnectionsOpen.WithLabelValues(database).Set(float64(open))
	c.dbConnectionsIdle.WithLabelValues(database).Set(float64(idle))
}

// statusClass 将 HTTP 状态码归类为 2xx/3xx/4xx/5xx
func statusClass(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
