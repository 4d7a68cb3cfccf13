// Package metrics 定义进程级 Prometheus 指标。
//
// 指标通过 promauto 注册到默认 Registry，由 api 包的 /metrics 暴露。
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// NormalizeResolutions 统计类别值归一化命中的步骤（exact/synonym/casefold/substring/fallback）。
	NormalizeResolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "carefolio_normalize_resolutions_total",
		Help: "Categorical value resolutions by field and matching step",
	}, []string{"field", "step"})

	// EncodeFallbacks 统计编码时遇到未知类别而使用回退编码的次数。
	EncodeFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "carefolio_encode_fallbacks_total",
		Help: "Unseen categories encoded with the fallback code",
	}, []string{"field"})

	// NumericDefaults 统计数值字段缺失或无法解析而使用默认值的次数。
	NumericDefaults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "carefolio_numeric_defaults_total",
		Help: "Numeric fields replaced by their documented default",
	}, []string{"field"})

	// DerivedFallbacks 统计派生字段计算失败而使用中性默认值的次数。
	DerivedFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "carefolio_derived_fallbacks_total",
		Help: "Derived fields replaced by their neutral default",
	}, []string{"field"})

	// Predictions 统计预测调用结果（ok/error）。
	Predictions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "carefolio_predictions_total",
		Help: "Predictor invocations by model and outcome",
	}, []string{"model", "outcome"})

	// PredictionLatency 统计预测调用耗时。
	PredictionLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "carefolio_prediction_latency_seconds",
		Help:    "Predictor invocation latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"model"})

	// BreakerState 记录远程模型熔断器状态（0=closed, 1=half-open, 2=open）。
	BreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "carefolio_breaker_state",
		Help: "Remote predictor circuit breaker state (0 closed, 1 half-open, 2 open)",
	}, []string{"model"})

	// HTTPRequests 统计 HTTP 请求耗时。
	HTTPRequests = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "carefolio_http_request_duration_seconds",
		Help:    "HTTP request latency by route and status code",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method", "status"})

	// ServiceReady 记录各服务是否初始化成功（1=ready）。
	ServiceReady = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "carefolio_service_ready",
		Help: "Whether a prediction service finished loading its artifacts",
	}, []string{"service"})
)
