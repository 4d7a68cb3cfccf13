package model

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/rushteam/carefolio/core"
	"github.com/rushteam/carefolio/metrics"
)

// RPCConfig 远程模型配置
type RPCConfig struct {
	Endpoint string        // 例如 "http://localhost:8080/v1/models/workout:predict"
	Timeout  time.Duration // 单次请求超时

	// 熔断配置
	MaxRequests      uint32        // half-open 状态允许的请求数
	Interval         time.Duration // closed 状态计数重置周期
	OpenTimeout      time.Duration // open 状态持续时间
	FailureThreshold uint32        // 连续失败次数达到后熔断
}

// DefaultRPCConfig 返回默认配置
func DefaultRPCConfig(endpoint string) RPCConfig {
	return RPCConfig{
		Endpoint:         endpoint,
		Timeout:          5 * time.Second,
		MaxRequests:      3,
		Interval:         30 * time.Second,
		OpenTimeout:      10 * time.Second,
		FailureThreshold: 5,
	}
}

// RPCModel 是通过 HTTP 调用外部模型服务的预测器（sklearn 服务、KServe 等）。
// 同时实现 core.Classifier、core.Regressor、core.MultiLabelClassifier，
// 输出含义由服务端模型决定。调用经过熔断器，熔断打开时直接返回 UNAVAILABLE。
//
// 请求格式（JSON）：
//
//	{"columns": ["Sex", "Age", ...], "instances": [[1, 25, ...]]}
//
// 响应格式（JSON）：
//
//	{"outputs": [[0.12, 0.88]]}
type RPCModel struct {
	name    string
	cfg     RPCConfig
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[[]float64]
	logger  *zap.Logger
}

// RPCOption 远程模型配置项
type RPCOption func(*RPCModel)

// WithHTTPClient 设置 HTTP 客户端
func WithHTTPClient(c *http.Client) RPCOption {
	return func(m *RPCModel) {
		if c != nil {
			m.client = c
		}
	}
}

// WithRPCLogger 设置日志
func WithRPCLogger(logger *zap.Logger) RPCOption {
	return func(m *RPCModel) {
		if logger != nil {
			m.logger = logger
		}
	}
}

func NewRPCModel(name string, cfg RPCConfig, opts ...RPCOption) *RPCModel {
	def := DefaultRPCConfig(cfg.Endpoint)
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = def.MaxRequests
	}
	if cfg.Interval == 0 {
		cfg.Interval = def.Interval
	}
	if cfg.OpenTimeout == 0 {
		cfg.OpenTimeout = def.OpenTimeout
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}

	m := &RPCModel{
		name:   name,
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.breaker = gobreaker.NewCircuitBreaker[[]float64](gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.BreakerState.WithLabelValues(name).Set(float64(to))
			m.logger.Warn("remote model circuit breaker state changed",
				zap.String("model", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		// 输入错误不应触发熔断
		IsSuccessful: func(err error) bool {
			return err == nil || core.IsInvalidInput(err)
		},
	})
	metrics.BreakerState.WithLabelValues(name).Set(float64(gobreaker.StateClosed))
	return m
}

func (m *RPCModel) Name() string {
	return m.name
}

// State 返回熔断器状态
func (m *RPCModel) State() gobreaker.State {
	return m.breaker.State()
}

// PredictProba 实现 core.Classifier
func (m *RPCModel) PredictProba(ctx context.Context, rec *core.Record) ([]float64, error) {
	return m.call(ctx, rec)
}

// PredictValues 实现 core.Regressor
func (m *RPCModel) PredictValues(ctx context.Context, rec *core.Record) ([]float64, error) {
	return m.call(ctx, rec)
}

// PredictLabels 实现 core.MultiLabelClassifier，输出四舍五入为 0/1
func (m *RPCModel) PredictLabels(ctx context.Context, rec *core.Record) ([]int, error) {
	out, err := m.call(ctx, rec)
	if err != nil {
		return nil, err
	}
	labels := make([]int, len(out))
	for i, v := range out {
		labels[i] = int(math.Round(v))
	}
	return labels, nil
}

func (m *RPCModel) call(ctx context.Context, rec *core.Record) ([]float64, error) {
	if rec == nil {
		return nil, core.ErrPredictorShape
	}
	out, err := m.breaker.Execute(func() ([]float64, error) {
		return m.do(ctx, rec)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %s circuit open: %w", core.ErrPredictorUnavailable, m.name, err)
	}
	return out, err
}

func (m *RPCModel) do(ctx context.Context, rec *core.Record) ([]float64, error) {
	reqBody := struct {
		Columns   []string    `json:"columns"`
		Instances [][]float64 `json:"instances"`
	}{
		Columns:   rec.Columns(),
		Instances: [][]float64{rec.Values()},
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.Endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, core.WrapDomainError(core.ModuleModel, core.ErrorCodeUnavailable, "model: rpc call", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		code := core.ErrorCodeUnavailable
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			code = core.ErrorCodeInvalidInput
		}
		return nil, core.NewDomainError(core.ModuleModel, code,
			fmt.Sprintf("model: rpc error: status=%d, body=%s", resp.StatusCode, string(body)))
	}

	var result struct {
		Outputs [][]float64 `json:"outputs"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(result.Outputs) != 1 {
		return nil, fmt.Errorf("response outputs count mismatch: expected 1, got %d", len(result.Outputs))
	}
	return result.Outputs[0], nil
}

var (
	_ core.Classifier           = (*RPCModel)(nil)
	_ core.Regressor            = (*RPCModel)(nil)
	_ core.MultiLabelClassifier = (*RPCModel)(nil)
)
