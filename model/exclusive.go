package model

import (
	"context"
	"sync"
	"time"

	"github.com/rushteam/carefolio/core"
	"github.com/rushteam/carefolio/metrics"
)

// Exclusive 把非并发安全的预测器包装为互斥单持有者，同一时刻只有一个调用进入。
type Exclusive struct {
	mu    sync.Mutex
	inner core.Predictor
}

// NewExclusive 包装预测器
func NewExclusive(p core.Predictor) *Exclusive {
	return &Exclusive{inner: p}
}

func (e *Exclusive) Name() string { return e.inner.Name() }

// PredictProba 实现 core.Classifier
func (e *Exclusive) PredictProba(ctx context.Context, rec *core.Record) ([]float64, error) {
	c, ok := e.inner.(core.Classifier)
	if !ok {
		return nil, notSupported(e.inner, "PredictProba")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return c.PredictProba(ctx, rec)
}

// PredictValues 实现 core.Regressor
func (e *Exclusive) PredictValues(ctx context.Context, rec *core.Record) ([]float64, error) {
	r, ok := e.inner.(core.Regressor)
	if !ok {
		return nil, notSupported(e.inner, "PredictValues")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return r.PredictValues(ctx, rec)
}

// PredictLabels 实现 core.MultiLabelClassifier
func (e *Exclusive) PredictLabels(ctx context.Context, rec *core.Record) ([]int, error) {
	m, ok := e.inner.(core.MultiLabelClassifier)
	if !ok {
		return nil, notSupported(e.inner, "PredictLabels")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return m.PredictLabels(ctx, rec)
}

// Columns 透传训练特征名
func (e *Exclusive) Columns() []string {
	if fc, ok := e.inner.(core.FeatureColumns); ok {
		return fc.Columns()
	}
	return nil
}

// Observed 为预测器记录调用次数、结果与耗时。
type Observed struct {
	inner core.Predictor
}

// NewObserved 包装预测器
func NewObserved(p core.Predictor) *Observed {
	return &Observed{inner: p}
}

func (o *Observed) Name() string { return o.inner.Name() }

func (o *Observed) observe(start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.Predictions.WithLabelValues(o.inner.Name(), outcome).Inc()
	metrics.PredictionLatency.WithLabelValues(o.inner.Name()).Observe(time.Since(start).Seconds())
}

// PredictProba 实现 core.Classifier
func (o *Observed) PredictProba(ctx context.Context, rec *core.Record) (out []float64, err error) {
	c, ok := o.inner.(core.Classifier)
	if !ok {
		return nil, notSupported(o.inner, "PredictProba")
	}
	defer func(start time.Time) { o.observe(start, err) }(time.Now())
	return c.PredictProba(ctx, rec)
}

// PredictValues 实现 core.Regressor
func (o *Observed) PredictValues(ctx context.Context, rec *core.Record) (out []float64, err error) {
	r, ok := o.inner.(core.Regressor)
	if !ok {
		return nil, notSupported(o.inner, "PredictValues")
	}
	defer func(start time.Time) { o.observe(start, err) }(time.Now())
	return r.PredictValues(ctx, rec)
}

// PredictLabels 实现 core.MultiLabelClassifier
func (o *Observed) PredictLabels(ctx context.Context, rec *core.Record) (out []int, err error) {
	m, ok := o.inner.(core.MultiLabelClassifier)
	if !ok {
		return nil, notSupported(o.inner, "PredictLabels")
	}
	defer func(start time.Time) { o.observe(start, err) }(time.Now())
	return m.PredictLabels(ctx, rec)
}

// Columns 透传训练特征名
func (o *Observed) Columns() []string {
	if fc, ok := o.inner.(core.FeatureColumns); ok {
		return fc.Columns()
	}
	return nil
}

func notSupported(p core.Predictor, op string) error {
	return core.NewDomainError(core.ModuleModel, core.ErrorCodeNotSupported,
		"model: "+p.Name()+" does not support "+op)
}

var (
	_ core.Classifier           = (*Exclusive)(nil)
	_ core.Regressor            = (*Exclusive)(nil)
	_ core.MultiLabelClassifier = (*Exclusive)(nil)
	_ core.Classifier           = (*Observed)(nil)
	_ core.Regressor            = (*Observed)(nil)
	_ core.MultiLabelClassifier = (*Observed)(nil)
)
