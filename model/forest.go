package model

import (
	"context"
	"fmt"
	"math"

	"github.com/goccy/go-json"

	"github.com/rushteam/carefolio/core"
)

// EnsembleKind 树模型类型
type EnsembleKind string

const (
	// KindForestClassifier 随机森林分类：各树叶子分布归一化后取平均。
	// n_outputs > 1 时为多标签分类，每个输出取概率最大的类别。
	KindForestClassifier EnsembleKind = "forest_classifier"
	// KindForestRegressor 随机森林回归：各树叶子值取平均，支持多输出。
	KindForestRegressor EnsembleKind = "forest_regressor"
	// KindBoostingRegressor 梯度提升回归：base_score + learning_rate * Σ 叶子值。
	KindBoostingRegressor EnsembleKind = "boosting_regressor"
	// KindBoostingMultiLabel 梯度提升多标签：对每个输出的 raw score 做 sigmoid，> 0.5 为 1。
	KindBoostingMultiLabel EnsembleKind = "boosting_multilabel"
)

// TreeEnsemble 是本地树模型，从 JSON 导出加载，实现 core.Classifier、
// core.Regressor、core.MultiLabelClassifier（按 Kind 支持其中之一）。
// 加载后只读，可并发使用。
type TreeEnsemble struct {
	name         string
	Kind         EnsembleKind `json:"kind"`
	FeatureNames []string     `json:"feature_names"`
	NFeatures    int          `json:"n_features"`
	NOutputs     int          `json:"n_outputs"`
	Classes      []string     `json:"classes"`
	BaseScore    []float64    `json:"base_score"`
	LearningRate float64      `json:"learning_rate"`
	Trees        []Tree       `json:"trees"`
}

// LoadTreeEnsemble 解析 JSON 导出并校验
func LoadTreeEnsemble(name string, data []byte) (*TreeEnsemble, error) {
	var e TreeEnsemble
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, core.WrapDomainError(core.ModuleModel, core.ErrorCodeInvalidInput,
			fmt.Sprintf("model: parse %s", name), err)
	}
	e.name = name
	if err := e.init(); err != nil {
		return nil, core.WrapDomainError(core.ModuleModel, core.ErrorCodeInvalidInput,
			fmt.Sprintf("model: invalid ensemble %s", name), err)
	}
	return &e, nil
}

func (e *TreeEnsemble) init() error {
	switch e.Kind {
	case KindForestClassifier, KindForestRegressor, KindBoostingRegressor, KindBoostingMultiLabel:
	default:
		return fmt.Errorf("unknown kind %q", e.Kind)
	}
	if len(e.Trees) == 0 {
		return fmt.Errorf("no trees")
	}
	if e.NOutputs <= 0 {
		e.NOutputs = 1
	}
	if len(e.FeatureNames) > 0 {
		if e.NFeatures != 0 && e.NFeatures != len(e.FeatureNames) {
			return fmt.Errorf("n_features %d does not match %d feature_names", e.NFeatures, len(e.FeatureNames))
		}
		e.NFeatures = len(e.FeatureNames)
	}
	for i := range e.Trees {
		if err := e.Trees[i].validate(e.NFeatures); err != nil {
			return fmt.Errorf("tree %d: %w", i, err)
		}
		for _, v := range e.Trees[i].Value {
			if len(v) != e.NOutputs {
				return fmt.Errorf("tree %d: node value has %d outputs, want %d", i, len(v), e.NOutputs)
			}
		}
	}
	if e.NFeatures == 0 {
		for i := range e.Trees {
			if m := e.Trees[i].maxFeature() + 1; m > e.NFeatures {
				e.NFeatures = m
			}
		}
	}
	switch e.Kind {
	case KindBoostingRegressor, KindBoostingMultiLabel:
		if e.LearningRate == 0 {
			e.LearningRate = 1
		}
		if len(e.BaseScore) == 0 {
			e.BaseScore = make([]float64, e.NOutputs)
		}
		if len(e.BaseScore) != e.NOutputs {
			return fmt.Errorf("base_score has %d values, want %d", len(e.BaseScore), e.NOutputs)
		}
	}
	return nil
}

// Name 实现 core.Predictor
func (e *TreeEnsemble) Name() string {
	return e.name
}

// Columns 返回训练特征名（可能为空）
func (e *TreeEnsemble) Columns() []string {
	return append([]string(nil), e.FeatureNames...)
}

// input 校验并返回模型输入行
func (e *TreeEnsemble) input(rec *core.Record) ([]float64, error) {
	if rec == nil {
		return nil, core.ErrPredictorShape
	}
	if len(e.FeatureNames) > 0 {
		cols := rec.Columns()
		if len(cols) != len(e.FeatureNames) {
			return nil, fmt.Errorf("%w: got %d columns, want %d", core.ErrPredictorShape, len(cols), len(e.FeatureNames))
		}
		for i, c := range cols {
			if c != e.FeatureNames[i] {
				return nil, fmt.Errorf("%w: column %d is %q, want %q", core.ErrPredictorShape, i, c, e.FeatureNames[i])
			}
		}
	}
	x := rec.Values()
	if len(x) < e.NFeatures {
		return nil, fmt.Errorf("%w: got %d values, want %d", core.ErrPredictorShape, len(x), e.NFeatures)
	}
	return x, nil
}

func (e *TreeEnsemble) unsupported(op string) error {
	return core.NewDomainError(core.ModuleModel, core.ErrorCodeNotSupported,
		fmt.Sprintf("model: %s (%s) does not support %s", e.name, e.Kind, op))
}

// PredictProba 返回单输出分类的类别概率
func (e *TreeEnsemble) PredictProba(ctx context.Context, rec *core.Record) ([]float64, error) {
	if e.Kind != KindForestClassifier || e.NOutputs != 1 {
		return nil, e.unsupported("PredictProba")
	}
	x, err := e.input(rec)
	if err != nil {
		return nil, err
	}
	return e.forestProba(x)[0], nil
}

// PredictValues 返回回归输出
func (e *TreeEnsemble) PredictValues(ctx context.Context, rec *core.Record) ([]float64, error) {
	x, err := e.input(rec)
	if err != nil {
		return nil, err
	}
	switch e.Kind {
	case KindForestRegressor:
		out := make([]float64, e.NOutputs)
		for i := range e.Trees {
			leaf := e.Trees[i].leaf(x)
			for o := range out {
				out[o] += leaf[o][0]
			}
		}
		for o := range out {
			out[o] /= float64(len(e.Trees))
		}
		return out, nil
	case KindBoostingRegressor:
		return e.boostingRaw(x), nil
	default:
		return nil, e.unsupported("PredictValues")
	}
}

// PredictLabels 返回多标签 0/1 向量
func (e *TreeEnsemble) PredictLabels(ctx context.Context, rec *core.Record) ([]int, error) {
	x, err := e.input(rec)
	if err != nil {
		return nil, err
	}
	switch e.Kind {
	case KindForestClassifier:
		proba := e.forestProba(x)
		labels := make([]int, e.NOutputs)
		for o, p := range proba {
			labels[o] = argmax(p)
		}
		return labels, nil
	case KindBoostingMultiLabel:
		raw := e.boostingRaw(x)
		labels := make([]int, e.NOutputs)
		for o, v := range raw {
			if sigmoid(v) > 0.5 {
				labels[o] = 1
			}
		}
		return labels, nil
	default:
		return nil, e.unsupported("PredictLabels")
	}
}

// forestProba 每个输出的平均类别分布
func (e *TreeEnsemble) forestProba(x []float64) [][]float64 {
	out := make([][]float64, e.NOutputs)
	for i := range e.Trees {
		leaf := e.Trees[i].leaf(x)
		for o := 0; o < e.NOutputs; o++ {
			dist := leaf[o]
			if out[o] == nil {
				out[o] = make([]float64, len(dist))
			}
			var total float64
			for _, c := range dist {
				total += c
			}
			if total <= 0 {
				continue
			}
			for k := 0; k < len(dist) && k < len(out[o]); k++ {
				out[o][k] += dist[k] / total
			}
		}
	}
	for o := range out {
		for k := range out[o] {
			out[o][k] /= float64(len(e.Trees))
		}
	}
	return out
}

func (e *TreeEnsemble) boostingRaw(x []float64) []float64 {
	out := append([]float64(nil), e.BaseScore...)
	for i := range e.Trees {
		leaf := e.Trees[i].leaf(x)
		for o := range out {
			out[o] += e.LearningRate * leaf[o][0]
		}
	}
	return out
}

func argmax(p []float64) int {
	best := 0
	for i := 1; i < len(p); i++ {
		if p[i] > p[best] {
			best = i
		}
	}
	return best
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

var (
	_ core.Classifier           = (*TreeEnsemble)(nil)
	_ core.Regressor            = (*TreeEnsemble)(nil)
	_ core.MultiLabelClassifier = (*TreeEnsemble)(nil)
	_ core.FeatureColumns       = (*TreeEnsemble)(nil)
)
