package model

import (
	"context"
	"fmt"
	"math"

	"github.com/goccy/go-json"

	"github.com/rushteam/carefolio/core"
)

// LinearModel 实现了线性模型（sklearn LogisticRegression / LinearRegression 导出）。
//
// 预测原理：
//  1. 线性加权求和: z_k = Intercept_k + sum(Coef_k_i * x_i)
//  2. logistic：二分类 P = 1 / (1 + exp(-z))，多分类对 z 做 softmax
//  3. linear：z 即回归输出
//
// 导出格式：
//
//	{"kind": "logistic", "feature_names": [...], "coef": [[...]], "intercept": [...]}
type LinearModel struct {
	name         string
	Kind         string      `json:"kind"` // logistic/linear
	FeatureNames []string    `json:"feature_names"`
	Coef         [][]float64 `json:"coef"`
	Intercept    []float64   `json:"intercept"`
}

// LoadLinearModel 解析 JSON 导出并校验
func LoadLinearModel(name string, data []byte) (*LinearModel, error) {
	var m LinearModel
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, core.WrapDomainError(core.ModuleModel, core.ErrorCodeInvalidInput,
			fmt.Sprintf("model: parse %s", name), err)
	}
	m.name = name
	if m.Kind == "" {
		m.Kind = "logistic"
	}
	if m.Kind != "logistic" && m.Kind != "linear" {
		return nil, core.NewDomainError(core.ModuleModel, core.ErrorCodeInvalidInput,
			fmt.Sprintf("model: %s has unknown kind %q", name, m.Kind))
	}
	if len(m.Coef) == 0 || len(m.Intercept) != len(m.Coef) {
		return nil, core.NewDomainError(core.ModuleModel, core.ErrorCodeInvalidInput,
			fmt.Sprintf("model: %s needs matching coef and intercept", name))
	}
	width := len(m.Coef[0])
	for _, row := range m.Coef {
		if len(row) != width {
			return nil, core.NewDomainError(core.ModuleModel, core.ErrorCodeInvalidInput,
				fmt.Sprintf("model: %s has ragged coef", name))
		}
	}
	if len(m.FeatureNames) > 0 && len(m.FeatureNames) != width {
		return nil, core.NewDomainError(core.ModuleModel, core.ErrorCodeInvalidInput,
			fmt.Sprintf("model: %s has %d feature_names for %d coefficients", name, len(m.FeatureNames), width))
	}
	return &m, nil
}

func (m *LinearModel) Name() string { return m.name }

// Columns 返回训练特征名（可能为空）
func (m *LinearModel) Columns() []string {
	return append([]string(nil), m.FeatureNames...)
}

func (m *LinearModel) scores(rec *core.Record) ([]float64, error) {
	if rec == nil {
		return nil, core.ErrPredictorShape
	}
	x := rec.Values()
	if len(x) != len(m.Coef[0]) {
		return nil, fmt.Errorf("%w: got %d values, want %d", core.ErrPredictorShape, len(x), len(m.Coef[0]))
	}
	z := make([]float64, len(m.Coef))
	for k, row := range m.Coef {
		z[k] = m.Intercept[k]
		for i, w := range row {
			z[k] += w * x[i]
		}
	}
	return z, nil
}

// PredictProba 实现 core.Classifier
func (m *LinearModel) PredictProba(ctx context.Context, rec *core.Record) ([]float64, error) {
	if m.Kind != "logistic" {
		return nil, core.NewDomainError(core.ModuleModel, core.ErrorCodeNotSupported,
			fmt.Sprintf("model: %s (%s) does not support PredictProba", m.name, m.Kind))
	}
	z, err := m.scores(rec)
	if err != nil {
		return nil, err
	}
	if len(z) == 1 {
		p := 1 / (1 + math.Exp(-z[0]))
		return []float64{1 - p, p}, nil
	}
	return softmax(z), nil
}

// PredictValues 实现 core.Regressor
func (m *LinearModel) PredictValues(ctx context.Context, rec *core.Record) ([]float64, error) {
	if m.Kind != "linear" {
		return nil, core.NewDomainError(core.ModuleModel, core.ErrorCodeNotSupported,
			fmt.Sprintf("model: %s (%s) does not support PredictValues", m.name, m.Kind))
	}
	return m.scores(rec)
}

func softmax(z []float64) []float64 {
	hi := z[0]
	for _, v := range z[1:] {
		if v > hi {
			hi = v
		}
	}
	out := make([]float64, len(z))
	var sum float64
	for i, v := range z {
		out[i] = math.Exp(v - hi)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

var (
	_ core.Classifier     = (*LinearModel)(nil)
	_ core.Regressor      = (*LinearModel)(nil)
	_ core.FeatureColumns = (*LinearModel)(nil)
)
