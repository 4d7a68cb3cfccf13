package workout

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/rushteam/carefolio/core"
	"github.com/rushteam/carefolio/feature"
	"github.com/rushteam/carefolio/pkg/conv"
)

// FallbackFitnessType 模型调用失败时返回的类型，置信度为 0
const FallbackFitnessType = "General Fitness"

// Recommendation 推荐结果
type Recommendation struct {
	FitnessType string  `json:"fitness_type"`
	Confidence  float64 `json:"confidence"` // 0-100，保留两位小数
	BMI         float64 `json:"bmi"`
	Level       string  `json:"level"`
	Goal        string  `json:"goal"`
	Advice

	// Notes 组装过程中的非致命诊断（未知类别、默认值等）
	Notes []feature.Note `json:"-"`
}

// Recommender 健身推荐服务，只读、可并发使用
type Recommender struct {
	bundle  *Bundle
	logger  *zap.Logger
	timeout time.Duration
}

// Option 推荐服务配置项
type Option func(*Recommender)

// WithLogger 设置日志
func WithLogger(logger *zap.Logger) Option {
	return func(r *Recommender) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithTimeout 设置单次预测超时
func WithTimeout(d time.Duration) Option {
	return func(r *Recommender) {
		r.timeout = d
	}
}

// New 创建推荐服务
func New(bundle *Bundle, opts ...Option) *Recommender {
	r := &Recommender{bundle: bundle, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Columns 返回模型特征列
func (r *Recommender) Columns() []string {
	return r.bundle.Assembler.Columns()
}

// Assemble 只做特征组装，不调用模型
func (r *Recommender) Assemble(raw map[string]any) *feature.Assembly {
	return r.bundle.Assembler.AssembleDetailed(raw)
}

// Recommend 根据原始输入（表单或 JSON）给出推荐。
// 输入问题只会降级为默认值，不返回错误；模型调用失败时返回 FallbackFitnessType。
func (r *Recommender) Recommend(ctx context.Context, raw map[string]any) *Recommendation {
	asm := r.bundle.Assembler.AssembleDetailed(raw)

	bmi := asm.Values[FieldBMI]
	goal := asm.Categories[FieldGoal]
	rec := &Recommendation{
		BMI:   bmi,
		Level: feature.BMILevel(bmi),
		Goal:  goal,
		Notes: asm.Notes,
	}

	rec.FitnessType, rec.Confidence = r.predict(ctx, asm.Record)
	rec.Advice = Advise(goal, rec.Level, bmi)
	return rec
}

func (r *Recommender) predict(ctx context.Context, record *core.Record) (string, float64) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	proba, err := r.bundle.Classifier.PredictProba(ctx, record)
	if err != nil {
		r.logger.Error("workout prediction failed", zap.Error(err), zap.Any("record", record.Map()))
		return FallbackFitnessType, 0
	}
	if len(proba) == 0 {
		r.logger.Error("workout prediction returned no probabilities")
		return FallbackFitnessType, 0
	}
	best := 0
	for i, p := range proba {
		if p > proba[best] {
			best = i
		}
	}
	label, ok := r.bundle.Target.Decode(best)
	if !ok {
		r.logger.Error("workout prediction index out of target classes",
			zap.Int("index", best), zap.Strings("classes", r.bundle.Target.Classes()))
		return FallbackFitnessType, 0
	}
	return label, conv.Round(proba[best]*100, 2)
}
