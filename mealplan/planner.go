// Package mealplan 饮食计划推荐：回归模型预测每日营养摄入，
// 多标签分类模型给出计划类型与健康标签。
package mealplan

import (
	"context"
	"fmt"
	"math"
	"slices"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rushteam/carefolio/config"
	"github.com/rushteam/carefolio/core"
	"github.com/rushteam/carefolio/feature"
	"github.com/rushteam/carefolio/logging"
)

// DefaultColumns 模型特征列（训练时的列顺序）
var DefaultColumns = []string{
	"age", "height_cm", "weight_kg", "meals_per_day",
	"has_diabetes", "has_hypertension", "sugar_level", "sleep_hours", "stress_level",
	"bmr", "tdee", "systolic_bp", "diastolic_bp",
	"gender_male",
	"fitness_goal_weight_gain", "fitness_goal_weight_loss",
	"activity_level_moderate", "activity_level_sedentary",
	"diet_type_non-veg", "diet_type_vegan", "diet_type_vegetarian",
	"preferred_cuisine_Continental", "preferred_cuisine_Indian", "preferred_cuisine_Mediterranean",
}

// 内置派生公式：Mifflin-St Jeor BMR 与活动系数 TDEE
const (
	DefaultBMRExpr  = `10.0 * weight_kg + 6.25 * height_cm - 5.0 * age + (gender_male == 1.0 ? 5.0 : -161.0)`
	DefaultTDEEExpr = `bmr * (activity_level_sedentary == 1.0 ? 1.2 : (activity_level_moderate == 1.0 ? 1.55 : 1.725))`
)

// oneHotField 友好输入字段：基准类别（drop_first 丢弃的列）与同义词表
type oneHotField struct {
	name     string
	keys     []string
	baseline string
	synonyms feature.SynonymTable
}

var oneHotFields = []oneHotField{
	{name: "gender", keys: []string{"sex"}, baseline: "female", synonyms: feature.GenderSynonyms()},
	{name: "fitness_goal", keys: []string{"goal"}, baseline: "maintenance", synonyms: feature.MealGoalSynonyms()},
	{name: "activity_level", keys: []string{"activity"}, baseline: "active", synonyms: feature.ActivitySynonyms()},
	{name: "diet_type", keys: []string{"diet"}, baseline: "eggetarian", synonyms: feature.DietSynonyms()},
	{name: "preferred_cuisine", keys: []string{"cuisine"}, baseline: "Asian", synonyms: feature.CuisineSynonyms()},
}

// Bundle 饮食计划推理资源，构建后只读
type Bundle struct {
	Regressor  core.Regressor
	Classifier core.MultiLabelClassifier
	Assembler  *feature.Assembler
}

// NewBundle 构建推理资源。特征列优先取配置，其次回归模型自带列名，最后 DefaultColumns；
// 分类模型若自带列名则必须与之一致。
func NewBundle(reg, clf core.Predictor, cfg config.MealPlanConfig, logger *zap.Logger) (*Bundle, error) {
	logger = logging.OrNop(logger)
	r, ok := reg.(core.Regressor)
	if !ok {
		return nil, core.NewDomainError(core.ModuleService, core.ErrorCodeInvalidInput,
			fmt.Sprintf("mealplan: model %q is not a regressor", reg.Name()))
	}
	c, ok := clf.(core.MultiLabelClassifier)
	if !ok {
		return nil, core.NewDomainError(core.ModuleService, core.ErrorCodeInvalidInput,
			fmt.Sprintf("mealplan: model %q is not a multi-label classifier", clf.Name()))
	}

	columns := cfg.Columns
	if len(columns) == 0 {
		columns = predictorColumns(reg)
	}
	if len(columns) == 0 {
		columns = DefaultColumns
	}
	if cc := predictorColumns(clf); len(cc) > 0 && !slices.Equal(cc, columns) {
		return nil, core.NewDomainError(core.ModuleService, core.ErrorCodeInvalidInput,
			"mealplan: regressor and classifier disagree on feature columns")
	}

	specs, err := fieldSpecs(columns, cfg)
	if err != nil {
		return nil, err
	}
	asm, err := feature.NewAssembler(columns, specs, feature.WithAssemblerLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("mealplan: assembler: %w", err)
	}
	return &Bundle{Regressor: r, Classifier: c, Assembler: asm}, nil
}

func predictorColumns(p core.Predictor) []string {
	if fc, ok := p.(core.FeatureColumns); ok {
		return fc.Columns()
	}
	return nil
}

func fieldSpecs(columns []string, cfg config.MealPlanConfig) ([]feature.FieldSpec, error) {
	specs := []feature.FieldSpec{
		{Name: "age", Kind: feature.KindNumeric},
		{Name: "height_cm", Kind: feature.KindNumeric, Keys: []string{"height"}},
		{Name: "weight_kg", Kind: feature.KindNumeric, Keys: []string{"weight"}},
		{Name: "has_diabetes", Kind: feature.KindFlag, Keys: []string{"diabetes"}},
		{Name: "has_hypertension", Kind: feature.KindFlag, Keys: []string{"hypertension"}},
	}
	for _, f := range oneHotFields {
		enc := feature.OneHotFromColumns(f.name, columns)
		if enc == nil {
			continue
		}
		vocab := append([]string{f.baseline}, enc.Categories...)
		specs = append(specs, feature.FieldSpec{
			Name:       f.name,
			Kind:       feature.KindOneHot,
			Keys:       f.keys,
			Vocabulary: feature.NewVocabulary(vocab...),
			Synonyms:   f.synonyms,
			OneHot:     enc,
		})
	}

	// 表达式可以引用任何模型列与上面的输入字段
	vars := append([]string{}, columns...)
	for _, s := range specs {
		vars = append(vars, s.Name)
	}
	bmrSrc := cfg.BMRExpr
	if bmrSrc == "" {
		bmrSrc = DefaultBMRExpr
	}
	bmr, err := feature.NewExprRule(bmrSrc, 2, vars...)
	if err != nil {
		return nil, fmt.Errorf("mealplan: bmr expression: %w", err)
	}
	tdeeSrc := cfg.TDEEExpr
	if tdeeSrc == "" {
		tdeeSrc = DefaultTDEEExpr
	}
	tdee, err := feature.NewExprRule(tdeeSrc, 2, append(vars, "bmr")...)
	if err != nil {
		return nil, fmt.Errorf("mealplan: tdee expression: %w", err)
	}
	specs = append(specs,
		feature.FieldSpec{Name: "bmr", Kind: feature.KindDerived, Rule: bmr, PreferInput: true},
		feature.FieldSpec{Name: "tdee", Kind: feature.KindDerived, Rule: tdee, PreferInput: true},
	)
	return specs, nil
}

// LoadBundle 并发构建回归与分类模型
func LoadBundle(ctx context.Context, cfg config.MealPlanConfig, deps config.Deps) (*Bundle, error) {
	var reg, clf core.Predictor
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		reg, err = config.BuildPredictor(gctx, "mealplan_regressor", cfg.Regressor, deps)
		return err
	})
	g.Go(func() error {
		var err error
		clf, err = config.BuildPredictor(gctx, "mealplan_classifier", cfg.Classifier, deps)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return NewBundle(reg, clf, cfg, deps.Logger)
}

// ErrNoInput 请求体为空
var ErrNoInput = core.NewDomainError(core.ModuleService, core.ErrorCodeInvalidInput, "No input provided")

// Nutrition 预测的每日营养摄入（取整）
type Nutrition struct {
	Calories int64 `json:"calories"`
	CarbsG   int64 `json:"carbs_g"`
	ProteinG int64 `json:"protein_g"`
	FatsG    int64 `json:"fats_g"`
}

// 预测结果状态
const (
	StatusSuccess  = "success"
	StatusDegraded = "degraded"
)

// Plan 预测结果。模型调用失败时 Status 为 StatusDegraded，营养为零值，标签为未匹配。
type Plan struct {
	Status               string    `json:"status"`
	Degraded             bool      `json:"degraded,omitempty"`
	PredictedNutrition   Nutrition `json:"predicted_nutrition"`
	MealPlanType         string    `json:"meal_plan_type"`
	MealPlanExplanation  string    `json:"meal_plan_explanation"`
	HealthTag            string    `json:"health_tag"`
	HealthTagExplanation string    `json:"health_tag_explanation"`

	Labels Labels         `json:"-"`
	Notes  []feature.Note `json:"-"`
}

// Planner 饮食计划服务
type Planner struct {
	bundle *Bundle
	logger *zap.Logger
}

// Option 配置项
type Option func(*Planner)

// WithLogger 设置日志
func WithLogger(logger *zap.Logger) Option {
	return func(p *Planner) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New 创建饮食计划服务
func New(bundle *Bundle, opts ...Option) *Planner {
	p := &Planner{bundle: bundle, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Columns 返回模型特征列
func (p *Planner) Columns() []string {
	return p.bundle.Assembler.Columns()
}

// Predict 组装特征并并发调用两个模型。缺失的特征按 0 处理，多余的键被忽略。
// 只有空输入返回错误；模型失败记录日志后返回降级结果。
func (p *Planner) Predict(ctx context.Context, raw map[string]any) (*Plan, error) {
	if len(raw) == 0 {
		return nil, ErrNoInput
	}
	asm := p.bundle.Assembler.AssembleDetailed(raw)

	var (
		values []float64
		labels []int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		values, err = p.bundle.Regressor.PredictValues(gctx, asm.Record)
		if err != nil {
			return fmt.Errorf("nutrition prediction: %w", err)
		}
		if len(values) < 4 {
			return fmt.Errorf("nutrition prediction: expected 4 outputs, got %d: %w", len(values), core.ErrPredictorShape)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		labels, err = p.bundle.Classifier.PredictLabels(gctx, asm.Record)
		if err != nil {
			return fmt.Errorf("meal plan classification: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		p.logger.Error("meal plan prediction failed", zap.Error(err), zap.Any("record", asm.Record.Map()))
		return degradedPlan(asm.Notes), nil
	}

	decoded := DecodeLabels(labels)
	return &Plan{
		Status: StatusSuccess,
		PredictedNutrition: Nutrition{
			Calories: roundHalfEven(values[0]),
			CarbsG:   roundHalfEven(values[1]),
			ProteinG: roundHalfEven(values[2]),
			FatsG:    roundHalfEven(values[3]),
		},
		MealPlanType:         decoded.MealPlan.String(),
		MealPlanExplanation:  decoded.MealPlan.Explanation(),
		HealthTag:            decoded.HealthTag.String(),
		HealthTagExplanation: decoded.HealthTag.Explanation(),
		Labels:               decoded,
		Notes:                asm.Notes,
	}, nil
}

func degradedPlan(notes []feature.Note) *Plan {
	var decoded Labels
	return &Plan{
		Status:               StatusDegraded,
		Degraded:             true,
		MealPlanType:         decoded.MealPlan.String(),
		MealPlanExplanation:  decoded.MealPlan.Explanation(),
		HealthTag:            decoded.HealthTag.String(),
		HealthTagExplanation: decoded.HealthTag.Explanation(),
		Labels:               decoded,
		Notes:                notes,
	}
}

func roundHalfEven(v float64) int64 {
	return int64(math.RoundToEven(v))
}
