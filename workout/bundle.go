// Package workout 健身类型推荐：把表单输入归一化、编码、组装为特征记录，
// 调用分类模型并附上基于目标与 BMI 的训练建议。
package workout

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rushteam/carefolio/config"
	"github.com/rushteam/carefolio/core"
	"github.com/rushteam/carefolio/feature"
	"github.com/rushteam/carefolio/logging"
)

// 训练数据中的字段名
const (
	FieldSex          = "Sex"
	FieldAge          = "Age"
	FieldHeight       = "Height"
	FieldWeight       = "Weight"
	FieldHypertension = "Hypertension"
	FieldDiabetes     = "Diabetes"
	FieldGoal         = "Fitness Goal"
	FieldBMI          = "BMI"
	FieldLevel        = "Level"
)

// 表单默认值
const (
	DefaultSex          = "Male"
	DefaultAge          = 25
	DefaultHeight       = 1.7
	DefaultWeight       = 70
	DefaultHypertension = "No"
	DefaultDiabetes     = "No"
	DefaultGoal         = "Maintain"
	DefaultLevel        = "Normal"
)

// categoricalOrder 训练时类别字段的编码顺序，也是默认特征列的前半部分
var categoricalOrder = []string{FieldSex, FieldHypertension, FieldDiabetes, FieldGoal, FieldLevel}

// DefaultColumns 训练产物未给出 feature_columns 时的特征列：
// 已编码的类别字段（按训练顺序）+ Age、Height、Weight、BMI。
func DefaultColumns(a *feature.Artifacts) []string {
	cols := make([]string, 0, len(categoricalOrder)+4)
	for _, f := range categoricalOrder {
		if _, ok := a.LabelEncoders[f]; ok {
			cols = append(cols, f)
		}
	}
	return append(cols, FieldAge, FieldHeight, FieldWeight, FieldBMI)
}

// Bundle 是一次加载得到的只读推理资源
type Bundle struct {
	Artifacts  *feature.Artifacts
	Classifier core.Classifier
	Target     *feature.SafeLabelEncoder
	Assembler  *feature.Assembler
}

// NewBundle 由训练产物与模型构建推理资源。
// 特征列优先取模型自带的列名，其次 feature_columns，最后 DefaultColumns。
func NewBundle(a *feature.Artifacts, p core.Predictor, policies map[string]feature.FallbackPolicy, logger *zap.Logger) (*Bundle, error) {
	logger = logging.OrNop(logger)
	clf, ok := p.(core.Classifier)
	if !ok {
		return nil, core.NewDomainError(core.ModuleService, core.ErrorCodeInvalidInput,
			fmt.Sprintf("workout: model %q is not a classifier", p.Name()))
	}
	target, err := a.TargetEncoder(feature.WithEncoderLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("workout: target encoder: %w", err)
	}
	encoders, err := a.Encoders(policies, feature.WithEncoderLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("workout: label encoders: %w", err)
	}

	var columns []string
	if fc, ok := p.(core.FeatureColumns); ok {
		columns = fc.Columns()
	}
	if len(columns) > 0 && len(a.FeatureColumns) > 0 {
		if missing := a.MissingColumns(columns); len(missing) > 0 {
			logger.Warn("model columns absent from artifacts feature_columns",
				zap.String("model", p.Name()), zap.Strings("columns", missing))
		}
	}
	if len(columns) == 0 {
		columns = a.FeatureColumns
	}
	if len(columns) == 0 {
		columns = DefaultColumns(a)
	}

	asm, err := feature.NewAssembler(columns, fieldSpecs(a, encoders), feature.WithAssemblerLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("workout: assembler: %w", err)
	}
	return &Bundle{Artifacts: a, Classifier: clf, Target: target, Assembler: asm}, nil
}

func fieldSpecs(a *feature.Artifacts, encoders feature.EncoderSet) []feature.FieldSpec {
	categorical := func(name, key, def string, syn feature.SynonymTable, keys ...string) feature.FieldSpec {
		enc, _ := encoders.Get(name)
		return feature.FieldSpec{
			Name:            name,
			Kind:            feature.KindCategorical,
			Keys:            append([]string{key}, keys...),
			DefaultCategory: def,
			Vocabulary:      a.Vocabulary(name),
			Synonyms:        syn,
			Encoder:         enc,
		}
	}
	numeric := func(name, key string, def float64) feature.FieldSpec {
		return feature.FieldSpec{Name: name, Kind: feature.KindNumeric, Keys: []string{key}, Default: def}
	}
	level, _ := encoders.Get(FieldLevel)

	return []feature.FieldSpec{
		categorical(FieldSex, "sex", DefaultSex, feature.SexSynonyms(), "gender"),
		numeric(FieldAge, "age", DefaultAge),
		numeric(FieldHeight, "height", DefaultHeight),
		numeric(FieldWeight, "weight", DefaultWeight),
		categorical(FieldHypertension, "hypertension", DefaultHypertension, feature.BinarySynonyms()),
		categorical(FieldDiabetes, "diabetes", DefaultDiabetes, feature.BinarySynonyms()),
		categorical(FieldGoal, "goal", DefaultGoal, feature.GoalSynonyms(), "fitness_goal"),
		{
			Name:    FieldBMI,
			Kind:    feature.KindDerived,
			Default: feature.DefaultBMI,
			Rule:    feature.BMIRule{Height: FieldHeight, Weight: FieldWeight},
		},
		{
			Name:            FieldLevel,
			Kind:            feature.KindDerived,
			DefaultCategory: DefaultLevel,
			Vocabulary:      a.Vocabulary(FieldLevel),
			Synonyms:        feature.BMILevelSynonyms(),
			Encoder:         level,
			Rule:            feature.BMILevelRule{BMI: FieldBMI},
		},
	}
}

// LoadBundle 并发加载训练产物与模型并构建推理资源
func LoadBundle(ctx context.Context, cfg config.WorkoutConfig, deps config.Deps) (*Bundle, error) {
	policies, err := parsePolicies(cfg.Fallback)
	if err != nil {
		return nil, err
	}
	if deps.Loader == nil {
		return nil, core.NewDomainError(core.ModuleService, core.ErrorCodeNotInitialized, "workout: no artifact loader")
	}

	var (
		artifacts *feature.Artifacts
		predictor core.Predictor
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		data, err := deps.Loader.Fetch(gctx, cfg.Artifacts)
		if err != nil {
			return fmt.Errorf("workout: load artifacts %s: %w", cfg.Artifacts, err)
		}
		artifacts, err = feature.ParseArtifacts(data)
		return err
	})
	g.Go(func() error {
		var err error
		predictor, err = config.BuildPredictor(gctx, "workout", cfg.Model, deps)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return NewBundle(artifacts, predictor, policies, deps.Logger)
}

func parsePolicies(raw map[string]string) (map[string]feature.FallbackPolicy, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(map[string]feature.FallbackPolicy, len(raw))
	for field, s := range raw {
		p, err := feature.ParseFallbackPolicy(s)
		if err != nil {
			return nil, fmt.Errorf("workout: fallback for %q: %w", field, err)
		}
		out[field] = p
	}
	return out, nil
}
