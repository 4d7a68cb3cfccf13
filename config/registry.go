package config

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/rushteam/carefolio/core"
	"github.com/rushteam/carefolio/feature"
	"github.com/rushteam/carefolio/logging"
	"github.com/rushteam/carefolio/model"
)

// 使用配置驱动时，需在 main 或入口处 import _ "github.com/rushteam/carefolio/config/builders"
// 以触发内置预测器（forest、linear、rpc）的 init 注册。

// Deps 构建预测器时可用的依赖
type Deps struct {
	Loader feature.BlobLoader
	Logger *zap.Logger
}

// PredictorBuilder 根据 params 构建预测器。
// 各实现在 init 中调用 Register(typeName, builder) 即可被配置驱动。
type PredictorBuilder func(ctx context.Context, name string, params map[string]any, deps Deps) (core.Predictor, error)

var (
	defaultBuilders   = make(map[string]PredictorBuilder)
	defaultBuildersMu sync.RWMutex
)

// Register 注册一种预测器的构建逻辑。
// 建议在 init 中调用，例如：func init() { config.Register("forest", BuildForest) }
func Register(typeName string, builder PredictorBuilder) {
	if typeName == "" || builder == nil {
		return
	}
	defaultBuildersMu.Lock()
	defer defaultBuildersMu.Unlock()
	defaultBuilders[typeName] = builder
}

// SupportedTypes 返回当前已注册的预测器类型列表（排序），用于错误提示与校验。
func SupportedTypes() []string {
	defaultBuildersMu.RLock()
	defer defaultBuildersMu.RUnlock()
	types := make([]string, 0, len(defaultBuilders))
	for t := range defaultBuilders {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

func lookupBuilder(typeName string) (PredictorBuilder, bool) {
	defaultBuildersMu.RLock()
	defer defaultBuildersMu.RUnlock()
	b, ok := defaultBuilders[typeName]
	return b, ok
}

// validateModel 只校验类型非空；类型是否注册在 BuildPredictor 时检查，
// 因为 builders 包可能尚未被导入。
func validateModel(path string, mc ModelConfig) error {
	if mc.Type == "" {
		return fmt.Errorf("%s.type is required", path)
	}
	return nil
}

// ValidateModelTypes 校验配置中启用的预测器类型均已注册；若有未支持类型则返回包含已支持列表的错误。
func (c *Config) ValidateModelTypes() error {
	var models []ModelConfig
	if c.Workout.Enabled {
		models = append(models, c.Workout.Model)
	}
	if c.MealPlan.Enabled {
		models = append(models, c.MealPlan.Regressor, c.MealPlan.Classifier)
	}
	for _, mc := range models {
		if _, ok := lookupBuilder(mc.Type); !ok {
			return fmt.Errorf("unsupported model type %q (supported: %v)", mc.Type, SupportedTypes())
		}
	}
	return nil
}

// BuildPredictor 按配置构建预测器，并包上指标记录（以及按需的互斥串行）。
func BuildPredictor(ctx context.Context, name string, mc ModelConfig, deps Deps) (core.Predictor, error) {
	b, ok := lookupBuilder(mc.Type)
	if !ok {
		return nil, core.NewDomainError(core.ModuleConfig, core.ErrorCodeNotSupported,
			fmt.Sprintf("config: unsupported model type %q (supported: %v)", mc.Type, SupportedTypes()))
	}
	deps.Logger = logging.OrNop(deps.Logger)
	p, err := b(ctx, name, mc.Params, deps)
	if err != nil {
		return nil, fmt.Errorf("build %s model %q: %w", mc.Type, name, err)
	}
	if mc.Exclusive {
		p = model.NewExclusive(p)
	}
	return model.NewObserved(p), nil
}
