package core

import "context"

// Predictor 是训练好的表格模型的领域接口。
//
// 设计原则：
//   - 定义在领域层（core），由基础设施层（model）实现
//   - 模型本身不透明：只接收按训练列顺序排列的 Record
//
// 实现：
//   - model.ForestClassifier / model.ForestRegressor / model.BoostedMultiLabel（本地树模型）
//   - model.RPCModel（远程推理服务）
//   - model.Exclusive（对非并发安全预测器的串行包装）
type Predictor interface {
	// Name 返回模型名称（用于日志/监控）
	Name() string
}

// Classifier 输出每个目标类别的概率，顺序与训练时的类别编码一致。
type Classifier interface {
	Predictor
	PredictProba(ctx context.Context, rec *Record) ([]float64, error)
}

// Regressor 输出多目标回归值。
type Regressor interface {
	Predictor
	PredictValues(ctx context.Context, rec *Record) ([]float64, error)
}

// MultiLabelClassifier 输出 0/1 多标签向量。
type MultiLabelClassifier interface {
	Predictor
	PredictLabels(ctx context.Context, rec *Record) ([]int, error)
}

// FeatureColumns 由知道自身训练列的预测器实现（例如带 feature_names 的树模型导出）。
type FeatureColumns interface {
	Columns() []string
}

// Predictor 错误定义
var (
	// ErrPredictorShape 表示输入列数与模型不一致
	ErrPredictorShape = NewDomainError(ModuleModel, ErrorCodeInvalidInput, "model: feature count mismatch")

	// ErrPredictorUnavailable 表示远程模型不可用（含熔断打开）
	ErrPredictorUnavailable = NewDomainError(ModuleModel, ErrorCodeUnavailable, "model: predictor unavailable")
)
