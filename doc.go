// Package carefolio 是一个健康管理预测服务工具包。
//
// 设计要点：
// - Artifacts-first: 特征列、类别词表、目标类别全部来自训练产物元数据，代码不写死
// - Safe encoding: 类别值先归一化（精确 → 大小写 → 同义词 → 默认值），编码永不失败
// - Predictor 可替换: 本地树模型、线性模型或 RPC 模型通过配置注册表选择
//
// 服务：
// - workout: 根据个人资料推荐健身类型并给出建议
// - mealplan: 预测营养目标与饮食计划标签
// - coach: 基于托管大模型的健身问答
package carefolio

import (
	"github.com/rushteam/carefolio/core"
	"github.com/rushteam/carefolio/feature"
)

// 轻量 facade：便于用户直接 import "carefolio" 使用核心抽象。
type Record = core.Record
type Predictor = core.Predictor
type Classifier = core.Classifier
type Regressor = core.Regressor
type MultiLabelClassifier = core.MultiLabelClassifier
type Store = core.Store
type Artifacts = feature.Artifacts
type Assembler = feature.Assembler
