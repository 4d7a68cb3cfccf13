package feature

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/rushteam/carefolio/core"
	"github.com/rushteam/carefolio/pkg/conv"
)

// Artifacts 训练产物元数据，由训练脚本导出（JSON 或 YAML）。
//
//	{
//	  "feature_columns": ["Sex", "Hypertension", ..., "BMI"],
//	  "dataset_info": {"Sex": ["Male", "Female"], ...},
//	  "label_encoders": {"Sex": ["Female", "Male"], ...},
//	  "target_column": "Fitness Type",
//	  "target_classes": ["Cardio Fitness", "Muscular Fitness"],
//	  "model_version": "2024-06-01"
//	}
type Artifacts struct {
	// FeatureColumns 特征列名列表（按模型输入顺序）
	FeatureColumns []string `json:"feature_columns" yaml:"feature_columns"`
	// DatasetInfo 每个类别字段在训练数据中的原始取值（出现顺序）
	DatasetInfo map[string]StringList `json:"dataset_info" yaml:"dataset_info"`
	// LabelEncoders 每个类别字段的编码类别（sklearn classes_）
	LabelEncoders map[string]StringList `json:"label_encoders" yaml:"label_encoders"`
	// TargetColumn 目标列名
	TargetColumn string `json:"target_column" yaml:"target_column"`
	// TargetClasses 目标类别（sklearn classes_）
	TargetClasses StringList `json:"target_classes" yaml:"target_classes"`
	// ModelVersion 模型版本
	ModelVersion string `json:"model_version" yaml:"model_version"`
	// CreatedAt 创建时间
	CreatedAt string `json:"created_at" yaml:"created_at"`
}

// StringList 接受字符串、数字、bool 混合的标量列表，统一转为字符串。
type StringList []string

// UnmarshalJSON 实现 json.Unmarshaler
func (l *StringList) UnmarshalJSON(data []byte) error {
	var raw []any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	*l = tokens(raw)
	return nil
}

// UnmarshalYAML 实现 yaml.Unmarshaler
func (l *StringList) UnmarshalYAML(node *yaml.Node) error {
	var raw []any
	if err := node.Decode(&raw); err != nil {
		return err
	}
	*l = tokens(raw)
	return nil
}

func tokens(raw []any) StringList {
	return conv.ConvertSlice(raw, func(v any) (string, bool) { return conv.Token(v), true })
}

// ParseArtifacts 解析 JSON 或 YAML 格式的训练产物元数据
func ParseArtifacts(data []byte) (*Artifacts, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, core.NewDomainError(core.ModuleFeature, core.ErrorCodeInvalidInput, "feature: empty artifacts")
	}

	var a Artifacts
	var err error
	if trimmed[0] == '{' {
		err = json.Unmarshal(trimmed, &a)
	} else {
		err = yaml.Unmarshal(trimmed, &a)
	}
	if err != nil {
		return nil, core.WrapDomainError(core.ModuleFeature, core.ErrorCodeInvalidInput, "feature: parse artifacts", err)
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return &a, nil
}

// Validate 检查元数据完整性
func (a *Artifacts) Validate() error {
	for field, classes := range a.LabelEncoders {
		if len(classes) == 0 {
			return core.NewDomainError(core.ModuleFeature, core.ErrorCodeInvalidInput,
				fmt.Sprintf("feature: label encoder %q has no classes", field))
		}
	}
	seen := make(map[string]struct{}, len(a.FeatureColumns))
	for _, c := range a.FeatureColumns {
		if _, dup := seen[c]; dup {
			return core.NewDomainError(core.ModuleFeature, core.ErrorCodeInvalidInput,
				fmt.Sprintf("feature: duplicate feature column %q", c))
		}
		seen[c] = struct{}{}
	}
	return nil
}

// Vocabulary 返回字段的训练词表。dataset_info 缺失时退回到编码器类别。
func (a *Artifacts) Vocabulary(field string) Vocabulary {
	if values, ok := a.DatasetInfo[field]; ok && len(values) > 0 {
		return NewVocabulary(values...)
	}
	if classes, ok := a.LabelEncoders[field]; ok {
		return NewVocabulary(classes...)
	}
	return Vocabulary{}
}

// Encoders 为所有 label_encoders 字段创建编码器
func (a *Artifacts) Encoders(policies map[string]FallbackPolicy, opts ...EncoderOption) (EncoderSet, error) {
	classes := make(map[string][]string, len(a.LabelEncoders))
	for f, cs := range a.LabelEncoders {
		classes[f] = cs
	}
	return NewEncoderSet(classes, policies, opts...)
}

// TargetEncoder 创建目标列编码器，用于把预测下标解码为类别名
func (a *Artifacts) TargetEncoder(opts ...EncoderOption) (*SafeLabelEncoder, error) {
	name := a.TargetColumn
	if name == "" {
		name = "target"
	}
	return NewSafeLabelEncoder(name, a.TargetClasses, opts...)
}

// MissingColumns 返回 columns 中不在 FeatureColumns 里的列
func (a *Artifacts) MissingColumns(columns []string) []string {
	have := make(map[string]struct{}, len(a.FeatureColumns))
	for _, c := range a.FeatureColumns {
		have[c] = struct{}{}
	}
	var missing []string
	for _, c := range columns {
		if _, ok := have[c]; !ok {
			missing = append(missing, c)
		}
	}
	return missing
}
