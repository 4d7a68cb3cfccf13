package feature

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/rushteam/carefolio/core"
	"github.com/rushteam/carefolio/metrics"
	"github.com/rushteam/carefolio/pkg/conv"
)

// FieldKind 字段类型
type FieldKind string

const (
	KindNumeric     FieldKind = "numeric"     // 数值，解析失败或缺失时使用默认值
	KindFlag        FieldKind = "flag"        // 0/1 标志，接受 yes/no/true/1 等写法
	KindCategorical FieldKind = "categorical" // 类别，归一化后 Label 编码
	KindOneHot      FieldKind = "onehot"      // 类别，归一化后展开为哑变量列
	KindDerived     FieldKind = "derived"     // 派生，在所有输入字段之后按声明顺序计算
)

// FieldSpec 描述一个字段如何从原始输入组装。
type FieldSpec struct {
	Name string
	Kind FieldKind
	// Keys 原始输入中的候选键，按顺序查找；之后再查 Name 与忽略大小写的 Name
	Keys []string
	// Default 数值/标志/派生字段的默认值
	Default float64
	// DefaultCategory 类别字段缺失时使用的类别
	DefaultCategory string
	Vocabulary      Vocabulary
	Synonyms        SynonymTable
	Encoder         *SafeLabelEncoder
	OneHot          *OneHotEncoder
	Rule            Rule
	// PreferInput 派生字段在原始输入可解析时直接使用输入值
	PreferInput bool
}

// NoteKind 组装诊断类型
type NoteKind string

const (
	NoteNormalizeFallback NoteKind = "normalize_fallback"
	NoteEncodeFallback    NoteKind = "encode_fallback"
	NoteNumericDefault    NoteKind = "numeric_default"
	NoteDerivedDefault    NoteKind = "derived_default"
)

// Note 是一次组装中的非致命诊断
type Note struct {
	Field  string
	Kind   NoteKind
	Detail string
}

// Assembly 是组装的完整结果
type Assembly struct {
	Record *core.Record
	// Values 所有字段的数值（含不在模型列中的辅助字段）
	Values map[string]float64
	// Categories 类别字段归一化后的取值
	Categories map[string]string
	Notes      []Note
}

// Assembler 按模型特征列顺序组装特征记录。构造后只读，可并发使用。
type Assembler struct {
	columns    []string
	inputs     []FieldSpec
	derived    []FieldSpec
	specced    map[string]struct{}
	normalizer *ValueNormalizer
	logger     *zap.Logger
}

// AssemblerOption 组装器配置项
type AssemblerOption func(*Assembler)

// WithAssemblerLogger 设置日志
func WithAssemblerLogger(logger *zap.Logger) AssemblerOption {
	return func(a *Assembler) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithNormalizer 设置归一化器
func WithNormalizer(n *ValueNormalizer) AssemblerOption {
	return func(a *Assembler) {
		if n != nil {
			a.normalizer = n
		}
	}
}

// NewAssembler 创建组装器。columns 是模型特征列（顺序即输出顺序），
// 没有 FieldSpec 的列按数值处理、默认 0。
func NewAssembler(columns []string, specs []FieldSpec, opts ...AssemblerOption) (*Assembler, error) {
	if len(columns) == 0 {
		return nil, core.NewDomainError(core.ModuleFeature, core.ErrorCodeInvalidInput, "feature: assembler needs at least one column")
	}
	a := &Assembler{
		columns: append([]string(nil), columns...),
		specced: make(map[string]struct{}, len(specs)),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.normalizer == nil {
		a.normalizer = NewValueNormalizer(WithNormalizerLogger(a.logger))
	}

	for _, s := range specs {
		if s.Name == "" {
			return nil, core.NewDomainError(core.ModuleFeature, core.ErrorCodeInvalidInput, "feature: field spec without name")
		}
		if _, dup := a.specced[s.Name]; dup {
			return nil, core.NewDomainError(core.ModuleFeature, core.ErrorCodeInvalidInput,
				fmt.Sprintf("feature: duplicate field spec %q", s.Name))
		}
		a.specced[s.Name] = struct{}{}

		switch s.Kind {
		case KindNumeric, KindFlag, KindCategorical:
			a.inputs = append(a.inputs, s)
		case KindOneHot:
			if s.OneHot == nil {
				return nil, core.NewDomainError(core.ModuleFeature, core.ErrorCodeInvalidInput,
					fmt.Sprintf("feature: onehot field %q without encoder", s.Name))
			}
			a.inputs = append(a.inputs, s)
		case KindDerived:
			if s.Rule == nil {
				return nil, core.NewDomainError(core.ModuleFeature, core.ErrorCodeInvalidInput,
					fmt.Sprintf("feature: derived field %q without rule", s.Name))
			}
			a.derived = append(a.derived, s)
		default:
			return nil, core.NewDomainError(core.ModuleFeature, core.ErrorCodeInvalidInput,
				fmt.Sprintf("feature: field %q has unknown kind %q", s.Name, s.Kind))
		}
	}
	return a, nil
}

// Columns 返回模型特征列副本
func (a *Assembler) Columns() []string {
	return append([]string(nil), a.columns...)
}

// Assemble 组装特征记录。缺失字段取默认值，多余的原始键被忽略，从不失败。
func (a *Assembler) Assemble(raw map[string]any) *core.Record {
	return a.AssembleDetailed(raw).Record
}

// AssembleDetailed 组装特征记录并返回中间结果与诊断
func (a *Assembler) AssembleDetailed(raw map[string]any) *Assembly {
	out := &Assembly{
		Record:     core.NewRecord(a.columns),
		Values:     make(map[string]float64, len(a.columns)+len(a.inputs)),
		Categories: make(map[string]string),
	}
	set := func(name string, v float64) {
		out.Values[name] = v
		out.Record.Set(name, v)
	}

	for _, s := range a.inputs {
		v, present := lookup(raw, s)
		switch s.Kind {
		case KindNumeric:
			set(s.Name, a.numeric(out, s, v, present))
		case KindFlag:
			set(s.Name, a.flag(out, s, v, present))
		case KindCategorical:
			if !present || isBlank(v) {
				v = s.DefaultCategory
			}
			code, category := a.categorical(out, s, v)
			out.Categories[s.Name] = category
			set(s.Name, code)
		case KindOneHot:
			if !present || isBlank(v) {
				continue
			}
			res := a.normalizer.Normalize(s.Name, v, s.Vocabulary, s.Synonyms)
			if !res.Matched() {
				out.Notes = append(out.Notes, Note{Field: s.Name, Kind: NoteNormalizeFallback, Detail: conv.Token(v)})
			}
			out.Categories[s.Name] = res.Value
			for col, bit := range s.OneHot.Encode(res.Value) {
				set(col, bit)
			}
		}
	}

	// 没有 FieldSpec 的模型列：原始输入中存在且可解析则使用，否则保持当前值（默认 0）
	for _, col := range a.columns {
		if _, ok := a.specced[col]; ok {
			continue
		}
		v, present := lookup(raw, FieldSpec{Name: col})
		if !present {
			if _, ok := out.Values[col]; !ok {
				out.Values[col] = 0
			}
			continue
		}
		f, ok := conv.ToFloat64(v)
		if !ok {
			f, ok = parseFlag(v)
		}
		if !ok {
			metrics.NumericDefaults.WithLabelValues(col).Inc()
			out.Notes = append(out.Notes, Note{Field: col, Kind: NoteNumericDefault, Detail: conv.Token(v)})
			a.logger.Warn("unparseable value, using default", zap.String("field", col), zap.String("value", conv.Token(v)))
			f = 0
		}
		set(col, f)
	}

	for _, s := range a.derived {
		if s.PreferInput {
			if v, present := lookup(raw, s); present {
				if f, ok := conv.ToFloat64(v); ok {
					set(s.Name, f)
					continue
				}
			}
		}
		dv, err := s.Rule.Derive(out.Values)
		if err != nil {
			metrics.DerivedFallbacks.WithLabelValues(s.Name).Inc()
			out.Notes = append(out.Notes, Note{Field: s.Name, Kind: NoteDerivedDefault, Detail: err.Error()})
			a.logger.Warn("derived field failed, using default",
				zap.String("field", s.Name), zap.Float64("default", s.Default), zap.Error(err))
			if s.DefaultCategory != "" {
				dv = Category(s.DefaultCategory)
			} else {
				dv = Number(s.Default)
			}
		}
		if dv.Categorical {
			code, category := a.categorical(out, s, dv.Category)
			out.Categories[s.Name] = category
			set(s.Name, code)
			continue
		}
		set(s.Name, dv.Number)
	}
	return out
}

func (a *Assembler) numeric(out *Assembly, s FieldSpec, v any, present bool) float64 {
	if !present {
		return s.Default
	}
	if f, ok := conv.ToFloat64(v); ok {
		return f
	}
	metrics.NumericDefaults.WithLabelValues(s.Name).Inc()
	out.Notes = append(out.Notes, Note{Field: s.Name, Kind: NoteNumericDefault, Detail: conv.Token(v)})
	a.logger.Warn("unparseable value, using default",
		zap.String("field", s.Name), zap.String("value", conv.Token(v)), zap.Float64("default", s.Default))
	return s.Default
}

func (a *Assembler) flag(out *Assembly, s FieldSpec, v any, present bool) float64 {
	if !present {
		return s.Default
	}
	if f, ok := parseFlag(v); ok {
		return f
	}
	metrics.NumericDefaults.WithLabelValues(s.Name).Inc()
	out.Notes = append(out.Notes, Note{Field: s.Name, Kind: NoteNumericDefault, Detail: conv.Token(v)})
	a.logger.Warn("unrecognized flag, using default",
		zap.String("field", s.Name), zap.String("value", conv.Token(v)), zap.Float64("default", s.Default))
	return s.Default
}

// categorical 归一化并编码类别值，返回编码与归一化后的类别
func (a *Assembler) categorical(out *Assembly, s FieldSpec, v any) (float64, string) {
	category := conv.Token(v)
	if !s.Vocabulary.Empty() {
		res := a.normalizer.Normalize(s.Name, v, s.Vocabulary, s.Synonyms)
		if !res.Matched() {
			out.Notes = append(out.Notes, Note{Field: s.Name, Kind: NoteNormalizeFallback, Detail: category})
		}
		category = res.Value
	}
	if s.Encoder == nil {
		f, _ := conv.ToFloat64(category)
		return f, category
	}
	enc := s.Encoder.Encode(category)
	if !enc.Matched {
		out.Notes = append(out.Notes, Note{Field: s.Name, Kind: NoteEncodeFallback, Detail: category})
	}
	return float64(enc.Code), category
}

var flagVocabulary = NewVocabulary("Yes", "No")

// parseFlag 解析 0/1 标志：数字非 0 为 1，字符串走是/否同义词表
func parseFlag(v any) (float64, bool) {
	if f, ok := conv.ToFloat64(v); ok {
		if f != 0 {
			return 1, true
		}
		return 0, true
	}
	res := resolve(conv.Token(v), flagVocabulary, BinarySynonyms())
	switch {
	case res.Step == StepExact || res.Step == StepSynonym || res.Step == StepCaseFold:
		if res.Value == "Yes" {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// lookup 按 Keys、Name、忽略大小写的 Name 顺序查找原始值，nil 视为缺失
func lookup(raw map[string]any, s FieldSpec) (any, bool) {
	if raw == nil {
		return nil, false
	}
	for _, k := range s.Keys {
		if v, ok := raw[k]; ok && v != nil {
			return v, true
		}
	}
	if v, ok := raw[s.Name]; ok && v != nil {
		return v, true
	}
	// 多个键忽略大小写后相同时取字典序最小者，保证结果确定
	match := ""
	found := false
	for k, v := range raw {
		if v != nil && strings.EqualFold(k, s.Name) && (!found || k < match) {
			match, found = k, true
		}
	}
	if found {
		return raw[match], true
	}
	return nil, false
}

func isBlank(v any) bool {
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}
