package feature

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/rushteam/carefolio/core"
	"github.com/rushteam/carefolio/metrics"
)

// FallbackKind 未知类别的回退方式
type FallbackKind string

const (
	FallbackFirst FallbackKind = "first" // 第一个类别（编码 0）
	FallbackClass FallbackKind = "class" // 指定类别
	FallbackCode  FallbackKind = "code"  // 指定编码
)

// FallbackPolicy 决定未知类别编码成什么。零值等价于 FallbackFirst。
type FallbackPolicy struct {
	Kind  FallbackKind
	Class string
	Code  int
}

// ParseFallbackPolicy 解析 "first"、"class:<name>"、"code:<n>"，空串视为 "first"。
func ParseFallbackPolicy(s string) (FallbackPolicy, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == string(FallbackFirst) {
		return FallbackPolicy{Kind: FallbackFirst}, nil
	}
	kind, arg, ok := strings.Cut(s, ":")
	if !ok {
		return FallbackPolicy{}, fmt.Errorf("feature: invalid fallback policy %q", s)
	}
	switch FallbackKind(kind) {
	case FallbackClass:
		if arg == "" {
			return FallbackPolicy{}, fmt.Errorf("feature: fallback policy %q needs a class name", s)
		}
		return FallbackPolicy{Kind: FallbackClass, Class: arg}, nil
	case FallbackCode:
		code, err := strconv.Atoi(arg)
		if err != nil {
			return FallbackPolicy{}, fmt.Errorf("feature: fallback policy %q: %w", s, err)
		}
		return FallbackPolicy{Kind: FallbackCode, Code: code}, nil
	default:
		return FallbackPolicy{}, fmt.Errorf("feature: unknown fallback policy kind %q", kind)
	}
}

func (p FallbackPolicy) String() string {
	switch p.Kind {
	case FallbackClass:
		return string(FallbackClass) + ":" + p.Class
	case FallbackCode:
		return string(FallbackCode) + ":" + strconv.Itoa(p.Code)
	default:
		return string(FallbackFirst)
	}
}

// resolve 计算回退编码
func (p FallbackPolicy) resolve(codes map[string]int, n int) (int, error) {
	switch p.Kind {
	case FallbackClass:
		code, ok := codes[p.Class]
		if !ok {
			return 0, fmt.Errorf("feature: fallback class %q is not a known class", p.Class)
		}
		return code, nil
	case FallbackCode:
		if p.Code < 0 || p.Code >= n {
			return 0, fmt.Errorf("feature: fallback code %d out of range [0,%d)", p.Code, n)
		}
		return p.Code, nil
	default:
		return 0, nil
	}
}

// EncodeResult 单个值的编码结果。Matched=false 表示使用了回退编码。
type EncodeResult struct {
	Code    int
	Matched bool
}

// SafeLabelEncoder 是容忍未知类别的 Label 编码器。
//
// 类别按字典序排序（与 sklearn LabelEncoder 一致），编码即排序后的下标。
// 未知类别不报错，按回退策略编码并记录告警。构造后不可变，可并发使用。
type SafeLabelEncoder struct {
	field    string
	classes  []string
	codes    map[string]int
	policy   FallbackPolicy
	fallback int
	logger   *zap.Logger
}

// EncoderOption 编码器配置项
type EncoderOption func(*SafeLabelEncoder)

// WithFallbackPolicy 设置回退策略
func WithFallbackPolicy(p FallbackPolicy) EncoderOption {
	return func(e *SafeLabelEncoder) {
		e.policy = p
	}
}

// WithEncoderLogger 设置日志
func WithEncoderLogger(logger *zap.Logger) EncoderOption {
	return func(e *SafeLabelEncoder) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewSafeLabelEncoder 创建编码器。classes 会去重并排序，不能为空。
func NewSafeLabelEncoder(field string, classes []string, opts ...EncoderOption) (*SafeLabelEncoder, error) {
	sorted := uniqueSorted(classes)
	if len(sorted) == 0 {
		return nil, core.NewDomainError(core.ModuleFeature, core.ErrorCodeInvalidInput,
			fmt.Sprintf("feature: encoder %q has no classes", field))
	}

	e := &SafeLabelEncoder{
		field:   field,
		classes: sorted,
		codes:   make(map[string]int, len(sorted)),
		logger:  zap.NewNop(),
	}
	for i, c := range sorted {
		e.codes[c] = i
	}
	for _, opt := range opts {
		opt(e)
	}

	fallback, err := e.policy.resolve(e.codes, len(sorted))
	if err != nil {
		return nil, core.WrapDomainError(core.ModuleFeature, core.ErrorCodeInvalidInput,
			fmt.Sprintf("feature: encoder %q", field), err)
	}
	e.fallback = fallback
	return e, nil
}

// Field 返回字段名
func (e *SafeLabelEncoder) Field() string {
	return e.field
}

// Classes 返回排序后的类别副本
func (e *SafeLabelEncoder) Classes() []string {
	out := make([]string, len(e.classes))
	copy(out, e.classes)
	return out
}

// FallbackCode 返回未知类别使用的编码
func (e *SafeLabelEncoder) FallbackCode() int {
	return e.fallback
}

// Encode 编码单个值
func (e *SafeLabelEncoder) Encode(value string) EncodeResult {
	if code, ok := e.codes[value]; ok {
		return EncodeResult{Code: code, Matched: true}
	}
	metrics.EncodeFallbacks.WithLabelValues(e.field).Inc()
	e.logger.Warn("unseen label, using fallback code",
		zap.String("field", e.field),
		zap.String("value", value),
		zap.Int("code", e.fallback),
		zap.String("class", e.classes[e.fallback]),
	)
	return EncodeResult{Code: e.fallback, Matched: false}
}

// EncodeBatch 批量编码，每个元素独立处理
func (e *SafeLabelEncoder) EncodeBatch(values []string) []EncodeResult {
	out := make([]EncodeResult, len(values))
	for i, v := range values {
		out[i] = e.Encode(v)
	}
	return out
}

// Decode 编码反查类别
func (e *SafeLabelEncoder) Decode(code int) (string, bool) {
	if code < 0 || code >= len(e.classes) {
		return "", false
	}
	return e.classes[code], true
}

func uniqueSorted(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// EncoderSet 是字段名到编码器的映射，构造后只读。
type EncoderSet map[string]*SafeLabelEncoder

// NewEncoderSet 按 field -> classes 批量创建编码器。
// policies 为每个字段单独指定的回退策略，未指定的使用 FallbackFirst。
func NewEncoderSet(classes map[string][]string, policies map[string]FallbackPolicy, opts ...EncoderOption) (EncoderSet, error) {
	set := make(EncoderSet, len(classes))
	for field, cs := range classes {
		fieldOpts := append([]EncoderOption{}, opts...)
		if p, ok := policies[field]; ok {
			fieldOpts = append(fieldOpts, WithFallbackPolicy(p))
		}
		enc, err := NewSafeLabelEncoder(field, cs, fieldOpts...)
		if err != nil {
			return nil, err
		}
		set[field] = enc
	}
	return set, nil
}

// Get 获取字段编码器
func (s EncoderSet) Get(field string) (*SafeLabelEncoder, bool) {
	enc, ok := s[field]
	return enc, ok
}

// Fields 返回已排序的字段名
func (s EncoderSet) Fields() []string {
	out := make([]string, 0, len(s))
	for f := range s {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// OneHotEncoder One-Hot 编码（pandas get_dummies(drop_first=True) 命名）
// 列名为 "<Field>_<Category>"，基准类别不占列，编码为全 0。
type OneHotEncoder struct {
	Field      string
	Categories []string // 有列的类别，顺序即列顺序
}

// NewOneHotEncoder 创建 One-Hot 编码器
func NewOneHotEncoder(field string, categories ...string) *OneHotEncoder {
	cs := make([]string, len(categories))
	copy(cs, categories)
	return &OneHotEncoder{Field: field, Categories: cs}
}

// OneHotFromColumns 从模型特征列中挑出 "<field>_" 前缀的哑变量列构建编码器。
// 找不到任何列时返回 nil。
func OneHotFromColumns(field string, columns []string) *OneHotEncoder {
	prefix := field + "_"
	var cats []string
	for _, c := range columns {
		if strings.HasPrefix(c, prefix) && len(c) > len(prefix) {
			cats = append(cats, c[len(prefix):])
		}
	}
	if len(cats) == 0 {
		return nil
	}
	return NewOneHotEncoder(field, cats...)
}

// Column 返回类别对应的列名
func (e *OneHotEncoder) Column(category string) string {
	return e.Field + "_" + category
}

// Columns 返回全部哑变量列名
func (e *OneHotEncoder) Columns() []string {
	out := make([]string, len(e.Categories))
	for i, c := range e.Categories {
		out[i] = e.Column(c)
	}
	return out
}

// Encode 编码单个值（值需先经过归一化），命中的列为 1，其余为 0
func (e *OneHotEncoder) Encode(value string) map[string]float64 {
	encoded := make(map[string]float64, len(e.Categories))
	for _, c := range e.Categories {
		if c == value {
			encoded[e.Column(c)] = 1.0
		} else {
			encoded[e.Column(c)] = 0.0
		}
	}
	return encoded
}
