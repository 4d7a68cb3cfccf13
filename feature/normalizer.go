package feature

import (
	"strings"

	"go.uber.org/zap"

	"github.com/rushteam/carefolio/metrics"
	"github.com/rushteam/carefolio/pkg/conv"
)

// Step 表示归一化命中的匹配步骤。
type Step string

const (
	StepExact       Step = "exact"       // 精确匹配
	StepSynonym     Step = "synonym"     // 同义词桥接
	StepCaseFold    Step = "casefold"    // 忽略大小写精确匹配
	StepSubstring   Step = "substring"   // 忽略大小写子串匹配
	StepFallback    Step = "fallback"    // 兜底取词表第一个值
	StepPassthrough Step = "passthrough" // 词表为空，原样返回
)

// Resolution 是一次归一化的结果。
type Resolution struct {
	Value string
	Step  Step
}

// Matched 判断是否命中了词表（非兜底）。
func (r Resolution) Matched() bool {
	return r.Step != StepFallback && r.Step != StepPassthrough
}

// ValueNormalizer 把用户输入的类别值映射到训练词表中的取值。
//
// 匹配顺序（先命中者胜）：
//  1. 精确匹配
//  2. 同义词桥接：标准写法与数据集写法互相映射
//  3. 忽略大小写精确匹配
//  4. 忽略大小写子串匹配（任一方包含另一方，空串跳过）
//  5. 兜底到词表第一个值并告警
//
// 从不返回错误，无状态，可并发使用。
type ValueNormalizer struct {
	logger *zap.Logger
}

// NormalizerOption 归一化器配置项
type NormalizerOption func(*ValueNormalizer)

// WithNormalizerLogger 设置日志
func WithNormalizerLogger(logger *zap.Logger) NormalizerOption {
	return func(n *ValueNormalizer) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// NewValueNormalizer 创建归一化器
func NewValueNormalizer(opts ...NormalizerOption) *ValueNormalizer {
	n := &ValueNormalizer{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize 归一化单个原始值。raw 可以是 string、数字或 bool，先转为 token 再匹配。
func (n *ValueNormalizer) Normalize(field string, raw any, vocab Vocabulary, syn SynonymTable) Resolution {
	token := conv.Token(raw)
	res := resolve(token, vocab, syn)
	metrics.NormalizeResolutions.WithLabelValues(field, string(res.Step)).Inc()

	switch res.Step {
	case StepExact:
	case StepFallback:
		n.logger.Warn("could not map value to vocabulary, using first value",
			zap.String("field", field),
			zap.String("value", token),
			zap.String("fallback", res.Value),
		)
	case StepPassthrough:
		n.logger.Warn("empty vocabulary, passing value through",
			zap.String("field", field),
			zap.String("value", token),
		)
	default:
		n.logger.Debug("mapped value to vocabulary",
			zap.String("field", field),
			zap.String("value", token),
			zap.String("mapped", res.Value),
			zap.String("step", string(res.Step)),
		)
	}
	return res
}

func resolve(token string, vocab Vocabulary, syn SynonymTable) Resolution {
	if vocab.Empty() {
		return Resolution{Value: token, Step: StepPassthrough}
	}
	values := vocab.values

	if vocab.Contains(token) {
		return Resolution{Value: token, Step: StepExact}
	}

	key := foldKey(token)
	for _, member := range values {
		for _, entry := range syn {
			isCanonical := foldKey(entry.Canonical) == key
			if (isCanonical && entry.hasVariant(member)) ||
				(entry.hasVariant(token) && foldKey(member) == foldKey(entry.Canonical)) {
				return Resolution{Value: member, Step: StepSynonym}
			}
		}
	}

	for _, member := range values {
		if foldKey(member) == key {
			return Resolution{Value: member, Step: StepCaseFold}
		}
	}

	if key != "" {
		for _, member := range values {
			m := foldKey(member)
			if m == "" {
				continue
			}
			if strings.Contains(m, key) || strings.Contains(key, m) {
				return Resolution{Value: member, Step: StepSubstring}
			}
		}
	}

	return Resolution{Value: values[0], Step: StepFallback}
}
