package feature

import (
	"errors"
	"math"

	"github.com/rushteam/carefolio/pkg/conv"
	"github.com/rushteam/carefolio/pkg/dsl"
)

// DefaultBMI 是 BMI 无法计算时使用的中性值。
const DefaultBMI = 22.0

// ErrInvalidHeight 身高非正，无法计算 BMI
var ErrInvalidHeight = errors.New("feature: height must be positive")

// DerivedValue 是派生规则的输出：数值或类别。
// 类别输出会像输入类别一样经过归一化与编码。
type DerivedValue struct {
	Number      float64
	Category    string
	Categorical bool
}

// Number 构造数值输出
func Number(v float64) DerivedValue {
	return DerivedValue{Number: v}
}

// Category 构造类别输出
func Category(s string) DerivedValue {
	return DerivedValue{Category: s, Categorical: true}
}

// Rule 根据已组装的数值计算派生字段。values 中包含此前所有字段（含先前的派生字段）。
type Rule interface {
	Derive(values map[string]float64) (DerivedValue, error)
}

// RuleFunc 函数形式的 Rule
type RuleFunc func(values map[string]float64) (DerivedValue, error)

// Derive 实现 Rule
func (f RuleFunc) Derive(values map[string]float64) (DerivedValue, error) {
	return f(values)
}

// CalculateBMI 计算 BMI，height > 10 视为厘米。结果保留两位小数。
func CalculateBMI(height, weight float64) (float64, error) {
	if height > 10 {
		height = height / 100
	}
	if height <= 0 || math.IsNaN(height) {
		return DefaultBMI, ErrInvalidHeight
	}
	return conv.Round(weight/(height*height), 2), nil
}

// BMILevel 返回 BMI 等级
func BMILevel(bmi float64) string {
	switch {
	case bmi < 18.5:
		return "Underweight"
	case bmi < 25:
		return "Normal"
	case bmi < 30:
		return "Overweight"
	default:
		return "Obese"
	}
}

// BMIRule 从身高/体重字段计算 BMI
type BMIRule struct {
	Height string
	Weight string
}

// Derive 实现 Rule
func (r BMIRule) Derive(values map[string]float64) (DerivedValue, error) {
	bmi, err := CalculateBMI(values[r.Height], values[r.Weight])
	if err != nil {
		return Number(DefaultBMI), err
	}
	return Number(bmi), nil
}

// BMILevelRule 从 BMI 字段派生 BMI 等级（类别）
type BMILevelRule struct {
	BMI string
}

// Derive 实现 Rule
func (r BMILevelRule) Derive(values map[string]float64) (DerivedValue, error) {
	return Category(BMILevel(values[r.BMI])), nil
}

// ExprRule 使用 CEL 表达式计算数值派生字段
type ExprRule struct {
	Expr *dsl.Expr
	// Digits 结果保留的小数位，负数表示不取整
	Digits int
}

// NewExprRule 编译表达式创建规则
func NewExprRule(source string, digits int, vars ...string) (*ExprRule, error) {
	e, err := dsl.Compile(source, vars...)
	if err != nil {
		return nil, err
	}
	return &ExprRule{Expr: e, Digits: digits}, nil
}

// Derive 实现 Rule
func (r *ExprRule) Derive(values map[string]float64) (DerivedValue, error) {
	v, err := r.Expr.Eval(values)
	if err != nil {
		return DerivedValue{}, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return DerivedValue{}, errors.New("feature: expression produced a non-finite value")
	}
	if r.Digits >= 0 {
		v = conv.Round(v, r.Digits)
	}
	return Number(v), nil
}
