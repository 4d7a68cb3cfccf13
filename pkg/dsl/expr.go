// Package dsl 提供基于 CEL (Common Expression Language) 的数值表达式，
// 用于按配置计算派生特征（如 BMR、TDEE）。
package dsl

import (
	"fmt"
	"sort"

	"github.com/google/cel-go/cel"
)

// Expr 是编译后的数值表达式，线程安全，可复用。
//
// 所有变量均声明为 double；表达式中的字面量也应写成 double（10.0 而非 10），
// 否则 CEL 会因 int/double 混算报类型错误。
//
// 示例：
//   - `10.0 * weight_kg + 6.25 * height_cm - 5.0 * age + (gender_male == 1.0 ? 5.0 : -161.0)`
//   - `bmr * (activity_level_sedentary == 1.0 ? 1.2 : (activity_level_moderate == 1.0 ? 1.55 : 1.725))`
type Expr struct {
	source string
	vars   []string
	prg    cel.Program
}

// Compile 编译表达式，vars 为表达式可引用的变量名。
func Compile(source string, vars ...string) (*Expr, error) {
	if source == "" {
		return nil, fmt.Errorf("dsl: empty expression")
	}
	names := dedupe(vars)
	opts := make([]cel.EnvOption, 0, len(names))
	for _, v := range names {
		opts = append(opts, cel.Variable(v, cel.DoubleType))
	}
	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, fmt.Errorf("dsl: env error: %w", err)
	}

	ast, issues := env.Compile(source)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("dsl: compile error: %w", issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.DoubleType) && !ast.OutputType().IsExactType(cel.IntType) {
		return nil, fmt.Errorf("dsl: expression must return a number, got %s", ast.OutputType())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("dsl: program error: %w", err)
	}
	return &Expr{source: source, vars: names, prg: prg}, nil
}

// String 返回表达式源码。
func (e *Expr) String() string {
	return e.source
}

// Vars 返回声明的变量名（已排序）。
func (e *Expr) Vars() []string {
	out := make([]string, len(e.vars))
	copy(out, e.vars)
	return out
}

// Eval 以 values 作为变量求值。未提供的变量按 0 处理。
func (e *Expr) Eval(values map[string]float64) (float64, error) {
	input := make(map[string]any, len(e.vars))
	for _, v := range e.vars {
		input[v] = values[v]
	}

	out, _, err := e.prg.Eval(input)
	if err != nil {
		return 0, fmt.Errorf("dsl: eval error: %w", err)
	}

	switch val := out.Value().(type) {
	case float64:
		return val, nil
	case int64:
		return float64(val), nil
	default:
		return 0, fmt.Errorf("dsl: expression must return a number, got %T", out.Value())
	}
}

func dedupe(vars []string) []string {
	seen := make(map[string]struct{}, len(vars))
	out := make([]string, 0, len(vars))
	for _, v := range vars {
		if _, ok := seen[v]; ok || v == "" {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
