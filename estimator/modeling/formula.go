package modeling

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Formula is a compiled arithmetic expression over named float64 variables.
type Formula struct {
	source  string
	program *vm.Program
}

// CompileFormula compiles source. Only the given variable names may be
// referenced.
func CompileFormula(source string, variables ...string) (*Formula, error) {
	env := make(map[string]any, len(variables))
	for _, v := range variables {
		env[v] = 0.0
	}
	program, err := expr.Compile(source, expr.Env(env), expr.AsFloat64())
	if err != nil {
		return nil, fmt.Errorf("compiling formula %q: %w", source, err)
	}
	return &Formula{source: source, program: program}, nil
}

// MustCompileFormula is CompileFormula for built-in formulas.
func MustCompileFormula(source string, variables ...string) *Formula {
	f, err := CompileFormula(source, variables...)
	if err != nil {
		panic(err)
	}
	return f
}

// Evaluate runs the formula. Variables missing from values are unset and make
// any expression that references them fail.
func (f *Formula) Evaluate(values map[string]float64) (float64, error) {
	env := make(map[string]any, len(values))
	for k, v := range values {
		env[k] = v
	}
	out, err := expr.Run(f.program, env)
	if err != nil {
		return 0, fmt.Errorf("evaluating formula %q: %w", f.source, err)
	}
	v, ok := out.(float64)
	if !ok {
		return 0, fmt.Errorf("evaluating formula %q: result %v is not a number", f.source, out)
	}
	return v, nil
}

func (f *Formula) String() string { return f.source }
