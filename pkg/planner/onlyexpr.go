package planner

import (
	"fmt"

	"github.com/google/cel-go/cel"
)

// CompileOnlyExpr compiles an optional CEL predicate evaluated per
// candidate artifact as {kind, id}, e.g. `kind in ["api","product"]` or
// `kind == "backend" && id.startsWith("internal-")`. This is an
// alternative form of `--only` alongside the plain comma-list of kind
// names Engine.Generate already accepts.
func CompileOnlyExpr(expr string) (cel.Program, error) {
	env, err := cel.NewEnv(
		cel.Variable("kind", cel.StringType),
		cel.Variable("id", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("planner: build CEL environment: %w", err)
	}
	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("planner: compile --only expression %q: %w", expr, iss.Err())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("planner: build CEL program for %q: %w", expr, err)
	}
	return prg, nil
}

// matchesOnlyExpr evaluates prg against one artifact's kind/id. A nil
// program always matches, so callers that don't use the expression form
// of --only can pass nil unconditionally.
func matchesOnlyExpr(prg cel.Program, kind, id string) (bool, error) {
	if prg == nil {
		return true, nil
	}
	out, _, err := prg.Eval(map[string]interface{}{"kind": kind, "id": id})
	if err != nil {
		return false, fmt.Errorf("planner: evaluate --only expression against %s:%s: %w", kind, id, err)
	}
	matched, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("planner: --only expression must evaluate to a bool, got %T", out.Value())
	}
	return matched, nil
}
