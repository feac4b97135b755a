// Package flow implements a small declarative step-sequencer. A flow is an
// ordered list of steps, each naming a backend tool, its arguments, and
// optional pre/postconditions written as expressions. Flows are process-wide
// read-only configuration; per-session state travels in the context map.
package flow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Executor dispatches a tool call to the backend service that owns it.
type Executor interface {
	Execute(ctx context.Context, toolName string, args map[string]interface{}) (map[string]interface{}, error)
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, toolName string, args map[string]interface{}) (map[string]interface{}, error)

func (f ExecutorFunc) Execute(ctx context.Context, toolName string, args map[string]interface{}) (map[string]interface{}, error) {
	return f(ctx, toolName, args)
}

// Step statuses recorded in the flow results.
const (
	StatusSuccess          = "success"
	StatusSkipped          = "skipped"
	StatusError            = "error"
	StatusValidationFailed = "validation_failed"
)

// Context keys every finished flow carries.
const (
	KeyExecutedSteps = "executed_steps"
	KeyFlowResults   = "flow_results"
)

// StepConfig declares a step before compilation. Precondition is evaluated
// against the running flow context; Postcondition against {args, result}.
// Both are expression strings; use the ?? coalescing operator for keys that
// may be absent from the context.
type StepConfig struct {
	Name          string
	Tool          string
	RequiredArgs  []string
	OptionalArgs  []string
	Precondition  string
	Postcondition string
	Extract       func(result map[string]interface{}) map[string]interface{}
}

// Step is a compiled, immutable flow step.
type Step struct {
	name          string
	tool          string
	requiredArgs  []string
	optionalArgs  []string
	precondition  *vm.Program
	preSource     string
	postcondition *vm.Program
	postSource    string
	extract       func(result map[string]interface{}) map[string]interface{}
}

// NewStep compiles a step config. Expression errors surface at registration
// time, not mid-flow.
func NewStep(cfg StepConfig) (*Step, error) {
	if cfg.Name == "" || cfg.Tool == "" {
		return nil, fmt.Errorf("step requires a name and a tool")
	}
	s := &Step{
		name:         cfg.Name,
		tool:         cfg.Tool,
		requiredArgs: cfg.RequiredArgs,
		optionalArgs: cfg.OptionalArgs,
		preSource:    cfg.Precondition,
		postSource:   cfg.Postcondition,
		extract:      cfg.Extract,
	}
	if cfg.Precondition != "" {
		program, err := expr.Compile(cfg.Precondition)
		if err != nil {
			return nil, fmt.Errorf("step %s: compile precondition: %w", cfg.Name, err)
		}
		s.precondition = program
	}
	if cfg.Postcondition != "" {
		program, err := expr.Compile(cfg.Postcondition)
		if err != nil {
			return nil, fmt.Errorf("step %s: compile postcondition: %w", cfg.Name, err)
		}
		s.postcondition = program
	}
	return s, nil
}

// MustStep is NewStep for static flow tables; panics on a bad config.
func MustStep(cfg StepConfig) *Step {
	s, err := NewStep(cfg)
	if err != nil {
		panic(err)
	}
	return s
}

// Name returns the step name.
func (s *Step) Name() string { return s.name }

// CanExecute reports whether every required arg is present in the context and
// the precondition (if any) holds. An evaluation error counts as false.
func (s *Step) CanExecute(fctx map[string]interface{}) bool {
	for _, arg := range s.requiredArgs {
		if _, ok := fctx[arg]; !ok {
			return false
		}
	}
	if s.precondition == nil {
		return true
	}
	out, err := expr.Run(s.precondition, fctx)
	if err != nil {
		slog.Debug("flow precondition evaluation failed", "step", s.name, "expr", s.preSource, "error", err)
		return false
	}
	b, ok := out.(bool)
	return ok && b
}

// BuildArgs copies required args verbatim and optional args when present.
// Missing optional args are omitted, never defaulted.
func (s *Step) BuildArgs(fctx map[string]interface{}) map[string]interface{} {
	args := make(map[string]interface{}, len(s.requiredArgs)+len(s.optionalArgs))
	for _, arg := range s.requiredArgs {
		args[arg] = fctx[arg]
	}
	for _, arg := range s.optionalArgs {
		if v, ok := fctx[arg]; ok {
			args[arg] = v
		}
	}
	return args
}

// checkPostcondition evaluates the postcondition over the args and result.
// No postcondition means the step passes.
func (s *Step) checkPostcondition(args, result map[string]interface{}) bool {
	if s.postcondition == nil {
		return true
	}
	env := map[string]interface{}{"args": args, "result": result}
	out, err := expr.Run(s.postcondition, env)
	if err != nil {
		slog.Debug("flow postcondition evaluation failed", "step", s.name, "expr", s.postSource, "error", err)
		return false
	}
	b, ok := out.(bool)
	return ok && b
}

// Flow is an immutable ordered list of steps.
type Flow struct {
	name  string
	steps []*Step
}

// NewFlow creates a flow from compiled steps.
func NewFlow(name string, steps ...*Step) *Flow {
	return &Flow{name: name, steps: steps}
}

// Name returns the flow name.
func (f *Flow) Name() string { return f.name }

// Execute runs the steps in declaration order against the executor.
// A step whose precondition fails is skipped and execution continues. A step
// whose tool call errors, or whose postcondition fails, halts the flow. The
// returned context always carries executed_steps and flow_results.
func (f *Flow) Execute(ctx context.Context, exec Executor, initial map[string]interface{}) map[string]interface{} {
	fctx := make(map[string]interface{}, len(initial)+2)
	for k, v := range initial {
		fctx[k] = v
	}

	var executed []string
	results := make(map[string]interface{}, len(f.steps))

	for _, step := range f.steps {
		if !step.CanExecute(fctx) {
			results[step.name] = map[string]interface{}{"status": StatusSkipped}
			continue
		}

		args := step.BuildArgs(fctx)
		result, err := exec.Execute(ctx, step.tool, args)
		if err != nil {
			results[step.name] = map[string]interface{}{
				"status": StatusError,
				"error":  err.Error(),
			}
			break
		}

		if !step.checkPostcondition(args, result) {
			results[step.name] = map[string]interface{}{
				"status": StatusValidationFailed,
				"result": result,
			}
			break
		}

		results[step.name] = map[string]interface{}{
			"status": StatusSuccess,
			"result": result,
		}
		executed = append(executed, step.name)

		if step.extract != nil {
			for k, v := range step.extract(result) {
				fctx[k] = v
			}
		}
	}

	fctx[KeyExecutedSteps] = executed
	fctx[KeyFlowResults] = results
	return fctx
}
