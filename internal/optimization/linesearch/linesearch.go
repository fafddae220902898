// Package linesearch finds step lengths along a search direction that
// satisfy sufficient-decrease and curvature conditions.
package linesearch

import (
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/copyleftdev/newtonopt/internal/optimization"
)

// Searcher finds a conforming step along a direction.
type Searcher interface {
	// FindConformingStep evaluates objective at trial points
	// objective.Point() + step*direction, starting at initialStep, and
	// returns the accepted evaluation. The objective passed in must be
	// evaluated and is never mutated.
	FindConformingStep(objective optimization.GradientObjectiveFunction, direction mat.Vector, initialStep float64) (*Result, error)
}

// Result is the outcome of a line search.
type Result struct {
	optimization.MinimizationResult

	// FinalStep is the accepted step length.
	FinalStep float64
}

// Evaluation returns the objective evaluated at the accepted step.
func (r *Result) Evaluation() optimization.GradientObjectiveFunction {
	g, _ := r.FunctionInfoAtMinimum.(optimization.GradientObjectiveFunction)
	return g
}

// Method names accepted by New.
const (
	MethodWeakWolfe    = "weak-wolfe"
	MethodMoreThuente  = "more-thuente"
	MethodBisection    = "bisection"
	MethodBacktracking = "backtracking"
)

// Methods returns the names accepted by New, sorted.
func Methods() []string {
	m := []string{MethodWeakWolfe, MethodMoreThuente, MethodBisection, MethodBacktracking}
	sort.Strings(m)
	return m
}

// Params configures a line search.
type Params struct {
	// C1 is the sufficient decrease (Armijo) factor.
	C1 float64 `yaml:"c1"`
	// C2 is the curvature factor.
	C2 float64 `yaml:"c2"`
	// ParameterTolerance stops the search when the bracket no longer
	// changes the point meaningfully.
	ParameterTolerance float64 `yaml:"parameter_tolerance"`
	// MaximumIterations bounds the number of trial steps.
	MaximumIterations int `yaml:"maximum_iterations"`
}

// DefaultParams returns the parameters used by the Newton minimizer.
func DefaultParams() Params {
	return Params{
		C1:                 1e-4,
		C2:                 0.9,
		ParameterTolerance: 1e-4,
		MaximumIterations:  1000,
	}
}

// New builds the searcher registered under method.
func New(method string, p Params, logger *zap.Logger) (Searcher, error) {
	switch method {
	case MethodWeakWolfe, "":
		ls, err := NewWeakWolfe(p.C1, p.C2, p.ParameterTolerance, p.MaximumIterations)
		if err != nil {
			return nil, err
		}
		return ls.WithLogger(logger), nil
	case MethodMoreThuente:
		ls, err := NewMoreThuente(p.C1, p.C2, p.MaximumIterations)
		if err != nil {
			return nil, err
		}
		return ls.WithLogger(logger), nil
	case MethodBisection:
		ls, err := NewBisection(p.C2, p.MaximumIterations)
		if err != nil {
			return nil, err
		}
		return ls.WithLogger(logger), nil
	case MethodBacktracking:
		ls, err := NewBacktracking(p.C1, p.MaximumIterations)
		if err != nil {
			return nil, err
		}
		return ls.WithLogger(logger), nil
	default:
		return nil, optimization.NewErrorf(optimization.KindInvalidArgument,
			"unknown line search method %q (want one of %v)", method, Methods()).
			WithComponent("linesearch")
	}
}

// start holds the validated inputs shared by every searcher.
type start struct {
	point     mat.Vector
	value     float64
	slope     float64
	candidate optimization.GradientObjectiveFunction
}

func prepare(objective optimization.GradientObjectiveFunction, direction mat.Vector, initialStep float64) (*start, error) {
	const op = "linesearch.prepare"

	invalid := func(format string, args ...interface{}) error {
		return optimization.NewErrorf(optimization.KindInvalidArgument, format, args...).
			WithOperation(op).WithComponent("linesearch")
	}

	if objective == nil || !objective.Evaluated() {
		return nil, invalid("objective must be evaluated before a line search")
	}
	if direction == nil || direction.Len() != objective.Point().Len() {
		return nil, invalid("direction must have the dimension of the point")
	}
	if !(initialStep > 0) || math.IsInf(initialStep, 1) {
		return nil, invalid("initial step must be positive and finite, got %v", initialStep)
	}
	if err := optimization.ValidateValue(objective); err != nil {
		return nil, err
	}
	if err := optimization.ValidateGradient(objective); err != nil {
		return nil, err
	}

	candidate, ok := objective.CreateNew().(optimization.GradientObjectiveFunction)
	if !ok {
		return nil, invalid("objective copies do not provide gradients")
	}

	return &start{
		point:     objective.Point(),
		value:     objective.Value(),
		slope:     mat.Dot(direction, objective.Gradient()),
		candidate: candidate,
	}, nil
}

// evaluateAt evaluates s.candidate at s.point + step*direction and returns
// the directional derivative there.
func (s *start) evaluateAt(trial *mat.VecDense, direction mat.Vector, step float64) (float64, error) {
	trial.AddScaledVec(s.point, step, direction)
	if err := s.candidate.Evaluate(trial); err != nil {
		return 0, err
	}
	if err := optimization.ValidateValue(s.candidate); err != nil {
		return 0, err
	}
	if err := optimization.ValidateGradient(s.candidate); err != nil {
		return 0, err
	}
	return mat.Dot(direction, s.candidate.Gradient()), nil
}

func budgetExhausted(component string, iterations int, unbounded bool) error {
	msg := fmt.Sprintf("maximum iterations (%d) reached", iterations)
	if unbounded {
		msg += ", no upper bound found; the function may be unbounded below"
	}
	return optimization.NewError(optimization.KindMaximumIterations, msg).
		WithOperation("FindConformingStep").WithComponent(component)
}
