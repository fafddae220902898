package linesearch

import (
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/copyleftdev/newtonopt/internal/optimization"
)

// WeakWolfe is a bisection line search for the weak Wolfe conditions:
//
//	f(x + a·d) <= f(x) + C1·a·∇f(x)ᵀd      (sufficient decrease)
//	∇f(x + a·d)ᵀd >= C2·∇f(x)ᵀd             (curvature)
//
// The step is doubled until an upper bound is found and bisected after.
type WeakWolfe struct {
	C1                 float64
	C2                 float64
	ParameterTolerance float64
	MaximumIterations  int

	logger *zap.Logger
}

var _ Searcher = (*WeakWolfe)(nil)

// NewWeakWolfe creates a weak Wolfe line search.
// It requires 0 < c1 < c2 < 1, a positive tolerance and a positive budget.
func NewWeakWolfe(c1, c2, parameterTolerance float64, maximumIterations int) (*WeakWolfe, error) {
	if !(c1 > 0 && c1 < c2 && c2 < 1) {
		return nil, optimization.NewErrorf(optimization.KindInvalidArgument,
			"weak wolfe: need 0 < c1 < c2 < 1, got c1=%v c2=%v", c1, c2)
	}
	if !(parameterTolerance > 0) {
		return nil, optimization.NewErrorf(optimization.KindInvalidArgument,
			"weak wolfe: parameter tolerance must be positive, got %v", parameterTolerance)
	}
	if maximumIterations <= 0 {
		return nil, optimization.NewErrorf(optimization.KindInvalidArgument,
			"weak wolfe: maximum iterations must be positive, got %d", maximumIterations)
	}
	return &WeakWolfe{
		C1:                 c1,
		C2:                 c2,
		ParameterTolerance: parameterTolerance,
		MaximumIterations:  maximumIterations,
		logger:             zap.NewNop(),
	}, nil
}

// DefaultWeakWolfe returns the line search with DefaultParams.
func DefaultWeakWolfe() *WeakWolfe {
	p := DefaultParams()
	ls, _ := NewWeakWolfe(p.C1, p.C2, p.ParameterTolerance, p.MaximumIterations)
	return ls
}

// WithLogger sets the logger used for per-trial debug output.
func (ls *WeakWolfe) WithLogger(logger *zap.Logger) *WeakWolfe {
	if logger == nil {
		logger = zap.NewNop()
	}
	ls.logger = logger.Named("weak_wolfe")
	return ls
}

// FindConformingStep implements Searcher.
func (ls *WeakWolfe) FindConformingStep(objective optimization.GradientObjectiveFunction, direction mat.Vector, initialStep float64) (*Result, error) {
	const op = "WeakWolfe.FindConformingStep"

	s, err := prepare(objective, direction, initialStep)
	if err != nil {
		return nil, err
	}
	if !(s.slope < 0) {
		return nil, optimization.NewErrorf(optimization.KindInvalidArgument,
			"search direction is not a descent direction (slope %v)", s.slope).
			WithOperation(op).WithComponent("linesearch")
	}
	if ls.logger == nil {
		ls.logger = zap.NewNop()
	}

	lower, upper := 0.0, math.Inf(1)
	step := initialStep
	trial := mat.NewVecDense(direction.Len(), nil)

	var (
		best     optimization.ObjectiveFunction
		bestStep float64
		bestIter int
	)

	for ii := 0; ii < ls.MaximumIterations; ii++ {
		slope, err := s.evaluateAt(trial, direction, step)
		if err != nil {
			return nil, err
		}
		value := s.candidate.Value()

		ls.logger.Debug("Line search trial",
			zap.Int("trial", ii),
			zap.Float64("step", step),
			zap.Float64("value", value),
			zap.Float64("slope", slope),
		)

		evaluated := step
		switch {
		case value > s.value+ls.C1*step*s.slope:
			upper = step
			step = 0.5 * (lower + upper)
		case slope < ls.C2*s.slope:
			lower = step
			best, bestStep, bestIter = s.candidate.Fork(), evaluated, ii
			if math.IsInf(upper, 1) {
				step = 2 * lower
			} else {
				step = 0.5 * (lower + upper)
			}
		default:
			return ls.result(s.candidate, ii, evaluated, optimization.WeakWolfeCriteria), nil
		}

		if !math.IsInf(upper, 1) && ls.relativeChange(s.candidate.Point(), direction, upper-lower) < ls.ParameterTolerance {
			if best == nil {
				return nil, optimization.NewError(optimization.KindLineSearch,
					"no step satisfying sufficient decrease found before the bracket collapsed").
					WithOperation(op).WithComponent("linesearch")
			}
			ls.logger.Debug("Line search stopped on lack of progress",
				zap.Float64("step", bestStep),
				zap.Float64("lower", lower),
				zap.Float64("upper", upper),
			)
			return ls.result(best, bestIter, bestStep, optimization.LackOfProgress), nil
		}
	}

	return nil, budgetExhausted("linesearch", ls.MaximumIterations, math.IsInf(upper, 1))
}

// relativeChange is the largest change of any coordinate across the
// bracket width, relative to the coordinate magnitude (at least one).
func (ls *WeakWolfe) relativeChange(point, direction mat.Vector, width float64) float64 {
	maxChange := 0.0
	for j := 0; j < point.Len(); j++ {
		change := math.Abs(direction.AtVec(j)*width) / math.Max(math.Abs(point.AtVec(j)), 1.0)
		maxChange = math.Max(maxChange, change)
	}
	return maxChange
}

func (ls *WeakWolfe) result(eval optimization.ObjectiveFunction, iterations int, step float64, reason optimization.ExitCondition) *Result {
	return &Result{
		MinimizationResult: optimization.MinimizationResult{
			FunctionInfoAtMinimum: eval,
			Iterations:            iterations,
			ReasonForExit:         reason,
		},
		FinalStep: step,
	}
}
