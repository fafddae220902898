package linesearch

import (
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"github.com/copyleftdev/newtonopt/internal/optimization"
)

// Gonum drives one of gonum's reverse-communication line searchers over an
// ObjectiveFunction. Each call to FindConformingStep builds a fresh
// Linesearcher, so a Gonum value may be shared between goroutines.
type Gonum struct {
	// Name identifies the searcher in logs and errors.
	Name string
	// NewLinesearcher returns a ready-to-Init searcher.
	NewLinesearcher func() optimize.Linesearcher
	// MaximumIterations bounds the number of distinct trial steps.
	MaximumIterations int
	// Criteria is reported as ReasonForExit on success.
	Criteria optimization.ExitCondition

	logger *zap.Logger
}

var _ Searcher = (*Gonum)(nil)

// NewMoreThuente returns a strong Wolfe line search using gonum's
// More-Thuente implementation.
func NewMoreThuente(c1, c2 float64, maximumIterations int) (*Gonum, error) {
	if !(c1 > 0 && c1 < c2 && c2 < 1) {
		return nil, optimization.NewErrorf(optimization.KindInvalidArgument,
			"more-thuente: need 0 < c1 < c2 < 1, got c1=%v c2=%v", c1, c2)
	}
	return newGonum(MethodMoreThuente, maximumIterations, optimization.StrongWolfeCriteria, func() optimize.Linesearcher {
		return &optimize.MoreThuente{DecreaseFactor: c1, CurvatureFactor: c2}
	})
}

// NewBisection returns gonum's bisection line search for the strong Wolfe
// curvature condition with a plain decrease requirement.
func NewBisection(c2 float64, maximumIterations int) (*Gonum, error) {
	if !(c2 > 0 && c2 < 1) {
		return nil, optimization.NewErrorf(optimization.KindInvalidArgument,
			"bisection: need 0 < c2 < 1, got %v", c2)
	}
	return newGonum(MethodBisection, maximumIterations, optimization.StrongWolfeCriteria, func() optimize.Linesearcher {
		return &optimize.Bisection{CurvatureFactor: c2}
	})
}

// NewBacktracking returns gonum's Armijo backtracking line search with a
// contraction factor of one half.
func NewBacktracking(c1 float64, maximumIterations int) (*Gonum, error) {
	if !(c1 > 0 && c1 < 1) {
		return nil, optimization.NewErrorf(optimization.KindInvalidArgument,
			"backtracking: need 0 < c1 < 1, got %v", c1)
	}
	return newGonum(MethodBacktracking, maximumIterations, optimization.SufficientDecrease, func() optimize.Linesearcher {
		return &optimize.Backtracking{DecreaseFactor: c1, ContractionFactor: 0.5}
	})
}

func newGonum(name string, maximumIterations int, criteria optimization.ExitCondition, f func() optimize.Linesearcher) (*Gonum, error) {
	if maximumIterations <= 0 {
		return nil, optimization.NewErrorf(optimization.KindInvalidArgument,
			"%s: maximum iterations must be positive, got %d", name, maximumIterations)
	}
	return &Gonum{
		Name:              name,
		NewLinesearcher:   f,
		MaximumIterations: maximumIterations,
		Criteria:          criteria,
		logger:            zap.NewNop(),
	}, nil
}

// WithLogger sets the logger used for per-trial debug output.
func (ls *Gonum) WithLogger(logger *zap.Logger) *Gonum {
	if logger == nil {
		logger = zap.NewNop()
	}
	ls.logger = logger.Named(ls.Name)
	return ls
}

// FindConformingStep implements Searcher.
func (ls *Gonum) FindConformingStep(objective optimization.GradientObjectiveFunction, direction mat.Vector, initialStep float64) (*Result, error) {
	const op = "Gonum.FindConformingStep"

	s, err := prepare(objective, direction, initialStep)
	if err != nil {
		return nil, err
	}
	if !(s.slope < 0) {
		// gonum searchers panic on a non-descent direction.
		return nil, optimization.WrapErrorf(optimize.ErrNonDescentDirection, optimization.KindInvalidArgument,
			"slope %v along search direction", s.slope).
			WithOperation(op).WithComponent(ls.Name)
	}
	if ls.logger == nil {
		ls.logger = zap.NewNop()
	}

	searcher := ls.NewLinesearcher()
	searcher.Init(s.value, s.slope, initialStep)

	trial := mat.NewVecDense(direction.Len(), nil)
	step := initialStep
	slope, err := s.evaluateAt(trial, direction, step)
	if err != nil {
		return nil, err
	}

	trials := 0
	for trials < ls.MaximumIterations {
		ls.logger.Debug("Line search trial",
			zap.Int("trial", trials),
			zap.Float64("step", step),
			zap.Float64("value", s.candidate.Value()),
			zap.Float64("slope", slope),
		)

		operation, next, err := searcher.Iterate(s.candidate.Value(), slope)
		if err != nil {
			return nil, optimization.WrapErrorf(err, optimization.KindLineSearch,
				"%s failed after %d trials", ls.Name, trials+1).
				WithOperation(op).WithComponent(ls.Name)
		}

		switch {
		case operation == optimize.MajorIteration:
			return &Result{
				MinimizationResult: optimization.MinimizationResult{
					FunctionInfoAtMinimum: s.candidate,
					Iterations:            trials,
					ReasonForExit:         ls.Criteria,
				},
				FinalStep: step,
			}, nil
		case operation&(optimize.FuncEvaluation|optimize.GradEvaluation) != 0:
			// Every trial computes value and gradient together, so a request
			// at the current step needs no new evaluation.
			if next == step {
				continue
			}
			step = next
			trials++
			if slope, err = s.evaluateAt(trial, direction, step); err != nil {
				return nil, err
			}
		default:
			return nil, optimization.NewErrorf(optimization.KindLineSearch,
				"%s requested unsupported operation %v", ls.Name, operation).
				WithOperation(op).WithComponent(ls.Name)
		}
	}

	return nil, budgetExhausted(ls.Name, ls.MaximumIterations, false)
}
