package newton

import (
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/copyleftdev/newtonopt/internal/optimization"
)

// FindMinimum1D runs Newton's method on a scalar objective, which must
// provide both derivatives. The stopping rules and line search policy are
// those of FindMinimum with |f'(x)| in place of the gradient norm.
func (m *Minimizer) FindMinimum1D(objective *optimization.ObjectiveFunction1D, initialGuess float64) (*optimization.MinimizationResult1D, error) {
	const op = "Minimizer.FindMinimum1D"

	if objective == nil {
		return nil, optimization.NewError(optimization.KindInvalidArgument, "objective is nil").
			WithOperation(op).WithComponent(component)
	}
	if !objective.DerivativeSupported() {
		return nil, optimization.NewError(optimization.KindIncompatibleObjective,
			"derivative not supported in objective function, but required for Newton minimization").
			WithOperation(op).WithComponent(component)
	}
	if !objective.SecondDerivativeSupported() {
		return nil, optimization.NewError(optimization.KindIncompatibleObjective,
			"second derivative not supported in objective function, but required for Newton minimization").
			WithOperation(op).WithComponent(component)
	}
	if math.IsNaN(initialGuess) || math.IsInf(initialGuess, 0) {
		return nil, optimization.NewErrorf(optimization.KindInvalidArgument,
			"initial guess must be finite, got %v", initialGuess).
			WithOperation(op).WithComponent(component)
	}

	eval := objective.Evaluate(initialGuess)
	d, err := finiteDerivative(eval, (*optimization.Evaluation1D).Derivative, "derivative")
	if err != nil {
		return nil, err
	}

	iterations := 0
	for math.Abs(d) >= m.cfg.GradientTolerance && iterations < m.cfg.MaximumIterations {
		d2, err := finiteDerivative(eval, (*optimization.Evaluation1D).SecondDerivative, "second derivative")
		if err != nil {
			return nil, err
		}
		if d2 == 0 {
			e := optimization.NewErrorf(optimization.KindLinearSolve,
				"zero second derivative at iteration %d", iterations).
				WithOperation(op).WithComponent(component)
			e.Evaluation1D = eval
			return nil, e
		}

		direction := -d / d2
		steepest := false
		if direction*d >= 0 {
			direction = -d
			steepest = true
		}

		next := eval.Point() + direction
		if m.cfg.UseLineSearch || steepest {
			x, err := m.searchScalar(objective, eval, direction)
			if err != nil {
				return nil, optimization.WrapErrorf(err, optimization.KindLineSearch,
					"line search failed at iteration %d", iterations).
					WithOperation(op).WithComponent(component)
			}
			next = x
		}

		eval = objective.Evaluate(next)
		if d, err = finiteDerivative(eval, (*optimization.Evaluation1D).Derivative, "derivative"); err != nil {
			return nil, err
		}
		iterations++

		m.logger.Debug("Newton iteration",
			zap.Int("iteration", iterations),
			zap.Float64("point", eval.Point()),
			zap.Float64("derivative", d),
			zap.Bool("steepest_descent", steepest),
		)
	}

	if math.Abs(d) >= m.cfg.GradientTolerance {
		e := optimization.NewErrorf(optimization.KindMaximumIterations,
			"maximum iterations (%d) reached", m.cfg.MaximumIterations).
			WithOperation(op).WithComponent(component)
		e.Evaluation1D = eval
		return nil, e
	}

	return &optimization.MinimizationResult1D{
		FunctionInfoAtMinimum: eval,
		Iterations:            iterations,
		ReasonForExit:         optimization.AbsoluteGradient,
	}, nil
}

// searchScalar runs the configured line search on the one dimensional
// restriction of objective and returns the accepted point.
func (m *Minimizer) searchScalar(objective *optimization.ObjectiveFunction1D, at *optimization.Evaluation1D, direction float64) (float64, error) {
	line := optimization.NewGradientObjective(func(x mat.Vector) (float64, mat.Vector) {
		e := objective.Evaluate(x.AtVec(0))
		d, err := e.Derivative()
		if err != nil {
			d = math.NaN()
		}
		return e.Value(), mat.NewVecDense(1, []float64{d})
	})
	if err := line.Evaluate(mat.NewVecDense(1, []float64{at.Point()})); err != nil {
		return 0, err
	}

	res, err := m.searcher.FindConformingStep(line, mat.NewVecDense(1, []float64{direction}), 1.0)
	if err != nil {
		return 0, err
	}
	return res.MinimizingPoint().AtVec(0), nil
}

func finiteDerivative(eval *optimization.Evaluation1D, get func(*optimization.Evaluation1D) (float64, error), name string) (float64, error) {
	v, err := get(eval)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		e := optimization.NewErrorf(optimization.KindEvaluation, "non-finite %s returned", name).
			WithComponent(component)
		e.Evaluation1D = eval
		return 0, e
	}
	return v, nil
}
