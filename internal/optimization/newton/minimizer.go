// Package newton implements Newton's method for unconstrained minimization
// of twice differentiable objectives.
package newton

import (
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/copyleftdev/newtonopt/internal/optimization"
	"github.com/copyleftdev/newtonopt/internal/optimization/linesearch"
)

const component = "newton"

// Config holds the stopping rules of a Minimizer.
type Config struct {
	// GradientTolerance is the Euclidean gradient norm below which a point
	// is accepted as a minimum.
	GradientTolerance float64 `yaml:"gradient_tolerance"`
	// MaximumIterations is the number of Newton steps allowed.
	MaximumIterations int `yaml:"maximum_iterations"`
	// UseLineSearch runs a line search along every Newton direction instead
	// of taking the full step.
	UseLineSearch bool `yaml:"use_line_search"`
}

// DefaultConfig returns a Config with a 1e-5 tolerance, 1000 iterations and
// full Newton steps.
func DefaultConfig() Config {
	return Config{
		GradientTolerance: 1e-5,
		MaximumIterations: 1000,
		UseLineSearch:     false,
	}
}

// Validate checks that the tolerance is positive and the budget is not
// negative.
func (c Config) Validate() error {
	if !(c.GradientTolerance > 0) {
		return optimization.NewErrorf(optimization.KindInvalidArgument,
			"gradient tolerance must be positive, got %v", c.GradientTolerance).WithComponent(component)
	}
	if c.MaximumIterations < 0 {
		return optimization.NewErrorf(optimization.KindInvalidArgument,
			"maximum iterations must not be negative, got %d", c.MaximumIterations).WithComponent(component)
	}
	return nil
}

// Option configures a Minimizer.
type Option func(*Minimizer)

// WithLogger sets the logger used for per-iteration debug output.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Minimizer) {
		if logger != nil {
			m.logger = logger.Named(component)
		}
	}
}

// WithLineSearcher replaces the default weak Wolfe line search.
func WithLineSearcher(s linesearch.Searcher) Option {
	return func(m *Minimizer) {
		if s != nil {
			m.searcher = s
		}
	}
}

// Minimizer runs Newton's method. A Minimizer holds no per-run state and may
// be used from several goroutines as long as the line searcher allows it.
type Minimizer struct {
	cfg      Config
	searcher linesearch.Searcher
	logger   *zap.Logger
	pool     *workspacePool
}

var _ optimization.UnconstrainedMinimizer = (*Minimizer)(nil)

// NewMinimizer creates a Minimizer.
func NewMinimizer(cfg Config, opts ...Option) (*Minimizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m := &Minimizer{
		cfg:    cfg,
		logger: zap.NewNop(),
		pool:   newWorkspacePool(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.searcher == nil {
		m.searcher = linesearch.DefaultWeakWolfe().WithLogger(m.logger)
	}
	return m, nil
}

// Config returns the stopping rules of m.
func (m *Minimizer) Config() Config {
	return m.cfg
}

// FindMinimum runs Newton's method on objective from initialGuess.
//
// The objective must provide gradients and Hessians. It is never evaluated
// itself; every evaluation happens on instances obtained with CreateNew, so
// the returned FunctionInfoAtMinimum is owned by the result.
func (m *Minimizer) FindMinimum(objective optimization.ObjectiveFunction, initialGuess mat.Vector) (*optimization.MinimizationResult, error) {
	const op = "Minimizer.FindMinimum"

	if err := checkCapabilities(objective); err != nil {
		return nil, err.WithOperation(op)
	}
	if initialGuess == nil || initialGuess.Len() == 0 {
		return nil, optimization.NewError(optimization.KindInvalidArgument, "initial guess must be a non-empty vector").
			WithOperation(op).WithComponent(component)
	}

	current, err := m.evaluateNew(objective, initialGuess)
	if err != nil {
		return nil, err
	}
	if err := optimization.ValidateGradient(current); err != nil {
		return nil, err
	}

	if m.converged(current) {
		m.logger.Debug("Initial guess already satisfies gradient tolerance",
			zap.Float64("gradient_norm", mat.Norm(current.Gradient(), 2)),
		)
		return &optimization.MinimizationResult{
			FunctionInfoAtMinimum: current,
			Iterations:            0,
			ReasonForExit:         optimization.AbsoluteGradient,
		}, nil
	}

	ws := m.pool.get(initialGuess.Len())
	defer m.pool.put(ws)

	var (
		stats    optimization.LineSearchStats
		searched bool
	)

	iterations := 0
	for !m.converged(current) && iterations < m.cfg.MaximumIterations {
		if err := optimization.ValidateHessian(current); err != nil {
			return nil, err
		}

		gradient := current.Gradient()
		ws.negGrad.ScaleVec(-1, gradient)
		ws.lu.Factorize(current.Hessian())
		if err := ws.lu.SolveVecTo(ws.direction, false, ws.negGrad); err != nil {
			return nil, optimization.WrapErrorf(err, optimization.KindLinearSolve,
				"cannot solve Newton system at iteration %d", iterations).
				WithOperation(op).WithComponent(component).WithEvaluation(current)
		}

		// Fall back to steepest descent, with a line search for this step,
		// when the Hessian is not positive definite along the Newton step.
		steepest := false
		if mat.Dot(ws.direction, gradient) >= 0 {
			ws.direction.CopyVec(ws.negGrad)
			steepest = true
		}

		step := 1.0
		if m.cfg.UseLineSearch || steepest {
			res, err := m.searcher.FindConformingStep(current, ws.direction, 1.0)
			if err != nil {
				return nil, optimization.WrapErrorf(err, optimization.KindLineSearch,
					"line search failed at iteration %d", iterations).
					WithOperation(op).WithComponent(component)
			}
			next, ok := res.FunctionInfoAtMinimum.(optimization.HessianObjectiveFunction)
			if !ok {
				return nil, optimization.NewError(optimization.KindIncompatibleObjective,
					"line search returned an objective without Hessian").
					WithOperation(op).WithComponent(component)
			}

			searched = true
			stats.TotalLineSearchIterations += res.Iterations
			if res.Iterations > 0 {
				stats.IterationsWithNonTrivialLineSearch++
			}
			step = res.FinalStep
			current = next
		} else {
			ws.next.AddVec(current.Point(), ws.direction)
			next, err := m.evaluateNew(current, ws.next)
			if err != nil {
				return nil, err
			}
			current = next
		}

		if err := optimization.ValidateGradient(current); err != nil {
			return nil, err
		}
		iterations++

		m.logger.Debug("Newton iteration",
			zap.Int("iteration", iterations),
			zap.Float64("value", current.Value()),
			zap.Float64("gradient_norm", mat.Norm(current.Gradient(), 2)),
			zap.Float64("step", step),
			zap.Bool("steepest_descent", steepest),
		)
	}

	if !m.converged(current) {
		return nil, optimization.NewErrorf(optimization.KindMaximumIterations,
			"maximum iterations (%d) reached", m.cfg.MaximumIterations).
			WithOperation(op).WithComponent(component).WithEvaluation(current)
	}

	result := &optimization.MinimizationResult{
		FunctionInfoAtMinimum: current,
		Iterations:            iterations,
		ReasonForExit:         optimization.AbsoluteGradient,
	}
	if searched {
		result.LineSearch = &stats
	}
	return result, nil
}

func (m *Minimizer) converged(eval optimization.GradientEvaluation) bool {
	return mat.Norm(eval.Gradient(), 2) < m.cfg.GradientTolerance
}

// evaluateNew evaluates a fresh instance of objective at point.
func (m *Minimizer) evaluateNew(objective optimization.ObjectiveFunction, point mat.Vector) (optimization.HessianObjectiveFunction, error) {
	next, ok := objective.CreateNew().(optimization.HessianObjectiveFunction)
	if !ok {
		return nil, optimization.NewError(optimization.KindIncompatibleObjective,
			"objective copies do not provide Hessians").WithComponent(component)
	}
	if err := next.Evaluate(point); err != nil {
		return nil, err
	}
	return next, nil
}

func checkCapabilities(objective optimization.ObjectiveFunction) *optimization.Error {
	if objective == nil {
		return optimization.NewError(optimization.KindInvalidArgument, "objective is nil").WithComponent(component)
	}
	if _, ok := objective.(optimization.GradientObjectiveFunction); !ok || !objective.IsGradientSupported() {
		return optimization.NewError(optimization.KindIncompatibleObjective,
			"gradient not supported in objective function, but required for Newton minimization").
			WithComponent(component)
	}
	if _, ok := objective.(optimization.HessianObjectiveFunction); !ok || !objective.IsHessianSupported() {
		return optimization.NewError(optimization.KindIncompatibleObjective,
			"Hessian not supported in objective function, but required for Newton minimization").
			WithComponent(component)
	}
	return nil
}
