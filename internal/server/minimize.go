package server

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/copyleftdev/newtonopt/internal/config"
	apierrors "github.com/copyleftdev/newtonopt/internal/errors"
	"github.com/copyleftdev/newtonopt/internal/logging"
	"github.com/copyleftdev/newtonopt/internal/optimization"
)

// MinimizeRequest starts a run. Unset optional fields take the server
// defaults.
type MinimizeRequest struct {
	// Function names a registered objective.
	Function string `json:"function"`
	// InitialGuess defaults to the function's conventional start.
	InitialGuess      []float64 `json:"initial_guess,omitempty"`
	GradientTolerance *float64  `json:"gradient_tolerance,omitempty"`
	MaximumIterations *int      `json:"maximum_iterations,omitempty"`
	UseLineSearch     *bool     `json:"use_line_search,omitempty"`
	LineSearchMethod  *string   `json:"line_search_method,omitempty"`
}

// settings applies the request overrides to base.
func (req *MinimizeRequest) settings(base config.MinimizationConfig) config.MinimizationConfig {
	if req.GradientTolerance != nil {
		base.GradientTolerance = *req.GradientTolerance
	}
	if req.MaximumIterations != nil {
		base.MaximumIterations = *req.MaximumIterations
	}
	if req.UseLineSearch != nil {
		base.UseLineSearch = *req.UseLineSearch
	}
	if req.LineSearchMethod != nil {
		base.LineSearch.Method = *req.LineSearchMethod
	}
	return base
}

func invalidRequest(format string, args ...interface{}) error {
	return optimization.NewErrorf(optimization.KindInvalidArgument, format, args...).
		WithComponent("server")
}

// minimize validates req, runs the minimization and stores the run. The
// returned error is set only when no run was started; a failed
// minimization is reported through the run's status.
func (s *Server) minimize(ctx context.Context, req *MinimizeRequest) (*Run, error) {
	if req.Function == "" {
		return nil, invalidRequest("function is required")
	}
	def, ok := s.registry.Lookup(req.Function)
	if !ok {
		return nil, invalidRequest("unknown function %q (want one of %v)", req.Function, s.registry.Names())
	}

	guess := req.InitialGuess
	if len(guess) == 0 {
		guess = def.DefaultStart
	}
	if err := def.CheckDimension(len(guess)); err != nil {
		return nil, err
	}
	x0 := mat.NewVecDense(len(guess), append([]float64(nil), guess...))
	if !optimization.IsFiniteVector(x0) {
		return nil, invalidRequest("initial guess must be finite")
	}

	settings := req.settings(s.cfg.Minimization)

	id := newRunID()
	logger := logging.FromContext(ctx).With(zap.String("run_id", id), zap.String("function", def.Name))

	minimizer, err := settings.NewMinimizer(logger)
	if err != nil {
		return nil, err
	}

	run := &Run{
		ID:           id,
		Function:     def.Name,
		InitialGuess: mat.Col(nil, 0, x0),
		Config: RunConfig{
			GradientTolerance: settings.GradientTolerance,
			MaximumIterations: settings.MaximumIterations,
			UseLineSearch:     settings.UseLineSearch,
			LineSearchMethod:  settings.LineSearch.Method,
		},
		StartedAt: time.Now().UTC(),
	}

	type outcome struct {
		result *optimization.MinimizationResult
		err    error
		panic  interface{}
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- outcome{panic: rec}
			}
		}()
		res, err := minimizer.FindMinimum(def.New(), x0)
		done <- outcome{result: res, err: err}
	}()

	var out outcome
	select {
	case out = <-done:
	case <-ctx.Done():
		logger.Warn("Minimization abandoned", zap.Error(ctx.Err()))
		return nil, apierrors.WithStatus(ctx.Err(), http.StatusGatewayTimeout)
	}
	if out.panic != nil {
		// Re-raised on the request goroutine for the recovery middleware.
		panic(out.panic)
	}

	run.FinishedAt = time.Now().UTC()
	run.DurationMS = float64(run.FinishedAt.Sub(run.StartedAt).Microseconds()) / 1000.0

	if out.err != nil {
		run.Status = StatusFailed
		resp := apierrors.NewResponse(out.err)
		run.Error = &resp
		if e, ok := optimization.IsOptimizationError(out.err); ok && e.Evaluation != nil && e.Evaluation.Point() != nil {
			run.LastPoint = mat.Col(nil, 0, e.Evaluation.Point())
		}
		logger.Info("Minimization failed", zap.Error(out.err))
	} else {
		run.Status = StatusConverged
		run.Result = newRunResult(out.result, def.Minimum)
		logger.Info("Minimization converged",
			zap.Int("iterations", out.result.Iterations),
			zap.Float64("value", run.Result.Value),
			zap.Float64("gradient_norm", run.Result.GradientNorm),
		)
	}

	s.runs.put(run)
	s.metrics.observe(run)
	return run, nil
}

// runStatusCode is the HTTP status for a stored run.
func runStatusCode(run *Run) int {
	if run.Status == StatusFailed {
		return http.StatusUnprocessableEntity
	}
	return http.StatusOK
}
