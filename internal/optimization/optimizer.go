package optimization

import "gonum.org/v1/gonum/mat"

// UnconstrainedMinimizer defines the interface for unconstrained
// minimization algorithms over a real vector domain.
type UnconstrainedMinimizer interface {
	// FindMinimum searches for a stationary point of objective starting
	// from initialGuess. The objective passed in is not mutated.
	FindMinimum(objective ObjectiveFunction, initialGuess mat.Vector) (*MinimizationResult, error)
}

// MinimizationResult contains the result of a minimization run
type MinimizationResult struct {
	// FunctionInfoAtMinimum is the objective evaluated at the final point.
	// It is owned by the result and never mutated by the minimizer again.
	FunctionInfoAtMinimum ObjectiveFunction

	// Iterations is the number of accepted outer steps
	Iterations int

	// ReasonForExit tags why the run terminated
	ReasonForExit ExitCondition

	// LineSearch holds aggregate line search statistics, or nil when no
	// line search ran.
	LineSearch *LineSearchStats
}

// MinimizingPoint returns the point at which the run terminated.
func (r *MinimizationResult) MinimizingPoint() mat.Vector {
	if r == nil || r.FunctionInfoAtMinimum == nil {
		return nil
	}
	return r.FunctionInfoAtMinimum.Point()
}

// LineSearchStats aggregates line search activity over a minimization run.
type LineSearchStats struct {
	// TotalLineSearchIterations sums the trial steps of every line search.
	TotalLineSearchIterations int `json:"total_line_search_iterations"`
	// IterationsWithNonTrivialLineSearch counts outer steps whose line
	// search needed more than the first trial.
	IterationsWithNonTrivialLineSearch int `json:"iterations_with_non_trivial_line_search"`
}

// MinimizationResult1D contains the result of a scalar minimization run.
type MinimizationResult1D struct {
	FunctionInfoAtMinimum *Evaluation1D
	Iterations            int
	ReasonForExit         ExitCondition
}

// MinimizingPoint returns the point at which the run terminated.
func (r *MinimizationResult1D) MinimizingPoint() float64 {
	return r.FunctionInfoAtMinimum.Point()
}
