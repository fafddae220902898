package server

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	apierrors "github.com/copyleftdev/newtonopt/internal/errors"
	"github.com/copyleftdev/newtonopt/internal/optimization"
)

// RunStatus is the outcome of a minimization run.
type RunStatus string

const (
	StatusConverged RunStatus = "converged"
	StatusFailed    RunStatus = "failed"
)

// RunConfig records the settings a run used after request overrides.
type RunConfig struct {
	GradientTolerance float64 `json:"gradient_tolerance"`
	MaximumIterations int     `json:"maximum_iterations"`
	UseLineSearch     bool    `json:"use_line_search"`
	LineSearchMethod  string  `json:"line_search_method"`
}

// Run is the stored document describing one minimization.
type Run struct {
	ID           string     `json:"id"`
	Function     string     `json:"function"`
	Status       RunStatus  `json:"status"`
	InitialGuess []float64  `json:"initial_guess"`
	Config       RunConfig  `json:"config"`
	Result       *RunResult `json:"result,omitempty"`
	// Error is set for failed runs.
	Error *apierrors.Response `json:"error,omitempty"`
	// LastPoint is the last evaluated point of a failed run, when known.
	LastPoint  []float64 `json:"last_point,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	DurationMS float64   `json:"duration_ms"`
}

// RunResult is the serializable form of a MinimizationResult.
type RunResult struct {
	MinimizingPoint []float64                     `json:"minimizing_point"`
	Value           float64                       `json:"value"`
	Gradient        []float64                     `json:"gradient"`
	GradientNorm    float64                       `json:"gradient_norm"`
	Iterations      int                           `json:"iterations"`
	ReasonForExit   optimization.ExitCondition    `json:"reason_for_exit"`
	LineSearch      *optimization.LineSearchStats `json:"line_search,omitempty"`
	// DistanceToMinimum is the Euclidean distance to the known minimizer of
	// the function, when it has one.
	DistanceToMinimum *float64 `json:"distance_to_minimum,omitempty"`
}

func newRunResult(res *optimization.MinimizationResult, knownMinimum []float64) *RunResult {
	point := mat.Col(nil, 0, res.MinimizingPoint())
	out := &RunResult{
		MinimizingPoint: point,
		Value:           res.FunctionInfoAtMinimum.Value(),
		Iterations:      res.Iterations,
		ReasonForExit:   res.ReasonForExit,
		LineSearch:      res.LineSearch,
	}
	if g, ok := res.FunctionInfoAtMinimum.(optimization.GradientEvaluation); ok {
		out.Gradient = mat.Col(nil, 0, g.Gradient())
		out.GradientNorm = floats.Norm(out.Gradient, 2)
	}
	if len(knownMinimum) == len(point) {
		d := floats.Distance(point, knownMinimum, 2)
		out.DistanceToMinimum = &d
	}
	return out
}

// runStore keeps the most recent runs in memory.
type runStore struct {
	mu    sync.RWMutex
	runs  map[string]*Run
	order []string
	max   int
}

func newRunStore(max int) *runStore {
	return &runStore{
		runs: make(map[string]*Run),
		max:  max,
	}
}

func newRunID() string {
	return uuid.NewString()
}

// put stores run, evicting the oldest runs beyond capacity.
func (s *runStore) put(run *Run) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[run.ID]; !exists {
		s.order = append(s.order, run.ID)
	}
	s.runs[run.ID] = run

	for len(s.order) > s.max {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.runs, oldest)
	}
}

func (s *runStore) get(id string) (*Run, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	return run, ok
}

func (s *runStore) delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[id]; !ok {
		return false
	}
	delete(s.runs, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// list returns the stored runs, oldest first.
func (s *runStore) list() []*Run {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Run, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.runs[id])
	}
	return out
}

func (s *runStore) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.runs)
}
