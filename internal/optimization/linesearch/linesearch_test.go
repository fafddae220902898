package linesearch

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"github.com/copyleftdev/newtonopt/internal/optimization"
	"github.com/copyleftdev/newtonopt/internal/optimization/functions"
)

// parabola is x² in one dimension.
func parabola() *optimization.GradientObjective {
	return optimization.NewGradientObjectiveFuncs(
		func(x mat.Vector) float64 { return x.AtVec(0) * x.AtVec(0) },
		func(x mat.Vector) mat.Vector { return mat.NewVecDense(1, []float64{2 * x.AtVec(0)}) },
	)
}

func evaluatedAt(t *testing.T, obj optimization.GradientObjectiveFunction, x ...float64) optimization.GradientObjectiveFunction {
	t.Helper()
	require.NoError(t, obj.Evaluate(mat.NewVecDense(len(x), x)))
	return obj
}

func vec(x ...float64) *mat.VecDense {
	return mat.NewVecDense(len(x), x)
}

func TestNewWeakWolfeValidation(t *testing.T) {
	tests := []struct {
		name    string
		c1, c2  float64
		tol     float64
		maxIter int
		wantErr bool
	}{
		{"defaults", 1e-4, 0.9, 1e-4, 1000, false},
		{"c1 zero", 0, 0.9, 1e-4, 1000, true},
		{"c1 above c2", 0.5, 0.4, 1e-4, 1000, true},
		{"c2 one", 1e-4, 1, 1e-4, 1000, true},
		{"tolerance zero", 1e-4, 0.9, 0, 1000, true},
		{"no iterations", 1e-4, 0.9, 1e-4, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ls, err := NewWeakWolfe(tt.c1, tt.c2, tt.tol, tt.maxIter)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, optimization.ErrInvalidArgument)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.c1, ls.C1)
			assert.Equal(t, tt.maxIter, ls.MaximumIterations)
		})
	}
}

func TestWeakWolfeTrivialStep(t *testing.T) {
	start := evaluatedAt(t, parabola(), 1)

	// The Newton direction lands on the minimum with the first trial.
	res, err := DefaultWeakWolfe().FindConformingStep(start, vec(-1), 1.0)
	require.NoError(t, err)

	assert.Equal(t, 0, res.Iterations)
	assert.Equal(t, 1.0, res.FinalStep)
	assert.Equal(t, optimization.WeakWolfeCriteria, res.ReasonForExit)
	assert.InDelta(t, 0, res.MinimizingPoint().AtVec(0), 1e-15)
	assert.InDelta(t, 0, res.Evaluation().Value(), 1e-15)
}

func TestWeakWolfeBisects(t *testing.T) {
	start := evaluatedAt(t, parabola(), 1)

	res, err := DefaultWeakWolfe().FindConformingStep(start, vec(-2), 1.0)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Iterations)
	assert.Equal(t, 0.5, res.FinalStep)
	assert.Equal(t, optimization.WeakWolfeCriteria, res.ReasonForExit)
	assert.InDelta(t, 0, res.MinimizingPoint().AtVec(0), 1e-15)
}

func TestWeakWolfeExpands(t *testing.T) {
	start := evaluatedAt(t, parabola(), 10)

	res, err := DefaultWeakWolfe().WithLogger(zaptest.NewLogger(t)).FindConformingStep(start, vec(-0.1), 1.0)
	require.NoError(t, err)

	assert.Equal(t, 4, res.Iterations)
	assert.Equal(t, 16.0, res.FinalStep)
	assert.InDelta(t, 8.4, res.MinimizingPoint().AtVec(0), 1e-12)
}

func TestWeakWolfeDoesNotMutateStart(t *testing.T) {
	start := evaluatedAt(t, functions.NewRosenbrock(), -1.2, 1)
	value := start.Value()

	// The gradient is an ascent direction.
	res, err := DefaultWeakWolfe().FindConformingStep(start, start.Gradient(), 1e-3)
	require.Error(t, err)
	assert.Nil(t, res)

	direction := mat.NewVecDense(2, nil)
	direction.ScaleVec(-1, start.Gradient())
	res, err = DefaultWeakWolfe().FindConformingStep(start, direction, 1e-3)
	require.NoError(t, err)

	assert.Equal(t, []float64{-1.2, 1}, mat.Col(nil, 0, start.Point()))
	assert.Equal(t, value, start.Value())
	assert.NotSame(t, start, res.FunctionInfoAtMinimum)
	assert.Less(t, res.Evaluation().Value(), value)
}

func TestWeakWolfeUnbounded(t *testing.T) {
	linear := optimization.NewGradientObjectiveFuncs(
		func(x mat.Vector) float64 { return -x.AtVec(0) },
		func(mat.Vector) mat.Vector { return vec(-1) },
	)
	start := evaluatedAt(t, linear, 0)

	ls, err := NewWeakWolfe(1e-4, 0.9, 1e-4, 10)
	require.NoError(t, err)

	_, err = ls.FindConformingStep(start, vec(1), 1.0)
	require.Error(t, err)
	assert.Equal(t, optimization.KindMaximumIterations, optimization.KindOf(err))
	assert.Contains(t, err.Error(), "unbounded")
}

func TestWeakWolfeNonFiniteGradient(t *testing.T) {
	obj := optimization.NewGradientObjectiveFuncs(
		func(x mat.Vector) float64 { return x.AtVec(0) * x.AtVec(0) },
		func(x mat.Vector) mat.Vector {
			if x.AtVec(0) < 0 {
				return vec(math.NaN())
			}
			return vec(2 * x.AtVec(0))
		},
	)
	start := evaluatedAt(t, obj, 1)

	_, err := DefaultWeakWolfe().FindConformingStep(start, vec(-2), 1.0)
	require.Error(t, err)
	assert.ErrorIs(t, err, optimization.ErrEvaluation)

	e, ok := optimization.IsOptimizationError(err)
	require.True(t, ok)
	require.NotNil(t, e.Evaluation)
	assert.Equal(t, -1.0, e.Evaluation.Point().AtVec(0))
}

func TestWeakWolfeLackOfProgress(t *testing.T) {
	// The value jumps up at 0.5 while the slope stays negative, so the
	// bracket collapses onto the jump without meeting the curvature condition.
	cliff := optimization.NewGradientObjectiveFuncs(
		func(x mat.Vector) float64 {
			if x.AtVec(0) < 0.5 {
				return -x.AtVec(0)
			}
			return 10
		},
		func(mat.Vector) mat.Vector { return vec(-1) },
	)
	start := evaluatedAt(t, cliff, 0)

	res, err := DefaultWeakWolfe().FindConformingStep(start, vec(1), 1.0)
	require.NoError(t, err)
	assert.Equal(t, optimization.LackOfProgress, res.ReasonForExit)
	assert.Greater(t, res.Iterations, 0)
	assert.Less(t, res.FinalStep, 0.5)
	assert.InDelta(t, 0.5, res.FinalStep, 1e-3)
	assert.Less(t, res.Evaluation().Value(), 0.0)
}

func TestWeakWolfeNoDecrease(t *testing.T) {
	// Every positive step is worse than the start.
	spike := optimization.NewGradientObjectiveFuncs(
		func(x mat.Vector) float64 {
			if x.AtVec(0) > 0 {
				return 1
			}
			return 0
		},
		func(mat.Vector) mat.Vector { return vec(-1) },
	)
	start := evaluatedAt(t, spike, 0)

	_, err := DefaultWeakWolfe().FindConformingStep(start, vec(1), 1.0)
	require.Error(t, err)
	assert.Equal(t, optimization.KindLineSearch, optimization.KindOf(err))
}

func TestPreconditions(t *testing.T) {
	searchers := map[string]Searcher{}
	for _, method := range Methods() {
		s, err := New(method, DefaultParams(), nil)
		require.NoError(t, err)
		searchers[method] = s
	}

	for name, s := range searchers {
		t.Run(name, func(t *testing.T) {
			_, err := s.FindConformingStep(parabola(), vec(-1), 1.0)
			assert.ErrorIs(t, err, optimization.ErrInvalidArgument, "unevaluated objective")

			start := evaluatedAt(t, parabola(), 1)
			_, err = s.FindConformingStep(start, vec(-1, 0), 1.0)
			assert.ErrorIs(t, err, optimization.ErrInvalidArgument, "dimension mismatch")

			_, err = s.FindConformingStep(start, vec(-1), 0)
			assert.ErrorIs(t, err, optimization.ErrInvalidArgument, "zero step")

			_, err = s.FindConformingStep(start, vec(-1), math.Inf(1))
			assert.ErrorIs(t, err, optimization.ErrInvalidArgument, "infinite step")

			_, err = s.FindConformingStep(start, vec(1), 1.0)
			assert.ErrorIs(t, err, optimization.ErrInvalidArgument, "ascent direction")
		})
	}
}

func TestGonumNonDescentDirection(t *testing.T) {
	ls, err := NewMoreThuente(1e-4, 0.9, 100)
	require.NoError(t, err)

	start := evaluatedAt(t, parabola(), 1)
	_, err = ls.FindConformingStep(start, vec(1), 1.0)
	assert.ErrorIs(t, err, optimize.ErrNonDescentDirection)
}

func TestGonumSearchers(t *testing.T) {
	const c1, c2 = 1e-4, 0.9

	tests := []struct {
		method string
		reason optimization.ExitCondition
		strong bool
		armijo bool
	}{
		{MethodMoreThuente, optimization.StrongWolfeCriteria, true, true},
		{MethodBisection, optimization.StrongWolfeCriteria, true, false},
		{MethodBacktracking, optimization.SufficientDecrease, false, true},
		{MethodWeakWolfe, optimization.WeakWolfeCriteria, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			ls, err := New(tt.method, Params{C1: c1, C2: c2, ParameterTolerance: 1e-4, MaximumIterations: 100}, zaptest.NewLogger(t))
			require.NoError(t, err)

			start := evaluatedAt(t, functions.NewRosenbrock(), -1.2, 1)
			direction := mat.NewVecDense(2, nil)
			direction.ScaleVec(-1/mat.Norm(start.Gradient(), 2), start.Gradient())
			slope0 := mat.Dot(direction, start.Gradient())

			res, err := ls.FindConformingStep(start, direction, 1.0)
			require.NoError(t, err)
			assert.Equal(t, tt.reason, res.ReasonForExit)
			assert.Greater(t, res.FinalStep, 0.0)

			// The accepted point lies on the search ray.
			want := mat.NewVecDense(2, nil)
			want.AddScaledVec(start.Point(), res.FinalStep, direction)
			assert.True(t, mat.EqualApprox(want, res.MinimizingPoint(), 1e-12))

			eval := res.Evaluation()
			require.NotNil(t, eval)
			assert.Less(t, eval.Value(), start.Value())
			if tt.armijo {
				assert.LessOrEqual(t, eval.Value(), start.Value()+c1*res.FinalStep*slope0)
			}
			slope := mat.Dot(direction, eval.Gradient())
			if tt.strong {
				assert.LessOrEqual(t, math.Abs(slope), c2*math.Abs(slope0))
			}
		})
	}
}

func TestNew(t *testing.T) {
	assert.Equal(t, []string{"backtracking", "bisection", "more-thuente", "weak-wolfe"}, Methods())

	s, err := New("", DefaultParams(), nil)
	require.NoError(t, err)
	assert.IsType(t, &WeakWolfe{}, s)

	s, err = New(MethodMoreThuente, DefaultParams(), nil)
	require.NoError(t, err)
	assert.IsType(t, &Gonum{}, s)

	_, err = New("golden-section", DefaultParams(), nil)
	assert.ErrorIs(t, err, optimization.ErrInvalidArgument)

	_, err = New(MethodBacktracking, Params{C1: 2, MaximumIterations: 10}, nil)
	assert.ErrorIs(t, err, optimization.ErrInvalidArgument)

	_, err = New(MethodBisection, Params{C2: 0.9}, nil)
	assert.ErrorIs(t, err, optimization.ErrInvalidArgument)
}
