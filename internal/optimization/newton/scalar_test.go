package newton

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/newtonopt/internal/optimization"
)

func scalarDoubleWell() *optimization.ObjectiveFunction1D {
	return optimization.NewObjective1DSecondDerivative(
		func(x float64) float64 { return x*x*x*x/4 - x*x/2 },
		func(x float64) float64 { return x*x*x - x },
		func(x float64) float64 { return 3*x*x - 1 },
	)
}

func TestFindMinimum1D(t *testing.T) {
	tests := []struct {
		name          string
		start         float64
		useLineSearch bool
		want          float64
	}{
		{"convex region", 2, false, 1},
		{"convex region with line search", 2, true, 1},
		{"negative side", -1.5, false, -1},
		{"concave start falls back to descent", 0.1, false, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMinimizer(t, Config{GradientTolerance: 1e-10, MaximumIterations: 100, UseLineSearch: tt.useLineSearch})

			result, err := m.FindMinimum1D(scalarDoubleWell(), tt.start)
			require.NoError(t, err)

			assert.InDelta(t, tt.want, result.MinimizingPoint(), 1e-8)
			assert.Equal(t, optimization.AbsoluteGradient, result.ReasonForExit)
			assert.Greater(t, result.Iterations, 0)
			assert.InDelta(t, -0.25, result.FunctionInfoAtMinimum.Value(), 1e-12)
		})
	}
}

func TestFindMinimum1DAlreadyConverged(t *testing.T) {
	secondCalls := 0
	obj := optimization.NewObjective1DSecondDerivative(
		func(x float64) float64 { return x * x },
		func(x float64) float64 { return 2 * x },
		func(float64) float64 { secondCalls++; return 2 },
	)

	m := newMinimizer(t, DefaultConfig())
	result, err := m.FindMinimum1D(obj, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Iterations)
	assert.Equal(t, 0, secondCalls)
}

func TestFindMinimum1DErrors(t *testing.T) {
	f := func(x float64) float64 { return x * x }
	df := func(x float64) float64 { return 2 * x }

	tests := []struct {
		name  string
		obj   *optimization.ObjectiveFunction1D
		start float64
		cfg   Config
		kind  optimization.ErrorKind
	}{
		{"nil objective", nil, 1, DefaultConfig(), optimization.KindInvalidArgument},
		{"value only", optimization.NewObjective1D(f), 1, DefaultConfig(), optimization.KindIncompatibleObjective},
		{"no second derivative", optimization.NewObjective1DFirstDerivative(f, df), 1, DefaultConfig(), optimization.KindIncompatibleObjective},
		{"infinite start", scalarDoubleWell(), math.Inf(1), DefaultConfig(), optimization.KindInvalidArgument},
		{
			"non-finite derivative",
			optimization.NewObjective1DSecondDerivative(f, func(float64) float64 { return math.NaN() }, df),
			1, DefaultConfig(), optimization.KindEvaluation,
		},
		{
			"zero curvature",
			optimization.NewObjective1DSecondDerivative(
				func(x float64) float64 { return x },
				func(float64) float64 { return 1 },
				func(float64) float64 { return 0 },
			),
			1, DefaultConfig(), optimization.KindLinearSolve,
		},
		{"zero budget", scalarDoubleWell(), 2, Config{GradientTolerance: 1e-5}, optimization.KindMaximumIterations},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMinimizer(t, tt.cfg)
			result, err := m.FindMinimum1D(tt.obj, tt.start)
			require.Error(t, err)
			assert.Nil(t, result)
			assert.Equal(t, tt.kind, optimization.KindOf(err))
		})
	}
}

func TestFindMinimum1DReportsEvaluation(t *testing.T) {
	m := newMinimizer(t, Config{GradientTolerance: 1e-5, MaximumIterations: 0})

	_, err := m.FindMinimum1D(scalarDoubleWell(), 2)
	e, ok := optimization.IsOptimizationError(err)
	require.True(t, ok)
	require.NotNil(t, e.Evaluation1D)
	assert.Equal(t, 2.0, e.Evaluation1D.Point())
}
