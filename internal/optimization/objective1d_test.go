package optimization

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluation1DCachesEachQuantity(t *testing.T) {
	var calls [3]int
	obj := NewObjective1DSecondDerivative(
		func(x float64) float64 { calls[0]++; return x*x*x - 2*x },
		func(x float64) float64 { calls[1]++; return 3*x*x - 2 },
		func(x float64) float64 { calls[2]++; return 6 * x },
	)
	require.True(t, obj.DerivativeSupported())
	require.True(t, obj.SecondDerivativeSupported())

	eval := obj.Evaluate(2)
	assert.Equal(t, 2.0, eval.Point())
	assert.Equal(t, [3]int{}, calls, "evaluation is lazy")

	for i := 0; i < 3; i++ {
		assert.Equal(t, 4.0, eval.Value())

		d, err := eval.Derivative()
		require.NoError(t, err)
		assert.Equal(t, 10.0, d)

		d2, err := eval.SecondDerivative()
		require.NoError(t, err)
		assert.Equal(t, 12.0, d2)
	}
	assert.Equal(t, [3]int{1, 1, 1}, calls)

	// A new evaluation has its own cache.
	other := obj.Evaluate(0)
	assert.Equal(t, 0.0, other.Value())
	assert.Equal(t, [3]int{2, 1, 1}, calls)
}

func TestEvaluation1DUnsupported(t *testing.T) {
	tests := []struct {
		name             string
		obj              *ObjectiveFunction1D
		derivative       bool
		secondDerivative bool
	}{
		{"value only", NewObjective1D(func(x float64) float64 { return x }), false, false},
		{
			"first derivative",
			NewObjective1DFirstDerivative(
				func(x float64) float64 { return x },
				func(float64) float64 { return 1 },
			),
			true, false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.derivative, tt.obj.DerivativeSupported())
			assert.Equal(t, tt.secondDerivative, tt.obj.SecondDerivativeSupported())

			eval := tt.obj.Evaluate(3)
			assert.Equal(t, 3.0, eval.Value())

			_, err := eval.Derivative()
			if tt.derivative {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrUnsupportedCapability)
			}

			_, err = eval.SecondDerivative()
			require.Error(t, err)
			assert.Equal(t, KindUnsupportedCapability, KindOf(err))

			// The failure is cached too.
			_, again := eval.SecondDerivative()
			assert.Same(t, err, again)
		})
	}
}

func TestObjective1DNilFunctionsPanic(t *testing.T) {
	f := func(x float64) float64 { return x }
	assert.Panics(t, func() { NewObjective1D(nil) })
	assert.Panics(t, func() { NewObjective1DFirstDerivative(f, nil) })
	assert.Panics(t, func() { NewObjective1DSecondDerivative(f, f, nil) })
}
