package optimization

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// IsFiniteVector reports whether every component of v is finite.
func IsFiniteVector(v mat.Vector) bool {
	for i := 0; i < v.Len(); i++ {
		if !isFinite(v.AtVec(i)) {
			return false
		}
	}
	return true
}

// IsFiniteMatrix reports whether every entry of m is finite.
func IsFiniteMatrix(m mat.Matrix) bool {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if !isFinite(m.At(i, j)) {
				return false
			}
		}
	}
	return true
}

// ValidateValue fails with KindEvaluation when the value of eval is not
// finite.
func ValidateValue(eval Evaluation) error {
	if !isFinite(eval.Value()) {
		return NewError(KindEvaluation, "non-finite objective value returned").WithEvaluation(eval)
	}
	return nil
}

// ValidateGradient fails with KindEvaluation when any gradient component of
// eval is not finite.
func ValidateGradient(eval GradientEvaluation) error {
	g := eval.Gradient()
	if g == nil || !IsFiniteVector(g) {
		return NewError(KindEvaluation, "non-finite gradient returned").WithEvaluation(eval)
	}
	return nil
}

// ValidateHessian fails with KindEvaluation when any Hessian entry of eval
// is not finite.
func ValidateHessian(eval HessianEvaluation) error {
	h := eval.Hessian()
	if h == nil || !IsFiniteMatrix(h) {
		return NewError(KindEvaluation, "non-finite Hessian returned").WithEvaluation(eval)
	}
	return nil
}
