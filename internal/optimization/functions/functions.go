// Package functions provides twice differentiable test objectives.
package functions

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/copyleftdev/newtonopt/internal/optimization"
)

// RosenbrockValue is (1-x)² + 100(y-x²)².
func RosenbrockValue(p mat.Vector) float64 {
	x, y := p.AtVec(0), p.AtVec(1)
	return (1-x)*(1-x) + 100*(y-x*x)*(y-x*x)
}

// RosenbrockGradient is the gradient of RosenbrockValue.
func RosenbrockGradient(p mat.Vector) mat.Vector {
	x, y := p.AtVec(0), p.AtVec(1)
	return mat.NewVecDense(2, []float64{
		-2*(1-x) - 400*x*(y-x*x),
		200 * (y - x*x),
	})
}

// RosenbrockHessian is the Hessian of RosenbrockValue.
func RosenbrockHessian(p mat.Vector) mat.Matrix {
	x, y := p.AtVec(0), p.AtVec(1)
	return mat.NewSymDense(2, []float64{
		1200*x*x - 400*y + 2, -400 * x,
		-400 * x, 200,
	})
}

// NewRosenbrock returns the two dimensional Rosenbrock function with value,
// gradient and Hessian computed together.
func NewRosenbrock() *optimization.HessianObjective {
	return optimization.NewHessianObjective(func(p mat.Vector) (float64, mat.Vector, mat.Matrix) {
		return RosenbrockValue(p), RosenbrockGradient(p), RosenbrockHessian(p)
	})
}

// NewLazyRosenbrock returns the Rosenbrock function computing each quantity
// on first access.
func NewLazyRosenbrock() *optimization.HessianObjective {
	return optimization.NewLazyHessianObjective(RosenbrockValue, RosenbrockGradient, RosenbrockHessian)
}

// NewSphere returns Σ xᵢ², defined in any dimension.
func NewSphere() *optimization.HessianObjective {
	return optimization.NewLazyHessianObjective(
		func(p mat.Vector) float64 {
			x := raw(p)
			return floats.Dot(x, x)
		},
		func(p mat.Vector) mat.Vector {
			x := raw(p)
			floats.Scale(2, x)
			return mat.NewVecDense(len(x), x)
		},
		func(p mat.Vector) mat.Matrix {
			diag := make([]float64, p.Len())
			for i := range diag {
				diag[i] = 2
			}
			return mat.NewDiagDense(len(diag), diag)
		},
	)
}

// Problem is a test problem in the form of gonum's optimize/functions
// package.
type Problem interface {
	Func(x []float64) float64
	Grad(grad, x []float64)
	Hess(dst *mat.SymDense, x []float64)
}

// FromGonum adapts p to a lazily evaluated objective. Problems with a fixed
// dimension panic when evaluated at a point of another dimension.
func FromGonum(p Problem) *optimization.HessianObjective {
	return optimization.NewLazyHessianObjective(
		func(x mat.Vector) float64 {
			return p.Func(raw(x))
		},
		func(x mat.Vector) mat.Vector {
			grad := make([]float64, x.Len())
			p.Grad(grad, raw(x))
			return mat.NewVecDense(len(grad), grad)
		},
		func(x mat.Vector) mat.Matrix {
			hess := mat.NewSymDense(x.Len(), nil)
			p.Hess(hess, raw(x))
			return hess
		},
	)
}

// raw returns a fresh slice holding the elements of v.
func raw(v mat.Vector) []float64 {
	return mat.Col(nil, 0, v)
}
