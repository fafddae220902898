package optimization

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Evaluation is a snapshot of an objective at a single point.
//
// Vectors and matrices returned by evaluations are owned by the evaluation
// and must be treated as read-only.
type Evaluation interface {
	// Point returns the evaluated location, or nil before any evaluation.
	Point() mat.Vector
	// Value returns the objective value, or NaN before any evaluation.
	Value() float64
}

// GradientEvaluation is an Evaluation that also carries the gradient.
type GradientEvaluation interface {
	Evaluation
	Gradient() mat.Vector
}

// HessianEvaluation is a GradientEvaluation that also carries the Hessian.
type HessianEvaluation interface {
	GradientEvaluation
	Hessian() mat.Matrix
}

// ObjectiveFunction is a function of a real vector together with its
// current evaluation state.
//
// An instance is either unevaluated or holds exactly one evaluation record.
// Evaluate replaces the record wholesale. Instances are not safe for
// concurrent use; use CreateNew or Fork to obtain independent copies.
type ObjectiveFunction interface {
	Evaluation

	IsGradientSupported() bool
	IsHessianSupported() bool

	// Evaluated reports whether Evaluate has succeeded at least once.
	Evaluated() bool

	// Evaluate computes the objective at point and stores the result as
	// the current record. The point is copied.
	Evaluate(point mat.Vector) error

	// CreateNew returns an unevaluated instance bound to the same function.
	CreateNew() ObjectiveFunction

	// Fork returns an instance bound to the same function holding an
	// independent copy of the current record.
	Fork() ObjectiveFunction
}

// GradientObjectiveFunction is an ObjectiveFunction providing gradients.
type GradientObjectiveFunction interface {
	ObjectiveFunction
	Gradient() mat.Vector
}

// HessianObjectiveFunction is an ObjectiveFunction providing gradients and
// Hessians.
type HessianObjectiveFunction interface {
	GradientObjectiveFunction
	Hessian() mat.Matrix
}

// ValueFunc computes the objective value at x.
type ValueFunc func(x mat.Vector) float64

// GradientFunc computes the gradient at x.
type GradientFunc func(x mat.Vector) mat.Vector

// HessianFunc computes the Hessian at x.
type HessianFunc func(x mat.Vector) mat.Matrix

// ValueGradientFunc computes value and gradient at x in one pass.
type ValueGradientFunc func(x mat.Vector) (float64, mat.Vector)

// ValueGradientHessianFunc computes value, gradient and Hessian at x in
// one pass.
type ValueGradientHessianFunc func(x mat.Vector) (float64, mat.Vector, mat.Matrix)

// evaluator builds a record for the already copied point x.
type evaluator func(x *mat.VecDense) (*record, error)

// objective holds the tagged evaluation state shared by every variant.
// A nil record is the unevaluated state.
type objective struct {
	eval evaluator
	rec  *record
}

func (o *objective) Point() mat.Vector {
	if o.rec == nil {
		return nil
	}
	return o.rec.point
}

func (o *objective) Value() float64 {
	if o.rec == nil {
		return math.NaN()
	}
	return o.rec.valueOf()
}

func (o *objective) Evaluated() bool {
	return o.rec != nil
}

func (o *objective) Evaluate(point mat.Vector) error {
	const op = "Objective.Evaluate"

	if point == nil || point.Len() == 0 {
		return NewError(KindInvalidArgument, "point must be a non-empty vector").
			WithOperation(op).WithComponent("objective")
	}

	rec, err := o.eval(mat.VecDenseCopyOf(point))
	if err != nil {
		if e, ok := IsOptimizationError(err); ok && e.Op == "" {
			e.WithOperation(op).WithComponent("objective")
		}
		return err
	}
	o.rec = rec
	return nil
}

func (o *objective) gradient() mat.Vector {
	if o.rec == nil {
		return nil
	}
	return o.rec.gradientOf()
}

func (o *objective) hessian() mat.Matrix {
	if o.rec == nil {
		return nil
	}
	return o.rec.hessianOf()
}

func (o *objective) blank() objective {
	return objective{eval: o.eval}
}

func (o *objective) fork() objective {
	return objective{eval: o.eval, rec: o.rec.clone()}
}

// ValueObjective is an objective that only provides values.
type ValueObjective struct {
	objective
}

var _ ObjectiveFunction = (*ValueObjective)(nil)

// NewValueObjective returns an objective computing only the value.
func NewValueObjective(f ValueFunc) *ValueObjective {
	if f == nil {
		panic("optimization: nil value function")
	}
	return &ValueObjective{objective{eval: func(x *mat.VecDense) (*record, error) {
		return &record{point: x, value: cachedOf(f(x))}, nil
	}}}
}

func (o *ValueObjective) IsGradientSupported() bool { return false }
func (o *ValueObjective) IsHessianSupported() bool  { return false }

func (o *ValueObjective) CreateNew() ObjectiveFunction {
	return &ValueObjective{o.blank()}
}

func (o *ValueObjective) Fork() ObjectiveFunction {
	return &ValueObjective{o.fork()}
}

// GradientObjective is an objective providing values and gradients.
type GradientObjective struct {
	objective
}

var _ GradientObjectiveFunction = (*GradientObjective)(nil)

// NewGradientObjective returns an objective whose value and gradient are
// computed together by fg.
func NewGradientObjective(fg ValueGradientFunc) *GradientObjective {
	if fg == nil {
		panic("optimization: nil value/gradient function")
	}
	return &GradientObjective{objective{eval: func(x *mat.VecDense) (*record, error) {
		v, g := fg(x)
		grad, err := copyGradient(x, g)
		if err != nil {
			return nil, err
		}
		return &record{point: x, value: cachedOf(v), gradient: cachedOf(grad)}, nil
	}}}
}

// NewGradientObjectiveFuncs returns an objective evaluating f and g eagerly
// at every point.
func NewGradientObjectiveFuncs(f ValueFunc, g GradientFunc) *GradientObjective {
	if f == nil || g == nil {
		panic("optimization: nil value or gradient function")
	}
	return NewGradientObjective(func(x mat.Vector) (float64, mat.Vector) {
		return f(x), g(x)
	})
}

// NewLazyGradientObjective returns an objective computing the value and the
// gradient on first access, at most once per evaluation.
func NewLazyGradientObjective(f ValueFunc, g GradientFunc) *GradientObjective {
	if f == nil || g == nil {
		panic("optimization: nil value or gradient function")
	}
	lazy := &lazyFuncs{value: f, gradient: g}
	return &GradientObjective{objective{eval: lazy.record}}
}

func (o *GradientObjective) IsGradientSupported() bool { return true }
func (o *GradientObjective) IsHessianSupported() bool  { return false }

// Gradient returns the gradient at Point, or nil before any evaluation.
func (o *GradientObjective) Gradient() mat.Vector { return o.gradient() }

func (o *GradientObjective) CreateNew() ObjectiveFunction {
	return &GradientObjective{o.blank()}
}

func (o *GradientObjective) Fork() ObjectiveFunction {
	return &GradientObjective{o.fork()}
}

// HessianObjective is an objective providing values, gradients and
// Hessians.
type HessianObjective struct {
	objective
}

var _ HessianObjectiveFunction = (*HessianObjective)(nil)

// NewHessianObjective returns an objective whose value, gradient and
// Hessian are computed together by fgh.
func NewHessianObjective(fgh ValueGradientHessianFunc) *HessianObjective {
	if fgh == nil {
		panic("optimization: nil value/gradient/Hessian function")
	}
	return &HessianObjective{objective{eval: func(x *mat.VecDense) (*record, error) {
		v, g, h := fgh(x)
		grad, err := copyGradient(x, g)
		if err != nil {
			return nil, err
		}
		hess, err := copyHessian(x, h)
		if err != nil {
			return nil, err
		}
		return &record{
			point:    x,
			value:    cachedOf(v),
			gradient: cachedOf(grad),
			hessian:  cachedOf(hess),
		}, nil
	}}}
}

// NewHessianObjectiveFuncs returns an objective evaluating f, g and h
// eagerly at every point.
func NewHessianObjectiveFuncs(f ValueFunc, g GradientFunc, h HessianFunc) *HessianObjective {
	if f == nil || g == nil || h == nil {
		panic("optimization: nil value, gradient or Hessian function")
	}
	return NewHessianObjective(func(x mat.Vector) (float64, mat.Vector, mat.Matrix) {
		return f(x), g(x), h(x)
	})
}

// NewLazyHessianObjective returns an objective computing value, gradient
// and Hessian independently on first access, at most once per evaluation.
func NewLazyHessianObjective(f ValueFunc, g GradientFunc, h HessianFunc) *HessianObjective {
	if f == nil || g == nil || h == nil {
		panic("optimization: nil value, gradient or Hessian function")
	}
	lazy := &lazyFuncs{value: f, gradient: g, hessian: h}
	return &HessianObjective{objective{eval: lazy.record}}
}

func (o *HessianObjective) IsGradientSupported() bool { return true }
func (o *HessianObjective) IsHessianSupported() bool  { return true }

// Gradient returns the gradient at Point, or nil before any evaluation.
func (o *HessianObjective) Gradient() mat.Vector { return o.gradient() }

// Hessian returns the Hessian at Point, or nil before any evaluation.
func (o *HessianObjective) Hessian() mat.Matrix { return o.hessian() }

func (o *HessianObjective) CreateNew() ObjectiveFunction {
	return &HessianObjective{o.blank()}
}

func (o *HessianObjective) Fork() ObjectiveFunction {
	return &HessianObjective{o.fork()}
}

func copyGradient(x *mat.VecDense, g mat.Vector) (*mat.VecDense, error) {
	if g == nil || g.Len() != x.Len() {
		n := 0
		if g != nil {
			n = g.Len()
		}
		return nil, NewErrorf(KindEvaluation, "gradient has length %d, want %d", n, x.Len())
	}
	return mat.VecDenseCopyOf(g), nil
}

func copyHessian(x *mat.VecDense, h mat.Matrix) (*mat.Dense, error) {
	n := x.Len()
	if h == nil {
		return nil, NewErrorf(KindEvaluation, "Hessian is nil, want %dx%d", n, n)
	}
	if r, c := h.Dims(); r != n || c != n {
		return nil, NewErrorf(KindEvaluation, "Hessian is %dx%d, want %dx%d", r, c, n, n)
	}
	return mat.DenseCopyOf(h), nil
}
