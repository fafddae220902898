package optimization

// Func1D is a real function of one real variable.
type Func1D func(x float64) float64

// ObjectiveFunction1D is a scalar objective with optional first and second
// derivatives. Evaluations are lazy and cached per point.
type ObjectiveFunction1D struct {
	value            Func1D
	derivative       Func1D
	secondDerivative Func1D
}

// NewObjective1D returns an objective where neither derivative is available.
func NewObjective1D(f Func1D) *ObjectiveFunction1D {
	return newObjective1D(f, nil, nil)
}

// NewObjective1DFirstDerivative returns an objective where the first
// derivative is available.
func NewObjective1DFirstDerivative(f, df Func1D) *ObjectiveFunction1D {
	if df == nil {
		panic("optimization: nil derivative")
	}
	return newObjective1D(f, df, nil)
}

// NewObjective1DSecondDerivative returns an objective where the first and
// second derivatives are available.
func NewObjective1DSecondDerivative(f, df, d2f Func1D) *ObjectiveFunction1D {
	if df == nil || d2f == nil {
		panic("optimization: nil derivative")
	}
	return newObjective1D(f, df, d2f)
}

func newObjective1D(f, df, d2f Func1D) *ObjectiveFunction1D {
	if f == nil {
		panic("optimization: nil value function")
	}
	return &ObjectiveFunction1D{value: f, derivative: df, secondDerivative: d2f}
}

func (o *ObjectiveFunction1D) DerivativeSupported() bool {
	return o.derivative != nil
}

func (o *ObjectiveFunction1D) SecondDerivativeSupported() bool {
	return o.secondDerivative != nil
}

// Evaluate returns a fresh evaluation bound to x. Nothing is computed until
// a quantity is read.
func (o *ObjectiveFunction1D) Evaluate(x float64) *Evaluation1D {
	return &Evaluation1D{objective: o, point: x}
}

type cacheState uint8

const (
	notComputed cacheState = iota
	computed
	failed
)

// scalarCache is a tri-state compute-once cell.
type scalarCache struct {
	state cacheState
	v     float64
	err   error
}

func (c *scalarCache) get(f Func1D, x float64, name string) (float64, error) {
	switch c.state {
	case computed:
		return c.v, nil
	case failed:
		return 0, c.err
	}
	if f == nil {
		c.state = failed
		c.err = NewErrorf(KindUnsupportedCapability, "%s not supported by objective", name).
			WithComponent("objective1d")
		return 0, c.err
	}
	c.v = f(x)
	c.state = computed
	return c.v, nil
}

// Evaluation1D is the lazily computed evaluation of an ObjectiveFunction1D
// at one point. It is not safe for concurrent use.
type Evaluation1D struct {
	objective *ObjectiveFunction1D
	point     float64

	value            scalarCache
	derivative       scalarCache
	secondDerivative scalarCache
}

func (e *Evaluation1D) Point() float64 {
	return e.point
}

// Value returns f(Point), computing it on first access.
func (e *Evaluation1D) Value() float64 {
	v, _ := e.value.get(e.objective.value, e.point, "value")
	return v
}

// Derivative returns f'(Point), computing it on first access. It fails
// with KindUnsupportedCapability when no derivative was supplied.
func (e *Evaluation1D) Derivative() (float64, error) {
	return e.derivative.get(e.objective.derivative, e.point, "derivative")
}

// SecondDerivative returns the second derivative at Point, computing it
// on first access. It fails with KindUnsupportedCapability when no second
// derivative was supplied.
func (e *Evaluation1D) SecondDerivative() (float64, error) {
	return e.secondDerivative.get(e.objective.secondDerivative, e.point, "second derivative")
}
