package optimization

import "gonum.org/v1/gonum/mat"

// cached is a compute-once cell. Once done is set, v never changes.
type cached[T any] struct {
	done bool
	v    T
}

func cachedOf[T any](v T) cached[T] {
	return cached[T]{done: true, v: v}
}

// record is the evaluation of an objective at one point. Eager records are
// filled at construction; lazy records fill each cell on first access.
type record struct {
	point *mat.VecDense
	lazy  *lazyFuncs

	value    cached[float64]
	gradient cached[*mat.VecDense]
	hessian  cached[*mat.Dense]
}

func (r *record) valueOf() float64 {
	if !r.value.done {
		r.value = cachedOf(r.lazy.value(r.point))
	}
	return r.value.v
}

func (r *record) gradientOf() mat.Vector {
	if !r.gradient.done {
		if r.lazy == nil || r.lazy.gradient == nil {
			return nil
		}
		g, err := copyGradient(r.point, r.lazy.gradient(r.point))
		if err != nil {
			panic(mat.ErrShape)
		}
		r.gradient = cachedOf(g)
	}
	return r.gradient.v
}

func (r *record) hessianOf() mat.Matrix {
	if !r.hessian.done {
		if r.lazy == nil || r.lazy.hessian == nil {
			return nil
		}
		h, err := copyHessian(r.point, r.lazy.hessian(r.point))
		if err != nil {
			panic(mat.ErrShape)
		}
		r.hessian = cachedOf(h)
	}
	return r.hessian.v
}

// clone deep-copies every computed cell. Cells not yet computed stay lazy
// and are computed independently by the clone.
func (r *record) clone() *record {
	if r == nil {
		return nil
	}
	c := &record{
		point: mat.VecDenseCopyOf(r.point),
		lazy:  r.lazy,
		value: r.value,
	}
	if r.gradient.done && r.gradient.v != nil {
		c.gradient = cachedOf(mat.VecDenseCopyOf(r.gradient.v))
	}
	if r.hessian.done && r.hessian.v != nil {
		c.hessian = cachedOf(mat.DenseCopyOf(r.hessian.v))
	}
	return c
}

// lazyFuncs are the per-quantity functions behind lazy records.
type lazyFuncs struct {
	value    ValueFunc
	gradient GradientFunc
	hessian  HessianFunc
}

func (l *lazyFuncs) record(x *mat.VecDense) (*record, error) {
	return &record{point: x, lazy: l}, nil
}
