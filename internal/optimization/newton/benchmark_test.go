package newton

import (
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/copyleftdev/newtonopt/internal/optimization"
	"github.com/copyleftdev/newtonopt/internal/optimization/functions"
)

func benchmarkFindMinimum(b *testing.B, cfg Config, objective func() optimization.ObjectiveFunction, start []float64) {
	m, err := NewMinimizer(cfg)
	if err != nil {
		b.Fatal(err)
	}
	x0 := mat.NewVecDense(len(start), start)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := m.FindMinimum(objective(), x0); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkFindMinimumRosenbrock measures full Newton steps on the eager objective
func BenchmarkFindMinimumRosenbrock(b *testing.B) {
	benchmarkFindMinimum(b, DefaultConfig(),
		func() optimization.ObjectiveFunction { return functions.NewRosenbrock() },
		[]float64{-1.2, 1})
}

// BenchmarkFindMinimumLazyRosenbrock measures full Newton steps on the lazy objective
func BenchmarkFindMinimumLazyRosenbrock(b *testing.B) {
	benchmarkFindMinimum(b, DefaultConfig(),
		func() optimization.ObjectiveFunction { return functions.NewLazyRosenbrock() },
		[]float64{-1.2, 1})
}

// BenchmarkFindMinimumRosenbrockLineSearch measures Newton with a weak Wolfe line search
func BenchmarkFindMinimumRosenbrockLineSearch(b *testing.B) {
	cfg := DefaultConfig()
	cfg.UseLineSearch = true
	benchmarkFindMinimum(b, cfg,
		func() optimization.ObjectiveFunction { return functions.NewRosenbrock() },
		[]float64{-1.2, 1})
}

// BenchmarkFindMinimumSphere measures a single Newton step in higher dimension
func BenchmarkFindMinimumSphere(b *testing.B) {
	start := make([]float64, 50)
	for i := range start {
		start[i] = float64(i + 1)
	}
	benchmarkFindMinimum(b, DefaultConfig(),
		func() optimization.ObjectiveFunction { return functions.NewSphere() },
		start)
}

// BenchmarkFindMinimum1D measures scalar Newton on a double well
func BenchmarkFindMinimum1D(b *testing.B) {
	m, err := NewMinimizer(DefaultConfig())
	if err != nil {
		b.Fatal(err)
	}
	obj := scalarDoubleWell()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := m.FindMinimum1D(obj, 2); err != nil {
			b.Fatal(err)
		}
	}
}
