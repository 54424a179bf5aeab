package costfn

import "gonum.org/v1/gonum/mat"

// centralDifferenceJacobian numerically differentiates f (which must fill
// n values into out and report whether the evaluation was valid) against
// every entry of x, using a symmetric finite difference. This mirrors the
// role Ceres' DynamicAutoDiffCostFunction played for GridEstimate and
// GridProjection in the original implementation: neither functor has a
// hand-derived analytic Jacobian, so this package differentiates them the
// same way autodiff effectively does, one direction at a time.
func centralDifferenceJacobian(n int, x []float64, f func(x []float64, out []float64) bool) *mat.Dense {
	const h = 1e-6
	m := len(x)
	J := mat.NewDense(n, m, nil)

	probe := make([]float64, m)
	copy(probe, x)
	plus := make([]float64, n)
	minus := make([]float64, n)

	for j := 0; j < m; j++ {
		orig := probe[j]

		probe[j] = orig + h
		okPlus := f(probe, plus)

		probe[j] = orig - h
		okMinus := f(probe, minus)

		probe[j] = orig

		if !okPlus || !okMinus {
			continue // leave this column zero rather than propagate a degenerate probe
		}
		for i := 0; i < n; i++ {
			J.Set(i, j, (plus[i]-minus[i])/(2*h))
		}
	}
	return J
}
