package fusion

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	gmat "gonum.org/v1/gonum/mat"
)

// DefaultCovarianceTolerance is the relative tolerance used by the estimator
// when checking covariance health after each step.
const DefaultCovarianceTolerance = 1e-6

// CheckCovariance reports whether P is square, finite, symmetric and
// positive semi-definite, all within tol relative to the largest entry.
// Failures wrap ErrNotPositiveDefinite.
func CheckCovariance(P Matrix, tol float64) error {
	n := P.Row
	if P.Col != n {
		return fmt.Errorf("%w: shape %dx%d", ErrNotPositiveDefinite, P.Row, P.Col)
	}
	if !finite(P) {
		return fmt.Errorf("%w: non-finite entries", ErrNotPositiveDefinite)
	}

	scale := 1.0
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			scale = math.Max(scale, math.Abs(P.Get(i, j)))
		}
	}

	sym := gmat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			a, b := P.Get(i, j), P.Get(j, i)
			if math.Abs(a-b) > tol*scale {
				return fmt.Errorf("%w: asymmetric at (%d,%d): %g vs %g", ErrNotPositiveDefinite, i, j, a, b)
			}
			sym.SetSym(i, j, 0.5*(a+b))
		}
	}

	var eig gmat.EigenSym
	if ok := eig.Factorize(sym, false); !ok {
		return fmt.Errorf("%w: eigen decomposition failed", ErrNotPositiveDefinite)
	}
	if lowest := floats.Min(eig.Values(nil)); lowest < -tol*scale {
		return fmt.Errorf("%w: minimum eigenvalue %g", ErrNotPositiveDefinite, lowest)
	}
	return nil
}

// Symmetrize returns (P + P^T) / 2.
func Symmetrize(P Matrix) Matrix {
	return P.Add(P.T()).ScaleMul(0.5)
}
