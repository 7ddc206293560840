package fusion

import (
	"fmt"
	"math"

	mat "github.com/mrfyo/matrix"
	gmat "gonum.org/v1/gonum/mat"
)

// State layout: [px, py, v, yaw, yawd].
const (
	StateDim = 5
	NoiseDim = 2 // longitudinal and yaw acceleration
	AugDim   = StateDim + NoiseDim

	// SigmaCount is the number of sigma points over the augmented state.
	SigmaCount = 2*AugDim + 1

	YawIndex = 3
)

// Lambda is the sigma point spreading parameter for the augmented state.
const Lambda = 3.0 - AugDim

// ProcessNoise holds the standard deviations of the CTRV noise inputs.
type ProcessNoise struct {
	StdA     float64 // longitudinal acceleration, m/s^2
	StdYawdd float64 // yaw acceleration, rad/s^2
}

// Weights returns the (1, 2*nAug+1) sigma point weights.
func Weights(nAug int, lambda float64) Matrix {
	n := float64(nAug)
	w := mat.Full(Shape{Row: 1, Col: 2*nAug + 1}, 0.5/(lambda+n))
	w.Set(0, 0, lambda/(lambda+n))
	return w
}

// AugmentedMean pads x with NoiseDim zero-mean noise components.
func AugmentedMean(x Matrix) Matrix {
	aug := mat.Zeros(Shape{Row: x.Row + NoiseDim, Col: 1})
	for i := 0; i < x.Row; i++ {
		aug.Set(i, 0, x.Get(i, 0))
	}
	return aug
}

// AugmentedCovariance returns P with the process noise variances appended on
// the diagonal.
func AugmentedCovariance(P Matrix, noise ProcessNoise) Matrix {
	q := mat.Diag([]float64{noise.StdA * noise.StdA, noise.StdYawdd * noise.StdYawdd})
	return BlockDiag(P, q)
}

// choleskyLower returns the lower triangular L with P = L*L^T.
func choleskyLower(P Matrix) (Matrix, error) {
	n := P.Row
	if P.Col != n {
		var L Matrix
		return L, fmt.Errorf("%w: shape %dx%d", ErrNotPositiveDefinite, P.Row, P.Col)
	}

	sym := gmat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sym.SetSym(i, j, 0.5*(P.Get(i, j)+P.Get(j, i)))
		}
	}

	var chol gmat.Cholesky
	if ok := chol.Factorize(sym); !ok {
		var L Matrix
		return L, ErrNotPositiveDefinite
	}
	var tri gmat.TriDense
	chol.LTo(&tri)

	L := mat.Zeros(Shape{Row: n, Col: n})
	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			L.Set(i, j, tri.At(i, j))
		}
	}
	if !finite(L) {
		return L, fmt.Errorf("%w: non-finite factor", ErrNotPositiveDefinite)
	}
	return L, nil
}

// GenerateSigmaPoints returns the (AugDim, SigmaCount) augmented sigma points
// for mean x and covariance P.
//
// The augmented covariance is block diagonal, so its Cholesky factor is the
// factor of P next to the noise standard deviations. Only P has to be
// positive definite; zero process noise is allowed.
func GenerateSigmaPoints(x, P Matrix, noise ProcessNoise) (Matrix, error) {
	nAug := x.Row + NoiseDim

	L, err := choleskyLower(P)
	if err != nil {
		var sigmas Matrix
		return sigmas, fmt.Errorf("sigma points: %w", err)
	}
	A := BlockDiag(L, mat.Diag([]float64{noise.StdA, noise.StdYawdd}))

	xAug := AugmentedMean(x)
	lambda := 3.0 - float64(nAug)
	c := math.Sqrt(lambda + float64(nAug))

	sigmas := mat.Zeros(Shape{Row: nAug, Col: 2*nAug + 1})
	sigmas.SetCol(0, xAug)
	for k := 0; k < nAug; k++ {
		for i := 0; i < nAug; i++ {
			d := c * A.Get(i, k)
			sigmas.Set(i, k+1, xAug.Get(i, 0)+d)
			sigmas.Set(i, k+1+nAug, xAug.Get(i, 0)-d)
		}
	}
	return sigmas, nil
}
