package fusion

import (
	"errors"
	"log"
	"math"

	mat "github.com/mrfyo/matrix"
)

type (
	Shape  = mat.Shape
	Matrix = mat.Matrix
)

// Filter consumes measurements one at a time and exposes its current estimate.
type Filter interface {
	ProcessMeasurement(m Measurement) error
	State() (State, bool)
}

var (
	// ErrNotPositiveDefinite is returned when a covariance has no Cholesky
	// factor or has lost symmetry / positive semi-definiteness.
	ErrNotPositiveDefinite = errors.New("covariance is not positive definite")
	// ErrSingularCovariance is returned when the innovation covariance cannot be inverted.
	ErrSingularCovariance = errors.New("innovation covariance is singular")
	// ErrBadMeasurement is returned for unknown sensor types or wrong value counts.
	ErrBadMeasurement = errors.New("malformed measurement")
)

// Logf is the package diagnostic logger. It defaults to log.Printf and may be
// replaced with SetLogger.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil mutes it.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// vector builds a (len(vals), 1) column.
func vector(vals ...float64) Matrix {
	v := mat.Zeros(Shape{Row: len(vals), Col: 1})
	for i, x := range vals {
		v.Set(i, 0, x)
	}
	return v
}

// weightedMean returns the weighted sum of the columns of sigmas.
func weightedMean(sigmas, weights Matrix) Matrix {
	mean := mat.Zeros(Shape{Row: sigmas.Row, Col: 1})
	for j := 0; j < sigmas.Col; j++ {
		w := weights.Get(0, j)
		for i := 0; i < sigmas.Row; i++ {
			mean.Set(i, 0, mean.Get(i, 0)+w*sigmas.Get(i, j))
		}
	}
	return mean
}

// residual returns column j of sigmas minus mean, wrapping the component at
// angleIdx into (-pi, pi]. A negative angleIdx means no angular component.
func residual(sigmas Matrix, j int, mean Matrix, angleIdx int) Matrix {
	d := sigmas.GetCol(j).Sub(mean)
	if angleIdx >= 0 {
		d.Set(angleIdx, 0, NormalizeAngle(d.Get(angleIdx, 0)))
	}
	return d
}

func finite(m Matrix) bool {
	for i := 0; i < m.Row; i++ {
		for j := 0; j < m.Col; j++ {
			v := m.Get(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}

// BlockDiag places the given matrices along the diagonal of a zero matrix.
func BlockDiag(blocks ...Matrix) Matrix {
	rows, cols := 0, 0
	for _, b := range blocks {
		rows += b.Row
		cols += b.Col
	}

	out := mat.Zeros(Shape{Row: rows, Col: cols})
	r, c := 0, 0
	for _, b := range blocks {
		for i := 0; i < b.Row; i++ {
			for j := 0; j < b.Col; j++ {
				out.Set(r+i, c+j, b.Get(i, j))
			}
		}
		r += b.Row
		c += b.Col
	}
	return out
}
