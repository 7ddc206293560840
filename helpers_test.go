package fusion

import (
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	mat "github.com/mrfyo/matrix"
)

// approx compares float slices with an absolute margin.
func approx(margin float64) cmp.Option {
	return cmpopts.EquateApprox(0, margin)
}

// flat returns the entries of m in row-major order.
func flat(m Matrix) []float64 {
	out := make([]float64, 0, m.Row*m.Col)
	for i := 0; i < m.Row; i++ {
		for j := 0; j < m.Col; j++ {
			out = append(out, m.Get(i, j))
		}
	}
	return out
}

func column(m Matrix, j int) []float64 {
	out := make([]float64, m.Row)
	for i := range out {
		out[i] = m.Get(i, j)
	}
	return out
}

func diag(vals ...float64) Matrix {
	return mat.Diag(vals)
}

func testState(x []float64, P Matrix) State {
	return State{X: vector(x...), P: P, Initialized: true}
}

func trace(m Matrix) float64 {
	var sum float64
	for i := 0; i < m.Row && i < m.Col; i++ {
		sum += m.Get(i, i)
	}
	return sum
}
