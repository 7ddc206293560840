package fusion

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestCheckCovariance(t *testing.T) {
	t.Parallel()

	correlated := diag(2, 2, 1)
	correlated.Set(0, 1, 1)
	correlated.Set(1, 0, 1)

	asymmetric := diag(1, 1, 1)
	asymmetric.Set(0, 2, 0.5)

	indefinite := diag(1, 1, 1)
	indefinite.Set(0, 1, 2)
	indefinite.Set(1, 0, 2)

	nan := diag(1, 1, 1)
	nan.Set(2, 2, math.NaN())

	tests := []struct {
		name    string
		P       Matrix
		wantErr bool
	}{
		{"identity", diag(1, 1, 1), false},
		{"correlated", correlated, false},
		{"semi-definite", diag(1, 0, 1), false},
		{"asymmetric", asymmetric, true},
		{"indefinite", indefinite, true},
		{"negative variance", diag(1, -0.1, 1), true},
		{"nan", nan, true},
		{"not square", vector(1, 2), true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := CheckCovariance(tt.P, DefaultCovarianceTolerance)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrNotPositiveDefinite)
		})
	}
}

func TestCheckCovarianceTolerance(t *testing.T) {
	t.Parallel()

	P := diag(1, -1e-12, 1)
	assert.NoError(t, CheckCovariance(P, 1e-9))
	assert.ErrorIs(t, CheckCovariance(P, 1e-14), ErrNotPositiveDefinite)
}

func TestSymmetrize(t *testing.T) {
	t.Parallel()

	P := diag(1, 2)
	P.Set(0, 1, 0.4)
	P.Set(1, 0, 0.2)

	got := Symmetrize(P)
	assert.Empty(t, cmp.Diff([]float64{1, 0.3, 0.3, 2}, flat(got), approx(1e-15)))
	assert.Equal(t, 0.4, P.Get(0, 1), "input must not change")
}
