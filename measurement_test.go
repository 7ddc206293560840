package fusion

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestLidarModel(t *testing.T) {
	t.Parallel()

	m := NewLidarModel(0.15, 0.2)
	assert.Equal(t, 2, m.Dim())
	assert.Equal(t, NoAngle, m.AngleIndex())
	assert.Empty(t, cmp.Diff([]float64{0.0225, 0, 0, 0.04}, flat(m.Noise()), approx(1e-15)))

	z := m.Transform(vector(3, -4, 10, 1, 0.5))
	assert.Empty(t, cmp.Diff([]float64{3, -4}, flat(z)))
}

func TestRadarModel(t *testing.T) {
	t.Parallel()

	m := NewRadarModel(0.3, 0.03, 0.3, 0)
	assert.Equal(t, 3, m.Dim())
	assert.Equal(t, 1, m.AngleIndex())
	assert.Equal(t, DefaultMinRange, m.MinRange)
	assert.Empty(t, cmp.Diff([]float64{0.09, 0.0009, 0.09}, []float64{
		m.Noise().Get(0, 0), m.Noise().Get(1, 1), m.Noise().Get(2, 2),
	}, approx(1e-15)))

	tests := []struct {
		name string
		x    Matrix
		want []float64
	}{
		{
			name: "moving along x",
			x:    vector(3, 4, 2, 0, 0),
			want: []float64{5, math.Atan2(4, 3), 3 * 2 / 5.0},
		},
		{
			name: "moving radially",
			x:    vector(3, 4, 5, math.Atan2(4, 3), 0.2),
			want: []float64{5, math.Atan2(4, 3), 5},
		},
		{
			name: "behind the sensor",
			x:    vector(-2, 0, 1, 0, 0),
			want: []float64{2, math.Pi, -1},
		},
		{
			name: "degenerate range",
			x:    vector(0, 0, 3, 1, 0),
			want: []float64{0, 0, 0},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := flat(m.Transform(tt.x))
			if diff := cmp.Diff(tt.want, got, approx(1e-12)); diff != "" {
				t.Errorf("Transform mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRadarModelNearZeroRangeStaysFinite(t *testing.T) {
	t.Parallel()

	m := NewRadarModel(0.3, 0.03, 0.3, 1e-3)
	z := m.Transform(vector(1e-9, 1e-9, 5, 0.7, 0))
	assert.True(t, finite(z))
	// The divisor is clamped, so the range rate is bounded by v * rho / MinRange.
	assert.LessOrEqual(t, math.Abs(z.Get(2, 0)), 5*math.Sqrt2*1e-9/1e-3+1e-12)
}
