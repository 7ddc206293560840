package fusion

import (
	"math"

	mat "github.com/mrfyo/matrix"
)

// NoAngle is returned by AngleIndex for measurement spaces without an angle.
const NoAngle = -1

// DefaultMinRange is the smallest range used as a divisor in the radar model.
const DefaultMinRange = 1e-4

// MeasurementModel maps a predicted state sigma point into measurement space.
type MeasurementModel interface {
	// Dim is the measurement vector length.
	Dim() int
	// AngleIndex is the measurement component wrapped into (-pi, pi], or NoAngle.
	AngleIndex() int
	// Noise is the fixed (Dim, Dim) measurement noise covariance.
	Noise() Matrix
	// Transform maps a (StateDim, 1) state into a (Dim, 1) measurement.
	Transform(x Matrix) Matrix
}

// LidarModel observes position directly.
type LidarModel struct {
	R Matrix
}

func NewLidarModel(stdPx, stdPy float64) *LidarModel {
	return &LidarModel{
		R: mat.Diag([]float64{stdPx * stdPx, stdPy * stdPy}),
	}
}

func (m *LidarModel) Dim() int        { return 2 }
func (m *LidarModel) AngleIndex() int { return NoAngle }
func (m *LidarModel) Noise() Matrix   { return m.R }

func (m *LidarModel) Transform(x Matrix) Matrix {
	return vector(x.Get(0, 0), x.Get(1, 0))
}

// RadarModel observes range, bearing and range rate.
type RadarModel struct {
	R Matrix
	// MinRange bounds the range divisor of the range rate away from zero.
	MinRange float64
}

func NewRadarModel(stdRho, stdPhi, stdRhoDot, minRange float64) *RadarModel {
	if minRange <= 0 {
		minRange = DefaultMinRange
	}
	return &RadarModel{
		R:        mat.Diag([]float64{stdRho * stdRho, stdPhi * stdPhi, stdRhoDot * stdRhoDot}),
		MinRange: minRange,
	}
}

func (m *RadarModel) Dim() int        { return 3 }
func (m *RadarModel) AngleIndex() int { return 1 }
func (m *RadarModel) Noise() Matrix   { return m.R }

func (m *RadarModel) Transform(x Matrix) Matrix {
	px := x.Get(0, 0)
	py := x.Get(1, 0)
	v := x.Get(2, 0)
	yaw := x.Get(3, 0)

	rho := math.Hypot(px, py)
	phi := math.Atan2(py, px)
	rhoDot := (px*v*math.Cos(yaw) + py*v*math.Sin(yaw)) / math.Max(rho, m.MinRange)

	return vector(rho, phi, rhoDot)
}
