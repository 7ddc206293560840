package fusion

import (
	"math"

	mat "github.com/mrfyo/matrix"
)

// Below this yaw rate the CTRV arc is replaced by a straight line.
const yawRateEpsilon = 1e-3

// Prediction is the output of one predict step. It belongs to the cycle that
// produced it.
type Prediction struct {
	Sigma Matrix  // (StateDim, SigmaCount) propagated sigma points
	X     Matrix  // predicted mean
	P     Matrix  // predicted covariance
	Dt    float64 // seconds
}

// PropagateCTRV pushes augmented sigma points through the constant turn rate
// and velocity model over dt seconds and drops the noise rows.
func PropagateCTRV(aug Matrix, dt float64) Matrix {
	pred := mat.Zeros(Shape{Row: StateDim, Col: aug.Col})
	dt2 := 0.5 * dt * dt

	for j := 0; j < aug.Col; j++ {
		px := aug.Get(0, j)
		py := aug.Get(1, j)
		v := aug.Get(2, j)
		yaw := aug.Get(3, j)
		yawd := aug.Get(4, j)
		nuA := aug.Get(5, j)
		nuYawdd := aug.Get(6, j)

		var pxP, pyP float64
		if math.Abs(yawd) > yawRateEpsilon {
			pxP = px + v/yawd*(math.Sin(yaw+yawd*dt)-math.Sin(yaw))
			pyP = py + v/yawd*(math.Cos(yaw)-math.Cos(yaw+yawd*dt))
		} else {
			pxP = px + v*dt*math.Cos(yaw)
			pyP = py + v*dt*math.Sin(yaw)
		}

		pred.Set(0, j, pxP+nuA*dt2*math.Cos(yaw))
		pred.Set(1, j, pyP+nuA*dt2*math.Sin(yaw))
		pred.Set(2, j, v+nuA*dt)
		pred.Set(3, j, yaw+yawd*dt+nuYawdd*dt2)
		pred.Set(4, j, yawd+nuYawdd*dt)
	}
	return pred
}

// PredictMeanAndCovariance recombines predicted sigma points. Yaw differences
// are wrapped before they enter the covariance.
func PredictMeanAndCovariance(sigmas, weights Matrix) (x, P Matrix) {
	x = weightedMean(sigmas, weights)

	P = mat.Zeros(Shape{Row: sigmas.Row, Col: sigmas.Row})
	for j := 0; j < sigmas.Col; j++ {
		diffX := residual(sigmas, j, x, YawIndex)
		mat.MatrixAdd(P, diffX.Dot(diffX.T()).ScaleMul(weights.Get(0, j)))
	}

	x.Set(YawIndex, 0, NormalizeAngle(x.Get(YawIndex, 0)))
	return x, P
}

// Predict advances st by dt seconds. st is only written when sigma point
// generation succeeds; otherwise the error wraps ErrNotPositiveDefinite.
func Predict(st *State, weights Matrix, noise ProcessNoise, dt float64) (*Prediction, error) {
	aug, err := GenerateSigmaPoints(st.X, st.P, noise)
	if err != nil {
		return nil, err
	}

	sigmas := PropagateCTRV(aug, dt)
	x, P := PredictMeanAndCovariance(sigmas, weights)

	st.X = x
	st.P = P
	return &Prediction{
		Sigma: sigmas,
		X:     x.Copy(),
		P:     P.Copy(),
		Dt:    dt,
	}, nil
}
