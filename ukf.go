package fusion

import (
	"fmt"

	mat "github.com/mrfyo/matrix"
	gmat "gonum.org/v1/gonum/mat"
)

// Innovation describes one measurement update.
type Innovation struct {
	Z     Matrix // actual measurement (m, 1)
	ZPred Matrix // predicted measurement (m, 1)
	Y     Matrix // residual z - zPred, angle wrapped (m, 1)
	S     Matrix // innovation covariance (m, m)
	K     Matrix // Kalman gain (n, m)
	NIS   float64
}

// Update corrects st with measurement z using the sigma points of pred.
// st must hold the predicted mean and covariance of pred. On error st is left
// untouched.
func Update(st *State, pred *Prediction, weights Matrix, model MeasurementModel, z Matrix) (*Innovation, error) {
	n, m := pred.Sigma.Row, model.Dim()
	if z.Row != m || z.Col != 1 {
		return nil, fmt.Errorf("%w: got %dx%d measurement, model wants %dx1", ErrBadMeasurement, z.Row, z.Col, m)
	}
	angle := model.AngleIndex()

	count := pred.Sigma.Col
	sigmaZs := mat.Zeros(Shape{Row: m, Col: count}) // (m, 2*n_aug+1)
	for j := 0; j < count; j++ {
		sigmaZs.SetCol(j, model.Transform(pred.Sigma.GetCol(j)))
	}
	priorZ := weightedMean(sigmaZs, weights)

	Pzz := model.Noise().Copy()             // (m, m)
	Pxz := mat.Zeros(Shape{Row: n, Col: m}) // (n, m)
	for j := 0; j < count; j++ {
		w := weights.Get(0, j)
		diffZ := residual(sigmaZs, j, priorZ, angle)
		mat.MatrixAdd(Pzz, diffZ.Dot(diffZ.T()).ScaleMul(w))
		diffX := residual(pred.Sigma, j, st.X, YawIndex)
		mat.MatrixAdd(Pxz, diffX.Dot(diffZ.T()).ScaleMul(w))
	}

	PzzInv, err := invertSPD(Pzz)
	if err != nil {
		return nil, err
	}
	K := Pxz.Dot(PzzInv) // (n, m)
	if !finite(K) {
		return nil, fmt.Errorf("%w: non-finite gain", ErrSingularCovariance)
	}

	Y := z.Sub(priorZ)
	if angle >= 0 {
		Y.Set(angle, 0, NormalizeAngle(Y.Get(angle, 0)))
	}

	X := st.X.Add(K.Dot(Y))
	X.Set(YawIndex, 0, NormalizeAngle(X.Get(YawIndex, 0)))
	P := Symmetrize(st.P.Sub(K.Dot(Pzz).Dot(K.T())))

	st.X = X
	st.P = P
	return &Innovation{
		Z:     z.Copy(),
		ZPred: priorZ,
		Y:     Y,
		S:     Pzz,
		K:     K,
		NIS:   nisWith(Y, PzzInv),
	}, nil
}

// invertSPD inverts a symmetric positive definite matrix. Singular or
// indefinite input returns ErrSingularCovariance.
func invertSPD(S Matrix) (Matrix, error) {
	var inv Matrix
	n := S.Row
	if S.Col != n || !finite(S) {
		return inv, fmt.Errorf("%w: bad %dx%d matrix", ErrSingularCovariance, S.Row, S.Col)
	}

	sym := gmat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sym.SetSym(i, j, 0.5*(S.Get(i, j)+S.Get(j, i)))
		}
	}
	var chol gmat.Cholesky
	if ok := chol.Factorize(sym); !ok {
		return inv, ErrSingularCovariance
	}

	inv = mat.Inv(S)
	if !finite(inv) {
		return inv, fmt.Errorf("%w: non-finite inverse", ErrSingularCovariance)
	}
	return inv, nil
}
