package fusion

import (
	"gonum.org/v1/gonum/stat/distuv"
)

// NIS returns the normalized innovation squared y^T * S^-1 * y.
func NIS(y, S Matrix) (float64, error) {
	inv, err := invertSPD(S)
	if err != nil {
		return 0, err
	}
	return nisWith(y, inv), nil
}

func nisWith(y, SInv Matrix) float64 {
	return y.T().Dot(SInv).Dot(y).Get(0, 0)
}

// NISThreshold is the chi-square quantile with dof degrees of freedom at the
// given confidence. A consistent filter exceeds it with probability
// 1-confidence.
func NISThreshold(dof int, confidence float64) float64 {
	return distuv.ChiSquared{K: float64(dof)}.Quantile(confidence)
}
