package fusion

import "math"

// NormalizeAngle wraps a into (-pi, pi]. Values already in range are returned
// unchanged, so the operation is idempotent. NaN and infinities pass through.
func NormalizeAngle(a float64) float64 {
	if a > -math.Pi && a <= math.Pi {
		return a
	}
	if math.IsNaN(a) || math.IsInf(a, 0) {
		return a
	}

	r := math.Mod(a+math.Pi, 2*math.Pi)
	if r <= 0 {
		r += 2 * math.Pi
	}
	r -= math.Pi
	if r <= -math.Pi {
		r += 2 * math.Pi
	}
	return r
}
