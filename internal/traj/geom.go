package traj

import (
	"errors"
	"fmt"
	"math"
)

// ErrInterpRange indicates an interpolation query outside the sampled range.
var ErrInterpRange = errors.New("traj: interpolation query out of range")

// NormalizeRadian wraps an angle into (-pi, pi].
func NormalizeRadian(angle float64) float64 {
	for angle > math.Pi {
		angle -= 2 * math.Pi
	}
	for angle <= -math.Pi {
		angle += 2 * math.Pi
	}
	return angle
}

// Lerp linearly interpolates ys over the monotonically increasing keys xs.
// Queries outside [xs[0], xs[len-1]] are an error, not an extrapolation:
// the delay compensator relies on this to detect exhausted horizons.
func Lerp(xs, ys []float64, x float64) (float64, error) {
	if len(xs) < 2 || len(xs) != len(ys) {
		return 0, fmt.Errorf("%w: %d keys, %d values", ErrInterpRange, len(xs), len(ys))
	}
	if x < xs[0] || x > xs[len(xs)-1] {
		return 0, fmt.Errorf("%w: %.3f not in [%.3f, %.3f]", ErrInterpRange, x, xs[0], xs[len(xs)-1])
	}
	i := searchSegment(xs, x)
	den := xs[i+1] - xs[i]
	if den < 1e-9 {
		return ys[i], nil
	}
	ratio := (x - xs[i]) / den
	return ys[i] + ratio*(ys[i+1]-ys[i]), nil
}

// LerpAngle interpolates an angle channel through the shortest arc.
func LerpAngle(xs, ys []float64, x float64) (float64, error) {
	if len(xs) < 2 || len(xs) != len(ys) {
		return 0, fmt.Errorf("%w: %d keys, %d values", ErrInterpRange, len(xs), len(ys))
	}
	if x < xs[0] || x > xs[len(xs)-1] {
		return 0, fmt.Errorf("%w: %.3f not in [%.3f, %.3f]", ErrInterpRange, x, xs[0], xs[len(xs)-1])
	}
	i := searchSegment(xs, x)
	den := xs[i+1] - xs[i]
	if den < 1e-9 {
		return ys[i], nil
	}
	ratio := (x - xs[i]) / den
	return ys[i] + ratio*NormalizeRadian(ys[i+1]-ys[i]), nil
}

// searchSegment returns i such that xs[i] <= x <= xs[i+1], by bisection.
func searchSegment(xs []float64, x float64) int {
	lo, hi := 0, len(xs)-1
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		if xs[mid] <= x {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lo
}

// UnwrapYaw rewrites the yaw channel so consecutive samples never jump
// across the +-pi seam.
func UnwrapYaw(yaw []float64) {
	for i := 1; i < len(yaw); i++ {
		yaw[i] = yaw[i-1] + NormalizeRadian(yaw[i]-yaw[i-1])
	}
}

func distance(x0, y0, x1, y1 float64) float64 {
	return math.Hypot(x1-x0, y1-y0)
}

// arcLengths returns the cumulative arclength at every sample.
func arcLengths(t *Trajectory) []float64 {
	s := make([]float64, t.Len())
	for i := 1; i < t.Len(); i++ {
		s[i] = s[i-1] + distance(t.X[i-1], t.Y[i-1], t.X[i], t.Y[i])
	}
	return s
}
