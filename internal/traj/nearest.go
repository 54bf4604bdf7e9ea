package traj

import (
	"errors"
	"math"
)

// ErrNearestNotFound indicates the nearest-point search had no candidate.
var ErrNearestNotFound = errors.New("traj: nearest point not found")

// NearestIndexSoft finds the sample closest to pose with soft distance and
// yaw constraints: candidates within both thresholds are preferred, then
// candidates within the yaw threshold alone, then the unconstrained
// minimum. The thresholds keep the search anchored near the ego pose on
// self-crossing or switch-back paths instead of jumping to a far branch.
func NearestIndexSoft(t *Trajectory, pose Pose, distThreshold, yawThreshold float64) (int, error) {
	if t.Empty() {
		return 0, ErrNearestNotFound
	}

	search := func(useDist, useYaw bool) (int, bool) {
		best := -1
		bestSq := math.MaxFloat64
		for i := 0; i < t.Len(); i++ {
			dx := t.X[i] - pose.X
			dy := t.Y[i] - pose.Y
			sq := dx*dx + dy*dy
			if useDist && sq > distThreshold*distThreshold {
				continue
			}
			if useYaw && math.Abs(NormalizeRadian(t.Yaw[i]-pose.Yaw)) > yawThreshold {
				continue
			}
			if sq < bestSq {
				bestSq = sq
				best = i
			}
		}
		return best, best >= 0
	}

	if idx, ok := search(true, true); ok {
		return idx, nil
	}
	if idx, ok := search(false, true); ok {
		return idx, nil
	}
	idx, _ := search(false, false)
	return idx, nil
}

// NearestPoseInterp interpolates the nearest pose between the nearest
// sample and its closer neighbor, returning the pose, the nearest sample
// index and the interpolated relative time.
func NearestPoseInterp(t *Trajectory, pose Pose, distThreshold, yawThreshold float64) (Pose, int, float64, error) {
	if t.Empty() {
		return Pose{}, 0, 0, ErrNearestNotFound
	}
	nearest, err := NearestIndexSoft(t, pose, distThreshold, yawThreshold)
	if err != nil {
		return Pose{}, 0, 0, err
	}
	if t.Len() == 1 {
		return Pose{X: t.X[0], Y: t.Y[0], Yaw: t.Yaw[0]}, 0, t.Time[0], nil
	}

	second := nearest + 1
	if nearest == t.Len()-1 {
		second = nearest - 1
	} else if nearest > 0 {
		dNext := distance(pose.X, pose.Y, t.X[nearest+1], t.Y[nearest+1])
		dPrev := distance(pose.X, pose.Y, t.X[nearest-1], t.Y[nearest-1])
		if dPrev < dNext {
			second = nearest - 1
		}
	}

	aSq := sqDist(pose.X, pose.Y, t.X[nearest], t.Y[nearest])
	bSq := sqDist(pose.X, pose.Y, t.X[second], t.Y[second])
	cSq := sqDist(t.X[second], t.Y[second], t.X[nearest], t.Y[nearest])
	if cSq < 1e-5 {
		return Pose{X: t.X[nearest], Y: t.Y[nearest], Yaw: t.Yaw[nearest]},
			nearest, t.Time[nearest], nil
	}

	alpha := 0.5 * (cSq - aSq + bSq) / cSq
	alpha = math.Max(0, math.Min(1, alpha))

	yawErr := NormalizeRadian(t.Yaw[nearest] - t.Yaw[second])
	out := Pose{
		X:   alpha*t.X[nearest] + (1-alpha)*t.X[second],
		Y:   alpha*t.Y[nearest] + (1-alpha)*t.Y[second],
		Yaw: NormalizeRadian(t.Yaw[second] + alpha*yawErr),
	}
	time := alpha*t.Time[nearest] + (1-alpha)*t.Time[second]
	return out, nearest, time, nil
}

// LateralError is the signed lateral offset of pose in the frame of ref.
func LateralError(pose, ref Pose) float64 {
	dx := pose.X - ref.X
	dy := pose.Y - ref.Y
	return -math.Sin(ref.Yaw)*dx + math.Cos(ref.Yaw)*dy
}

func sqDist(x0, y0, x1, y1 float64) float64 {
	dx := x1 - x0
	dy := y1 - y0
	return dx*dx + dy*dy
}
