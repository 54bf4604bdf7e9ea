package traj

import (
	"errors"
	"fmt"
	"math"

	"github.com/open-adkit/latctl/internal/filters"
)

// ErrResampleDegenerate indicates distance resampling produced fewer than
// two samples.
var ErrResampleDegenerate = errors.New("traj: degenerate resampling")

// TerminalTimeExtension pushes the synthetic last sample far enough in
// time that horizon interpolation never runs off the end.
const TerminalTimeExtension = 100.0

// extendLength is how far past the terminal point the path is stretched
// along the terminal heading when end-of-path yaw control is enabled.
const extendLength = 10.0

// NearestSegment returns the segment index preceding the nearest point
// and the signed longitudinal offset of pose from that segment's start.
func NearestSegment(t *Trajectory, pose Pose, distThreshold, yawThreshold float64) (int, float64, error) {
	nearest, err := NearestIndexSoft(t, pose, distThreshold, yawThreshold)
	if err != nil {
		return 0, 0, err
	}
	seg := nearest
	if nearest == t.Len()-1 {
		seg = nearest - 1
	} else if nearest > 0 {
		if longitudinalOffset(t, nearest, pose) < 0 {
			seg = nearest - 1
		}
	}
	if seg < 0 {
		seg = 0
	}
	return seg, longitudinalOffset(t, seg, pose), nil
}

func longitudinalOffset(t *Trajectory, seg int, pose Pose) float64 {
	sx := t.X[seg+1] - t.X[seg]
	sy := t.Y[seg+1] - t.Y[seg]
	norm := math.Hypot(sx, sy)
	if norm < 1e-9 {
		return 0
	}
	return ((pose.X-t.X[seg])*sx + (pose.Y-t.Y[seg])*sy) / norm
}

// ResampleByDistance resamples the trajectory at uniform arclength so one
// sample lands exactly on the ego projection: arclengths walk backward
// from the ego offset to the path start and forward to the path end.
func ResampleByDistance(in *Trajectory, interval float64, nearestSeg int, egoOffset float64) (*Trajectory, error) {
	if in.Len() < 2 {
		return nil, fmt.Errorf("%w: input size %d", ErrResampleDegenerate, in.Len())
	}
	s := arcLengths(in)
	total := s[len(s)-1]
	ego := math.Max(0, math.Min(s[nearestSeg]+egoOffset, total-1e-6))

	var targets []float64
	for t := ego; t >= 0; t -= interval {
		targets = append(targets, t)
	}
	for i, j := 0, len(targets)-1; i < j; i, j = i+1, j-1 {
		targets[i], targets[j] = targets[j], targets[i]
	}
	for t := math.Max(targets[len(targets)-1]+interval, interval); t < total; t += interval {
		targets = append(targets, t)
	}
	if len(targets) < 2 {
		return nil, fmt.Errorf("%w: %d resampled samples", ErrResampleDegenerate, len(targets))
	}

	out := &Trajectory{}
	for _, target := range targets {
		x, err := Lerp(s, in.X, target)
		if err != nil {
			return nil, err
		}
		y, err := Lerp(s, in.Y, target)
		if err != nil {
			return nil, err
		}
		yaw, err := LerpAngle(s, in.Yaw, target)
		if err != nil {
			return nil, err
		}
		vx, err := Lerp(s, in.VX, target)
		if err != nil {
			return nil, err
		}
		out.Push(x, y, yaw, vx, 0, 0, 0)
	}
	out.CalcTime()
	return out, nil
}

// DrivingDirection reports whether the resampled path is driven forward.
// The second return is false when the direction cannot be inferred (too
// few or coincident points); the caller keeps its previous value then.
func DrivingDirection(t *Trajectory) (bool, bool) {
	if t.Len() < 2 {
		return false, false
	}
	dx := t.X[1] - t.X[0]
	dy := t.Y[1] - t.Y[0]
	if math.Hypot(dx, dy) < 1e-9 {
		return false, false
	}
	return math.Cos(t.Yaw[0])*dx+math.Sin(t.Yaw[0])*dy >= 0, true
}

// Smooth applies the moving-average filter to position, heading and
// velocity. On any filter error the trajectory is left untouched.
func Smooth(t *Trajectory, window int) error {
	backup := t.Clone()
	for _, ch := range [][]float64{t.X, t.Y, t.Yaw, t.VX} {
		if err := filters.MovingAverage(window, ch); err != nil {
			t.X, t.Y, t.Yaw, t.VX = backup.X, backup.Y, backup.Yaw, backup.VX
			return err
		}
	}
	return nil
}

// ExtendInYawDirection stretches the path past its terminal point along
// the terminal heading. The end-of-horizon cost otherwise ignores the
// terminal attitude angle.
func ExtendInYawDirection(t *Trajectory, yaw, interval float64, isForward bool) {
	if t.Empty() {
		return
	}
	t.Yaw[t.Len()-1] = yaw
	step := interval
	if !isForward {
		step = -interval
	}
	x := t.X[t.Len()-1]
	y := t.Y[t.Len()-1]
	vx := t.VX[t.Len()-1]
	for dist := 0.0; dist < extendLength; dist += interval {
		x += step * math.Cos(yaw)
		y += step * math.Sin(yaw)
		t.Push(x, y, yaw, vx, 0, 0, 0)
	}
	t.CalcTime()
}

// CalcYawFromXY recomputes headings from central position differences.
func CalcYawFromXY(t *Trajectory, isForward bool) {
	if t.Len() < 3 {
		return
	}
	for i := 1; i+1 < t.Len(); i++ {
		yaw := math.Atan2(t.Y[i+1]-t.Y[i-1], t.X[i+1]-t.X[i-1])
		if !isForward {
			yaw += math.Pi
		}
		t.Yaw[i] = yaw
	}
	t.Yaw[0] = t.Yaw[1]
	t.Yaw[t.Len()-1] = t.Yaw[t.Len()-2]
}

// CalcCurvature fills the raw and smoothed curvature channels using
// three-point circumscribed circles over the two index windows.
func CalcCurvature(t *Trajectory, window, windowSteer int) {
	t.K = curvatureVec(t, window)
	t.SmoothK = curvatureVec(t, windowSteer)
}

func curvatureVec(t *Trajectory, window int) []float64 {
	n := t.Len()
	k := make([]float64, n)
	if n < 3 {
		return k
	}
	maxWindow := (n - 1) / 2
	if window > maxWindow {
		window = maxWindow
	}
	if window < 1 {
		window = 1
	}
	for i := 0; i < n; i++ {
		p1 := i - window
		p3 := i + window
		if p1 < 0 {
			p1 = 0
		}
		if p3 > n-1 {
			p3 = n - 1
		}
		d12 := distance(t.X[p1], t.Y[p1], t.X[i], t.Y[i])
		d23 := distance(t.X[i], t.Y[i], t.X[p3], t.Y[p3])
		d31 := distance(t.X[p3], t.Y[p3], t.X[p1], t.Y[p1])
		den := math.Max(d12*d23*d31, 1e-9)
		cross := (t.X[i]-t.X[p1])*(t.Y[p3]-t.Y[p1]) - (t.Y[i]-t.Y[p1])*(t.X[p3]-t.X[p1])
		k[i] = 2.0 * cross / den
	}
	return k
}

// DynamicSmoothingVelocity reshapes the velocity profile with first-order
// dynamics anchored at the measured speed, bounded by the acceleration
// limit, walking forward from the start index.
func DynamicSmoothingVelocity(t *Trajectory, startIdx int, startVel, accelLimit, tau float64) {
	if startIdx >= t.Len() {
		return
	}
	curr := startVel
	t.VX[startIdx] = startVel
	for i := startIdx + 1; i < t.Len(); i++ {
		ds := distance(t.X[i-1], t.Y[i-1], t.X[i], t.Y[i])
		dt := ds / math.Max(math.Abs(curr), 1e-9)
		a := tau / math.Max(tau+dt, 1e-9)
		updated := a*curr + (1-a)*t.VX[i]
		dv := math.Max(-accelLimit*dt, math.Min(accelLimit*dt, updated-curr))
		curr += dv
		t.VX[i] = curr
	}
	t.CalcTime()
}

// AppendTerminalSample forces the terminal velocity to zero and appends
// the synthetic far-future terminal sample.
func AppendTerminalSample(t *Trajectory) {
	if t.Empty() {
		return
	}
	last := t.Len() - 1
	t.VX[last] = 0
	t.Push(t.X[last], t.Y[last], t.Yaw[last], 0, t.K[last], t.SmoothK[last],
		t.Time[last]+TerminalTimeExtension)
}
