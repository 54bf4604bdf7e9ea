package traj

import "math"

// Pose is a planar pose.
type Pose struct {
	X   float64
	Y   float64
	Yaw float64
}

// Point is one reference sample as exchanged with the rest of the stack:
// a pose plus the target longitudinal velocity at that pose.
type Point struct {
	Pose
	VX float64
}

// Trajectory holds reference samples column-wise so per-channel filtering
// and interpolation stay cheap. All slices share one length.
//
// K is the raw path curvature, SmoothK the curvature computed with the
// wider smoothing window used for feed-forward steering. Time is the
// relative time from the first sample, strictly increasing.
type Trajectory struct {
	X       []float64
	Y       []float64
	Yaw     []float64
	VX      []float64
	K       []float64
	SmoothK []float64
	Time    []float64
}

func (t *Trajectory) Len() int    { return len(t.X) }
func (t *Trajectory) Empty() bool { return len(t.X) == 0 }

// Push appends one sample to every channel.
func (t *Trajectory) Push(x, y, yaw, vx, k, smoothK, time float64) {
	t.X = append(t.X, x)
	t.Y = append(t.Y, y)
	t.Yaw = append(t.Yaw, yaw)
	t.VX = append(t.VX, vx)
	t.K = append(t.K, k)
	t.SmoothK = append(t.SmoothK, smoothK)
	t.Time = append(t.Time, time)
}

func (t *Trajectory) Clone() *Trajectory {
	c := &Trajectory{}
	c.X = append(c.X, t.X...)
	c.Y = append(c.Y, t.Y...)
	c.Yaw = append(c.Yaw, t.Yaw...)
	c.VX = append(c.VX, t.VX...)
	c.K = append(c.K, t.K...)
	c.SmoothK = append(c.SmoothK, t.SmoothK...)
	c.Time = append(c.Time, t.Time...)
	return c
}

// FromPoints builds a trajectory from external samples. Curvature and
// time channels start zeroed; callers run the preprocessing pipeline to
// fill them.
func FromPoints(points []Point) *Trajectory {
	t := &Trajectory{}
	for _, p := range points {
		t.Push(p.X, p.Y, p.Yaw, p.VX, 0, 0, 0)
	}
	return t
}

// ToPoints converts back to the external sample representation.
func (t *Trajectory) ToPoints() []Point {
	points := make([]Point, t.Len())
	for i := range points {
		points[i] = Point{Pose: Pose{X: t.X[i], Y: t.Y[i], Yaw: t.Yaw[i]}, VX: t.VX[i]}
	}
	return points
}

const (
	// minTimeStep keeps Time strictly increasing even across duplicate
	// points.
	minTimeStep = 1.0e-4
	// minSpeedForTime bounds the per-segment travel time on slow segments.
	minSpeedForTime = 0.1
)

// CalcTime recomputes the relative-time channel from geometry and the
// velocity profile.
func (t *Trajectory) CalcTime() {
	if t.Empty() {
		return
	}
	t.Time = t.Time[:0]
	elapsed := 0.0
	t.Time = append(t.Time, elapsed)
	for i := 0; i+1 < t.Len(); i++ {
		ds := math.Hypot(t.X[i+1]-t.X[i], t.Y[i+1]-t.Y[i])
		v := math.Max(math.Abs(t.VX[i]), minSpeedForTime)
		elapsed += math.Max(ds/v, minTimeStep)
		t.Time = append(t.Time, elapsed)
	}
}

// ArcLength is the total path length over all segments.
func (t *Trajectory) ArcLength() float64 {
	sum := 0.0
	for i := 1; i < t.Len(); i++ {
		sum += math.Hypot(t.X[i]-t.X[i-1], t.Y[i]-t.Y[i-1])
	}
	return sum
}

// ClipByLength truncates the trajectory to the given arclength.
func (t *Trajectory) ClipByLength(length float64) *Trajectory {
	out := &Trajectory{}
	sum := 0.0
	for i := 0; i < t.Len(); i++ {
		if i > 0 {
			sum += math.Hypot(t.X[i]-t.X[i-1], t.Y[i]-t.Y[i-1])
		}
		if sum > length {
			break
		}
		out.Push(t.X[i], t.Y[i], t.Yaw[i], t.VX[i], t.K[i], t.SmoothK[i], t.Time[i])
	}
	return out
}
