package mpc

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/open-adkit/latctl/internal/traj"
)

// predictedTrajectory maps the horizon's predicted error states back into
// world coordinates against the resampled reference, clipped to the
// reference arclength so the tail never extrapolates past the path.
func (c *Controller) predictedTrajectory(m *Matrices, x0, u *mat.VecDense, ref *traj.Trajectory) []traj.Point {
	lat, yawErr := c.predictedErrors(m, x0, u)

	out := &traj.Trajectory{}
	for i := 0; i < c.params.Horizon; i++ {
		yaw := ref.Yaw[i] + yawErr[i]
		x := ref.X[i] - lat[i]*math.Sin(ref.Yaw[i])
		y := ref.Y[i] + lat[i]*math.Cos(ref.Yaw[i])
		out.Push(x, y, yaw, ref.VX[i], ref.K[i], ref.SmoothK[i], ref.Time[i])
	}
	out = out.ClipByLength(ref.ArcLength())
	return out.ToPoints()
}

// predictedFrenet is the path-relative view of the same prediction: X is
// arclength along the reference, Y the lateral error, Yaw the heading
// error. It is clipped like the world-frame prediction.
func (c *Controller) predictedFrenet(m *Matrices, x0, u *mat.VecDense, ref *traj.Trajectory) []traj.Point {
	lat, yawErr := c.predictedErrors(m, x0, u)

	out := &traj.Trajectory{}
	s := 0.0
	for i := 0; i < c.params.Horizon; i++ {
		if i > 0 {
			s += math.Hypot(ref.X[i]-ref.X[i-1], ref.Y[i]-ref.Y[i-1])
		}
		out.Push(s, lat[i], yawErr[i], ref.VX[i], ref.K[i], ref.SmoothK[i], ref.Time[i])
	}
	out = out.ClipByLength(ref.ArcLength())
	return out.ToPoints()
}

// predictedErrors extracts the per-step lateral and heading errors from
// the stacked prediction through the output matrix.
func (c *Controller) predictedErrors(m *Matrices, x0, u *mat.VecDense) (lat, yawErr []float64) {
	xex := m.predictStates(x0, u)
	rows, _ := m.Cex.Dims()
	yex := mat.NewVecDense(rows, nil)
	yex.MulVec(m.Cex, xex)

	dimY := c.model.OutputDim()
	n := c.params.Horizon
	lat = make([]float64, n)
	yawErr = make([]float64, n)
	for i := 0; i < n; i++ {
		lat[i] = yex.AtVec(i * dimY)
		yawErr[i] = yex.AtVec(i*dimY + 1)
	}
	return lat, yawErr
}
