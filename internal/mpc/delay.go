package mpc

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/open-adkit/latctl/internal/traj"
)

// delayCompensation forward-simulates the error state through the
// actuation dead time by replaying the buffered commands not yet
// effective at the plant. An empty buffer (zero configured delay) is a
// no-op.
func (c *Controller) delayCompensation(t *traj.Trajectory, nearestTime float64, x0 *mat.VecDense) (*mat.VecDense, error) {
	x := mat.VecDenseCopyOf(x0)
	mpcTime := nearestTime
	dt := c.params.CtrlPeriod

	for _, u := range c.st.inputBuffer {
		k, err := traj.Lerp(t.Time, t.K, mpcTime)
		if err != nil {
			return nil, fmt.Errorf("%w: curvature at t=%.3f: %v", ErrDelayCompensation, mpcTime, err)
		}
		v, err := traj.Lerp(t.Time, t.VX, mpcTime)
		if err != nil {
			return nil, fmt.Errorf("%w: velocity at t=%.3f: %v", ErrDelayCompensation, mpcTime, err)
		}

		d, err := c.model.Discretize(v, k, dt)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDelayCompensation, err)
		}

		next := mat.NewVecDense(x.Len(), nil)
		next.MulVec(d.A, x)
		bu := mat.NewVecDense(x.Len(), nil)
		bu.MulVec(d.B, mat.NewVecDense(1, []float64{u}))
		next.AddVec(next, bu)
		next.AddVec(next, d.W.ColView(0))
		x = next

		mpcTime += dt
	}
	return x, nil
}
