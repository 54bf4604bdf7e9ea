package mpc

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/open-adkit/latctl/internal/qpsolver"
	"github.com/open-adkit/latctl/internal/traj"
)

// stoppedVelocity is the speed below which steering-rate limits collapse
// to zero; a stopped vehicle must not be commanded to swing the wheel.
const stoppedVelocity = 0.01

// optimize assembles and solves the condensed QP over the input sequence.
func (c *Controller) optimize(m *Matrices, x0 *mat.VecDense, dt float64, ref *traj.Trajectory, velocity float64) (*mat.VecDense, qpsolver.Stats, error) {
	if !m.finite() {
		return nil, qpsolver.Stats{}, ErrNonFinite
	}
	p := c.params
	n := p.Horizon

	// H = Bex' Cex' Qex Cex Bex + R1ex + R2ex. R1ex already carries the
	// inter-step steering regularization.
	var cb mat.Dense
	cb.Mul(m.Cex, m.Bex)
	var qcb mat.Dense
	qcb.Mul(m.Qex, &cb)
	h := mat.NewDense(n, n, nil)
	h.Mul(cb.T(), &qcb)
	h.Add(h, m.R1ex)
	h.Add(h, m.R2ex)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			v := 0.5 * (h.At(i, j) + h.At(j, i))
			h.Set(i, j, v)
			h.Set(j, i, v)
		}
	}

	// f = (Cex (Aex x0 + Wex))' Qex Cex Bex - Uref' R1ex.
	var ax mat.VecDense
	ax.MulVec(m.Aex, x0)
	ax.AddVec(&ax, m.Wex)
	var cax mat.VecDense
	cax.MulVec(m.Cex, &ax)
	f := mat.NewVecDense(n, nil)
	f.MulVec(qcb.T(), &cax)
	var ur mat.VecDense
	ur.MulVec(m.R1ex.T(), m.Uref)
	f.SubVec(f, &ur)
	c.addSteerWeightF(dt, f)

	// Slew constraints: A is identity with -1 on the first subdiagonal, so
	// row 0 bounds u0 against the previous raw command and row i bounds
	// u_i - u_{i-1}.
	a := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		a.Set(i, i, 1)
		if i > 0 {
			a.Set(i, i-1, -1)
		}
	}

	lb := mat.NewVecDense(n, nil)
	ub := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		lb.SetVec(i, -p.SteerLim)
		ub.SetVec(i, p.SteerLim)
	}

	limits := c.steerRateLimits(ref, velocity)
	lbA := mat.NewVecDense(n, nil)
	ubA := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		lbA.SetVec(i, -limits[i]*dt)
		ubA.SetVec(i, limits[i]*dt)
	}
	// The first input slews from the previous cycle's raw command over one
	// control period, not one prediction step.
	ubA.SetVec(0, c.st.rawPrev+limits[0]*p.CtrlPeriod)
	lbA.SetVec(0, c.st.rawPrev-limits[0]*p.CtrlPeriod)

	u, stats, err := c.solver.Solve(qpsolver.Problem{
		H: h, F: f, A: a, LB: lb, UB: ub, LBA: lbA, UBA: ubA,
	})
	if err != nil {
		return nil, stats, fmt.Errorf("%w: %v", ErrOptimization, err)
	}
	for i := 0; i < u.Len(); i++ {
		if math.IsNaN(u.AtVec(i)) || math.IsInf(u.AtVec(i), 0) {
			return nil, stats, fmt.Errorf("%w: non-finite solution", ErrOptimization)
		}
	}
	return u, stats, nil
}

// addSteerWeightR adds the steering-rate and steering-acceleration
// regularization to R1ex. The horizon's interior uses prediction-dt
// differences; the boundary couples against the previous cycle's command
// over the control period, with mixed-period cross terms.
func (c *Controller) addSteerWeightR(dt float64, h *mat.Dense) {
	p := c.params
	n := p.Horizon
	ctp := p.CtrlPeriod

	steerRateR := p.Nominal.SteerRate / (dt * dt)
	for i := 0; i < n-1; i++ {
		h.Set(i, i, h.At(i, i)+steerRateR)
		h.Set(i+1, i, h.At(i+1, i)-steerRateR)
		h.Set(i, i+1, h.At(i, i+1)-steerRateR)
		h.Set(i+1, i+1, h.At(i+1, i+1)+steerRateR)
	}
	if n > 1 {
		h.Set(0, 0, h.At(0, 0)+p.Nominal.SteerRate/(ctp*ctp))
	}

	steerAccR := p.Nominal.SteerAcc / math.Pow(dt, 4)
	steerAccRCP1 := p.Nominal.SteerAcc / (math.Pow(dt, 3) * ctp)
	steerAccRCP2 := p.Nominal.SteerAcc / (math.Pow(dt, 2) * ctp * ctp)
	steerAccRCP4 := p.Nominal.SteerAcc / math.Pow(ctp, 4)

	for i := 1; i < n-1; i++ {
		h.Set(i-1, i-1, h.At(i-1, i-1)+steerAccR)
		h.Set(i-1, i, h.At(i-1, i)-2*steerAccR)
		h.Set(i-1, i+1, h.At(i-1, i+1)+steerAccR)
		h.Set(i, i-1, h.At(i, i-1)-2*steerAccR)
		h.Set(i, i, h.At(i, i)+4*steerAccR)
		h.Set(i, i+1, h.At(i, i+1)-2*steerAccR)
		h.Set(i+1, i-1, h.At(i+1, i-1)+steerAccR)
		h.Set(i+1, i, h.At(i+1, i)-2*steerAccR)
		h.Set(i+1, i+1, h.At(i+1, i+1)+steerAccR)
	}
	if n > 1 {
		h.Set(0, 0, h.At(0, 0)+steerAccR+steerAccRCP2+2*steerAccRCP1)
		h.Set(1, 0, h.At(1, 0)-steerAccR-steerAccRCP1)
		h.Set(0, 1, h.At(0, 1)-steerAccR-steerAccRCP1)
		h.Set(1, 1, h.At(1, 1)+steerAccR)
		h.Set(0, 0, h.At(0, 0)+steerAccRCP4)
	}
}

// addSteerWeightF adds the linear boundary terms pairing the first inputs
// with the previous cycle's raw commands.
func (c *Controller) addSteerWeightF(dt float64, f *mat.VecDense) {
	if f.Len() < 2 {
		return
	}
	p := c.params
	ctp := p.CtrlPeriod

	f.SetVec(0, f.AtVec(0)+(-2.0*p.Nominal.SteerRate/(dt*dt))*0.5)

	steerAccRCP1 := p.Nominal.SteerAcc / (math.Pow(dt, 3) * ctp)
	steerAccRCP2 := p.Nominal.SteerAcc / (math.Pow(dt, 2) * ctp * ctp)
	steerAccRCP4 := p.Nominal.SteerAcc / math.Pow(ctp, 4)

	f.SetVec(0, f.AtVec(0)+((-2.0*c.st.rawPrev+c.st.rawPPrev)*steerAccRCP4)*0.5)
	f.SetVec(0, f.AtVec(0)+(-2.0*c.st.rawPrev*(steerAccRCP1+steerAccRCP2))*0.5)
	f.SetVec(1, f.AtVec(1)+(2.0*c.st.rawPrev*steerAccRCP1)*0.5)
}

// steerRateLimits returns the per-step steering-rate limit: the stricter
// of the curvature-indexed and velocity-indexed maps.
func (c *Controller) steerRateLimits(ref *traj.Trajectory, velocity float64) []float64 {
	p := c.params
	limits := make([]float64, p.Horizon)
	if math.Abs(velocity) < stoppedVelocity {
		return limits
	}
	for i := range limits {
		byK := interpRateMap(p.SteerRateLimitsByCurvature, ref.K[i])
		byV := interpRateMap(p.SteerRateLimitsByVelocity, ref.VX[i])
		limits[i] = math.Min(byK, byV)
	}
	return limits
}

// interpRateMap evaluates a piecewise-linear rate map with zero-order
// hold outside the knot range.
func interpRateMap(points []RatePoint, query float64) float64 {
	if len(points) == 0 {
		return math.Inf(1)
	}
	if query <= points[0].Reference {
		return points[0].Limit
	}
	if query >= points[len(points)-1].Reference {
		return points[len(points)-1].Limit
	}
	for i := 0; i < len(points)-1; i++ {
		if points[i].Reference <= query && query <= points[i+1].Reference {
			ratio := (query - points[i].Reference) /
				math.Max(points[i+1].Reference-points[i].Reference, 1e-5)
			ratio = math.Max(0, math.Min(1, ratio))
			return points[i].Limit + ratio*(points[i+1].Limit-points[i].Limit)
		}
	}
	return points[len(points)-1].Limit
}
