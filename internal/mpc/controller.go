// Package mpc implements a finite-horizon optimal-control lateral
// steering controller tracking a planned reference path.
//
// One [Controller] owns one [rollingState] and runs one synchronous
// pipeline per control period: trajectory preprocessing (held between
// path updates), nearest-point error estimation, actuation-delay
// compensation, horizon matrix construction, QP solving, and command
// post-processing. Any stage failure aborts the cycle without touching
// the rolling state, so the next cycle retries cleanly.
//
// Controllers are not safe for concurrent use; run simulation and live
// control on separate instances.
package mpc

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/open-adkit/latctl/internal/qpsolver"
	"github.com/open-adkit/latctl/internal/steering"
	"github.com/open-adkit/latctl/internal/traj"
	"github.com/open-adkit/latctl/internal/vehicle"
)

// Controller runs the lateral MPC cycle.
type Controller struct {
	params    Params
	model     vehicle.Model
	solver    qpsolver.Solver
	predictor *steering.Predictor
	log       *throttledLogger

	refTraj *traj.Trajectory
	rawTraj *traj.Trajectory
	st      rollingState
}

// New wires the controller with its collaborators: the error-dynamics
// model, the numeric QP backend and the steering-angle predictor.
func New(p Params, model vehicle.Model, solver qpsolver.Solver, predictor *steering.Predictor) *Controller {
	return &Controller{
		params:    p,
		model:     model,
		solver:    solver,
		predictor: predictor,
		log:       newThrottledLogger(),
		st:        newRollingState(p),
	}
}

// Reset reinitializes the rolling state from the measured steering.
func (c *Controller) Reset(measuredSteer float64) {
	c.st.reset(measuredSteer, c.params.SteerLim)
	c.predictor.Reset()
}

// HasTrajectory reports whether a reference trajectory is held.
func (c *Controller) HasTrajectory() bool { return c.refTraj != nil }

// SetTrajectory preprocesses a raw reference path into the working
// trajectory: resample at uniform arclength from the ego projection,
// smooth, recompute heading and curvature, and append the synthetic
// terminal sample. An empty or degenerate result leaves the previously
// held trajectory in place.
func (c *Controller) SetTrajectory(points []traj.Point, pose traj.Pose) {
	p := c.params
	raw := traj.FromPoints(points)
	raw.CalcTime()

	seg, offset, err := traj.NearestSegment(raw, pose, p.NearestDistThreshold, p.NearestYawThreshold)
	if err != nil {
		c.log.Warn("reference trajectory rejected: nearest segment not found")
		return
	}
	resampled, err := traj.ResampleByDistance(raw, p.ResampleDist, seg, offset)
	if err != nil {
		c.log.Warn("reference trajectory rejected: resampling failed", "err", err)
		return
	}

	if forward, ok := traj.DrivingDirection(resampled); ok {
		c.st.isForward = forward
	}

	working := resampled
	if p.EnablePathSmoothing && working.Len() > 2*p.PathSmoothingWindow {
		// A filter error falls back to the unsmoothed channels.
		_ = traj.Smooth(working, p.PathSmoothingWindow)
	}

	if p.ExtendForTerminalYaw {
		traj.ExtendInYawDirection(working, raw.Yaw[raw.Len()-1], p.ResampleDist, c.st.isForward)
	}

	traj.CalcYawFromXY(working, c.st.isForward)
	traj.UnwrapYaw(working.Yaw)
	traj.CalcCurvature(working, p.CurvatureWindow, p.CurvatureWindowSteer)
	traj.AppendTerminalSample(working)

	if working.Empty() {
		c.log.Warn("reference trajectory rejected: empty after preprocessing")
		return
	}
	c.refTraj = working
	c.rawTraj = raw
}

// Run executes one control cycle. On failure it returns a nil Result and
// an error describing the aborted stage; the rolling state is unchanged
// and the caller owns the fallback behavior.
func (c *Controller) Run(in CycleInput) (*Result, error) {
	if c.refTraj == nil {
		return nil, c.fail(ErrNoTrajectory, "no reference trajectory received")
	}
	p := c.params

	// The reference velocity profile ignores the ego's actual speed;
	// reshape it with first-order longitudinal dynamics anchored at the
	// measurement.
	ref := c.applyVelocityDynamicsFilter(in)

	predictedSteer := c.predictor.Predict(in.Time)

	data, err := c.cycleData(ref, in, predictedSteer)
	if err != nil {
		return nil, c.fail(err, "failed to compute cycle data")
	}

	x0, pending := c.initialState(data)

	x0Delayed, err := c.delayCompensation(ref, data.nearestTime, x0)
	if err != nil {
		return nil, c.fail(err, "delay compensation failed")
	}

	startTime := data.nearestTime + p.InputDelay
	predictionDT := c.predictionDeltaTime(startTime, ref, in.Pose)

	resampled, err := c.resampleByTime(startTime, predictionDT, ref)
	if err != nil {
		return nil, c.fail(err, "horizon resampling failed")
	}

	// Error estimates for diagnostics, against the horizon trajectory and
	// the raw input trajectory.
	diagData, err := c.cycleData(resampled, in, predictedSteer)
	if err != nil {
		return nil, c.fail(err, "failed to compute diagnostic data")
	}
	rawData, err := c.cycleData(c.rawTraj, in, predictedSteer)
	if err != nil {
		return nil, c.fail(err, "failed to compute raw-trajectory diagnostic data")
	}

	m, err := c.buildMatrices(resampled, predictionDT)
	if err != nil {
		return nil, c.fail(err, "prediction matrix construction failed")
	}

	u, stats, err := c.optimize(m, x0Delayed, predictionDT, resampled, in.Velocity)
	if err != nil {
		return nil, c.fail(err, "optimization failed")
	}

	// Post-process: saturate the first optimal input, then low-pass it.
	rawU0 := u.AtVec(0)
	saturated := math.Max(-p.SteerLim, math.Min(p.SteerLim, rawU0))
	filtered := c.st.lpfCmd.Filter(saturated)

	cmd := Command{
		SteerAngle: filtered,
		SteerRate:  c.desiredSteeringRate(m, x0Delayed, u, filtered, data.steer, predictionDT),
	}

	// The cycle can no longer fail; commit the rolling state.
	c.predictor.Store(filtered, in.Time)
	c.st.pushInput(cmd.SteerAngle)
	c.st.rawPPrev = c.st.rawPrev
	c.st.rawPrev = rawU0
	c.st.commitDerivatives(pending)

	res := &Result{Command: cmd}
	res.Predicted = c.predictedTrajectory(m, x0, u, resampled)
	if p.DebugFrenetPrediction {
		res.PredictedFrenet = c.predictedFrenet(m, x0, u, resampled)
	}
	res.Diag = c.diagnostics(resampled, rawData, diagData, m, cmd, rawU0, stats, in)
	return res, nil
}

func (c *Controller) fail(err error, msg string) error {
	c.log.Warn(msg, "err", err)
	return err
}

// applyVelocityDynamicsFilter reshapes the held trajectory's velocity
// profile on a per-cycle copy and restores the far-future terminal
// sample the time recomputation collapses.
func (c *Controller) applyVelocityDynamicsFilter(in CycleInput) *traj.Trajectory {
	p := c.params
	out := c.refTraj.Clone()
	seg, _, err := traj.NearestSegment(out, in.Pose, p.NearestDistThreshold, p.NearestYawThreshold)
	if err != nil {
		return out
	}
	traj.DynamicSmoothingVelocity(out, seg, in.Velocity, p.AccelerationLimit, p.VelocityTimeConstant)
	traj.AppendTerminalSample(out)
	return out
}

// cycleData locates the nearest reference point and derives the error
// state, rejecting the cycle when tracking error or remaining trajectory
// length is inadmissible.
func (c *Controller) cycleData(t *traj.Trajectory, in CycleInput, predictedSteer float64) (cycleData, error) {
	p := c.params

	pose, idx, nearestTime, err := traj.NearestPoseInterp(t, in.Pose, p.NearestDistThreshold, p.NearestYawThreshold)
	if err != nil {
		return cycleData{}, fmt.Errorf("%w: %v", ErrData, err)
	}

	d := cycleData{
		nearestIdx:     idx,
		nearestTime:    nearestTime,
		nearestPose:    pose,
		steer:          in.MeasuredSteer,
		predictedSteer: predictedSteer,
		latErr:         traj.LateralError(in.Pose, pose),
		yawErr:         traj.NormalizeRadian(in.Pose.Yaw - pose.Yaw),
	}

	if dist := math.Hypot(in.Pose.X-pose.X, in.Pose.Y-pose.Y); dist > p.AdmissiblePosError {
		return cycleData{}, fmt.Errorf("%w: position error %.2fm > %.2fm", ErrTrackingBounds, dist, p.AdmissiblePosError)
	}
	if math.Abs(d.yawErr) > p.AdmissibleYawError {
		return cycleData{}, fmt.Errorf("%w: yaw error %.2f > %.2f", ErrTrackingBounds, d.yawErr, p.AdmissibleYawError)
	}

	maxPredictionTime := p.MinPredictionLength / float64(p.Horizon-1)
	endTime := nearestTime + p.InputDelay + p.CtrlPeriod + maxPredictionTime
	if endTime > t.Time[t.Len()-1] {
		return cycleData{}, fmt.Errorf("%w: need %.2fs, have %.2fs", ErrTrajectoryTooShort, endTime, t.Time[t.Len()-1])
	}
	return d, nil
}

// initialState assembles x0 for the active model. For the dynamic model
// it also returns the deferred derivative-filter mutations, committed
// only when the cycle succeeds.
func (c *Controller) initialState(d cycleData) (*mat.VecDense, *pendingState) {
	steer := d.steer
	if c.params.UseSteerPrediction {
		steer = d.predictedSteer
	}

	switch c.model.Kind() {
	case vehicle.KindKinematicNoLag:
		return mat.NewVecDense(2, []float64{d.latErr, d.yawErr}), nil
	case vehicle.KindDynamicBicycle:
		dlat := (d.latErr - c.st.latErrPrev) / c.params.CtrlPeriod
		dyaw := (d.yawErr - c.st.yawErrPrev) / c.params.CtrlPeriod
		pending := &pendingState{
			latErrPrev: d.latErr,
			yawErrPrev: d.yawErr,
			lpfLatErr:  c.st.lpfLatErr.Clone(),
			lpfYawErr:  c.st.lpfYawErr.Clone(),
		}
		dlat = pending.lpfLatErr.Filter(dlat)
		dyaw = pending.lpfYawErr.Filter(dyaw)
		return mat.NewVecDense(4, []float64{d.latErr, dlat, d.yawErr, dyaw}), pending
	default:
		return mat.NewVecDense(3, []float64{d.latErr, d.yawErr, steer}), nil
	}
}

// predictionDeltaTime spreads the horizon over at least the configured
// minimum prediction length at the reference speed.
func (c *Controller) predictionDeltaTime(startTime float64, t *traj.Trajectory, pose traj.Pose) float64 {
	p := c.params
	nearest, err := traj.NearestIndexSoft(t, pose, p.NearestDistThreshold, p.NearestYawThreshold)
	if err != nil {
		return p.NominalDT
	}

	// Walk the arclength until the minimum prediction length, then
	// interpolate the reference time there. The synthetic terminal
	// sample's time extension is subtracted when it bounds the walk.
	targetTime := t.Time[t.Len()-1] - traj.TerminalTimeExtension
	sum := 0.0
	for i := nearest + 1; i < t.Len(); i++ {
		seg := math.Hypot(t.X[i]-t.X[i-1], t.Y[i]-t.Y[i-1])
		sum += seg
		if sum <= p.MinPredictionLength {
			continue
		}
		prevSum := sum - seg
		ratio := (p.MinPredictionLength - prevSum) / seg
		timeAtI := t.Time[i]
		if i == t.Len()-1 {
			timeAtI -= traj.TerminalTimeExtension
		}
		targetTime = t.Time[i-1] + (timeAtI-t.Time[i-1])*ratio
		break
	}

	dt := (targetTime - startTime) / float64(p.Horizon-1)
	return math.Max(dt, p.NominalDT)
}

// resampleByTime samples the reference onto the horizon's uniform time
// grid.
func (c *Controller) resampleByTime(start, dt float64, t *traj.Trajectory) (*traj.Trajectory, error) {
	out := &traj.Trajectory{}
	for i := 0; i < c.params.Horizon; i++ {
		query := start + float64(i)*dt
		x, err := traj.Lerp(t.Time, t.X, query)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrResample, err)
		}
		y, err := traj.Lerp(t.Time, t.Y, query)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrResample, err)
		}
		yaw, err := traj.LerpAngle(t.Time, t.Yaw, query)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrResample, err)
		}
		vx, err := traj.Lerp(t.Time, t.VX, query)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrResample, err)
		}
		k, err := traj.Lerp(t.Time, t.K, query)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrResample, err)
		}
		smoothK, err := traj.Lerp(t.Time, t.SmoothK, query)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrResample, err)
		}
		out.Push(x, y, yaw, vx, k, smoothK, query)
	}
	return out, nil
}

// desiredSteeringRate derives the commanded steering rate. The
// kinematic-lag model exposes a steering state, so one forward step of
// the horizon prediction gives the model-consistent rate; other models
// fall back to differencing against the measured angle.
func (c *Controller) desiredSteeringRate(m *Matrices, x0 *mat.VecDense, u *mat.VecDense, filtered, measuredSteer, dt float64) float64 {
	if c.model.Kind() != vehicle.KindKinematicLag {
		return (filtered - measuredSteer) / dt
	}

	xex := m.predictStates(x0, u)
	const steerIdx = 2
	return (xex.AtVec(steerIdx) - x0.AtVec(steerIdx)) / dt
}
