package mpc

import (
	"math"

	"github.com/open-adkit/latctl/internal/filters"
	"github.com/open-adkit/latctl/internal/traj"
)

// Command is the lateral control output of one cycle.
type Command struct {
	SteerAngle float64
	SteerRate  float64
}

// CycleInput is everything one cycle consumes from the outside.
type CycleInput struct {
	// Time is a monotonic timestamp in seconds, supplied by the caller's
	// scheduler; the steering predictor integrates against it.
	Time          float64
	Pose          traj.Pose
	Velocity      float64
	MeasuredSteer float64
}

// Result is the output of one successful cycle.
type Result struct {
	Command   Command
	Predicted []traj.Point
	// PredictedFrenet is the path-relative predicted trajectory, only
	// filled when debug output is enabled: X is arclength along the
	// reference, Y the lateral error, Yaw the heading error.
	PredictedFrenet []traj.Point
	Diag            Diagnostics
}

// cycleData is the per-cycle error estimate, derived once and immutable
// afterwards.
type cycleData struct {
	nearestIdx     int
	nearestTime    float64
	nearestPose    traj.Pose
	steer          float64
	predictedSteer float64
	latErr         float64
	yawErr         float64
}

// rollingState persists across cycles and is owned by exactly one
// controller. It is mutated once per successful cycle; failed cycles
// leave it untouched.
type rollingState struct {
	// inputBuffer holds issued commands not yet effective at the plant,
	// oldest first.
	inputBuffer []float64

	// rawPrev/rawPPrev are the raw optimal first inputs of the last two
	// successful cycles; the steering-acceleration boundary terms and the
	// first slew constraint use them.
	rawPrev  float64
	rawPPrev float64

	// Finite-difference anchors and low-pass filters for the
	// dynamic-bicycle derivative states.
	latErrPrev float64
	yawErrPrev float64
	lpfLatErr  *filters.Butterworth2D
	lpfYawErr  *filters.Butterworth2D

	// lpfCmd shapes the final steering command.
	lpfCmd *filters.Butterworth2D

	isForward bool
}

func newRollingState(p Params) rollingState {
	return rollingState{
		inputBuffer: make([]float64, p.delaySteps()),
		lpfCmd:      filters.NewButterworth2D(p.CtrlPeriod, p.SteerLPFCutoffHz),
		lpfLatErr:   filters.NewButterworth2D(p.CtrlPeriod, p.ErrorLPFCutoffHz),
		lpfYawErr:   filters.NewButterworth2D(p.CtrlPeriod, p.ErrorLPFCutoffHz),
		isForward:   true,
	}
}

// reset reinitializes from the measured steering clamped to the actuator
// limit. A previous command outside the constraint box would make the
// first slew constraint infeasible.
func (s *rollingState) reset(measuredSteer, steerLim float64) {
	clamped := math.Max(-steerLim, math.Min(steerLim, measuredSteer))
	s.rawPrev = clamped
	s.rawPPrev = clamped
	for i := range s.inputBuffer {
		s.inputBuffer[i] = clamped
	}
	s.latErrPrev = 0
	s.yawErrPrev = 0
	s.lpfCmd.Reset()
	s.lpfLatErr.Reset()
	s.lpfYawErr.Reset()
}

// pendingState carries the rolling-state mutations of a cycle until the
// cycle is known to have succeeded.
type pendingState struct {
	latErrPrev float64
	yawErrPrev float64
	lpfLatErr  *filters.Butterworth2D
	lpfYawErr  *filters.Butterworth2D
}

func (s *rollingState) commitDerivatives(p *pendingState) {
	if p == nil {
		return
	}
	s.latErrPrev = p.latErrPrev
	s.yawErrPrev = p.yawErrPrev
	s.lpfLatErr = p.lpfLatErr
	s.lpfYawErr = p.lpfYawErr
}

// pushInput appends the newest issued command and drops the oldest.
func (s *rollingState) pushInput(cmd float64) {
	if len(s.inputBuffer) == 0 {
		return
	}
	s.inputBuffer = append(s.inputBuffer[1:], cmd)
}
