package mpc

import (
	"math"

	"github.com/open-adkit/latctl/internal/qpsolver"
	"github.com/open-adkit/latctl/internal/traj"
)

// DiagLen is the number of entries in the flattened diagnostic vector.
// The order is a published contract; plotting tooling indexes into it.
const DiagLen = 23

// Diagnostics is the per-cycle introspection record.
type Diagnostics struct {
	SteerCommand        float64 // final command after saturation and LPF
	SteerCommandRaw     float64 // first optimal input, unprocessed
	SteerFeedforward    float64 // feed-forward term of the first step
	SteerFeedforwardRaw float64 // atan(wheelbase * curvature), unfiltered
	SteerMeasured       float64
	LateralError        float64
	EgoYaw              float64
	RefYaw              float64
	YawError            float64
	RefVelocity         float64
	MeasuredVelocity    float64
	YawRateCommand      float64 // v tan(cmd) / wheelbase
	YawRateMeasured     float64 // v tan(measured steer) / wheelbase
	YawRateTarget       float64 // v * smoothed curvature
	CurvatureSmooth     float64
	CurvatureRaw        float64
	SteerPredicted      float64
	YawRatePredicted    float64
	Iterations          float64
	RuntimeSec          float64
	Objective           float64
	SteerCommandClamped float64 // saturated but not yet low-passed
	LateralErrorRaw     float64 // against the unprocessed input trajectory
}

// Vector flattens the record in the published order.
func (d Diagnostics) Vector() [DiagLen]float64 {
	return [DiagLen]float64{
		d.SteerCommand,
		d.SteerCommandRaw,
		d.SteerFeedforward,
		d.SteerFeedforwardRaw,
		d.SteerMeasured,
		d.LateralError,
		d.EgoYaw,
		d.RefYaw,
		d.YawError,
		d.RefVelocity,
		d.MeasuredVelocity,
		d.YawRateCommand,
		d.YawRateMeasured,
		d.YawRateTarget,
		d.CurvatureSmooth,
		d.CurvatureRaw,
		d.SteerPredicted,
		d.YawRatePredicted,
		d.Iterations,
		d.RuntimeSec,
		d.Objective,
		d.SteerCommandClamped,
		d.LateralErrorRaw,
	}
}

func (c *Controller) diagnostics(resampled *traj.Trajectory, rawData, d cycleData,
	m *Matrices, cmd Command, rawU0 float64, stats qpsolver.Stats, in CycleInput) Diagnostics {

	p := c.params
	wb := c.model.Wheelbase()
	smoothK := resampled.SmoothK[d.nearestIdx]
	rawK := resampled.K[d.nearestIdx]
	clamped := math.Max(-p.SteerLim, math.Min(p.SteerLim, rawU0))

	return Diagnostics{
		SteerCommand:        cmd.SteerAngle,
		SteerCommandRaw:     rawU0,
		SteerFeedforward:    m.Uref.AtVec(0),
		SteerFeedforwardRaw: math.Atan(smoothK * wb),
		SteerMeasured:       d.steer,
		LateralError:        d.latErr,
		EgoYaw:              in.Pose.Yaw,
		RefYaw:              d.nearestPose.Yaw,
		YawError:            d.yawErr,
		RefVelocity:         resampled.VX[d.nearestIdx],
		MeasuredVelocity:    in.Velocity,
		YawRateCommand:      in.Velocity * math.Tan(cmd.SteerAngle) / wb,
		YawRateMeasured:     in.Velocity * math.Tan(d.steer) / wb,
		YawRateTarget:       in.Velocity * smoothK,
		CurvatureSmooth:     smoothK,
		CurvatureRaw:        rawK,
		SteerPredicted:      d.predictedSteer,
		YawRatePredicted:    in.Velocity * math.Tan(d.predictedSteer) / wb,
		Iterations:          float64(stats.Iterations),
		RuntimeSec:          stats.RuntimeSec,
		Objective:           stats.Objective,
		SteerCommandClamped: clamped,
		LateralErrorRaw:     rawData.latErr,
	}
}
