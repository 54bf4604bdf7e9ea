package mpc

import "math"

// WeightSet is one set of cost weights. Two sets are configured and the
// per-step path curvature selects between them.
type WeightSet struct {
	LatError                float64
	HeadingError            float64
	HeadingErrorSquaredVel  float64
	SteeringInput           float64
	SteeringInputSquaredVel float64
	LatJerk                 float64
	SteerRate               float64
	SteerAcc                float64
}

// RatePoint is one knot of a piecewise-linear {reference -> steer-rate
// limit} map.
type RatePoint struct {
	Reference float64
	Limit     float64
}

// Params is the full controller configuration, fixed at construction or
// explicit reconfiguration.
type Params struct {
	// Horizon and timing.
	Horizon             int
	NominalDT           float64
	CtrlPeriod          float64
	InputDelay          float64
	MinPredictionLength float64

	// Actuator.
	SteerLim float64

	// Admissible tracking error; beyond these the cycle refuses to
	// produce a command.
	AdmissiblePosError float64
	AdmissibleYawError float64

	// Nearest-point soft-search thresholds.
	NearestDistThreshold float64
	NearestYawThreshold  float64

	// Weights. LowCurvature applies where |k| is under
	// LowCurvatureThreshold, Nominal elsewhere. Terminal weights replace
	// the lateral/heading weights on the last horizon step.
	Nominal               WeightSet
	LowCurvature          WeightSet
	LowCurvatureThreshold float64
	TerminalLatError      float64
	TerminalHeadingError  float64

	// ZeroFFSteerDeg zeroes feed-forward steering below this angle to
	// reject curvature noise.
	ZeroFFSteerDeg float64

	// Steering-rate limit maps, indexed by path curvature and by speed.
	SteerRateLimitsByCurvature []RatePoint
	SteerRateLimitsByVelocity  []RatePoint

	// Filters.
	SteerLPFCutoffHz float64
	ErrorLPFCutoffHz float64

	// Trajectory shaping.
	ResampleDist         float64
	EnablePathSmoothing  bool
	PathSmoothingWindow  int
	CurvatureWindow      int
	CurvatureWindowSteer int
	ExtendForTerminalYaw bool
	AccelerationLimit    float64
	VelocityTimeConstant float64

	// UseSteerPrediction builds the initial state from the predicted
	// steering angle instead of the measured one.
	UseSteerPrediction bool

	// DebugFrenetPrediction also emits the predicted trajectory in the
	// path-relative frame.
	DebugFrenetPrediction bool
}

// DefaultParams mirrors a mid-size vehicle tracking at urban speeds.
func DefaultParams() Params {
	nominal := WeightSet{
		LatError:                0.1,
		HeadingError:            0.0,
		HeadingErrorSquaredVel:  0.3,
		SteeringInput:           1.0,
		SteeringInputSquaredVel: 0.25,
		LatJerk:                 0.1,
		SteerRate:               0.0,
		SteerAcc:                0.000001,
	}
	lowCurvature := nominal
	lowCurvature.LatJerk = 0.0
	lowCurvature.SteerAcc = 0.000001

	return Params{
		Horizon:             50,
		NominalDT:           0.1,
		CtrlPeriod:          0.03,
		InputDelay:          0.24,
		MinPredictionLength: 5.0,

		SteerLim: 0.61,

		AdmissiblePosError: 5.0,
		AdmissibleYawError: math.Pi / 2,

		NearestDistThreshold: 3.0,
		NearestYawThreshold:  math.Pi / 3,

		Nominal:               nominal,
		LowCurvature:          lowCurvature,
		LowCurvatureThreshold: 0.03,
		TerminalLatError:      1.0,
		TerminalHeadingError:  0.1,

		ZeroFFSteerDeg: 0.5,

		SteerRateLimitsByCurvature: []RatePoint{
			{Reference: 0.001, Limit: 0.05}, {Reference: 0.002, Limit: 0.1}, {Reference: 0.01, Limit: 0.3},
		},
		SteerRateLimitsByVelocity: []RatePoint{
			{Reference: 10, Limit: 0.3}, {Reference: 15, Limit: 0.2}, {Reference: 20, Limit: 0.1},
		},

		SteerLPFCutoffHz: 3.0,
		ErrorLPFCutoffHz: 5.0,

		ResampleDist:         0.1,
		EnablePathSmoothing:  true,
		PathSmoothingWindow:  25,
		CurvatureWindow:      15,
		CurvatureWindowSteer: 15,
		ExtendForTerminalYaw: true,
		AccelerationLimit:    2.0,
		VelocityTimeConstant: 0.3,

		UseSteerPrediction: false,
	}
}

// delaySteps is the delay-buffer length implied by the configured delay.
func (p Params) delaySteps() int {
	if p.CtrlPeriod <= 0 {
		return 0
	}
	return int(math.Round(p.InputDelay / p.CtrlPeriod))
}

// weightFor selects the weight set for a path curvature.
func (p Params) weightFor(curvature float64) WeightSet {
	if math.Abs(curvature) < p.LowCurvatureThreshold {
		return p.LowCurvature
	}
	return p.Nominal
}
