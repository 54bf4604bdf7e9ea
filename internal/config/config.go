package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/open-adkit/latctl/internal/mpc"
	"github.com/open-adkit/latctl/internal/vehicle"
)

const (
	DefaultWheelbase  = 2.74
	DefaultSteerLim   = 0.61
	DefaultSteerTau   = 0.27
	DefaultCtrlPeriod = 0.03
	DefaultSpeed      = 8.0
	DefaultDuration   = 30.0
)

type Config struct {
	Model    string         `yaml:"model"`
	Solver   string         `yaml:"solver"`
	Vehicle  VehicleConfig  `yaml:"vehicle"`
	MPC      MPCConfig      `yaml:"mpc"`
	Scenario ScenarioConfig `yaml:"scenario"`
}

type VehicleConfig struct {
	Wheelbase      float64 `yaml:"wheelbase"`
	SteerLim       float64 `yaml:"steer_lim"`
	SteerTau       float64 `yaml:"steer_tau"`
	Mass           float64 `yaml:"mass"`
	Inertia        float64 `yaml:"inertia"`
	LF             float64 `yaml:"lf"`
	LR             float64 `yaml:"lr"`
	CorneringForce float64 `yaml:"cf"`
	CorneringRear  float64 `yaml:"cr"`
}

type WeightConfig struct {
	LatError                float64 `yaml:"lat_error"`
	HeadingError            float64 `yaml:"heading_error"`
	HeadingErrorSquaredVel  float64 `yaml:"heading_error_squared_vel"`
	SteeringInput           float64 `yaml:"steering_input"`
	SteeringInputSquaredVel float64 `yaml:"steering_input_squared_vel"`
	LatJerk                 float64 `yaml:"lat_jerk"`
	SteerRate               float64 `yaml:"steer_rate"`
	SteerAcc                float64 `yaml:"steer_acc"`
}

type RatePointConfig struct {
	Reference float64 `yaml:"reference"`
	Limit     float64 `yaml:"limit"`
}

type MPCConfig struct {
	Horizon             int     `yaml:"horizon"`
	NominalDt           float64 `yaml:"dt"`
	CtrlPeriod          float64 `yaml:"ctrl_period"`
	InputDelay          float64 `yaml:"input_delay"`
	MinPredictionLength float64 `yaml:"min_prediction_length"`

	AdmissiblePosError float64 `yaml:"admissible_pos_error"`
	AdmissibleYawError float64 `yaml:"admissible_yaw_error"`

	NearestDistThreshold float64 `yaml:"nearest_dist_threshold"`
	NearestYawThreshold  float64 `yaml:"nearest_yaw_threshold"`

	Nominal               WeightConfig `yaml:"nominal_weight"`
	LowCurvature          WeightConfig `yaml:"low_curvature_weight"`
	LowCurvatureThreshold float64      `yaml:"low_curvature_threshold"`
	TerminalLatError      float64      `yaml:"terminal_lat_error"`
	TerminalHeadingError  float64      `yaml:"terminal_heading_error"`

	ZeroFFSteerDeg float64 `yaml:"zero_ff_steer_deg"`

	SteerRateLimitsByCurvature []RatePointConfig `yaml:"steer_rate_limits_by_curvature"`
	SteerRateLimitsByVelocity  []RatePointConfig `yaml:"steer_rate_limits_by_velocity"`

	SteerLPFCutoffHz float64 `yaml:"steer_lpf_cutoff_hz"`
	ErrorLPFCutoffHz float64 `yaml:"error_lpf_cutoff_hz"`

	ResampleDist         float64 `yaml:"resample_dist"`
	EnablePathSmoothing  bool    `yaml:"enable_path_smoothing"`
	PathSmoothingWindow  int     `yaml:"path_smoothing_window"`
	CurvatureWindow      int     `yaml:"curvature_window"`
	CurvatureWindowSteer int     `yaml:"curvature_window_steer"`
	ExtendForTerminalYaw bool    `yaml:"extend_for_terminal_yaw"`
	AccelerationLimit    float64 `yaml:"acceleration_limit"`
	VelocityTimeConstant float64 `yaml:"velocity_time_constant"`

	UseSteerPrediction    bool `yaml:"use_steer_prediction"`
	DebugFrenetPrediction bool `yaml:"debug_frenet_prediction"`
}

type ScenarioConfig struct {
	Path          string  `yaml:"path"`
	Duration      float64 `yaml:"duration"`
	Speed         float64 `yaml:"speed"`
	Radius        float64 `yaml:"radius"`
	LateralOffset float64 `yaml:"lateral_offset"`
	YawError      float64 `yaml:"yaw_error"`
	SteerNoise    float64 `yaml:"steer_noise"`
	Seed          int64   `yaml:"seed"`
}

func DefaultConfig() *Config {
	p := mpc.DefaultParams()
	return &Config{
		Model:  "kinematic_lag",
		Solver: "least_squares",
		Vehicle: VehicleConfig{
			Wheelbase:      DefaultWheelbase,
			SteerLim:       DefaultSteerLim,
			SteerTau:       DefaultSteerTau,
			Mass:           1500,
			Inertia:        2500,
			LF:             1.2,
			LR:             1.54,
			CorneringForce: 80000,
			CorneringRear:  100000,
		},
		MPC: fromParams(p),
		Scenario: ScenarioConfig{
			Path:     "straight",
			Duration: DefaultDuration,
			Speed:    DefaultSpeed,
			Radius:   50,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) BuildModel() (vehicle.Model, error) {
	v := c.Vehicle
	switch c.Model {
	case "kinematic_lag":
		return vehicle.NewKinematicLag(v.Wheelbase, v.SteerLim, v.SteerTau), nil
	case "kinematic":
		return vehicle.NewKinematicNoLag(v.Wheelbase, v.SteerLim), nil
	case "dynamic":
		return vehicle.NewDynamicBicycle(v.Wheelbase, v.Mass, v.LF, v.LR, v.Inertia, v.CorneringForce, v.CorneringRear), nil
	default:
		return nil, fmt.Errorf("config: unknown model %q", c.Model)
	}
}

func (c *Config) Params() mpc.Params {
	m := c.MPC
	p := mpc.Params{
		Horizon:             m.Horizon,
		NominalDT:           m.NominalDt,
		CtrlPeriod:          m.CtrlPeriod,
		InputDelay:          m.InputDelay,
		MinPredictionLength: m.MinPredictionLength,

		SteerLim: c.Vehicle.SteerLim,

		AdmissiblePosError: m.AdmissiblePosError,
		AdmissibleYawError: m.AdmissibleYawError,

		NearestDistThreshold: m.NearestDistThreshold,
		NearestYawThreshold:  m.NearestYawThreshold,

		Nominal:               toWeightSet(m.Nominal),
		LowCurvature:          toWeightSet(m.LowCurvature),
		LowCurvatureThreshold: m.LowCurvatureThreshold,
		TerminalLatError:      m.TerminalLatError,
		TerminalHeadingError:  m.TerminalHeadingError,

		ZeroFFSteerDeg: m.ZeroFFSteerDeg,

		SteerLPFCutoffHz: m.SteerLPFCutoffHz,
		ErrorLPFCutoffHz: m.ErrorLPFCutoffHz,

		ResampleDist:         m.ResampleDist,
		EnablePathSmoothing:  m.EnablePathSmoothing,
		PathSmoothingWindow:  m.PathSmoothingWindow,
		CurvatureWindow:      m.CurvatureWindow,
		CurvatureWindowSteer: m.CurvatureWindowSteer,
		ExtendForTerminalYaw: m.ExtendForTerminalYaw,
		AccelerationLimit:    m.AccelerationLimit,
		VelocityTimeConstant: m.VelocityTimeConstant,

		UseSteerPrediction:    m.UseSteerPrediction,
		DebugFrenetPrediction: m.DebugFrenetPrediction,
	}
	for _, rp := range m.SteerRateLimitsByCurvature {
		p.SteerRateLimitsByCurvature = append(p.SteerRateLimitsByCurvature,
			mpc.RatePoint{Reference: rp.Reference, Limit: rp.Limit})
	}
	for _, rp := range m.SteerRateLimitsByVelocity {
		p.SteerRateLimitsByVelocity = append(p.SteerRateLimitsByVelocity,
			mpc.RatePoint{Reference: rp.Reference, Limit: rp.Limit})
	}
	return p
}

func fromParams(p mpc.Params) MPCConfig {
	m := MPCConfig{
		Horizon:             p.Horizon,
		NominalDt:           p.NominalDT,
		CtrlPeriod:          p.CtrlPeriod,
		InputDelay:          p.InputDelay,
		MinPredictionLength: p.MinPredictionLength,

		AdmissiblePosError: p.AdmissiblePosError,
		AdmissibleYawError: p.AdmissibleYawError,

		NearestDistThreshold: p.NearestDistThreshold,
		NearestYawThreshold:  p.NearestYawThreshold,

		Nominal:               fromWeightSet(p.Nominal),
		LowCurvature:          fromWeightSet(p.LowCurvature),
		LowCurvatureThreshold: p.LowCurvatureThreshold,
		TerminalLatError:      p.TerminalLatError,
		TerminalHeadingError:  p.TerminalHeadingError,

		ZeroFFSteerDeg: p.ZeroFFSteerDeg,

		SteerLPFCutoffHz: p.SteerLPFCutoffHz,
		ErrorLPFCutoffHz: p.ErrorLPFCutoffHz,

		ResampleDist:         p.ResampleDist,
		EnablePathSmoothing:  p.EnablePathSmoothing,
		PathSmoothingWindow:  p.PathSmoothingWindow,
		CurvatureWindow:      p.CurvatureWindow,
		CurvatureWindowSteer: p.CurvatureWindowSteer,
		ExtendForTerminalYaw: p.ExtendForTerminalYaw,
		AccelerationLimit:    p.AccelerationLimit,
		VelocityTimeConstant: p.VelocityTimeConstant,

		UseSteerPrediction:    p.UseSteerPrediction,
		DebugFrenetPrediction: p.DebugFrenetPrediction,
	}
	for _, rp := range p.SteerRateLimitsByCurvature {
		m.SteerRateLimitsByCurvature = append(m.SteerRateLimitsByCurvature,
			RatePointConfig{Reference: rp.Reference, Limit: rp.Limit})
	}
	for _, rp := range p.SteerRateLimitsByVelocity {
		m.SteerRateLimitsByVelocity = append(m.SteerRateLimitsByVelocity,
			RatePointConfig{Reference: rp.Reference, Limit: rp.Limit})
	}
	return m
}

func toWeightSet(w WeightConfig) mpc.WeightSet {
	return mpc.WeightSet{
		LatError:                w.LatError,
		HeadingError:            w.HeadingError,
		HeadingErrorSquaredVel:  w.HeadingErrorSquaredVel,
		SteeringInput:           w.SteeringInput,
		SteeringInputSquaredVel: w.SteeringInputSquaredVel,
		LatJerk:                 w.LatJerk,
		SteerRate:               w.SteerRate,
		SteerAcc:                w.SteerAcc,
	}
}

func fromWeightSet(w mpc.WeightSet) WeightConfig {
	return WeightConfig{
		LatError:                w.LatError,
		HeadingError:            w.HeadingError,
		HeadingErrorSquaredVel:  w.HeadingErrorSquaredVel,
		SteeringInput:           w.SteeringInput,
		SteeringInputSquaredVel: w.SteeringInputSquaredVel,
		LatJerk:                 w.LatJerk,
		SteerRate:               w.SteerRate,
		SteerAcc:                w.SteerAcc,
	}
}
