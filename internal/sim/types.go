package sim

import "github.com/open-adkit/latctl/internal/traj"

// Scenario describes one closed-loop run.
type Scenario struct {
	Path          string
	Duration      float64
	Speed         float64
	Radius        float64
	LateralOffset float64
	YawError      float64
	SteerNoise    float64
	Seed          int64
}

// Record is one control-period snapshot of the loop.
type Record struct {
	Time      float64
	Pose      traj.Pose
	Steer     float64
	SteerCmd  float64
	SteerRate float64
	LatErr    float64
	YawErr    float64
	Failed    bool
	Predicted []traj.Point
}

type Observer interface {
	OnStep(r Record)
}

type Result struct {
	Records  []Record
	Metrics  map[string]float64
	Failures int
}
