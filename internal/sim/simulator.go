// Package sim closes the loop around the controller: a reference path, a
// simulated plant, and per-cycle metrics.
package sim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/open-adkit/latctl/internal/metrics"
	"github.com/open-adkit/latctl/internal/mpc"
	"github.com/open-adkit/latctl/internal/traj"
)

type Simulator struct {
	ctrl       *mpc.Controller
	plant      *Plant
	ctrlPeriod float64
	metrics    []metrics.Metric
	observers  []Observer
}

func New(ctrl *mpc.Controller, plant *Plant, ctrlPeriod float64) *Simulator {
	return &Simulator{
		ctrl:       ctrl,
		plant:      plant,
		ctrlPeriod: ctrlPeriod,
		metrics:    make([]metrics.Metric, 0),
		observers:  make([]Observer, 0),
	}
}

func (s *Simulator) AddMetric(m metrics.Metric) { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer)     { s.observers = append(s.observers, o) }

func (s *Simulator) Run(ctx context.Context, sc Scenario) (*Result, error) {
	if err := s.validateScenario(sc); err != nil {
		return nil, err
	}

	steps := int(sc.Duration / s.ctrlPeriod)
	result := &Result{
		Records: make([]Record, 0, steps),
		Metrics: make(map[string]float64),
	}
	for _, m := range s.metrics {
		m.Reset()
	}

	path, err := BuildPath(sc)
	if err != nil {
		return nil, err
	}
	// An error reference independent of the controller's own estimate.
	ref := traj.FromPoints(path)
	ref.CalcTime()

	start := path[0].Pose
	s.plant.PlaceAt(traj.Pose{
		X:   start.X - sc.LateralOffset*math.Sin(start.Yaw),
		Y:   start.Y + sc.LateralOffset*math.Cos(start.Yaw),
		Yaw: traj.NormalizeRadian(start.Yaw + sc.YawError),
	}, 0)
	s.ctrl.Reset(s.plant.Steer)
	s.ctrl.SetTrajectory(path, s.plant.Pose())
	if !s.ctrl.HasTrajectory() {
		return nil, fmt.Errorf("sim: reference path rejected by controller")
	}

	rng := rand.New(rand.NewSource(sc.Seed))
	cmd := mpc.Command{}

	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		t := float64(i) * s.ctrlPeriod
		measured := s.plant.Steer
		if sc.SteerNoise > 0 {
			measured += (rng.Float64()*2 - 1) * sc.SteerNoise
		}

		res, runErr := s.ctrl.Run(mpc.CycleInput{
			Time:          t,
			Pose:          s.plant.Pose(),
			Velocity:      sc.Speed,
			MeasuredSteer: measured,
		})

		rec := Record{Time: t, Pose: s.plant.Pose(), Steer: s.plant.Steer}
		if runErr != nil {
			// Hold the previous command; the plant keeps moving.
			result.Failures++
			rec.Failed = true
		} else {
			cmd = res.Command
			rec.Predicted = res.Predicted
		}
		rec.SteerCmd = cmd.SteerAngle
		rec.SteerRate = cmd.SteerRate

		rec.LatErr, rec.YawErr = s.trackingError(ref)

		for _, m := range s.metrics {
			m.Observe(metrics.Sample{
				Time:      rec.Time,
				LatErr:    rec.LatErr,
				YawErr:    rec.YawErr,
				SteerCmd:  rec.SteerCmd,
				SteerRate: rec.SteerRate,
			})
		}
		for _, o := range s.observers {
			o.OnStep(rec)
		}
		result.Records = append(result.Records, rec)

		s.plant.Step(cmd.SteerAngle, sc.Speed, s.ctrlPeriod)
	}

	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
	return result, nil
}

// RunWithCallback streams records to the callback instead of collecting
// them; returning false stops the run.
func (s *Simulator) RunWithCallback(ctx context.Context, sc Scenario, callback func(Record) bool) error {
	obs := &callbackObserver{callback: callback}
	s.AddObserver(obs)
	_, err := s.Run(obs.withCancel(ctx), sc)
	if obs.stopped && errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

type callbackObserver struct {
	callback func(Record) bool
	cancel   context.CancelFunc
	stopped  bool
}

func (o *callbackObserver) withCancel(ctx context.Context) context.Context {
	ctx, o.cancel = context.WithCancel(ctx)
	return ctx
}

func (o *callbackObserver) OnStep(r Record) {
	if o.stopped {
		return
	}
	if !o.callback(r) {
		o.stopped = true
		o.cancel()
	}
}

func (s *Simulator) validateScenario(sc Scenario) error {
	if s.ctrlPeriod <= 0 {
		return fmt.Errorf("sim: ctrl period must be positive, got %f", s.ctrlPeriod)
	}
	if sc.Duration <= 0 {
		return fmt.Errorf("sim: duration must be positive, got %f", sc.Duration)
	}
	if sc.Speed <= 0 {
		return fmt.Errorf("sim: speed must be positive, got %f", sc.Speed)
	}
	return nil
}

// trackingError measures the plant pose against the raw reference path.
func (s *Simulator) trackingError(ref *traj.Trajectory) (lat, yaw float64) {
	pose := s.plant.Pose()
	nearest, _, _, err := traj.NearestPoseInterp(ref, pose, math.MaxFloat64, math.Pi)
	if err != nil {
		return 0, 0
	}
	return traj.LateralError(pose, nearest), traj.NormalizeRadian(pose.Yaw - nearest.Yaw)
}
