package sim

import (
	"context"
	"math"
	"testing"

	"github.com/open-adkit/latctl/internal/metrics"
	"github.com/open-adkit/latctl/internal/mpc"
	"github.com/open-adkit/latctl/internal/qpsolver"
	"github.com/open-adkit/latctl/internal/steering"
	"github.com/open-adkit/latctl/internal/vehicle"
)

const (
	testWheelbase = 2.74
	testSteerTau  = 0.27
)

func testSimulator() *Simulator {
	p := mpc.DefaultParams()
	model := vehicle.NewKinematicLag(testWheelbase, p.SteerLim, testSteerTau)
	ctrl := mpc.New(p, model, qpsolver.NewLeastSquares(), steering.NewPredictor(testSteerTau))
	plant := NewPlant(testWheelbase, testSteerTau, p.SteerLim)
	return New(ctrl, plant, p.CtrlPeriod)
}

func TestClosedLoopStraightConverges(t *testing.T) {
	s := testSimulator()
	s.AddMetric(metrics.NewLateralRMS())
	s.AddMetric(metrics.NewLateralMax())

	res, err := s.Run(context.Background(), Scenario{
		Path:          "straight",
		Duration:      15,
		Speed:         8,
		LateralOffset: 1.0,
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if res.Failures > 0 {
		t.Errorf("controller failed %d cycles", res.Failures)
	}

	final := res.Records[len(res.Records)-1]
	if math.Abs(final.LatErr) > 0.1 {
		t.Errorf("final lateral error %v, want < 0.1 m", final.LatErr)
	}
	if res.Metrics["lateral_max"] < math.Abs(final.LatErr) {
		t.Error("lateral_max below final error")
	}
}

func TestClosedLoopCircleTracks(t *testing.T) {
	s := testSimulator()
	s.AddMetric(metrics.NewLateralMax())

	res, err := s.Run(context.Background(), Scenario{
		Path:     "circle",
		Duration: 20,
		Speed:    6,
		Radius:   50,
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if res.Failures > 0 {
		t.Errorf("controller failed %d cycles", res.Failures)
	}
	if res.Metrics["lateral_max"] > 0.5 {
		t.Errorf("lateral error on a 50 m circle reached %v m", res.Metrics["lateral_max"])
	}
}

func TestInvalidScenario(t *testing.T) {
	s := testSimulator()
	tests := []struct {
		name string
		sc   Scenario
	}{
		{"zero duration", Scenario{Path: "straight", Speed: 5}},
		{"zero speed", Scenario{Path: "straight", Duration: 10}},
		{"unknown path", Scenario{Path: "figure_eight", Duration: 10, Speed: 5}},
		{"circle without radius", Scenario{Path: "circle", Duration: 10, Speed: 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Run(context.Background(), tt.sc); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestRunWithCallbackStops(t *testing.T) {
	s := testSimulator()

	count := 0
	err := s.RunWithCallback(context.Background(), Scenario{
		Path:     "straight",
		Duration: 30,
		Speed:    8,
	}, func(r Record) bool {
		count++
		return count < 10
	})
	if err != nil {
		t.Fatalf("callback run failed: %v", err)
	}
	if count != 10 {
		t.Errorf("callback invoked %d times, want 10", count)
	}
}

func TestSweepIndependentRuns(t *testing.T) {
	sweep := NewSweep(testSimulator)

	scenarios := []Scenario{
		{Path: "straight", Duration: 5, Speed: 8},
		{Path: "circle", Duration: 5, Speed: 6, Radius: 50},
	}
	results, err := sweep.Run(context.Background(), scenarios)
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	for i, res := range results {
		if len(res.Records) == 0 {
			t.Errorf("scenario %d produced no records", i)
		}
	}
}
