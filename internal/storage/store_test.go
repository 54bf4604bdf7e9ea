package storage

import (
	"testing"

	"github.com/open-adkit/latctl/internal/sim"
	"github.com/open-adkit/latctl/internal/traj"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}

	result := &sim.Result{
		Records: []sim.Record{
			{Time: 0, Pose: traj.Pose{X: 1, Y: 2, Yaw: 0.1}, Steer: 0.05, SteerCmd: 0.06, LatErr: 0.2},
			{Time: 0.03, Pose: traj.Pose{X: 1.2, Y: 2.1, Yaw: 0.11}, Failed: true},
		},
		Metrics:  map[string]float64{"lateral_rms": 0.15},
		Failures: 1,
	}
	sc := sim.Scenario{Path: "circle", Duration: 10, Speed: 5, Radius: 50, Seed: 3}

	runID, err := st.Save("kinematic_lag", sc, result)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	meta, err := st.Load(runID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if meta.Path != "circle" || meta.Failures != 1 {
		t.Errorf("metadata mismatch: %+v", meta)
	}
	if meta.Metrics["lateral_rms"] != 0.15 {
		t.Errorf("metrics not persisted: %v", meta.Metrics)
	}

	records, err := st.LoadRecords(runID)
	if err != nil {
		t.Fatalf("LoadRecords: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].Pose.X != 1 || records[0].LatErr != 0.2 {
		t.Errorf("record values mismatch: %+v", records[0])
	}
	if !records[1].Failed {
		t.Error("failed flag not persisted")
	}
}

func TestListEmpty(t *testing.T) {
	st := New(t.TempDir() + "/missing")
	runs, err := st.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("got %d runs, want 0", len(runs))
	}
}
