package traj

import (
	"math"
	"testing"
)

func straightLine(n int, spacing, vx float64) *Trajectory {
	tr := &Trajectory{}
	for i := 0; i < n; i++ {
		tr.Push(float64(i)*spacing, 0, 0, vx, 0, 0, 0)
	}
	tr.CalcTime()
	return tr
}

func TestNearestIndexSoft(t *testing.T) {
	tr := straightLine(10, 1.0, 5.0)

	idx, err := NearestIndexSoft(tr, Pose{X: 3.2, Y: 0.5}, 3.0, math.Pi/3)
	if err != nil {
		t.Fatalf("NearestIndexSoft: %v", err)
	}
	if idx != 3 {
		t.Errorf("nearest index = %d, want 3", idx)
	}
}

func TestNearestIndexSoftPrefersAlignedBranch(t *testing.T) {
	// An out-and-back path: the ego sits between the two passes but faces
	// along the outbound leg. The yaw constraint must pin the match there.
	tr := &Trajectory{}
	for i := 0; i < 10; i++ {
		tr.Push(float64(i), 0, 0, 5, 0, 0, 0)
	}
	for i := 0; i < 10; i++ {
		tr.Push(9-float64(i), 0.4, math.Pi, 5, 0, 0, 0)
	}
	tr.CalcTime()

	idx, err := NearestIndexSoft(tr, Pose{X: 5, Y: 0.3, Yaw: 0}, 3.0, math.Pi/3)
	if err != nil {
		t.Fatalf("NearestIndexSoft: %v", err)
	}
	if idx >= 10 {
		t.Errorf("matched return leg at %d, want outbound leg", idx)
	}
}

func TestNearestPoseInterp(t *testing.T) {
	tr := straightLine(10, 1.0, 5.0)

	pose, idx, tm, err := NearestPoseInterp(tr, Pose{X: 2.5, Y: 1.0}, 3.0, math.Pi/3)
	if err != nil {
		t.Fatalf("NearestPoseInterp: %v", err)
	}
	if math.Abs(pose.X-2.5) > 1e-9 || math.Abs(pose.Y) > 1e-9 {
		t.Errorf("interpolated pose = (%v, %v), want (2.5, 0)", pose.X, pose.Y)
	}
	if idx != 2 && idx != 3 {
		t.Errorf("nearest index = %d, want 2 or 3", idx)
	}
	wantTime := 2.5 / 5.0
	if math.Abs(tm-wantTime) > 1e-9 {
		t.Errorf("interpolated time = %v, want %v", tm, wantTime)
	}
}

func TestNearestPoseInterpEmpty(t *testing.T) {
	if _, _, _, err := NearestPoseInterp(&Trajectory{}, Pose{}, 3.0, math.Pi/3); err == nil {
		t.Error("empty trajectory: want error")
	}
}

func TestLateralErrorSign(t *testing.T) {
	ref := Pose{X: 0, Y: 0, Yaw: 0}

	if got := LateralError(Pose{X: 1, Y: 0.5}, ref); got <= 0 {
		t.Errorf("left offset: lateral error = %v, want > 0", got)
	}
	if got := LateralError(Pose{X: 1, Y: -0.5}, ref); got >= 0 {
		t.Errorf("right offset: lateral error = %v, want < 0", got)
	}

	// Rotated frame: the sign follows the reference heading.
	refUp := Pose{X: 0, Y: 0, Yaw: math.Pi / 2}
	if got := LateralError(Pose{X: 0.5, Y: 1}, refUp); got >= 0 {
		t.Errorf("rotated frame: lateral error = %v, want < 0", got)
	}
}
