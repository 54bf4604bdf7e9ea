package traj

import (
	"errors"
	"math"
	"testing"
)

func TestNormalizeRadian(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{0, 0},
		{math.Pi / 2, math.Pi / 2},
		{math.Pi + 0.1, -math.Pi + 0.1},
		{-math.Pi - 0.1, math.Pi - 0.1},
		{3 * math.Pi, math.Pi},
	}
	for _, c := range cases {
		if got := NormalizeRadian(c.in); math.Abs(got-c.want) > 1e-12 {
			t.Errorf("NormalizeRadian(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestLerp(t *testing.T) {
	xs := []float64{0, 1, 2}
	ys := []float64{0, 10, 40}

	got, err := Lerp(xs, ys, 0.5)
	if err != nil {
		t.Fatalf("Lerp: %v", err)
	}
	if math.Abs(got-5) > 1e-12 {
		t.Errorf("Lerp(0.5) = %v, want 5", got)
	}

	got, err = Lerp(xs, ys, 2)
	if err != nil || math.Abs(got-40) > 1e-12 {
		t.Errorf("Lerp at right endpoint = %v, %v", got, err)
	}

	if _, err := Lerp(xs, ys, 2.1); !errors.Is(err, ErrInterpRange) {
		t.Errorf("out-of-range query: got %v, want ErrInterpRange", err)
	}
	if _, err := Lerp(xs, ys, -0.1); !errors.Is(err, ErrInterpRange) {
		t.Errorf("out-of-range query: got %v, want ErrInterpRange", err)
	}
}

func TestLerpAngleAcrossSeam(t *testing.T) {
	xs := []float64{0, 1}
	ys := []float64{math.Pi - 0.1, -math.Pi + 0.1}

	got, err := LerpAngle(xs, ys, 0.5)
	if err != nil {
		t.Fatalf("LerpAngle: %v", err)
	}
	// Halfway through the short arc across the seam, not through zero.
	want := math.Pi
	if math.Abs(NormalizeRadian(got-want)) > 1e-9 {
		t.Errorf("LerpAngle(0.5) = %v, want %v", got, want)
	}
}

func TestUnwrapYaw(t *testing.T) {
	yaw := []float64{3.0, -3.0, 3.0}
	UnwrapYaw(yaw)
	for i := 1; i < len(yaw); i++ {
		if math.Abs(yaw[i]-yaw[i-1]) > math.Pi {
			t.Errorf("unwrapped yaw jumps at %d: %v -> %v", i, yaw[i-1], yaw[i])
		}
	}
}

func TestCalcTimeMonotonic(t *testing.T) {
	tr := &Trajectory{}
	tr.Push(0, 0, 0, 1, 0, 0, 0)
	tr.Push(1, 0, 0, 0, 0, 0, 0)  // zero speed still advances time
	tr.Push(1, 0, 0, 10, 0, 0, 0) // duplicate point still advances time
	tr.Push(2, 0, 0, 10, 0, 0, 0)
	tr.CalcTime()

	if len(tr.Time) != tr.Len() {
		t.Fatalf("time channel length %d, want %d", len(tr.Time), tr.Len())
	}
	for i := 1; i < tr.Len(); i++ {
		if tr.Time[i] <= tr.Time[i-1] {
			t.Errorf("time not strictly increasing at %d: %v <= %v", i, tr.Time[i], tr.Time[i-1])
		}
	}
}

func TestClipByLength(t *testing.T) {
	tr := &Trajectory{}
	for i := 0; i < 10; i++ {
		tr.Push(float64(i), 0, 0, 1, 0, 0, float64(i))
	}
	clipped := tr.ClipByLength(4.5)
	if clipped.Len() != 5 {
		t.Errorf("clipped to %d samples, want 5", clipped.Len())
	}
}
