package metrics

import (
	"math"
	"testing"
)

func TestLateralRMS(t *testing.T) {
	m := NewLateralRMS()
	m.Observe(Sample{LatErr: 3})
	m.Observe(Sample{LatErr: -4})

	want := math.Sqrt((9.0 + 16.0) / 2.0)
	if got := m.Value(); math.Abs(got-want) > 1e-12 {
		t.Errorf("rms = %v, want %v", got, want)
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("rms after reset should be 0")
	}
}

func TestLateralMax(t *testing.T) {
	m := NewLateralMax()
	m.Observe(Sample{LatErr: 0.5})
	m.Observe(Sample{LatErr: -1.2})
	m.Observe(Sample{LatErr: 0.8})

	if got := m.Value(); got != 1.2 {
		t.Errorf("max = %v, want 1.2", got)
	}
}

func TestControlEffort(t *testing.T) {
	m := NewControlEffort()
	m.Observe(Sample{SteerRate: 0.2})
	m.Observe(Sample{SteerRate: -0.4})

	if got := m.Value(); math.Abs(got-0.3) > 1e-12 {
		t.Errorf("effort = %v, want 0.3", got)
	}
}

func TestControlEffortEmpty(t *testing.T) {
	if got := NewControlEffort().Value(); got != 0 {
		t.Errorf("effort with no samples = %v, want 0", got)
	}
}

func TestSettlingTime(t *testing.T) {
	m := NewSettlingTime(0.1)
	m.Observe(Sample{Time: 0, LatErr: 1.0})
	m.Observe(Sample{Time: 1, LatErr: 0.05}) // enters the corridor
	m.Observe(Sample{Time: 2, LatErr: 0.5})  // leaves again
	m.Observe(Sample{Time: 3, LatErr: 0.02})
	m.Observe(Sample{Time: 4, LatErr: 0.01})

	if got := m.Value(); got != 3 {
		t.Errorf("settling time = %v, want 3", got)
	}
}

func TestSettlingTimeNeverSettles(t *testing.T) {
	m := NewSettlingTime(0.1)
	m.Observe(Sample{Time: 0, LatErr: 1})
	m.Observe(Sample{Time: 5, LatErr: 2})

	if got := m.Value(); got != 5 {
		t.Errorf("settling time = %v, want final time 5", got)
	}
}
