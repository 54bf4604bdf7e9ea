package metrics

import "math"

// SettlingTime reports when the lateral error last entered the corridor
// and stayed there. A run that never settles reports the final timestamp.
type SettlingTime struct {
	name      string
	threshold float64
	settledAt float64
	lastTime  float64
	inside    bool
}

func NewSettlingTime(threshold float64) *SettlingTime {
	return &SettlingTime{name: "settling_time", threshold: threshold}
}

func (m *SettlingTime) Name() string { return m.name }

func (m *SettlingTime) Observe(s Sample) {
	m.lastTime = s.Time
	if math.Abs(s.LatErr) <= m.threshold {
		if !m.inside {
			m.inside = true
			m.settledAt = s.Time
		}
		return
	}
	m.inside = false
}

func (m *SettlingTime) Value() float64 {
	if !m.inside {
		return m.lastTime
	}
	return m.settledAt
}

func (m *SettlingTime) Reset() {
	m.settledAt = 0
	m.lastTime = 0
	m.inside = false
}
