package metrics

import "math"

type LateralRMS struct {
	name    string
	sumSq   float64
	samples int
}

func NewLateralRMS() *LateralRMS {
	return &LateralRMS{name: "lateral_rms"}
}

func (m *LateralRMS) Name() string { return m.name }

func (m *LateralRMS) Observe(s Sample) {
	m.sumSq += s.LatErr * s.LatErr
	m.samples++
}

func (m *LateralRMS) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return math.Sqrt(m.sumSq / float64(m.samples))
}

func (m *LateralRMS) Reset() {
	m.sumSq = 0
	m.samples = 0
}

type LateralMax struct {
	name string
	max  float64
}

func NewLateralMax() *LateralMax {
	return &LateralMax{name: "lateral_max"}
}

func (m *LateralMax) Name() string { return m.name }

func (m *LateralMax) Observe(s Sample) {
	if abs := math.Abs(s.LatErr); abs > m.max {
		m.max = abs
	}
}

func (m *LateralMax) Value() float64 { return m.max }

func (m *LateralMax) Reset() { m.max = 0 }
