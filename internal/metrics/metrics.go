// Package metrics aggregates tracking-quality statistics over a
// closed-loop run.
package metrics

// Sample is one closed-loop observation.
type Sample struct {
	Time      float64
	LatErr    float64
	YawErr    float64
	SteerCmd  float64
	SteerRate float64
}

type Metric interface {
	Name() string
	Observe(s Sample)
	Value() float64
	Reset()
}
