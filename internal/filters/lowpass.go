package filters

import "math"

// Butterworth2D is a second-order Butterworth low-pass filter discretized
// with the bilinear transform. Zero value is unusable; construct with
// NewButterworth2D.
type Butterworth2D struct {
	a1, a2         float64
	b0, b1, b2     float64
	u1, u2, y1, y2 float64
}

func NewButterworth2D(dt, cutoffHz float64) *Butterworth2D {
	f := &Butterworth2D{}
	f.Initialize(dt, cutoffHz)
	return f
}

// Initialize recomputes the coefficients and clears the filter state.
func (f *Butterworth2D) Initialize(dt, cutoffHz float64) {
	f.u1, f.u2, f.y1, f.y2 = 0, 0, 0, 0

	wc := 2.0 * math.Pi * cutoffHz
	n := 2.0 / dt
	den := n*n + math.Sqrt2*wc*n + wc*wc
	f.a1 = (2.0*wc*wc - 2.0*n*n) / den
	f.a2 = (n*n - math.Sqrt2*wc*n + wc*wc) / den
	f.b0 = wc * wc / den
	f.b1 = 2.0 * f.b0
	f.b2 = f.b0
}

// Clone returns an independent copy, state included. Callers that must
// keep filter state untouched on a failed cycle filter a clone and adopt
// it on success.
func (f *Butterworth2D) Clone() *Butterworth2D {
	c := *f
	return &c
}

// Reset clears the internal state without touching the coefficients.
func (f *Butterworth2D) Reset() {
	f.u1, f.u2, f.y1, f.y2 = 0, 0, 0, 0
}

// Filter advances the difference equation by one sample.
func (f *Butterworth2D) Filter(u0 float64) float64 {
	y0 := f.b2*f.u2 + f.b1*f.u1 + f.b0*u0 - f.a2*f.y2 - f.a1*f.y1
	f.u2, f.u1 = f.u1, u0
	f.y2, f.y1 = f.y1, y0
	return y0
}
