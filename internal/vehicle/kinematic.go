package vehicle

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// minVelocity floors the linearization speed so the error dynamics stay
// well conditioned at standstill.
const minVelocity = 1e-4

// KinematicLag is the kinematic bicycle error model with a first-order
// steering actuator lag.
type KinematicLag struct {
	WheelbaseM float64
	SteerLim   float64
	SteerTau   float64
}

func NewKinematicLag(wheelbase, steerLim, steerTau float64) *KinematicLag {
	return &KinematicLag{WheelbaseM: wheelbase, SteerLim: steerLim, SteerTau: steerTau}
}

func (m *KinematicLag) Kind() Kind         { return KindKinematicLag }
func (m *KinematicLag) StateDim() int      { return 3 }
func (m *KinematicLag) InputDim() int      { return 1 }
func (m *KinematicLag) OutputDim() int     { return 2 }
func (m *KinematicLag) Wheelbase() float64 { return m.WheelbaseM }

func (m *KinematicLag) Discretize(velocity, curvature, dt float64) (Discretized, error) {
	deltaR, cosSqInv := linearizedSteer(m.WheelbaseM, m.SteerLim, curvature)
	v := guardVelocity(velocity)

	a := mat.NewDense(3, 3, []float64{
		0, v, 0,
		0, 0, v / m.WheelbaseM * cosSqInv,
		0, 0, -1.0 / m.SteerTau,
	})
	ad, _, err := bilinear(a, dt)
	if err != nil {
		return Discretized{}, err
	}

	b := mat.NewDense(3, 1, []float64{0, 0, 1.0 / m.SteerTau})
	b.Scale(dt, b)

	w := mat.NewDense(3, 1, []float64{
		0,
		-v*curvature + v/m.WheelbaseM*(math.Tan(deltaR)-deltaR*cosSqInv),
		0,
	})
	w.Scale(dt, w)

	c := mat.NewDense(2, 3, []float64{
		1, 0, 0,
		0, 1, 0,
	})
	return Discretized{A: ad, B: b, C: c, W: w}, nil
}

func (m *KinematicLag) ReferenceInput(_, curvature float64) float64 {
	return math.Atan(m.WheelbaseM * curvature)
}

// KinematicNoLag is the kinematic bicycle error model with an ideal
// (lag-free) steering actuator.
type KinematicNoLag struct {
	WheelbaseM float64
	SteerLim   float64
}

func NewKinematicNoLag(wheelbase, steerLim float64) *KinematicNoLag {
	return &KinematicNoLag{WheelbaseM: wheelbase, SteerLim: steerLim}
}

func (m *KinematicNoLag) Kind() Kind         { return KindKinematicNoLag }
func (m *KinematicNoLag) StateDim() int      { return 2 }
func (m *KinematicNoLag) InputDim() int      { return 1 }
func (m *KinematicNoLag) OutputDim() int     { return 2 }
func (m *KinematicNoLag) Wheelbase() float64 { return m.WheelbaseM }

func (m *KinematicNoLag) Discretize(velocity, curvature, dt float64) (Discretized, error) {
	deltaR, cosSqInv := linearizedSteer(m.WheelbaseM, m.SteerLim, curvature)
	v := guardVelocity(velocity)

	a := mat.NewDense(2, 2, []float64{
		0, v,
		0, 0,
	})
	ad, _, err := bilinear(a, dt)
	if err != nil {
		return Discretized{}, err
	}

	b := mat.NewDense(2, 1, []float64{0, v / m.WheelbaseM * cosSqInv})
	b.Scale(dt, b)

	w := mat.NewDense(2, 1, []float64{
		0,
		-v*curvature + v/m.WheelbaseM*(math.Tan(deltaR)-deltaR*cosSqInv),
	})
	w.Scale(dt, w)

	c := mat.NewDense(2, 2, []float64{
		1, 0,
		0, 1,
	})
	return Discretized{A: ad, B: b, C: c, W: w}, nil
}

func (m *KinematicNoLag) ReferenceInput(_, curvature float64) float64 {
	return math.Atan(m.WheelbaseM * curvature)
}

// linearizedSteer returns the reference steering angle for the curvature,
// clamped to the actuator limit, and 1/cos^2 of it.
func linearizedSteer(wheelbase, steerLim, curvature float64) (deltaR, cosSqInv float64) {
	deltaR = math.Atan(wheelbase * curvature)
	if math.Abs(deltaR) >= steerLim {
		deltaR = math.Copysign(steerLim, deltaR)
	}
	cos := math.Cos(deltaR)
	return deltaR, 1.0 / (cos * cos)
}

func guardVelocity(v float64) float64 {
	if math.Abs(v) < minVelocity {
		return math.Copysign(minVelocity, v)
	}
	return v
}
