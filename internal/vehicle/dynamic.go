package vehicle

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// DynamicBicycle is the linear dynamic bicycle error model with front and
// rear cornering stiffness.
type DynamicBicycle struct {
	WheelbaseM float64
	Mass       float64
	LF         float64 // CoG to front axle
	LR         float64 // CoG to rear axle
	IZ         float64 // yaw inertia
	CF         float64 // front cornering stiffness
	CR         float64 // rear cornering stiffness
}

func NewDynamicBicycle(wheelbase, mass, lf, lr, iz, cf, cr float64) *DynamicBicycle {
	return &DynamicBicycle{
		WheelbaseM: wheelbase, Mass: mass, LF: lf, LR: lr, IZ: iz, CF: cf, CR: cr,
	}
}

func (m *DynamicBicycle) Kind() Kind         { return KindDynamicBicycle }
func (m *DynamicBicycle) StateDim() int      { return 4 }
func (m *DynamicBicycle) InputDim() int      { return 1 }
func (m *DynamicBicycle) OutputDim() int     { return 2 }
func (m *DynamicBicycle) Wheelbase() float64 { return m.WheelbaseM }

// minSpeed floors the forward speed; the tire terms divide by it.
const minSpeed = 0.01

func (m *DynamicBicycle) Discretize(velocity, curvature, dt float64) (Discretized, error) {
	v := math.Max(velocity, minSpeed)

	a := mat.NewDense(4, 4, []float64{
		0, 1, 0, 0,
		0, -(m.CF + m.CR) / (m.Mass * v), (m.CF + m.CR) / m.Mass, (m.LR*m.CR - m.LF*m.CF) / (m.Mass * v),
		0, 0, 0, 1,
		0, (m.LR*m.CR - m.LF*m.CF) / (m.IZ * v), (m.LF*m.CF - m.LR*m.CR) / m.IZ, -(m.LF*m.LF*m.CF + m.LR*m.LR*m.CR) / (m.IZ * v),
	})
	ad, inv, err := bilinear(a, dt)
	if err != nil {
		return Discretized{}, err
	}

	b := mat.NewDense(4, 1, []float64{0, m.CF / m.Mass, 0, m.LF * m.CF / m.IZ})
	var bd mat.Dense
	bd.Mul(inv, b)
	bd.Scale(dt, &bd)

	w := mat.NewDense(4, 1, []float64{
		0,
		(m.LR*m.CR - m.LF*m.CF)/(m.Mass*v) - v,
		0,
		-(m.LF*m.LF*m.CF + m.LR*m.LR*m.CR) / (m.IZ * v),
	})
	var wd mat.Dense
	wd.Mul(inv, w)
	wd.Scale(dt*curvature*v, &wd)

	c := mat.NewDense(2, 4, []float64{
		1, 0, 0, 0,
		0, 0, 1, 0,
	})
	return Discretized{A: ad, B: &bd, C: c, W: &wd}, nil
}

// ReferenceInput adds the understeer-gradient correction to the
// geometric steering angle.
func (m *DynamicBicycle) ReferenceInput(velocity, curvature float64) float64 {
	v := math.Max(velocity, minSpeed)
	kv := m.LR*m.Mass/(2*m.CF*m.WheelbaseM) - m.LF*m.Mass/(2*m.CR*m.WheelbaseM)
	return m.WheelbaseM*curvature + kv*v*v*curvature
}
