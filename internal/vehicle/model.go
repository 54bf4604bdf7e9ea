// Package vehicle provides discretized error-dynamics models for lateral
// control.
//
// Each model linearizes the vehicle around the reference curvature and
// returns the discrete state-space matrices of the tracking-error
// dynamics:
//
//	x[k+1] = A*x[k] + B*u[k] + W
//	y[k]   = C*x[k]
//
// where u is the steering angle and y = (lateral error, heading error).
// Models differ in their state layout:
//
//   - [KinematicLag]: {lateral error, heading error, steering} with
//     first-order steering lag
//   - [KinematicNoLag]: {lateral error, heading error}, ideal actuator
//   - [DynamicBicycle]: {lateral error, d/dt lateral error, heading
//     error, d/dt heading error} with linear tire dynamics
package vehicle

import "gonum.org/v1/gonum/mat"

// Kind tags the model variant. Controller stages that depend on the state
// layout (initial-state assembly, steering-rate derivation) dispatch on it.
type Kind string

const (
	KindKinematicLag   Kind = "kinematic_lag"
	KindKinematicNoLag Kind = "kinematic_no_lag"
	KindDynamicBicycle Kind = "dynamic_bicycle"
)

// Discretized bundles the matrices returned by one linearization.
type Discretized struct {
	A *mat.Dense
	B *mat.Dense
	C *mat.Dense
	W *mat.Dense
}

// Model is the error-dynamics contract the controller consumes.
type Model interface {
	Kind() Kind
	StateDim() int
	InputDim() int
	OutputDim() int

	// Discretize linearizes at the given velocity and curvature and
	// discretizes with the step time dt.
	Discretize(velocity, curvature, dt float64) (Discretized, error)

	// ReferenceInput is the feed-forward steering angle that tracks the
	// given curvature at zero error at the given speed.
	ReferenceInput(velocity, curvature float64) float64

	// Wheelbase returns the distance between axles, used by diagnostics
	// to convert steering angles to yaw rates.
	Wheelbase() float64
}

// bilinear replaces a with (I - dt/2*a)^-1 * (I + dt/2*a) and returns the
// inverse factor for discretizing the input and disturbance columns.
func bilinear(a *mat.Dense, dt float64) (ad, inv *mat.Dense, err error) {
	n, _ := a.Dims()
	eye := identity(n)

	var minus mat.Dense
	minus.Scale(-0.5*dt, a)
	minus.Add(&minus, eye)

	inv = mat.NewDense(n, n, nil)
	if err := inv.Inverse(&minus); err != nil {
		return nil, nil, err
	}

	var plus mat.Dense
	plus.Scale(0.5*dt, a)
	plus.Add(&plus, eye)

	ad = mat.NewDense(n, n, nil)
	ad.Mul(inv, &plus)
	return ad, inv, nil
}

func identity(n int) *mat.Dense {
	eye := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		eye.Set(i, i, 1)
	}
	return eye
}
