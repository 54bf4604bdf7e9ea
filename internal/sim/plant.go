package sim

import (
	"math"

	"github.com/open-adkit/latctl/internal/traj"
)

// Plant is the simulated vehicle: a kinematic bicycle with a first-order
// steering actuator. It is deliberately richer than the controller's
// internal error model only in that it integrates the full world pose.
type Plant struct {
	Wheelbase float64
	SteerTau  float64
	SteerLim  float64

	X     float64
	Y     float64
	Yaw   float64
	Steer float64
}

func NewPlant(wheelbase, steerTau, steerLim float64) *Plant {
	return &Plant{Wheelbase: wheelbase, SteerTau: steerTau, SteerLim: steerLim}
}

func (p *Plant) Pose() traj.Pose {
	return traj.Pose{X: p.X, Y: p.Y, Yaw: p.Yaw}
}

// PlaceAt sets the pose and steering directly.
func (p *Plant) PlaceAt(pose traj.Pose, steer float64) {
	p.X, p.Y, p.Yaw = pose.X, pose.Y, pose.Yaw
	p.Steer = steer
}

type plantState struct {
	x, y, yaw, steer float64
}

// Step advances the plant by dt under a held steering command and speed,
// with one RK4 step.
func (p *Plant) Step(steerCmd, speed, dt float64) {
	cmd := math.Max(-p.SteerLim, math.Min(p.SteerLim, steerCmd))
	s0 := plantState{p.X, p.Y, p.Yaw, p.Steer}

	k1 := p.derive(s0, cmd, speed)
	k2 := p.derive(advance(s0, k1, dt/2), cmd, speed)
	k3 := p.derive(advance(s0, k2, dt/2), cmd, speed)
	k4 := p.derive(advance(s0, k3, dt), cmd, speed)

	p.X += dt / 6 * (k1.x + 2*k2.x + 2*k3.x + k4.x)
	p.Y += dt / 6 * (k1.y + 2*k2.y + 2*k3.y + k4.y)
	p.Yaw = traj.NormalizeRadian(p.Yaw + dt/6*(k1.yaw+2*k2.yaw+2*k3.yaw+k4.yaw))
	p.Steer += dt / 6 * (k1.steer + 2*k2.steer + 2*k3.steer + k4.steer)
	p.Steer = math.Max(-p.SteerLim, math.Min(p.SteerLim, p.Steer))
}

func (p *Plant) derive(s plantState, cmd, speed float64) plantState {
	return plantState{
		x:     speed * math.Cos(s.yaw),
		y:     speed * math.Sin(s.yaw),
		yaw:   speed * math.Tan(s.steer) / p.Wheelbase,
		steer: (cmd - s.steer) / p.SteerTau,
	}
}

func advance(s, d plantState, dt float64) plantState {
	return plantState{
		x:     s.x + dt*d.x,
		y:     s.y + dt*d.y,
		yaw:   s.yaw + dt*d.yaw,
		steer: s.steer + dt*d.steer,
	}
}
