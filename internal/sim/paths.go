package sim

import (
	"fmt"
	"math"

	"github.com/open-adkit/latctl/internal/traj"
)

// pathSpacing is the sample spacing of generated reference paths.
const pathSpacing = 0.5

// laneWidth is the lateral shift of the lane-change path.
const laneWidth = 3.5

// BuildPath generates the reference path for a scenario. The path is
// long enough to cover the run at the scenario speed plus a margin for
// the prediction horizon.
func BuildPath(sc Scenario) ([]traj.Point, error) {
	length := sc.Speed*sc.Duration + 30
	n := int(length/pathSpacing) + 1

	switch sc.Path {
	case "straight":
		points := make([]traj.Point, n)
		for i := range points {
			points[i] = traj.Point{Pose: traj.Pose{X: float64(i) * pathSpacing}, VX: sc.Speed}
		}
		return points, nil

	case "circle":
		if sc.Radius <= 0 {
			return nil, fmt.Errorf("sim: circle path needs a positive radius, got %v", sc.Radius)
		}
		points := make([]traj.Point, n)
		dth := pathSpacing / sc.Radius
		for i := range points {
			th := float64(i) * dth
			points[i] = traj.Point{
				Pose: traj.Pose{
					X:   sc.Radius * math.Sin(th),
					Y:   sc.Radius * (1 - math.Cos(th)),
					Yaw: traj.NormalizeRadian(th),
				},
				VX: sc.Speed,
			}
		}
		return points, nil

	case "lane_change":
		// A sigmoid lane shift starting a few seconds in.
		x0 := math.Max(4*sc.Speed, 30.0)
		const steepness = 0.15
		points := make([]traj.Point, n)
		for i := range points {
			x := float64(i) * pathSpacing
			e := math.Exp(-steepness * (x - x0))
			y := laneWidth / (1 + e)
			dy := laneWidth * steepness * e / ((1 + e) * (1 + e))
			points[i] = traj.Point{
				Pose: traj.Pose{X: x, Y: y, Yaw: math.Atan(dy)},
				VX:   sc.Speed,
			}
		}
		return points, nil

	case "s_curve":
		if sc.Radius <= 0 {
			return nil, fmt.Errorf("sim: s_curve path needs a positive radius, got %v", sc.Radius)
		}
		// A sine weave whose peak curvature matches 1/radius.
		amplitude := laneWidth
		wavelength := 2 * math.Pi * math.Sqrt(amplitude*sc.Radius)
		k := 2 * math.Pi / wavelength
		points := make([]traj.Point, n)
		for i := range points {
			x := float64(i) * pathSpacing
			points[i] = traj.Point{
				Pose: traj.Pose{
					X:   x,
					Y:   amplitude * math.Sin(k*x),
					Yaw: math.Atan(amplitude * k * math.Cos(k*x)),
				},
				VX: sc.Speed,
			}
		}
		return points, nil

	default:
		return nil, fmt.Errorf("sim: unknown path %q", sc.Path)
	}
}
