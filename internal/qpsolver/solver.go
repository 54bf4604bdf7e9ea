// Package qpsolver defines the quadratic-program contract the controller
// delegates to, plus a fast default backend.
package qpsolver

import (
	"errors"

	"gonum.org/v1/gonum/mat"
)

// ErrSolveFailed indicates the backend could not produce a solution.
var ErrSolveFailed = errors.New("qpsolver: solve failed")

// Problem is one convex QP in standard form:
//
//	min 1/2 U'HU + f'U
//	s.t. LB <= U <= UB, LBA <= A*U <= UBA
type Problem struct {
	H   *mat.Dense
	F   *mat.VecDense
	A   *mat.Dense
	LB  *mat.VecDense
	UB  *mat.VecDense
	LBA *mat.VecDense
	UBA *mat.VecDense
}

// Stats reports how the last solve went.
type Stats struct {
	Iterations int
	RuntimeSec float64
	Objective  float64
}

// Solver is the pluggable numeric backend.
type Solver interface {
	Solve(p Problem) (*mat.VecDense, Stats, error)
}
