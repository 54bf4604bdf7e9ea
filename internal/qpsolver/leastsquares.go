package qpsolver

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/mat"
)

// LeastSquares solves the QP by setting the gradient to zero, H*U = -f,
// ignoring the inequality constraints. H is symmetric positive definite
// whenever the effort weights are non-zero, so a Cholesky solve is both
// fast and a natural positive-definiteness check. Constraint violations
// are left to the caller's saturation stage; use a constrained backend
// when hard slew guarantees matter.
type LeastSquares struct{}

func NewLeastSquares() *LeastSquares { return &LeastSquares{} }

func (s *LeastSquares) Solve(p Problem) (*mat.VecDense, Stats, error) {
	start := time.Now()

	n, _ := p.H.Dims()
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sym.SetSym(i, j, 0.5*(p.H.At(i, j)+p.H.At(j, i)))
		}
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(sym); !ok {
		return nil, Stats{}, fmt.Errorf("%w: hessian not positive definite", ErrSolveFailed)
	}

	rhs := mat.NewVecDense(n, nil)
	rhs.ScaleVec(-1, p.F)

	u := mat.NewVecDense(n, nil)
	if err := chol.SolveVecTo(u, rhs); err != nil {
		return nil, Stats{}, fmt.Errorf("%w: %v", ErrSolveFailed, err)
	}

	stats := Stats{
		Iterations: 1,
		RuntimeSec: time.Since(start).Seconds(),
		Objective:  objective(p, u),
	}
	return u, stats, nil
}

func objective(p Problem, u *mat.VecDense) float64 {
	var hu mat.VecDense
	hu.MulVec(p.H, u)
	return 0.5*mat.Dot(u, &hu) + mat.Dot(p.F, u)
}
