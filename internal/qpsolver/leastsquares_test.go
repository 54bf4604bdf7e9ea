package qpsolver

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestLeastSquaresSolvesGradient(t *testing.T) {
	// H = diag(2, 4), f = (-2, -8) -> U = (1, 2).
	p := Problem{
		H: mat.NewDense(2, 2, []float64{2, 0, 0, 4}),
		F: mat.NewVecDense(2, []float64{-2, -8}),
	}
	u, stats, err := NewLeastSquares().Solve(p)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(u.AtVec(0)-1) > 1e-12 || math.Abs(u.AtVec(1)-2) > 1e-12 {
		t.Errorf("got U = (%f, %f), want (1, 2)", u.AtVec(0), u.AtVec(1))
	}
	want := -9.0 // 0.5*(2+16) - 2 - 16
	if math.Abs(stats.Objective-want) > 1e-12 {
		t.Errorf("objective %f, want %f", stats.Objective, want)
	}
	if stats.Iterations < 1 {
		t.Error("iterations not reported")
	}
}

func TestLeastSquaresRejectsIndefinite(t *testing.T) {
	p := Problem{
		H: mat.NewDense(2, 2, []float64{1, 0, 0, -1}),
		F: mat.NewVecDense(2, nil),
	}
	_, _, err := NewLeastSquares().Solve(p)
	if !errors.Is(err, ErrSolveFailed) {
		t.Errorf("expected ErrSolveFailed, got %v", err)
	}
}

func TestLeastSquaresSymmetrizes(t *testing.T) {
	// A slightly asymmetric hessian from accumulated round-off must not
	// break the solve.
	p := Problem{
		H: mat.NewDense(2, 2, []float64{2, 1e-13, 0, 4}),
		F: mat.NewVecDense(2, []float64{-2, -8}),
	}
	if _, _, err := NewLeastSquares().Solve(p); err != nil {
		t.Fatal(err)
	}
}
