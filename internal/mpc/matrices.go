package mpc

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/open-adkit/latctl/internal/traj"
)

// Matrices is the stacked finite-horizon prediction system
//
//	Xex = Aex x0 + Bex Uex + Wex
//	Yex = Cex Xex
//	J   = Yex' Qex Yex + (Uex - Uref)' R1ex (Uex - Uref) + Uex' R2ex Uex
//
// built from the model linearized along the resampled reference.
type Matrices struct {
	Aex  *mat.Dense
	Bex  *mat.Dense
	Wex  *mat.VecDense
	Cex  *mat.Dense
	Qex  *mat.Dense
	R1ex *mat.Dense
	R2ex *mat.Dense
	Uref *mat.VecDense
}

// buildMatrices assembles the stacked prediction system over the horizon.
// Step i is linearized at the step's reference velocity and curvature, so
// Aex's block rows are cumulative products of varying Ad, not powers of
// one matrix.
func (c *Controller) buildMatrices(ref *traj.Trajectory, dt float64) (*Matrices, error) {
	p := c.params
	n := p.Horizon
	dimX := c.model.StateDim()
	dimU := c.model.InputDim()
	dimY := c.model.OutputDim()

	m := &Matrices{
		Aex:  mat.NewDense(n*dimX, dimX, nil),
		Bex:  mat.NewDense(n*dimX, n*dimU, nil),
		Wex:  mat.NewVecDense(n*dimX, nil),
		Cex:  mat.NewDense(n*dimY, n*dimX, nil),
		Qex:  mat.NewDense(n*dimY, n*dimY, nil),
		R1ex: mat.NewDense(n*dimU, n*dimU, nil),
		R2ex: mat.NewDense(n*dimU, n*dimU, nil),
		Uref: mat.NewVecDense(n*dimU, nil),
	}

	// Curvature sign follows the driving direction for the whole horizon.
	signVX := 1.0
	if !c.st.isForward {
		signVX = -1.0
	}
	zeroFF := p.ZeroFFSteerDeg * math.Pi / 180.0

	for i := 0; i < n; i++ {
		refVX := ref.VX[i]
		refK := ref.K[i] * signVX
		refSmoothK := ref.SmoothK[i] * signVX
		w := p.weightFor(refK)

		qLat := w.LatError
		qHeading := w.HeadingError
		if i == n-1 {
			qLat = p.TerminalLatError
			qHeading = p.TerminalHeadingError
		}
		qHeading += refVX * refVX * w.HeadingErrorSquaredVel
		r := w.SteeringInput + refVX*refVX*w.SteeringInputSquaredVel

		d, err := c.model.Discretize(refVX, refK, dt)
		if err != nil {
			return nil, fmt.Errorf("%w: step %d: %v", ErrNonFinite, i, err)
		}

		if i == 0 {
			copyBlock(m.Aex, 0, 0, d.A)
			copyBlock(m.Bex, 0, 0, d.B)
			copyColumn(m.Wex, 0, d.W)
		} else {
			prevA := m.Aex.Slice((i-1)*dimX, i*dimX, 0, dimX)
			var block mat.Dense
			block.Mul(d.A, prevA)
			copyBlock(m.Aex, i*dimX, 0, &block)

			for j := 0; j < i; j++ {
				prevB := m.Bex.Slice((i-1)*dimX, i*dimX, j*dimU, (j+1)*dimU)
				var bb mat.Dense
				bb.Mul(d.A, prevB)
				copyBlock(m.Bex, i*dimX, j*dimU, &bb)
			}
			copyBlock(m.Bex, i*dimX, i*dimU, d.B)

			prevW := m.Wex.SliceVec((i-1)*dimX, i*dimX)
			var wv mat.VecDense
			wv.MulVec(d.A, prevW)
			var wd mat.VecDense
			wd.AddVec(&wv, d.W.ColView(0))
			for k := 0; k < dimX; k++ {
				m.Wex.SetVec(i*dimX+k, wd.AtVec(k))
			}
		}

		copyBlock(m.Cex, i*dimY, i*dimX, d.C)
		m.Qex.Set(i*dimY, i*dimY, qLat)
		m.Qex.Set(i*dimY+1, i*dimY+1, qHeading)
		m.R1ex.Set(i*dimU, i*dimU, r)

		uref := c.model.ReferenceInput(refVX, refSmoothK)
		if math.Abs(uref) < zeroFF {
			uref = 0
		}
		m.Uref.SetVec(i*dimU, uref)
	}

	// Lateral jerk penalty couples consecutive inputs.
	for i := 0; i < n-1; i++ {
		refVX := ref.VX[i]
		w := p.weightFor(ref.K[i] * signVX)
		j := refVX * refVX * w.LatJerk / (dt * dt)
		m.R2ex.Set(i, i, m.R2ex.At(i, i)+j)
		m.R2ex.Set(i, i+1, m.R2ex.At(i, i+1)-j)
		m.R2ex.Set(i+1, i, m.R2ex.At(i+1, i)-j)
		m.R2ex.Set(i+1, i+1, m.R2ex.At(i+1, i+1)+j)
	}

	c.addSteerWeightR(dt, m.R1ex)

	return m, nil
}

// predictStates runs the stacked system forward: Xex = Aex x0 + Bex U + Wex.
func (m *Matrices) predictStates(x0, u *mat.VecDense) *mat.VecDense {
	rows, _ := m.Aex.Dims()
	xex := mat.NewVecDense(rows, nil)
	xex.MulVec(m.Aex, x0)
	bu := mat.NewVecDense(rows, nil)
	bu.MulVec(m.Bex, u)
	xex.AddVec(xex, bu)
	xex.AddVec(xex, m.Wex)
	return xex
}

// finite reports whether every entry of every matrix is finite.
func (m *Matrices) finite() bool {
	all := []mat.Matrix{m.Aex, m.Bex, m.Wex, m.Cex, m.Qex, m.R1ex, m.R2ex, m.Uref}
	for _, mm := range all {
		r, c := mm.Dims()
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				v := mm.At(i, j)
				if math.IsNaN(v) || math.IsInf(v, 0) {
					return false
				}
			}
		}
	}
	return true
}

func copyBlock(dst *mat.Dense, r0, c0 int, src mat.Matrix) {
	r, c := src.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			dst.Set(r0+i, c0+j, src.At(i, j))
		}
	}
}

func copyColumn(dst *mat.VecDense, r0 int, src mat.Matrix) {
	r, _ := src.Dims()
	for i := 0; i < r; i++ {
		dst.SetVec(r0+i, src.At(i, 0))
	}
}
