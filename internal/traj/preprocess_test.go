package traj

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("trajectory preprocessing", func() {
	makeLine := func(n int, spacing, vx float64) *Trajectory {
		tr := &Trajectory{}
		for i := 0; i < n; i++ {
			tr.Push(float64(i)*spacing, 0, 0, vx, 0, 0, 0)
		}
		tr.CalcTime()
		return tr
	}

	Describe("ResampleByDistance", func() {
		It("lands one sample exactly on the ego projection", func() {
			in := makeLine(20, 1.0, 5.0)
			seg, offset, err := NearestSegment(in, Pose{X: 7.3, Y: 0.2}, 3.0, math.Pi/3)
			Expect(err).NotTo(HaveOccurred())

			out, err := ResampleByDistance(in, 0.5, seg, offset)
			Expect(err).NotTo(HaveOccurred())

			onEgo := false
			for i := 0; i < out.Len(); i++ {
				if math.Abs(out.X[i]-7.3) < 1e-9 {
					onEgo = true
				}
			}
			Expect(onEgo).To(BeTrue(), "no resampled point at the ego arclength")
		})

		It("keeps uniform spacing away from the ego seam", func() {
			in := makeLine(20, 1.0, 5.0)
			out, err := ResampleByDistance(in, 0.5, 0, 0)
			Expect(err).NotTo(HaveOccurred())

			for i := 1; i < out.Len(); i++ {
				ds := math.Hypot(out.X[i]-out.X[i-1], out.Y[i]-out.Y[i-1])
				Expect(ds).To(BeNumerically("~", 0.5, 1e-6))
			}
		})

		It("fails on a single-point input", func() {
			in := &Trajectory{}
			in.Push(0, 0, 0, 1, 0, 0, 0)
			_, err := ResampleByDistance(in, 0.5, 0, 0)
			Expect(err).To(MatchError(ErrResampleDegenerate))
		})

		It("produces a non-decreasing time channel", func() {
			in := makeLine(20, 1.0, 5.0)
			out, err := ResampleByDistance(in, 0.5, 0, 0)
			Expect(err).NotTo(HaveOccurred())
			for i := 1; i < out.Len(); i++ {
				Expect(out.Time[i]).To(BeNumerically(">", out.Time[i-1]))
			}
		})
	})

	Describe("DrivingDirection", func() {
		It("detects forward driving", func() {
			forward, ok := DrivingDirection(makeLine(5, 1.0, 5.0))
			Expect(ok).To(BeTrue())
			Expect(forward).To(BeTrue())
		})

		It("detects reverse driving", func() {
			tr := &Trajectory{}
			tr.Push(0, 0, 0, -2, 0, 0, 0)
			tr.Push(-1, 0, 0, -2, 0, 0, 0)
			forward, ok := DrivingDirection(tr)
			Expect(ok).To(BeTrue())
			Expect(forward).To(BeFalse())
		})

		It("reports ambiguity on coincident points", func() {
			tr := &Trajectory{}
			tr.Push(1, 1, 0, 1, 0, 0, 0)
			tr.Push(1, 1, 0, 1, 0, 0, 0)
			_, ok := DrivingDirection(tr)
			Expect(ok).To(BeFalse())
		})
	})

	Describe("Smooth", func() {
		It("restores the channels when the window is too wide", func() {
			tr := makeLine(5, 1.0, 5.0)
			before := tr.Clone()
			Expect(Smooth(tr, 10)).To(HaveOccurred())
			Expect(tr.X).To(Equal(before.X))
			Expect(tr.VX).To(Equal(before.VX))
		})

		It("flattens noise on a straight line", func() {
			tr := makeLine(50, 1.0, 5.0)
			for i := range tr.Y {
				if i%2 == 0 {
					tr.Y[i] = 0.05
				} else {
					tr.Y[i] = -0.05
				}
			}
			Expect(Smooth(tr, 5)).To(Succeed())
			for i := 10; i < 40; i++ {
				Expect(math.Abs(tr.Y[i])).To(BeNumerically("<", 0.05))
			}
		})
	})

	Describe("CalcCurvature", func() {
		It("recovers the curvature of a circle", func() {
			const r = 20.0
			tr := &Trajectory{}
			for i := 0; i < 100; i++ {
				th := float64(i) * 0.02
				tr.Push(r*math.Cos(th), r*math.Sin(th), th+math.Pi/2, 5, 0, 0, 0)
			}
			tr.CalcTime()
			CalcCurvature(tr, 3, 5)

			for i := 10; i < 90; i++ {
				Expect(tr.K[i]).To(BeNumerically("~", 1.0/r, 1e-3))
				Expect(tr.SmoothK[i]).To(BeNumerically("~", 1.0/r, 1e-3))
			}
		})

		It("yields zero curvature on a straight line", func() {
			tr := makeLine(20, 1.0, 5.0)
			CalcCurvature(tr, 3, 3)
			for i := 0; i < tr.Len(); i++ {
				Expect(tr.K[i]).To(BeNumerically("~", 0, 1e-9))
			}
		})
	})

	Describe("CalcYawFromXY", func() {
		It("matches the geometric heading", func() {
			tr := &Trajectory{}
			for i := 0; i < 20; i++ {
				tr.Push(float64(i), float64(i), 0, 5, 0, 0, 0)
			}
			CalcYawFromXY(tr, true)
			for i := 0; i < tr.Len(); i++ {
				Expect(tr.Yaw[i]).To(BeNumerically("~", math.Pi/4, 1e-9))
			}
		})

		It("flips the heading for reverse driving", func() {
			tr := makeLine(20, 1.0, -5.0)
			CalcYawFromXY(tr, false)
			Expect(math.Abs(NormalizeRadian(tr.Yaw[5]-math.Pi))).To(BeNumerically("<", 1e-9))
		})
	})

	Describe("AppendTerminalSample", func() {
		It("zeroes the terminal velocity and pushes a far-future sample", func() {
			tr := makeLine(10, 1.0, 5.0)
			n := tr.Len()
			AppendTerminalSample(tr)

			Expect(tr.Len()).To(Equal(n + 1))
			Expect(tr.VX[n-1]).To(BeZero())
			Expect(tr.VX[n]).To(BeZero())
			Expect(tr.Time[n] - tr.Time[n-1]).To(BeNumerically("~", TerminalTimeExtension, 1e-9))
		})
	})

	Describe("DynamicSmoothingVelocity", func() {
		It("anchors at the measured speed and bounds acceleration", func() {
			tr := makeLine(50, 1.0, 10.0)
			DynamicSmoothingVelocity(tr, 0, 2.0, 1.5, 0.3)

			Expect(tr.VX[0]).To(Equal(2.0))
			for i := 1; i < tr.Len(); i++ {
				ds := math.Hypot(tr.X[i]-tr.X[i-1], tr.Y[i]-tr.Y[i-1])
				dt := ds / math.Max(math.Abs(tr.VX[i-1]), 1e-9)
				Expect(math.Abs(tr.VX[i]-tr.VX[i-1])).To(BeNumerically("<=", 1.5*dt+1e-9))
			}
		})
	})

	Describe("ExtendInYawDirection", func() {
		It("stretches the path along the terminal heading", func() {
			tr := makeLine(10, 1.0, 5.0)
			n := tr.Len()
			last := tr.X[n-1]
			ExtendInYawDirection(tr, 0, 0.5, true)

			Expect(tr.Len()).To(BeNumerically(">", n))
			Expect(tr.X[tr.Len()-1]).To(BeNumerically(">", last+9.0))
			Expect(tr.Y[tr.Len()-1]).To(BeNumerically("~", 0, 1e-9))
		})
	})
})
