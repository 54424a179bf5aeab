package solver

import (
	"testing"

	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"
)

// affineResidual fits y = a*x + b, one residual per sample, params {a,b}.
type affineResidual struct {
	x, y float64
}

func (affineResidual) ParamSizes() []int { return []int{1, 1} }
func (affineResidual) NumResiduals() int { return 1 }

func (r affineResidual) Evaluate(params [][]float64, residuals []float64, jacobians []*mat.Dense) bool {
	a, b := params[0][0], params[1][0]
	residuals[0] = a*r.x + b - r.y
	jacobians[0].Set(0, 0, r.x)
	jacobians[1].Set(0, 0, 1)
	return true
}

func TestSolveDenseRecoversAffineFit(t *testing.T) {
	const wantA, wantB = 2.5, -1.0
	samples := []float64{-2, -1, 0, 1, 2, 3}

	a := NewParamBlock([]float64{0})
	b := NewParamBlock([]float64{0})
	p := NewProblem()
	for _, x := range samples {
		p.AddResidualBlock(affineResidual{x: x, y: wantA*x + wantB}, nil, a, b)
	}

	summary, err := Solve(p, Options{})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, summary.FinalCost, test.ShouldBeLessThan, 1e-15)
	test.That(t, a.Data[0], test.ShouldAlmostEqual, wantA, 1e-6)
	test.That(t, b.Data[0], test.ShouldAlmostEqual, wantB, 1e-6)
}

func TestSolveDenseHoldsFixedBlockConstant(t *testing.T) {
	a := NewParamBlock([]float64{2.5})
	a.Fixed = true
	b := NewParamBlock([]float64{0})
	p := NewProblem()
	for _, x := range []float64{-1, 0, 1, 2} {
		p.AddResidualBlock(affineResidual{x: x, y: 2.5*x - 3}, nil, a, b)
	}
	_, err := Solve(p, Options{})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, a.Data[0], test.ShouldEqual, 2.5)
	test.That(t, b.Data[0], test.ShouldAlmostEqual, -3.0, 1e-6)
}

// planeResidual ties a scalar "landmark" point p to a per-view offset o:
// residual = p + o - target, exercising the Schur path with a single
// marginalized block shared across several pose blocks.
type planeResidual struct {
	target float64
}

func (planeResidual) ParamSizes() []int { return []int{1, 1} }
func (planeResidual) NumResiduals() int { return 1 }

func (r planeResidual) Evaluate(params [][]float64, residuals []float64, jacobians []*mat.Dense) bool {
	p, o := params[0][0], params[1][0]
	residuals[0] = p + o - r.target
	jacobians[0].Set(0, 0, 1)
	jacobians[1].Set(0, 0, 1)
	return true
}

func TestSolveSchurFitsSharedMarginalizedBlock(t *testing.T) {
	landmark := NewParamBlock([]float64{0})
	landmark.Marginalize = true
	offsets := []*ParamBlock{
		NewParamBlock([]float64{0}),
		NewParamBlock([]float64{0}),
		NewParamBlock([]float64{0}),
	}
	targets := []float64{5, 7, 9} // p + o_i = targets[i], p=3 o=(2,4,6) is one solution

	p := NewProblem()
	for i, o := range offsets {
		p.AddResidualBlock(planeResidual{target: targets[i]}, nil, landmark, o)
	}
	// Anchor the gauge freedom (p, o_i) -> (p+c, o_i-c) by fixing one offset.
	offsets[0].Fixed = true
	offsets[0].Data[0] = 2

	summary, err := Solve(p, Options{})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, summary.FinalCost, test.ShouldBeLessThan, 1e-15)
	test.That(t, landmark.Data[0]+offsets[0].Data[0], test.ShouldAlmostEqual, targets[0], 1e-6)
	test.That(t, landmark.Data[0]+offsets[1].Data[0], test.ShouldAlmostEqual, targets[1], 1e-6)
	test.That(t, landmark.Data[0]+offsets[2].Data[0], test.ShouldAlmostEqual, targets[2], 1e-6)
}

func TestCauchyLossDownweightsLargeResiduals(t *testing.T) {
	loss := NewCauchyLoss(1.0)
	test.That(t, loss.Weight(0), test.ShouldAlmostEqual, 1.0, 1e-12)
	test.That(t, loss.Weight(100), test.ShouldBeLessThan, 0.02)
}
