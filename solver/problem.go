// Package solver is a thin Levenberg-Marquardt/Gauss-Newton facade: it
// accepts heterogeneous parameter blocks by borrowed slice, residual
// terms with analytic Jacobians, an optional per-residual robust loss,
// and picks a dense or Schur-complement linear solve depending on
// whether any parameter block is marked for marginalization (the
// landmark blocks of a bundle-adjustment or odometry problem).
package solver

import "gonum.org/v1/gonum/mat"

// ParamBlock is a named, borrowed parameter buffer. Its backing slice is
// never reallocated by this package; Solve mutates it in place.
type ParamBlock struct {
	Data []float64
	// Fixed blocks are held constant during Solve.
	Fixed bool
	// Marginalize marks a block (a landmark's 3D position, in this
	// module's usage) to be eliminated via the Schur complement rather
	// than folded into the dense reduced system directly.
	Marginalize bool
}

// NewParamBlock wraps data as a free, non-marginalized parameter block.
func NewParamBlock(data []float64) *ParamBlock {
	return &ParamBlock{Data: data}
}

// Residual is one term of the least-squares objective: a fixed number of
// scalar residuals with an analytic Jacobian against each of its
// parameter blocks, in declaration order.
type Residual interface {
	// ParamSizes returns the length of each parameter block this term reads.
	ParamSizes() []int
	// NumResiduals returns how many scalar residuals Evaluate produces.
	NumResiduals() int
	// Evaluate fills residuals (len NumResiduals()) and, for every i,
	// jacobians[i] (NumResiduals() x ParamSizes()[i], row-major) from the
	// current parameter values in params. It returns false if the
	// evaluation is degenerate (e.g. a camera projection failed).
	Evaluate(params [][]float64, residuals []float64, jacobians []*mat.Dense) bool
}

type residualTerm struct {
	residual Residual
	loss     Loss
	blocks   []*ParamBlock
}

// Problem accumulates parameter blocks and residual terms for a single
// Solve call. It has no notion of "solved" state of its own; Solve reads
// and mutates the blocks it was given directly.
type Problem struct {
	blockOrder []*ParamBlock
	blockSeen  map[*ParamBlock]bool
	terms      []residualTerm
}

// NewProblem returns an empty Problem.
func NewProblem() *Problem {
	return &Problem{blockSeen: make(map[*ParamBlock]bool)}
}

// AddResidualBlock registers one residual term over the given parameter
// blocks. loss may be nil, meaning NoLoss.
func (p *Problem) AddResidualBlock(residual Residual, loss Loss, blocks ...*ParamBlock) {
	if loss == nil {
		loss = NoLoss{}
	}
	sizes := residual.ParamSizes()
	if len(sizes) != len(blocks) {
		panic("solver: residual expects a different number of parameter blocks")
	}
	for i, b := range blocks {
		if len(b.Data) != sizes[i] {
			panic("solver: parameter block size does not match residual's declared size")
		}
		if !p.blockSeen[b] {
			p.blockSeen[b] = true
			p.blockOrder = append(p.blockOrder, b)
		}
	}
	p.terms = append(p.terms, residualTerm{residual: residual, loss: loss, blocks: blocks})
}

// NumParameterBlocks returns how many distinct blocks have been registered.
func (p *Problem) NumParameterBlocks() int { return len(p.blockOrder) }

// NumResidualBlocks returns how many residual terms have been registered.
func (p *Problem) NumResidualBlocks() int { return len(p.terms) }
