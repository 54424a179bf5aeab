package solver

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// termEval is one residual term's evaluation at the current parameter
// values, after loss reweighting: residual and every jacobian entry are
// already scaled by sqrt(loss.Weight(||r||^2)).
type termEval struct {
	term      *residualTerm
	residual  []float64
	jacobians []*mat.Dense // aligned with term.blocks; nil where ParamSizes()[i] == 0
}

func evaluateAll(p *Problem) (evals []termEval, cost float64, ok bool) {
	evals = make([]termEval, 0, len(p.terms))
	for i := range p.terms {
		term := &p.terms[i]
		params := make([][]float64, len(term.blocks))
		for j, b := range term.blocks {
			params[j] = b.Data
		}
		n := term.residual.NumResiduals()
		residual := make([]float64, n)
		jacobians := make([]*mat.Dense, len(term.blocks))
		sizes := term.residual.ParamSizes()
		for j, sz := range sizes {
			jacobians[j] = mat.NewDense(n, sz, nil)
		}
		if !term.residual.Evaluate(params, residual, jacobians) {
			return nil, 0, false
		}
		s := 0.0
		for _, r := range residual {
			if !finite(r) {
				return nil, 0, false
			}
			s += r * r
		}
		w := term.loss.Weight(s)
		sqrtW := math.Sqrt(w)
		if sqrtW != 1 {
			for j := range residual {
				residual[j] *= sqrtW
			}
			for _, J := range jacobians {
				J.Scale(sqrtW, J)
			}
		}
		for _, r := range residual {
			cost += 0.5 * r * r
		}
		evals = append(evals, termEval{term: term, residual: residual, jacobians: jacobians})
	}
	return evals, cost, true
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func freeNonMarginalized(p *Problem) []*ParamBlock {
	var out []*ParamBlock
	for _, b := range p.blockOrder {
		if !b.Fixed && !b.Marginalize {
			out = append(out, b)
		}
	}
	return out
}

func freeMarginalized(p *Problem) []*ParamBlock {
	var out []*ParamBlock
	for _, b := range p.blockOrder {
		if !b.Fixed && b.Marginalize {
			out = append(out, b)
		}
	}
	return out
}

func snapshot(blocks []*ParamBlock) [][]float64 {
	out := make([][]float64, len(blocks))
	for i, b := range blocks {
		cp := make([]float64, len(b.Data))
		copy(cp, b.Data)
		out[i] = cp
	}
	return out
}

func restore(blocks []*ParamBlock, snap [][]float64) {
	for i, b := range blocks {
		copy(b.Data, snap[i])
	}
}

// subJtr subtracts J^T*r from b[off:off+cols].
func subJtr(b *mat.VecDense, off int, J *mat.Dense, r []float64) {
	rows, cols := J.Dims()
	for c := 0; c < cols; c++ {
		sum := 0.0
		for k := 0; k < rows; k++ {
			sum += J.At(k, c) * r[k]
		}
		b.SetVec(off+c, b.AtVec(off+c)-sum)
	}
}

// addJtJ adds Ji^T*Jj into H[offI:offI+ci, offJ:offJ+cj].
func addJtJ(H *mat.Dense, offI, offJ int, Ji, Jj *mat.Dense) {
	rows, ci := Ji.Dims()
	_, cj := Jj.Dims()
	for a := 0; a < ci; a++ {
		for b := 0; b < cj; b++ {
			sum := 0.0
			for k := 0; k < rows; k++ {
				sum += Ji.At(k, a) * Jj.At(k, b)
			}
			H.Set(offI+a, offJ+b, H.At(offI+a, offJ+b)+sum)
		}
	}
}
