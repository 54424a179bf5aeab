package solver

import "gonum.org/v1/gonum/mat"

// denseStep builds the Levenberg-Marquardt normal equations over the
// given free, non-marginalized blocks directly (no landmarks present)
// and applies the resulting step in place, following the weighted
// normal-equations pattern of SolveLS generalized to a damped,
// block-structured Jacobian.
func denseStep(poses []*ParamBlock, evals []termEval, lambda float64) error {
	offset := make(map[*ParamBlock]int, len(poses))
	dim := 0
	for _, b := range poses {
		offset[b] = dim
		dim += len(b.Data)
	}

	H := mat.NewDense(dim, dim, nil)
	b := mat.NewVecDense(dim, nil)
	for _, e := range evals {
		for i, bi := range e.term.blocks {
			oi, free := offset[bi]
			if !free {
				continue
			}
			subJtr(b, oi, e.jacobians[i], e.residual)
			for j, bj := range e.term.blocks {
				oj, free2 := offset[bj]
				if !free2 {
					continue
				}
				addJtJ(H, oi, oj, e.jacobians[i], e.jacobians[j])
			}
		}
	}
	for i := 0; i < dim; i++ {
		H.Set(i, i, H.At(i, i)*(1+lambda))
	}

	var dx mat.VecDense
	if err := dx.SolveVec(H, b); err != nil {
		return err
	}
	for _, blk := range poses {
		o := offset[blk]
		for k := range blk.Data {
			blk.Data[k] += dx.AtVec(o + k)
		}
	}
	return nil
}
