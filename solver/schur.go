package solver

import "gonum.org/v1/gonum/mat"

type landmarkAccum struct {
	Hll *mat.Dense
	bl  *mat.VecDense
	Hlp map[*ParamBlock]*mat.Dense // pose block -> Jl^T*Jp, size_l x size_pose
}

// schurStep eliminates the marginalized (landmark) blocks via the Schur
// complement and solves the reduced dense system over the pose blocks,
// then back-substitutes each landmark's own step. This is the
// bundle-adjustment path: landmarks connect to a handful of poses each,
// so Hll is small and block-diagonal while Hpp is dense but modest in
// size.
func schurStep(poses, landmarks []*ParamBlock, evals []termEval, lambda float64) error {
	poseOffset := make(map[*ParamBlock]int, len(poses))
	poseDim := 0
	for _, b := range poses {
		poseOffset[b] = poseDim
		poseDim += len(b.Data)
	}

	landInfo := make(map[*ParamBlock]*landmarkAccum, len(landmarks))
	for _, l := range landmarks {
		n := len(l.Data)
		landInfo[l] = &landmarkAccum{
			Hll: mat.NewDense(n, n, nil),
			bl:  mat.NewVecDense(n, nil),
			Hlp: make(map[*ParamBlock]*mat.Dense),
		}
	}

	Hpp := mat.NewDense(poseDim, poseDim, nil)
	bp := mat.NewVecDense(poseDim, nil)

	for _, e := range evals {
		var landIdx, poseIdx []int
		for i, blk := range e.term.blocks {
			if blk.Fixed {
				continue
			}
			if blk.Marginalize {
				landIdx = append(landIdx, i)
			} else {
				poseIdx = append(poseIdx, i)
			}
		}
		for _, li := range landIdx {
			lblk := e.term.blocks[li]
			acc := landInfo[lblk]
			Jl := e.jacobians[li]
			addJtJ(acc.Hll, 0, 0, Jl, Jl)
			subJtr(acc.bl, 0, Jl, e.residual)
			for _, pi := range poseIdx {
				pblk := e.term.blocks[pi]
				Jp := e.jacobians[pi]
				hlp, ok := acc.Hlp[pblk]
				if !ok {
					hlp = mat.NewDense(len(lblk.Data), len(pblk.Data), nil)
					acc.Hlp[pblk] = hlp
				}
				addJtJ(hlp, 0, 0, Jl, Jp)
			}
		}
		for _, pi := range poseIdx {
			pblk := e.term.blocks[pi]
			oi := poseOffset[pblk]
			Ji := e.jacobians[pi]
			subJtr(bp, oi, Ji, e.residual)
			for _, pj := range poseIdx {
				qblk := e.term.blocks[pj]
				oj := poseOffset[qblk]
				addJtJ(Hpp, oi, oj, Ji, e.jacobians[pj])
			}
		}
	}

	for _, l := range landmarks {
		acc := landInfo[l]
		for i := range l.Data {
			acc.Hll.Set(i, i, acc.Hll.At(i, i)*(1+lambda))
		}
	}
	for i := 0; i < poseDim; i++ {
		Hpp.Set(i, i, Hpp.At(i, i)*(1+lambda))
	}

	var HppReduced mat.Dense
	HppReduced.CloneFrom(Hpp)
	var bpReduced mat.VecDense
	bpReduced.CloneFromVec(bp)

	llInv := make(map[*ParamBlock]*mat.Dense, len(landmarks))
	for _, l := range landmarks {
		acc := landInfo[l]
		var inv mat.Dense
		if err := inv.Inverse(acc.Hll); err != nil {
			return err
		}
		llInv[l] = &inv

		var tmp mat.VecDense
		tmp.MulVec(&inv, acc.bl)

		for pi, HlpI := range acc.Hlp {
			oi := poseOffset[pi]
			rows, colsI := HlpI.Dims()
			for c := 0; c < colsI; c++ {
				sum := 0.0
				for k := 0; k < rows; k++ {
					sum += HlpI.At(k, c) * tmp.AtVec(k)
				}
				bpReduced.SetVec(oi+c, bpReduced.AtVec(oi+c)-sum)
			}

			var invHlpJ mat.Dense
			for pj, HlpJ := range acc.Hlp {
				oj := poseOffset[pj]
				invHlpJ.Mul(&inv, HlpJ)
				_, colsJ := HlpJ.Dims()
				for a := 0; a < colsI; a++ {
					for b := 0; b < colsJ; b++ {
						sum := 0.0
						for k := 0; k < rows; k++ {
							sum += HlpI.At(k, a) * invHlpJ.At(k, b)
						}
						HppReduced.Set(oi+a, oj+b, HppReduced.At(oi+a, oj+b)-sum)
					}
				}
			}
		}
	}

	var dp mat.VecDense
	if err := dp.SolveVec(&HppReduced, &bpReduced); err != nil {
		return err
	}
	for _, blk := range poses {
		o := poseOffset[blk]
		for k := range blk.Data {
			blk.Data[k] += dp.AtVec(o + k)
		}
	}

	for _, l := range landmarks {
		acc := landInfo[l]
		var rhs mat.VecDense
		rhs.CloneFromVec(acc.bl)
		for pblk, Hlp := range acc.Hlp {
			o := poseOffset[pblk]
			rows, cols := Hlp.Dims()
			for k := 0; k < rows; k++ {
				sum := 0.0
				for c := 0; c < cols; c++ {
					sum += Hlp.At(k, c) * dp.AtVec(o+c)
				}
				rhs.SetVec(k, rhs.AtVec(k)-sum)
			}
		}
		var dl mat.VecDense
		dl.MulVec(llInv[l], &rhs)
		for k := range l.Data {
			l.Data[k] += dl.AtVec(k)
		}
	}
	return nil
}
