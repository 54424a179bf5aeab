package solver

import (
	"github.com/pkg/errors"

	"github.com/stereonav/vo/xerrors"
)

// maxLambda bounds the Levenberg-Marquardt damping factor; a solve that
// needs more than this to find a descent direction is treated as failed
// rather than looped on forever.
const maxLambda = 1e12

// Options controls the Levenberg-Marquardt loop. The zero value picks
// reasonable defaults.
type Options struct {
	MaxIterations     int
	InitialLambda     float64
	LambdaFactor      float64
	FunctionTolerance float64
}

func (o Options) withDefaults() Options {
	if o.MaxIterations == 0 {
		o.MaxIterations = 50
	}
	if o.InitialLambda == 0 {
		o.InitialLambda = 1e-3
	}
	if o.LambdaFactor == 0 {
		o.LambdaFactor = 10
	}
	if o.FunctionTolerance == 0 {
		o.FunctionTolerance = 1e-9
	}
	return o
}

// Summary reports what a Solve call did.
type Summary struct {
	Iterations   int
	InitialCost  float64
	FinalCost    float64
	NumResiduals int
}

// Solve runs damped Gauss-Newton to a local minimum of the sum of
// squared (loss-reweighted) residuals in p, mutating every non-Fixed
// parameter block in place. It automatically uses the Schur complement
// when any free block is marked Marginalize, and a direct dense solve
// otherwise.
func Solve(p *Problem, opts Options) (Summary, error) {
	opts = opts.withDefaults()

	poses := freeNonMarginalized(p)
	landmarks := freeMarginalized(p)
	if len(poses)+len(landmarks) == 0 {
		return Summary{NumResiduals: p.NumResidualBlocks()}, nil
	}
	allFree := make([]*ParamBlock, 0, len(poses)+len(landmarks))
	allFree = append(allFree, poses...)
	allFree = append(allFree, landmarks...)

	evals, cost, ok := evaluateAll(p)
	if !ok {
		return Summary{}, errors.Wrap(xerrors.ErrSolverFailed, "initial residual evaluation")
	}
	initialCost := cost

	step := denseStep
	useSchur := len(landmarks) > 0

	lambda := opts.InitialLambda
	iter := 0
	for ; iter < opts.MaxIterations; iter++ {
		snap := snapshot(allFree)

		var err error
		if useSchur {
			err = schurStep(poses, landmarks, evals, lambda)
		} else {
			err = step(poses, evals, lambda)
		}
		if err != nil {
			restore(allFree, snap)
			lambda *= opts.LambdaFactor
			if lambda > maxLambda {
				return Summary{}, errors.Wrap(xerrors.ErrSolverFailed, "singular normal equations")
			}
			continue
		}

		newEvals, newCost, ok := evaluateAll(p)
		if ok && newCost <= cost {
			improvement := cost - newCost
			cost = newCost
			evals = newEvals
			lambda /= opts.LambdaFactor
			if improvement < opts.FunctionTolerance*(1+cost) {
				iter++
				break
			}
			continue
		}

		restore(allFree, snap)
		lambda *= opts.LambdaFactor
		if lambda > maxLambda {
			return Summary{}, errors.Wrap(xerrors.ErrSolverFailed, "no descent direction found")
		}
	}

	return Summary{
		Iterations:   iter,
		InitialCost:  initialCost,
		FinalCost:    cost,
		NumResiduals: p.NumResidualBlocks(),
	}, nil
}
