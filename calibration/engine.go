package calibration

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/stereonav/vo/camera"
	"github.com/stereonav/vo/costfn"
	"github.com/stereonav/vo/solver"
	"github.com/stereonav/vo/xerrors"
	"github.com/stereonav/vo/xlog"
)

// Engine runs the per-view initialization and joint refinement steps of
// the calibration pipeline against a fixed grid geometry.
type Engine struct {
	cfg  *Config
	grid []r3.Vector
	log  *xlog.Logger
}

// NewEngine builds an Engine and its Z=0 target grid from cfg.
func NewEngine(cfg *Config, log *xlog.Logger) *Engine {
	return &Engine{cfg: cfg, grid: BuildGrid(cfg.Nx, cfg.Ny, cfg.SquareSize), log: log}
}

// Grid returns the target's 3D corner positions.
func (e *Engine) Grid() []r3.Vector { return e.grid }

// InitializeViews solves each view's extrinsic independently against
// cam's fixed intrinsics, using GridEstimate with a Cauchy(1) loss. A
// solver failure on any view aborts the whole call — the caller re-seeds
// and retries rather than continuing with a partially-initialized set.
func (e *Engine) InitializeViews(views []*View, cam *camera.Camera) error {
	if len(views) == 0 {
		return errors.WithStack(xerrors.ErrNoValidViews)
	}
	for _, v := range views {
		block := solver.NewParamBlock(v.Extrinsic.Data())
		prob := solver.NewProblem()
		prob.AddResidualBlock(costfn.NewGridEstimate(v.Observations, e.grid, cam), solver.NewCauchyLoss(1), block)

		if _, err := solver.Solve(prob, solver.Options{}); err != nil {
			return errors.Wrapf(xerrors.ErrSolverFailed, "initializing %s: %v", v.ImagePath, err)
		}
		e.log.Debugw("initialized view", "image", v.ImagePath)
	}
	return nil
}

// RefineJoint builds one problem spanning every view's extrinsic and the
// shared intrinsic vector and solves it without a robust loss.
func (e *Engine) RefineJoint(views []*View, projector camera.Projector, intrinsics []float64) error {
	if len(views) == 0 {
		return errors.WithStack(xerrors.ErrNoValidViews)
	}
	prob := solver.NewProblem()
	intrinsicBlock := solver.NewParamBlock(intrinsics)
	for _, v := range views {
		extBlock := solver.NewParamBlock(v.Extrinsic.Data())
		prob.AddResidualBlock(costfn.NewGridProjection(v.Observations, e.grid, projector), nil, intrinsicBlock, extBlock)
	}
	if _, err := solver.Solve(prob, solver.Options{}); err != nil {
		return errors.Wrap(xerrors.ErrSolverFailed, "joint refinement")
	}
	e.log.Infow("joint refinement converged", "views", len(views))
	return nil
}
