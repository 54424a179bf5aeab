// Package xerrors declares the error taxonomy shared by the calibration
// and odometry pipelines. Kinds are sentinel values wrapped with
// contextual detail via github.com/pkg/errors at each call site, rather
// than a hierarchy of concrete error types.
package xerrors

import "github.com/pkg/errors"

var (
	// ErrConfigMissing means the calibration info file could not be opened.
	ErrConfigMissing = errors.New("calibration: config file not found")
	// ErrConfigMalformed means the info-file header failed to parse.
	ErrConfigMalformed = errors.New("calibration: malformed config header")
	// ErrNoValidViews means every calibration view was rejected.
	ErrNoValidViews = errors.New("calibration: no valid views after extraction")
	// ErrGridNotFound means the corner detector failed on one view; non-fatal.
	ErrGridNotFound = errors.New("calibration: chessboard grid not found")
	// ErrUserRejected means the operator declined a view during interactive checking; non-fatal.
	ErrUserRejected = errors.New("calibration: view rejected by operator")
	// ErrSolverFailed means the solver reported non-convergence to a non-finite state.
	ErrSolverFailed = errors.New("solver: failed to converge")
	// ErrDegenerateSample means RANSAC exhausted its resample budget without a valid span.
	ErrDegenerateSample = errors.New("odometry: degenerate sample, ransac aborted")
	// ErrProjectionInvalid means a camera projection was required to succeed but did not.
	ErrProjectionInvalid = errors.New("camera: projection invalid")
)
