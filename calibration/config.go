// Package calibration implements the five-step calibration pipeline:
// per-view corner extraction is delegated to an external collaborator
// (§6), but grid construction, per-view extrinsic initialization, joint
// intrinsic+extrinsic refinement and residual analysis all live here.
package calibration

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/stereonav/vo/xerrors"
)

// Config is the parsed calibration info file: a header line of five
// whitespace-separated tokens, an image-folder line, then one image
// name per line until a blank line or EOF.
type Config struct {
	Nx, Ny           int
	SquareSize       float64
	OutlierThreshold float64
	CheckExtraction  bool
	ImageFolder      string
	ImagePaths       []string
}

// LoadConfig reads and parses an info file at path.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(xerrors.ErrConfigMissing, "%s: %v", path, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	if !sc.Scan() {
		return nil, errors.Wrap(xerrors.ErrConfigMalformed, "empty info file")
	}
	fields := strings.Fields(sc.Text())
	if len(fields) != 5 {
		return nil, errors.Wrapf(xerrors.ErrConfigMalformed, "header wants 5 fields, got %d", len(fields))
	}

	nx, err1 := strconv.Atoi(fields[0])
	ny, err2 := strconv.Atoi(fields[1])
	sq, err3 := strconv.ParseFloat(fields[2], 64)
	outlier, err4 := strconv.ParseFloat(fields[3], 64)
	checkRaw, err5 := strconv.Atoi(fields[4])
	for _, e := range []error{err1, err2, err3, err4, err5} {
		if e != nil {
			return nil, errors.Wrapf(xerrors.ErrConfigMalformed, "header field: %v", e)
		}
	}
	if nx <= 0 || ny <= 0 {
		return nil, errors.Wrap(xerrors.ErrConfigMalformed, "Nx and Ny must be positive")
	}
	if sq <= 0 {
		return nil, errors.Wrap(xerrors.ErrConfigMalformed, "sqSize must be positive")
	}

	if !sc.Scan() {
		return nil, errors.Wrap(xerrors.ErrConfigMalformed, "missing image folder line")
	}
	folder := sc.Text()

	var paths []string
	for sc.Scan() {
		name := sc.Text()
		if name == "" {
			break
		}
		paths = append(paths, folder+name)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(xerrors.ErrConfigMalformed, err.Error())
	}

	return &Config{
		Nx:               nx,
		Ny:               ny,
		SquareSize:       sq,
		OutlierThreshold: outlier,
		CheckExtraction:  checkRaw != 0,
		ImageFolder:      folder,
		ImagePaths:       paths,
	}, nil
}
