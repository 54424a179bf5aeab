package calibration

import (
	"bytes"
	"math"
	"os"
	"strings"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/stereonav/vo/camera"
	"github.com/stereonav/vo/pose"
	"github.com/stereonav/vo/xlog"
)

func testCam() *camera.Camera {
	return camera.New(camera.MeiProjector{}, []float64{0.3, 0.05, 480, 470, 320, 240})
}

func TestLoadConfigParsesHeaderAndImageList(t *testing.T) {
	src := "9 6 0.025 2.0 1\n/data/boards/\nimg000.png\nimg001.png\nimg002.png\n"
	dir := t.TempDir()
	path := dir + "/info.txt"
	test.That(t, os.WriteFile(path, []byte(src), 0o644), test.ShouldBeNil)

	cfg, err := LoadConfig(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.Nx, test.ShouldEqual, 9)
	test.That(t, cfg.Ny, test.ShouldEqual, 6)
	test.That(t, cfg.SquareSize, test.ShouldAlmostEqual, 0.025, 1e-12)
	test.That(t, cfg.OutlierThreshold, test.ShouldAlmostEqual, 2.0, 1e-12)
	test.That(t, cfg.CheckExtraction, test.ShouldBeTrue)
	test.That(t, cfg.ImageFolder, test.ShouldEqual, "/data/boards/")
	test.That(t, len(cfg.ImagePaths), test.ShouldEqual, 3)
	test.That(t, cfg.ImagePaths[0], test.ShouldEqual, "/data/boards/img000.png")
}

func TestLoadConfigRejectsMalformedHeader(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/info.txt"
	test.That(t, os.WriteFile(path, []byte("9 6 0.025\n"), 0o644), test.ShouldBeNil)

	_, err := LoadConfig(path)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestBuildGridRowMajorAtZ0(t *testing.T) {
	grid := BuildGrid(3, 2, 0.5)
	test.That(t, len(grid), test.ShouldEqual, 6)
	test.That(t, grid[0], test.ShouldResemble, r3.Vector{X: 0, Y: 0, Z: 0})
	test.That(t, grid[1], test.ShouldResemble, r3.Vector{X: 0.5, Y: 0, Z: 0})
	test.That(t, grid[3], test.ShouldResemble, r3.Vector{X: 0, Y: 0.5, Z: 0})
}

// TestInitializeViewsRecoversKnownExtrinsic drives an end-to-end round
// trip: a known board pose is projected into synthetic observations, and
// InitializeViews (from the (0,0,1,0,0,0) fixed initial guess) must
// recover that pose.
func TestInitializeViewsRecoversKnownExtrinsic(t *testing.T) {
	cam := testCam()
	log := xlog.New("test")
	cfg := &Config{Nx: 4, Ny: 3, SquareSize: 0.03}
	eng := NewEngine(cfg, log)

	truth := pose.New(r3.Vector{X: 0.05, Y: -0.02, Z: 0.6}, r3.Vector{X: 0.1, Y: -0.05, Z: 0.02})
	world := eng.Grid()
	camPts := truth.Transform(world)

	obs := make([]r2.Point, len(camPts))
	for i, X := range camPts {
		p, ok := cam.Project(X)
		test.That(t, ok, test.ShouldBeTrue)
		obs[i] = p
	}

	v := NewView("board0.png", obs)
	err := eng.InitializeViews([]*View{v}, cam)
	test.That(t, err, test.ShouldBeNil)

	got := v.Extrinsic.TransVec()
	test.That(t, got.X, test.ShouldAlmostEqual, truth.TransVec().X, 1e-2)
	test.That(t, got.Y, test.ShouldAlmostEqual, truth.TransVec().Y, 1e-2)
	test.That(t, got.Z, test.ShouldAlmostEqual, truth.TransVec().Z, 1e-2)
}

// TestRefineJointRecoversPerturbedIntrinsicsAndExtrinsics drives the
// joint refinement step end to end: ten known views of the same grid
// under the true intrinsics, both the intrinsic vector (+5% on every
// entry) and every
// view's extrinsic (+0.01 per raw component) perturbed away from truth,
// and RefineJoint must recover both.
func TestRefineJointRecoversPerturbedIntrinsicsAndExtrinsics(t *testing.T) {
	trueIntrinsics := []float64{0.3, 0.05, 480, 470, 320, 240}
	cam := camera.New(camera.MeiProjector{}, append([]float64(nil), trueIntrinsics...))
	log := xlog.New("test")
	cfg := &Config{Nx: 4, Ny: 3, SquareSize: 0.03}
	eng := NewEngine(cfg, log)
	world := eng.Grid()

	const numViews = 10
	trueExtrinsics := make([]*pose.Transform, numViews)
	views := make([]*View, numViews)
	for i := 0; i < numViews; i++ {
		f := float64(i)
		truth := pose.New(
			r3.Vector{X: 0.02*f - 0.1, Y: 0.01*f - 0.05, Z: 0.5 + 0.03*f},
			r3.Vector{X: 0.05*f - 0.2, Y: 0.03*f - 0.1, Z: 0.02*f - 0.05},
		)
		trueExtrinsics[i] = truth

		camPts := truth.Transform(world)
		obs := make([]r2.Point, len(camPts))
		for j, X := range camPts {
			p, ok := cam.Project(X)
			test.That(t, ok, test.ShouldBeTrue)
			obs[j] = p
		}

		v := NewView("board.png", obs)
		perturbedData := append([]float64(nil), truth.Data()...)
		for j := range perturbedData {
			perturbedData[j] += 0.01
		}
		v.Extrinsic = pose.FromSlice(perturbedData)
		views[i] = v
	}

	intrinsics := make([]float64, len(trueIntrinsics))
	for i, v := range trueIntrinsics {
		intrinsics[i] = v * 1.05
	}

	err := eng.RefineJoint(views, camera.MeiProjector{}, intrinsics)
	test.That(t, err, test.ShouldBeNil)

	for i, want := range trueIntrinsics {
		rel := math.Abs(intrinsics[i]-want) / math.Abs(want)
		test.That(t, rel, test.ShouldBeLessThan, 1e-4)
	}

	for i, want := range trueExtrinsics {
		got := views[i].Extrinsic.TransVec()
		wantVec := want.TransVec()
		test.That(t, math.Abs(got.X-wantVec.X), test.ShouldBeLessThan, 1e-4)
		test.That(t, math.Abs(got.Y-wantVec.Y), test.ShouldBeLessThan, 1e-4)
		test.That(t, math.Abs(got.Z-wantVec.Z), test.ShouldBeLessThan, 1e-4)
	}
}

func TestAnalyzeResidualsFlagsOutlierView(t *testing.T) {
	cam := testCam()
	log := xlog.New("test")
	cfg := &Config{Nx: 3, Ny: 3, SquareSize: 0.04, OutlierThreshold: 1.0}
	eng := NewEngine(cfg, log)

	truth := pose.New(r3.Vector{X: 0, Y: 0, Z: 0.5}, r3.Vector{})
	world := eng.Grid()
	camPts := truth.Transform(world)

	obs := make([]r2.Point, len(camPts))
	for i, X := range camPts {
		p, ok := cam.Project(X)
		test.That(t, ok, test.ShouldBeTrue)
		obs[i] = p
	}
	obs[0].X += 50 // inject one gross outlier corner

	v := NewView("bad.png", obs)
	v.Extrinsic = truth.Clone()

	report := eng.AnalyzeResiduals([]*View{v}, cam)
	test.That(t, len(report.Outliers), test.ShouldEqual, 1)
	test.That(t, report.Outliers[0], test.ShouldEqual, "bad.png")
	test.That(t, report.MaxError, test.ShouldBeGreaterThan, 40.0)
}

func TestResidualHistogramBinsBothAxes(t *testing.T) {
	h := newResidualHistogram()
	h.Add(r2.Point{X: 0.02, Y: -0.01})
	h.Add(r2.Point{X: 0.021, Y: -0.011})
	h.Add(r2.Point{X: -3.0, Y: 4.0})

	test.That(t, len(h.deltas), test.ShouldEqual, 3)
	test.That(t, h.binsX[binIndex(0.02)], test.ShouldEqual, 2)
}

func TestWriteStateFormatsOneRowPerBlock(t *testing.T) {
	intrinsics := []float64{0.3, 0.05, 480, 470, 320, 240}
	v := NewView("a.png", nil)
	var buf bytes.Buffer
	err := WriteState(&buf, intrinsics, []*View{v})
	test.That(t, err, test.ShouldBeNil)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	test.That(t, len(lines), test.ShouldEqual, 2)
	test.That(t, len(strings.Fields(lines[0])), test.ShouldEqual, 6)
	test.That(t, len(strings.Fields(lines[1])), test.ShouldEqual, 6)
}
