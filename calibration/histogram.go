package calibration

import (
	"fmt"
	"sort"

	"github.com/golang/geo/r2"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// histogramBinSize is the reprojection-error bin width, in pixels.
const histogramBinSize = 0.01

// ResidualHistogram accumulates every per-corner reprojection delta from
// a calibration run, binned independently on each axis at 0.01px
// resolution, for the diagnostic scatter/count plot emitted alongside a
// Report.
type ResidualHistogram struct {
	deltas []r2.Point
	binsX  map[int]int
	binsY  map[int]int
}

func newResidualHistogram() *ResidualHistogram {
	return &ResidualHistogram{
		binsX: make(map[int]int),
		binsY: make(map[int]int),
	}
}

// Add records one corner's (observed - projected) delta.
func (h *ResidualHistogram) Add(delta r2.Point) {
	h.deltas = append(h.deltas, delta)
	h.binsX[binIndex(delta.X)]++
	h.binsY[binIndex(delta.Y)]++
}

func binIndex(v float64) int {
	if v >= 0 {
		return int(v/histogramBinSize + 0.5)
	}
	return -int(-v/histogramBinSize + 0.5)
}

// PlotPNG renders a scatter of every recorded delta alongside per-axis
// error-count line plots, saving three PNG files under dir with the
// given basename prefix.
func (h *ResidualHistogram) PlotPNG(dir, basename string) error {
	scatter, err := h.scatterPlot()
	if err != nil {
		return err
	}
	if err := scatter.Save(8*vg.Inch, 8*vg.Inch, fmt.Sprintf("%s/%s_scatter.png", dir, basename)); err != nil {
		return err
	}

	xHist, err := axisCountPlot(h.binsX, "Δx (px)")
	if err != nil {
		return err
	}
	if err := xHist.Save(10*vg.Inch, 5*vg.Inch, fmt.Sprintf("%s/%s_hist_x.png", dir, basename)); err != nil {
		return err
	}

	yHist, err := axisCountPlot(h.binsY, "Δy (px)")
	if err != nil {
		return err
	}
	return yHist.Save(10*vg.Inch, 5*vg.Inch, fmt.Sprintf("%s/%s_hist_y.png", dir, basename))
}

func (h *ResidualHistogram) scatterPlot() (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Reprojection residuals"
	p.X.Label.Text = "Δx (px)"
	p.Y.Label.Text = "Δy (px)"

	pts := make(plotter.XYs, len(h.deltas))
	for i, d := range h.deltas {
		pts[i] = plotter.XY{X: d.X, Y: d.Y}
	}
	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return nil, err
	}
	scatter.GlyphStyle.Radius = vg.Points(1.5)
	p.Add(scatter)
	return p, nil
}

func axisCountPlot(bins map[int]int, label string) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = label + " distribution"
	p.X.Label.Text = label
	p.Y.Label.Text = "count"

	keys := make([]int, 0, len(bins))
	for k := range bins {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	pts := make(plotter.XYs, len(keys))
	for i, k := range keys {
		pts[i] = plotter.XY{X: float64(k) * histogramBinSize, Y: float64(bins[k])}
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	line.Width = vg.Points(1)
	p.Add(line)
	return p, nil
}
