package calibration

import (
	"math"

	"github.com/golang/geo/r2"

	"github.com/stereonav/vo/camera"
	"github.com/stereonav/vo/pose"
)

// Report is the outcome of AnalyzeResiduals: aggregate reprojection
// error across every accepted view, plus the subset flagged for having
// any per-corner error beyond the configured threshold.
type Report struct {
	RMSx, RMSy, MaxError float64
	Outliers             []string
	Histogram            *ResidualHistogram
}

// AnalyzeResiduals reprojects every view's grid through cam at its
// current extrinsic, accumulates the per-axis RMS and worst-case error,
// bins every delta into a diagnostic histogram, and flags any view whose
// worst delta exceeds outlierThresh (0 disables flagging).
func (e *Engine) AnalyzeResiduals(views []*View, cam *camera.Camera) *Report {
	hist := newResidualHistogram()
	var sumX, sumY, maxErr float64
	var n int
	var outliers []string

	for _, v := range views {
		pts := v.Extrinsic.Transform(e.grid)
		flagged := false
		for i, Xc := range pts {
			p, ok := cam.Project(Xc)
			if !ok {
				continue
			}
			delta := r2.Point{X: v.Observations[i].X - p.X, Y: v.Observations[i].Y - p.Y}
			hist.Add(delta)

			dx, dy := delta.X*delta.X, delta.Y*delta.Y
			sumX += dx
			sumY += dy
			n++
			if dx+dy > maxErr {
				maxErr = dx + dy
			}
			if e.cfg.OutlierThreshold != 0 && dx+dy > e.cfg.OutlierThreshold*e.cfg.OutlierThreshold {
				flagged = true
			}
		}
		if flagged {
			outliers = append(outliers, v.ImagePath)
		}
	}

	report := &Report{Outliers: outliers, Histogram: hist}
	if n > 0 {
		report.RMSx = math.Sqrt(sumX / float64(n))
		report.RMSy = math.Sqrt(sumY / float64(n))
		report.MaxError = math.Sqrt(maxErr)
	}
	e.log.Infow("residual analysis", "rmsX", report.RMSx, "rmsY", report.RMSy,
		"maxErr", report.MaxError, "outlierViews", len(outliers))
	return report
}

// AnalyzeResidualsRef is a reference-frame variant: views are expressed
// relative to refToCam rather than assumed already in camera frame.
func (e *Engine) AnalyzeResidualsRef(views []*View, cam *camera.Camera, refToCam *pose.Transform) *Report {
	shifted := make([]*View, len(views))
	for i, v := range views {
		camToGrid := refToCam.InverseCompose(v.Extrinsic)
		shifted[i] = &View{ImagePath: v.ImagePath, Observations: v.Observations, Extrinsic: camToGrid}
	}
	return e.AnalyzeResiduals(shifted, cam)
}
