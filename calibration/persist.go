package calibration

import (
	"bufio"
	"fmt"
	"io"
)

// WriteState persists a calibration result as whitespace-separated
// doubles: the intrinsic vector on the first line, then one line per
// view holding that view's six extrinsic scalars (translation, then
// axis-angle rotation), in the same order as views.
func WriteState(w io.Writer, intrinsics []float64, views []*View) error {
	bw := bufio.NewWriter(w)
	if err := writeRow(bw, intrinsics); err != nil {
		return err
	}
	for _, v := range views {
		if err := writeRow(bw, v.Extrinsic.Data()); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func writeRow(w *bufio.Writer, row []float64) error {
	for i, v := range row {
		if i > 0 {
			if _, err := w.WriteString(" "); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "%.17g", v); err != nil {
			return err
		}
	}
	_, err := w.WriteString("\n")
	return err
}
