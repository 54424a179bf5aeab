package calibration

import "github.com/golang/geo/r3"

// BuildGrid constructs the Z=0 planar target: point i is at
// (sqSize*(i mod nx), sqSize*(i div nx), 0), row-major over an nx-by-ny
// board.
func BuildGrid(nx, ny int, sqSize float64) []r3.Vector {
	grid := make([]r3.Vector, nx*ny)
	for i := range grid {
		grid[i] = r3.Vector{
			X: sqSize * float64(i%nx),
			Y: sqSize * float64(i/nx),
			Z: 0,
		}
	}
	return grid
}
