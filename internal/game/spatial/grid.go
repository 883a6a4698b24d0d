// Package spatial provides the uniform grid used as the broad phase for
// perception queries.
//
// The grid stores integer indices into a caller-owned entity slice rather
// than pointers, so clearing and refilling it every tick allocates nothing
// once cells have grown to their working size.
package spatial

import (
	"math"
)

// SpatialGrid buckets entity indices into fixed-size square cells.
//
// A query with radius r visits every cell overlapping the square
// [cx-r, cx+r] x [cy-r, cy+r]; with cellSize close to the typical query
// radius that is at most 3x3 cells.
//
// Positions outside the world bounds are clamped into the edge cells, so
// entities pushed slightly past a wall are still found.
type SpatialGrid struct {
	cellSize    float64
	invCellSize float64
	cols, rows  int
	cells       [][]uint32 // row-major: cells[row*cols+col]
	scratch     []uint32   // reused by QueryRadius
	count       int
}

// NewSpatialGrid creates a grid covering worldWidth x worldHeight.
// capacity is a hint for the expected number of entities.
func NewSpatialGrid(worldWidth, worldHeight, cellSize float64, capacity int) *SpatialGrid {
	if cellSize <= 0 {
		cellSize = math.Max(worldWidth, worldHeight)
	}
	cols := int(math.Ceil(worldWidth / cellSize))
	rows := int(math.Ceil(worldHeight / cellSize))
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}

	cells := make([][]uint32, cols*rows)
	perCell := capacity / len(cells)
	if perCell < 4 {
		perCell = 4
	}
	for i := range cells {
		cells[i] = make([]uint32, 0, perCell)
	}

	return &SpatialGrid{
		cellSize:    cellSize,
		invCellSize: 1.0 / cellSize,
		cols:        cols,
		rows:        rows,
		cells:       cells,
		scratch:     make([]uint32, 0, 64),
	}
}

// Clear empties every cell, keeping capacity.
func (g *SpatialGrid) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
	g.count = 0
}

// Insert files entity id under the cell containing (x, y).
func (g *SpatialGrid) Insert(id uint32, x, y float64) {
	col, row := g.clampCell(x, y)
	idx := row*g.cols + col
	g.cells[idx] = append(g.cells[idx], id)
	g.count++
}

// QueryRadius returns every id filed in a cell that the circle (cx, cy, radius)
// may touch. Candidates can lie outside the circle; callers run the exact
// distance check themselves.
//
// The returned slice is reused by the next call.
func (g *SpatialGrid) QueryRadius(cx, cy, radius float64) []uint32 {
	g.scratch = g.scratch[:0]

	minCol, minRow := g.clampCell(cx-radius, cy-radius)
	maxCol, maxRow := g.clampCell(cx+radius, cy+radius)

	for row := minRow; row <= maxRow; row++ {
		for col := minCol; col <= maxCol; col++ {
			g.scratch = append(g.scratch, g.cells[row*g.cols+col]...)
		}
	}
	return g.scratch
}

// Len returns the number of inserted ids.
func (g *SpatialGrid) Len() int {
	return g.count
}

// Dimensions returns the grid dimensions.
func (g *SpatialGrid) Dimensions() (cols, rows int, cellSize float64) {
	return g.cols, g.rows, g.cellSize
}

func (g *SpatialGrid) clampCell(x, y float64) (col, row int) {
	col = int(math.Floor(x * g.invCellSize))
	row = int(math.Floor(y * g.invCellSize))

	if col < 0 {
		col = 0
	}
	if col >= g.cols {
		col = g.cols - 1
	}
	if row < 0 {
		row = 0
	}
	if row >= g.rows {
		row = g.rows - 1
	}
	return col, row
}
