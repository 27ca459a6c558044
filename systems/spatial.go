// Package systems provides the simulation rules: spatial and scent indexing,
// genetics, energy, decisions and reproduction.
package systems

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/spatial/r2"
)

// SpatialIndex provides neighbor lookups over a uniform bucket grid.
// It is rebuilt once per tick and read concurrently during decisions.
type SpatialIndex struct {
	cellSize float64
	cols     int
	rows     int
	cells    [][]uint32
	pos      map[uint32]r2.Vec
	cellOf   map[uint32]int
}

// NewSpatialIndex creates an index covering the given world size.
func NewSpatialIndex(width, height, cellSize float64) *SpatialIndex {
	if cellSize <= 0 {
		cellSize = math.Max(width, height)
	}
	cols := int(width/cellSize) + 1
	rows := int(height/cellSize) + 1

	cells := make([][]uint32, cols*rows)
	for i := range cells {
		cells[i] = make([]uint32, 0, 8)
	}

	return &SpatialIndex{
		cellSize: cellSize,
		cols:     cols,
		rows:     rows,
		cells:    cells,
		pos:      make(map[uint32]r2.Vec),
		cellOf:   make(map[uint32]int),
	}
}

// Clear removes every id.
func (g *SpatialIndex) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
	clear(g.pos)
	clear(g.cellOf)
}

// Len returns the number of indexed ids.
func (g *SpatialIndex) Len() int {
	return len(g.pos)
}

// Insert adds id at p, moving it if already present.
func (g *SpatialIndex) Insert(id uint32, p r2.Vec) {
	if _, ok := g.pos[id]; ok {
		g.Remove(id)
	}
	idx := g.cellIndex(p)
	g.cells[idx] = append(g.cells[idx], id)
	g.pos[id] = p
	g.cellOf[id] = idx
}

// Remove drops id. Unknown ids are ignored.
func (g *SpatialIndex) Remove(id uint32) {
	idx, ok := g.cellOf[id]
	if !ok {
		return
	}
	cell := g.cells[idx]
	for i, v := range cell {
		if v == id {
			cell[i] = cell[len(cell)-1]
			g.cells[idx] = cell[:len(cell)-1]
			break
		}
	}
	delete(g.pos, id)
	delete(g.cellOf, id)
}

// Position returns the indexed position of id.
func (g *SpatialIndex) Position(id uint32) (r2.Vec, bool) {
	p, ok := g.pos[id]
	return p, ok
}

// QueryRadius returns ids within radius of p, sorted ascending.
func (g *SpatialIndex) QueryRadius(p r2.Vec, radius float64) []uint32 {
	return g.QueryRadiusInto(nil, p, radius)
}

// QueryRadiusInto appends ids within radius of p to dst and returns it sorted
// ascending. Reuse dst across calls to avoid allocations.
func (g *SpatialIndex) QueryRadiusInto(dst []uint32, p r2.Vec, radius float64) []uint32 {
	dst = dst[:0]
	if radius < 0 {
		return dst
	}
	radiusSq := radius * radius
	c0, r0 := g.cellCoords(r2.Vec{X: p.X - radius, Y: p.Y - radius})
	c1, r1 := g.cellCoords(r2.Vec{X: p.X + radius, Y: p.Y + radius})

	for row := r0; row <= r1; row++ {
		for col := c0; col <= c1; col++ {
			for _, id := range g.cells[row*g.cols+col] {
				d := r2.Sub(g.pos[id], p)
				if d.X*d.X+d.Y*d.Y <= radiusSq {
					dst = append(dst, id)
				}
			}
		}
	}
	slices.Sort(dst)
	return dst
}

// Nearest returns the closest id within radius of p that passes accept.
// Ties go to the lower id. A nil accept matches every id.
func (g *SpatialIndex) Nearest(p r2.Vec, radius float64, accept func(id uint32) bool) (uint32, bool) {
	var (
		best   uint32
		bestSq = math.Inf(1)
		found  bool
	)
	for _, id := range g.QueryRadius(p, radius) {
		if accept != nil && !accept(id) {
			continue
		}
		d := r2.Sub(g.pos[id], p)
		dsq := d.X*d.X + d.Y*d.Y
		// ids arrive ascending, so strict less keeps the lower id on ties
		if dsq < bestSq {
			best, bestSq, found = id, dsq, true
		}
	}
	return best, found
}

func (g *SpatialIndex) cellCoords(p r2.Vec) (col, row int) {
	col = int(math.Floor(p.X / g.cellSize))
	row = int(math.Floor(p.Y / g.cellSize))

	// Clamp to valid range
	if col < 0 {
		col = 0
	} else if col >= g.cols {
		col = g.cols - 1
	}
	if row < 0 {
		row = 0
	} else if row >= g.rows {
		row = g.rows - 1
	}
	return col, row
}

func (g *SpatialIndex) cellIndex(p r2.Vec) int {
	col, row := g.cellCoords(p)
	return row*g.cols + col
}
