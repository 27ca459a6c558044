package systems

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/desert/config"
)

// ScentClass selects a scent layer.
type ScentClass uint8

const (
	ScentPrey     ScentClass = iota // herbivore movement trail
	ScentPredator                   // predator movement trail
	ScentForage                     // left where herbivores graze
	ScentCarrion                    // left where an animal dies
	NumScentClasses
)

var scentNames = [NumScentClasses]string{"prey", "predator", "forage", "carrion"}

func (c ScentClass) String() string {
	if c < NumScentClasses {
		return scentNames[c]
	}
	return "unknown"
}

// ScentField is a set of coarse grids of decaying, diffusing scent intensity.
type ScentField struct {
	cfg      config.ScentConfig
	cellSize float64
	cols     int
	rows     int
	layers   [NumScentClasses][]float64
	scratch  []float64
}

// NewScentField creates an empty field covering the given world size.
func NewScentField(width, height float64, cfg config.ScentConfig) *ScentField {
	cols := int(math.Ceil(width / cfg.CellSize))
	rows := int(math.Ceil(height / cfg.CellSize))
	cols, rows = max(cols, 1), max(rows, 1)

	f := &ScentField{
		cfg:      cfg,
		cellSize: cfg.CellSize,
		cols:     cols,
		rows:     rows,
		scratch:  make([]float64, cols*rows),
	}
	for i := range f.layers {
		f.layers[i] = make([]float64, cols*rows)
	}
	return f
}

// Dims returns the grid size in cells.
func (f *ScentField) Dims() (cols, rows int) {
	return f.cols, f.rows
}

// CellSize returns the edge length of one cell in world units.
func (f *ScentField) CellSize() float64 {
	return f.cellSize
}

func (f *ScentField) cell(p r2.Vec) (col, row int) {
	col = int(math.Floor(p.X / f.cellSize))
	row = int(math.Floor(p.Y / f.cellSize))
	return clampInt(col, 0, f.cols-1), clampInt(row, 0, f.rows-1)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Deposit adds strength to the cell under p, capped at the configured maximum.
func (f *ScentField) Deposit(p r2.Vec, class ScentClass, strength float64) {
	if class >= NumScentClasses || strength <= 0 {
		return
	}
	col, row := f.cell(p)
	i := row*f.cols + col
	f.layers[class][i] = math.Min(f.layers[class][i]+strength, f.cfg.MaxIntensity)
}

// At returns the raw value of the cell under p.
func (f *ScentField) At(p r2.Vec, class ScentClass) float64 {
	col, row := f.cell(p)
	return f.layers[class][row*f.cols+col]
}

// Read returns the distance-weighted sum of cells whose centre lies within
// radius of p. The weight falls linearly from 1 at p.
func (f *ScentField) Read(p r2.Vec, radius float64, class ScentClass) float64 {
	if class >= NumScentClasses || radius < 0 {
		return 0
	}
	layer := f.layers[class]
	span := radius + f.cellSize
	c0, r0 := f.cell(r2.Vec{X: p.X - radius, Y: p.Y - radius})
	c1, r1 := f.cell(r2.Vec{X: p.X + radius, Y: p.Y + radius})

	var sum float64
	for row := r0; row <= r1; row++ {
		for col := c0; col <= c1; col++ {
			v := layer[row*f.cols+col]
			if v == 0 {
				continue
			}
			centre := r2.Vec{X: (float64(col) + 0.5) * f.cellSize, Y: (float64(row) + 0.5) * f.cellSize}
			d := distance(centre, p)
			if d > radius {
				continue
			}
			sum += v * (1 - d/span)
		}
	}
	return sum
}

// Gradient returns the unit direction of increasing scent at p using central
// differences. ok is false where the field is flat.
func (f *ScentField) Gradient(p r2.Vec, class ScentClass) (r2.Vec, bool) {
	if class >= NumScentClasses {
		return r2.Vec{}, false
	}
	layer := f.layers[class]
	col, row := f.cell(p)
	at := func(c, r int) float64 {
		return layer[clampInt(r, 0, f.rows-1)*f.cols+clampInt(c, 0, f.cols-1)]
	}
	g := r2.Vec{
		X: at(col+1, row) - at(col-1, row),
		Y: at(col, row+1) - at(col, row-1),
	}
	if g.X == 0 && g.Y == 0 {
		return r2.Vec{}, false
	}
	return unit(g), true
}

// TickDecay diffuses every layer to its four neighbours, applies decay and
// snaps cells below epsilon to zero. Edges reflect so diffusion conserves mass.
func (f *ScentField) TickDecay() {
	for class := range f.layers {
		layer := f.layers[class]
		if f.cfg.Diffusion > 0 {
			f.diffuse(layer)
		}
		decay := f.cfg.DecayFactor
		if ScentClass(class) == ScentCarrion {
			decay = f.cfg.CarrionDecayFactor
		}
		floats.Scale(decay, layer)
		for i, v := range layer {
			if v < f.cfg.Epsilon {
				layer[i] = 0
			}
		}
	}
}

func (f *ScentField) diffuse(layer []float64) {
	next := f.scratch
	d := f.cfg.Diffusion
	for row := 0; row < f.rows; row++ {
		for col := 0; col < f.cols; col++ {
			i := row*f.cols + col
			v := layer[i]
			n := v
			if row > 0 {
				n = layer[i-f.cols]
			}
			s := v
			if row < f.rows-1 {
				s = layer[i+f.cols]
			}
			w := v
			if col > 0 {
				w = layer[i-1]
			}
			e := v
			if col < f.cols-1 {
				e = layer[i+1]
			}
			next[i] = v + d*(n+s+w+e-4*v)
		}
	}
	copy(layer, next)
}

// Total returns the summed intensity of one layer.
func (f *ScentField) Total(class ScentClass) float64 {
	if class >= NumScentClasses {
		return 0
	}
	return floats.Sum(f.layers[class])
}

// Layer returns a copy of one layer in row-major order.
func (f *ScentField) Layer(class ScentClass) []float64 {
	return append([]float64(nil), f.layers[class]...)
}

// Reset zeroes every layer.
func (f *ScentField) Reset() {
	for _, layer := range f.layers {
		clear(layer)
	}
}
