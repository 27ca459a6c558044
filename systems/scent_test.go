package systems

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/desert/config"
)

func testScentConfig() config.ScentConfig {
	return config.ScentConfig{
		CellSize:           10,
		DecayFactor:        0.9,
		CarrionDecayFactor: 0.95,
		Diffusion:          0.1,
		Epsilon:            1e-4,
		MaxIntensity:       1.0,
	}
}

func TestScentField_DepositClampsToMax(t *testing.T) {
	f := NewScentField(100, 100, testScentConfig())
	p := r2.Vec{X: 55, Y: 55}
	f.Deposit(p, ScentPrey, 0.7)
	f.Deposit(p, ScentPrey, 0.7)
	if got := f.At(p, ScentPrey); got != 1.0 {
		t.Errorf("At = %v, want 1.0", got)
	}
	if got := f.At(p, ScentPredator); got != 0 {
		t.Errorf("other layer touched: %v", got)
	}
}

func TestScentField_ReadWeightMonotone(t *testing.T) {
	f := NewScentField(200, 200, testScentConfig())
	f.Deposit(r2.Vec{X: 105, Y: 105}, ScentForage, 1)

	prev := math.Inf(1)
	for _, off := range []float64{0, 5, 10, 15, 20, 25} {
		v := f.Read(r2.Vec{X: 105 + off, Y: 105}, 30, ScentForage)
		if v > prev {
			t.Errorf("Read increased with distance at offset %v: %v > %v", off, v, prev)
		}
		prev = v
	}
	if got := f.Read(r2.Vec{X: 105, Y: 105}, 30, ScentForage); got != 1 {
		t.Errorf("Read at deposit = %v, want 1", got)
	}
	if got := f.Read(r2.Vec{X: 190, Y: 190}, 20, ScentForage); got != 0 {
		t.Errorf("Read far away = %v, want 0", got)
	}
}

func TestScentField_DecayAndEpsilon(t *testing.T) {
	cfg := testScentConfig()
	cfg.Diffusion = 0
	f := NewScentField(100, 100, cfg)
	p := r2.Vec{X: 5, Y: 5}
	f.Deposit(p, ScentPrey, 1)
	f.Deposit(p, ScentCarrion, 1)

	f.TickDecay()
	if got := f.At(p, ScentPrey); math.Abs(got-0.9) > 1e-12 {
		t.Errorf("prey after decay = %v, want 0.9", got)
	}
	if got := f.At(p, ScentCarrion); math.Abs(got-0.95) > 1e-12 {
		t.Errorf("carrion after decay = %v, want 0.95", got)
	}

	for i := 0; i < 200; i++ {
		f.TickDecay()
	}
	if got := f.At(p, ScentPrey); got != 0 {
		t.Errorf("prey should snap to zero below epsilon, got %v", got)
	}
}

func TestScentField_DiffusionConservesMass(t *testing.T) {
	cfg := testScentConfig()
	cfg.DecayFactor = 0.999999 // isolate diffusion
	cfg.Epsilon = 0
	f := NewScentField(50, 50, cfg)
	f.Deposit(r2.Vec{X: 25, Y: 25}, ScentPrey, 1)
	f.Deposit(r2.Vec{X: 0, Y: 0}, ScentPrey, 1)

	before := f.Total(ScentPrey)
	f.TickDecay()
	after := f.Total(ScentPrey) / cfg.DecayFactor
	if math.Abs(before-after) > 1e-9 {
		t.Errorf("diffusion changed total: %v -> %v", before, after)
	}
	if f.At(r2.Vec{X: 35, Y: 25}, ScentPrey) <= 0 {
		t.Error("scent did not spread to neighbour")
	}
}

func TestScentField_Gradient(t *testing.T) {
	f := NewScentField(100, 100, testScentConfig())
	f.Deposit(r2.Vec{X: 65, Y: 45}, ScentPrey, 1)

	g, ok := f.Gradient(r2.Vec{X: 55, Y: 45}, ScentPrey)
	if !ok {
		t.Fatal("expected gradient")
	}
	if g.X <= 0 || math.Abs(g.Y) > 1e-12 {
		t.Errorf("gradient = %v, want +x", g)
	}
	if _, ok := f.Gradient(r2.Vec{X: 5, Y: 95}, ScentPrey); ok {
		t.Error("flat region should report no gradient")
	}
}

func TestScentField_LayerIsCopy(t *testing.T) {
	f := NewScentField(20, 20, testScentConfig())
	f.Deposit(r2.Vec{X: 1, Y: 1}, ScentPrey, 0.5)
	l := f.Layer(ScentPrey)
	l[0] = 99
	if f.At(r2.Vec{X: 1, Y: 1}, ScentPrey) != 0.5 {
		t.Error("Layer returned internal storage")
	}
	cols, rows := f.Dims()
	if len(l) != cols*rows {
		t.Errorf("layer len %d, want %d", len(l), cols*rows)
	}
}
