package systems

import (
	"errors"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/desert/components"
	"github.com/pthm-cable/desert/config"
)

func testNests() *NestZones {
	return NewNestZones([]config.NestConfig{
		{X: 100, Y: 100, Radius: 50, Class: config.NestClassPrey, Capacity: 2},
		{X: 400, Y: 100, Radius: 50, Class: config.NestClassPredator, Capacity: 1},
		{X: 100, Y: 400, Radius: 30, Class: config.NestClassPrey, Capacity: 1},
	}, 7)
}

func TestNestZones_Admit(t *testing.T) {
	z := testNests()

	if err := z.Admit(0, 5, components.ClassPrey); err != nil {
		t.Fatalf("Admit: %v", err)
	}
	if err := z.Admit(0, 5, components.ClassPrey); err != nil {
		t.Errorf("re-admitting an occupant should be a no-op, got %v", err)
	}
	if err := z.Admit(0, 3, components.ClassPrey); err != nil {
		t.Fatalf("Admit: %v", err)
	}
	if err := z.Admit(0, 9, components.ClassPrey); !errors.Is(err, ErrNestFull) {
		t.Errorf("expected ErrNestFull, got %v", err)
	}
	if err := z.Admit(1, 9, components.ClassPrey); !errors.Is(err, ErrNestWrongKind) {
		t.Errorf("expected ErrNestWrongKind, got %v", err)
	}
	if err := z.Admit(99, 9, components.ClassPrey); !errors.Is(err, ErrNestUnknown) {
		t.Errorf("expected ErrNestUnknown, got %v", err)
	}

	n := z.Zone(0)
	if len(n.Occupants) != 2 || n.Occupants[0] != 3 || n.Occupants[1] != 5 {
		t.Errorf("occupants = %v, want [3 5]", n.Occupants)
	}
	if !n.Full() {
		t.Error("nest should be full")
	}
}

func TestNestZones_Release(t *testing.T) {
	z := testNests()
	_ = z.Admit(0, 1, components.ClassPrey)
	_ = z.Admit(2, 1, components.ClassPrey)

	if !z.Release(0, 1) {
		t.Error("Release should report the occupant")
	}
	if z.Release(0, 1) {
		t.Error("second Release should report false")
	}
	z.ReleaseAll(1)
	if z.Occupancy() != 0 {
		t.Errorf("occupancy = %d, want 0", z.Occupancy())
	}
}

func TestNestZones_Queries(t *testing.T) {
	z := testNests()

	if !z.InsidePreyNest(r2.Vec{X: 120, Y: 110}) {
		t.Error("point should be inside prey nest 0")
	}
	if z.InsidePreyNest(r2.Vec{X: 400, Y: 100}) {
		t.Error("predator nest is not a prey nest")
	}
	if i, ok := z.NestAt(r2.Vec{X: 410, Y: 90}, components.ClassPredator); !ok || i != 1 {
		t.Errorf("NestAt = %d,%v, want 1,true", i, ok)
	}
	if _, ok := z.NestAt(r2.Vec{X: 410, Y: 90}, components.ClassPrey); ok {
		t.Error("NestAt matched the wrong class")
	}
	if i, ok := z.Nearest(r2.Vec{X: 100, Y: 300}, components.ClassPrey); !ok || i != 2 {
		t.Errorf("Nearest = %d,%v, want 2,true", i, ok)
	}
}

func TestNestZones_WeakReference(t *testing.T) {
	z := testNests()
	ref := z.Ref(1)
	if n, ok := z.Resolve(ref); !ok || n.ID != 1 {
		t.Errorf("Resolve(%+v) = %v,%v", ref, n, ok)
	}

	other := NewNestZones([]config.NestConfig{{X: 1, Y: 1, Radius: 1, Class: config.NestClassPrey, Capacity: 1}, {X: 2, Y: 2, Radius: 1, Class: config.NestClassPrey, Capacity: 1}}, 8)
	if _, ok := other.Resolve(ref); ok {
		t.Error("reference from another layout should not resolve")
	}
	if _, ok := z.Resolve(components.NoNest); ok {
		t.Error("NoNest should not resolve")
	}
}

func TestNestZones_CloneIsDeep(t *testing.T) {
	z := testNests()
	_ = z.Admit(0, 4, components.ClassPrey)
	c := z.Clone()
	_ = z.Admit(0, 6, components.ClassPrey)
	if len(c.Zone(0).Occupants) != 1 {
		t.Errorf("clone shares occupants: %v", c.Zone(0).Occupants)
	}
}
