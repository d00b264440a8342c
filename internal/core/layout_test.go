package core

import (
	"errors"
	"reflect"
	"testing"

	"github.com/lovenda/seatplan/internal/domain"
)

func circleAt(id string, x, y float64) domain.Table {
	return domain.Table{
		ID:       domain.TableID(id),
		Shape:    domain.ShapeCircle,
		X:        x,
		Y:        y,
		Width:    domain.DefaultCircleDiameter,
		Height:   domain.DefaultCircleDiameter,
		Capacity: 8,
	}
}

func TestAddTableSnapsToGrid(t *testing.T) {
	l := NewLayout(Bounds{})
	added, err := l.AddTable(circleAt("t1", 103, 97))
	if err != nil {
		t.Fatalf("add table: %v", err)
	}
	if added.X != 100 || added.Y != 100 {
		t.Fatalf("expected snap to (100,100), got (%v,%v)", added.X, added.Y)
	}
}

func TestPlaceTableRejectsOverlapKeepsPosition(t *testing.T) {
	l := NewLayout(Bounds{})
	if _, err := l.AddTable(circleAt("t1", 100, 100)); err != nil {
		t.Fatalf("add t1: %v", err)
	}
	if _, err := l.AddTable(circleAt("t2", 300, 100)); err != nil {
		t.Fatalf("add t2: %v", err)
	}

	pos, err := l.PlaceTable("t2", Point{X: 110, Y: 100})
	if !errors.Is(err, domain.ErrTableOverlap) {
		t.Fatalf("expected ErrTableOverlap, got %v", err)
	}
	if pos.X != 300 || pos.Y != 100 {
		t.Fatalf("rejected placement moved table: (%v,%v)", pos.X, pos.Y)
	}
	got, _ := l.Table("t2")
	if got.X != 300 || got.Y != 100 {
		t.Fatalf("stored table moved after rejection: (%v,%v)", got.X, got.Y)
	}
}

func TestPlaceTableTouchingAllowed(t *testing.T) {
	l := NewLayout(Bounds{})
	if _, err := l.AddTable(circleAt("t1", 100, 100)); err != nil {
		t.Fatalf("add t1: %v", err)
	}
	if _, err := l.AddTable(circleAt("t2", 300, 100)); err != nil {
		t.Fatalf("add t2: %v", err)
	}
	// t1 spans [70,130]; placing t2 at 160 spans [130,190]: edges touch.
	if _, err := l.PlaceTable("t2", Point{X: 160, Y: 100}); err != nil {
		t.Fatalf("touching placement rejected: %v", err)
	}
}

func TestPlaceTableUnknown(t *testing.T) {
	l := NewLayout(Bounds{})
	if _, err := l.PlaceTable("ghost", Point{}); !errors.Is(err, domain.ErrUnknownTable) {
		t.Fatalf("expected ErrUnknownTable, got %v", err)
	}
}

func TestAutoLayoutGridDeterministicAndNonOverlapping(t *testing.T) {
	tables := []domain.Table{
		circleAt("a", 0, 0),
		circleAt("b", 0, 0),
		circleAt("c", 0, 0),
		circleAt("d", 0, 0),
		circleAt("e", 0, 0),
	}
	bounds := Bounds{Width: 400, Height: 600}

	first, err := AutoLayout(tables, bounds, StrategyGrid)
	if err != nil {
		t.Fatalf("auto layout: %v", err)
	}
	second, err := AutoLayout(tables, bounds, StrategyGrid)
	if err != nil {
		t.Fatalf("auto layout again: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("grid layout not deterministic")
	}

	for i := range first {
		for j := i + 1; j < len(first); j++ {
			if overlapDepth(boundingBox(first[i]), boundingBox(first[j])) > 0 {
				t.Fatalf("tables %s and %s overlap", first[i].ID, first[j].ID)
			}
		}
	}
}

func TestAutoLayoutGridWraps(t *testing.T) {
	tables := []domain.Table{circleAt("a", 0, 0), circleAt("b", 0, 0), circleAt("c", 0, 0)}
	// Cell is 100 wide (60 + 40 gutter); width 250 fits two per row.
	out, err := AutoLayout(tables, Bounds{Width: 250, Height: 600}, StrategyGrid)
	if err != nil {
		t.Fatalf("auto layout: %v", err)
	}
	if out[0].Y != out[1].Y {
		t.Fatalf("first two tables should share a row: %v vs %v", out[0].Y, out[1].Y)
	}
	if out[2].Y <= out[1].Y {
		t.Fatalf("third table should wrap to a new row: %v", out[2].Y)
	}
	if out[2].X != out[0].X {
		t.Fatalf("wrapped row should restart at the left edge: %v vs %v", out[2].X, out[0].X)
	}
}

func TestAutoLayoutEmptyInput(t *testing.T) {
	out, err := AutoLayout(nil, Bounds{Width: 400, Height: 400}, StrategyGrid)
	if err != nil {
		t.Fatalf("auto layout: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected empty output, got %d tables", len(out))
	}
}

func TestAutoLayoutRadialDeterministic(t *testing.T) {
	tables := make([]domain.Table, 0, 8)
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		tables = append(tables, circleAt(id, 0, 0))
	}
	bounds := Bounds{Width: 1800, Height: 1200}

	first, err := AutoLayout(tables, bounds, StrategyRadial)
	if err != nil {
		t.Fatalf("radial layout: %v", err)
	}
	second, err := AutoLayout(tables, bounds, StrategyRadial)
	if err != nil {
		t.Fatalf("radial layout again: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("radial layout not deterministic")
	}
	// Input order and ids must survive relayout.
	for i := range tables {
		if first[i].ID != tables[i].ID {
			t.Fatalf("layout reordered tables: %s at %d", first[i].ID, i)
		}
	}
}

func TestAutoLayoutRejectsBadBounds(t *testing.T) {
	if _, err := AutoLayout(nil, Bounds{Width: -1, Height: 100}, StrategyGrid); !errors.Is(err, domain.ErrInvalidBounds) {
		t.Fatalf("expected ErrInvalidBounds, got %v", err)
	}
}
