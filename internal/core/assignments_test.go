package core

import (
	"errors"
	"testing"

	"github.com/lovenda/seatplan/internal/domain"
)

func fixedCapacity(tables map[domain.TableID]int) CapacityFunc {
	return func(id domain.TableID) (int, bool) {
		c, ok := tables[id]
		return c, ok
	}
}

// checkInvariants asserts no seat is double-booked and no guest appears
// twice, which must hold after every mutation.
func checkInvariants(t *testing.T, a *Assignments) {
	t.Helper()
	seats := make(map[[2]any]domain.GuestID)
	guests := make(map[domain.GuestID]bool)
	for _, asg := range a.Snapshot() {
		key := [2]any{asg.TableID, asg.SeatIndex}
		if holder, dup := seats[key]; dup {
			t.Fatalf("seat %v double booked by %s and %s", key, holder, asg.GuestID)
		}
		seats[key] = asg.GuestID
		if guests[asg.GuestID] {
			t.Fatalf("guest %s assigned twice", asg.GuestID)
		}
		guests[asg.GuestID] = true
	}
}

func TestAssignErrors(t *testing.T) {
	a := NewAssignments(fixedCapacity(map[domain.TableID]int{"t1": 2}))

	if err := a.Assign("g1", "t1", 0); err != nil {
		t.Fatalf("assign g1: %v", err)
	}

	tests := []struct {
		name  string
		guest domain.GuestID
		table domain.TableID
		seat  int
		want  error
	}{
		{name: "occupied", guest: "g2", table: "t1", seat: 0, want: domain.ErrSeatOccupied},
		{name: "already seated", guest: "g1", table: "t1", seat: 1, want: domain.ErrGuestAlreadySeated},
		{name: "out of range", guest: "g3", table: "t1", seat: 2, want: domain.ErrSeatOutOfRange},
		{name: "negative seat", guest: "g3", table: "t1", seat: -1, want: domain.ErrSeatOutOfRange},
		{name: "unknown table", guest: "g3", table: "nope", seat: 0, want: domain.ErrUnknownTable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := a.Assign(tt.guest, tt.table, tt.seat); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			checkInvariants(t, a)
		})
	}

	// Re-asserting the exact same assignment is not an error.
	if err := a.Assign("g1", "t1", 0); err != nil {
		t.Fatalf("idempotent re-assign: %v", err)
	}
}

func TestUnassignIdempotent(t *testing.T) {
	a := NewAssignments(fixedCapacity(map[domain.TableID]int{"t1": 2}))
	a.Unassign("ghost")
	if err := a.Assign("g1", "t1", 0); err != nil {
		t.Fatalf("assign: %v", err)
	}
	a.Unassign("g1")
	a.Unassign("g1")
	if a.Len() != 0 {
		t.Fatalf("expected empty book, got %d", a.Len())
	}
}

func TestMoveAtomic(t *testing.T) {
	a := NewAssignments(fixedCapacity(map[domain.TableID]int{"t1": 2, "t2": 1}))
	if err := a.Assign("g1", "t1", 0); err != nil {
		t.Fatalf("assign g1: %v", err)
	}
	if err := a.Assign("g2", "t2", 0); err != nil {
		t.Fatalf("assign g2: %v", err)
	}

	// Target occupied: move fails, original stays.
	if err := a.Move("g1", "t2", 0); !errors.Is(err, domain.ErrSeatOccupied) {
		t.Fatalf("expected ErrSeatOccupied, got %v", err)
	}
	if asg, ok := a.Of("g1"); !ok || asg.TableID != "t1" || asg.SeatIndex != 0 {
		t.Fatalf("failed move mutated assignment: %+v ok=%v", asg, ok)
	}

	// Target out of range: same story.
	if err := a.Move("g1", "t1", 5); !errors.Is(err, domain.ErrSeatOutOfRange) {
		t.Fatalf("expected ErrSeatOutOfRange, got %v", err)
	}
	if _, ok := a.Of("g1"); !ok {
		t.Fatalf("failed move dropped assignment")
	}

	// Valid move frees the old seat.
	if err := a.Move("g1", "t1", 1); err != nil {
		t.Fatalf("move: %v", err)
	}
	if _, taken := a.SeatHolder("t1", 0); taken {
		t.Fatalf("old seat still occupied after move")
	}
	checkInvariants(t, a)
}

// Mirrors the drag-drop flow end to end: place a table, seat two guests
// around a contested seat, move one, retry.
func TestSeatContentionScenario(t *testing.T) {
	l := NewLayout(Bounds{})
	table, err := domain.NewTable(domain.ShapeCircle, 100, 100, 0, 0, 8)
	if err != nil {
		t.Fatalf("new table: %v", err)
	}
	table.ID = "T1"
	if _, err := l.AddTable(table); err != nil {
		t.Fatalf("place table: %v", err)
	}

	a := NewAssignments(l.Capacity)
	if err := a.Assign("g1", "T1", 0); err != nil {
		t.Fatalf("assign g1: %v", err)
	}
	if err := a.Assign("g2", "T1", 0); !errors.Is(err, domain.ErrSeatOccupied) {
		t.Fatalf("expected ErrSeatOccupied, got %v", err)
	}
	if err := a.Move("g1", "T1", 1); err != nil {
		t.Fatalf("move g1: %v", err)
	}
	if err := a.Assign("g2", "T1", 0); err != nil {
		t.Fatalf("assign g2 after move: %v", err)
	}
	checkInvariants(t, a)
}

func TestDropTableCascades(t *testing.T) {
	a := NewAssignments(fixedCapacity(map[domain.TableID]int{"t1": 4, "t2": 4}))
	for i, g := range []domain.GuestID{"g1", "g2", "g3"} {
		if err := a.Assign(g, "t1", i); err != nil {
			t.Fatalf("assign %s: %v", g, err)
		}
	}
	if err := a.Assign("g4", "t2", 0); err != nil {
		t.Fatalf("assign g4: %v", err)
	}

	evicted := a.DropTable("t1")
	if len(evicted) != 3 {
		t.Fatalf("expected 3 evicted, got %v", evicted)
	}
	if a.Len() != 1 {
		t.Fatalf("expected only g4 left, got %d", a.Len())
	}
	if _, ok := a.Of("g4"); !ok {
		t.Fatalf("unrelated assignment lost in cascade")
	}
}

func TestRestoreDropsStaleEntries(t *testing.T) {
	a := NewAssignments(fixedCapacity(map[domain.TableID]int{"t1": 2}))
	a.Restore([]domain.Assignment{
		{GuestID: "g1", TableID: "t1", SeatIndex: 0},
		{GuestID: "g2", TableID: "gone", SeatIndex: 0},
		{GuestID: "g3", TableID: "t1", SeatIndex: 9},
	})
	if a.Len() != 1 {
		t.Fatalf("expected 1 surviving assignment, got %d", a.Len())
	}
	checkInvariants(t, a)
}

func TestBulkAutoAssignKeepsParties(t *testing.T) {
	a := NewAssignments(fixedCapacity(map[domain.TableID]int{"t1": 4, "t2": 4}))
	tables := []domain.Table{
		{ID: "t1", Capacity: 4},
		{ID: "t2", Capacity: 4},
	}
	guests := []domain.Guest{
		{ID: "g1", PartyID: "smith"},
		{ID: "g2", PartyID: "smith"},
		{ID: "g3", PartyID: "smith"},
		{ID: "g4"},
		{ID: "g5"},
	}

	unplaced := a.BulkAutoAssign(guests, tables, AssignPolicy{KeepParties: true})
	if len(unplaced) != 0 {
		t.Fatalf("expected everyone placed, got unplaced %v", unplaced)
	}
	checkInvariants(t, a)

	party, _ := a.Of("g1")
	for _, g := range []domain.GuestID{"g2", "g3"} {
		asg, ok := a.Of(g)
		if !ok || asg.TableID != party.TableID {
			t.Fatalf("party split: %s at %+v, expected table %s", g, asg, party.TableID)
		}
	}
}

func TestBulkAutoAssignDegradesWhenFull(t *testing.T) {
	a := NewAssignments(fixedCapacity(map[domain.TableID]int{"t1": 2}))
	tables := []domain.Table{{ID: "t1", Capacity: 2}}
	guests := []domain.Guest{
		{ID: "g1", PartyID: "big"},
		{ID: "g2", PartyID: "big"},
		{ID: "g3", PartyID: "big"},
	}

	unplaced := a.BulkAutoAssign(guests, tables, AssignPolicy{KeepParties: true})
	if len(unplaced) != 1 {
		t.Fatalf("expected exactly 1 unplaced, got %v", unplaced)
	}
	if a.Len() != 2 {
		t.Fatalf("expected best-effort 2 seated, got %d", a.Len())
	}
	checkInvariants(t, a)
}

func TestBulkAutoAssignSkipsSeatedGuests(t *testing.T) {
	a := NewAssignments(fixedCapacity(map[domain.TableID]int{"t1": 2}))
	tables := []domain.Table{{ID: "t1", Capacity: 2}}
	if err := a.Assign("g1", "t1", 1); err != nil {
		t.Fatalf("pre-seat g1: %v", err)
	}

	unplaced := a.BulkAutoAssign([]domain.Guest{{ID: "g1"}, {ID: "g2"}}, tables, AssignPolicy{})
	if len(unplaced) != 0 {
		t.Fatalf("unexpected unplaced %v", unplaced)
	}
	if asg, _ := a.Of("g1"); asg.SeatIndex != 1 {
		t.Fatalf("pre-seated guest moved: %+v", asg)
	}
	checkInvariants(t, a)
}

func TestBulkAutoAssignAccessiblePreference(t *testing.T) {
	caps := map[domain.TableID]int{"near": 2, "far": 2, "entry": 2}
	a := NewAssignments(fixedCapacity(caps))
	tables := []domain.Table{
		{ID: "far", X: 1000, Y: 0, Capacity: 2},
		{ID: "near", X: 100, Y: 0, Capacity: 2},
		{ID: "entry", X: 0, Y: 0, Capacity: 2},
	}
	guests := []domain.Guest{
		{ID: "g1", Constraints: []domain.Constraint{domain.ConstraintAccessible}},
	}

	unplaced := a.BulkAutoAssign(guests, tables, AssignPolicy{AccessibleTable: "entry"})
	if len(unplaced) != 0 {
		t.Fatalf("unexpected unplaced %v", unplaced)
	}
	asg, _ := a.Of("g1")
	if asg.TableID != "entry" {
		t.Fatalf("accessible guest seated at %s, expected entry", asg.TableID)
	}
}
