package core

import (
	"math"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/lovenda/seatplan/internal/domain"
)

type seatKey struct {
	table domain.TableID
	seat  int
}

// CapacityFunc resolves a table's seat count; the layout provides it.
type CapacityFunc func(domain.TableID) (int, bool)

// Assignments is the threadsafe guest-to-seat book. It is indexed both
// ways so uniqueness of guests and of seats is cheap to enforce.
type Assignments struct {
	mu       sync.RWMutex
	byGuest  map[domain.GuestID]domain.Assignment
	bySeat   map[seatKey]domain.GuestID
	capacity CapacityFunc
}

func NewAssignments(capacity CapacityFunc) *Assignments {
	return &Assignments{
		byGuest:  make(map[domain.GuestID]domain.Assignment),
		bySeat:   make(map[seatKey]domain.GuestID),
		capacity: capacity,
	}
}

// Assign seats a guest. It refuses to overwrite an occupied seat or to
// silently relocate an already-seated guest; callers that mean to move
// someone must say so via Move.
func (a *Assignments) Assign(guestID domain.GuestID, tableID domain.TableID, seat int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.assignLocked(guestID, tableID, seat); err != nil {
		return err
	}
	log.Info().Str("module", "core.assignments").Str("guest", string(guestID)).Str("table", string(tableID)).Int("seat", seat).Msg("guest seated")
	return nil
}

func (a *Assignments) assignLocked(guestID domain.GuestID, tableID domain.TableID, seat int) error {
	seats, ok := a.capacity(tableID)
	if !ok {
		return domain.ErrUnknownTable
	}
	if seat < 0 || seat >= seats {
		return domain.ErrSeatOutOfRange
	}
	if holder, taken := a.bySeat[seatKey{tableID, seat}]; taken {
		if holder == guestID {
			return nil
		}
		return domain.ErrSeatOccupied
	}
	if _, seated := a.byGuest[guestID]; seated {
		return domain.ErrGuestAlreadySeated
	}
	a.byGuest[guestID] = domain.Assignment{GuestID: guestID, TableID: tableID, SeatIndex: seat}
	a.bySeat[seatKey{tableID, seat}] = guestID
	return nil
}

// Unassign is idempotent: unseating an unseated guest is a no-op.
func (a *Assignments) Unassign(guestID domain.GuestID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.unassignLocked(guestID)
}

func (a *Assignments) unassignLocked(guestID domain.GuestID) {
	cur, ok := a.byGuest[guestID]
	if !ok {
		return
	}
	delete(a.byGuest, guestID)
	delete(a.bySeat, seatKey{cur.TableID, cur.SeatIndex})
	log.Info().Str("module", "core.assignments").Str("guest", string(guestID)).Msg("guest unseated")
}

// Move is the atomic unassign+assign. The target is validated before
// anything is touched, so a failed move leaves the original assignment
// in place.
func (a *Assignments) Move(guestID domain.GuestID, tableID domain.TableID, seat int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	seats, ok := a.capacity(tableID)
	if !ok {
		return domain.ErrUnknownTable
	}
	if seat < 0 || seat >= seats {
		return domain.ErrSeatOutOfRange
	}
	if holder, taken := a.bySeat[seatKey{tableID, seat}]; taken && holder != guestID {
		return domain.ErrSeatOccupied
	}
	a.unassignLocked(guestID)
	return a.assignLocked(guestID, tableID, seat)
}

// Of returns the guest's current assignment, if any.
func (a *Assignments) Of(guestID domain.GuestID) (domain.Assignment, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	asg, ok := a.byGuest[guestID]
	return asg, ok
}

// SeatHolder returns who sits at the given seat, if anyone.
func (a *Assignments) SeatHolder(tableID domain.TableID, seat int) (domain.GuestID, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	g, ok := a.bySeat[seatKey{tableID, seat}]
	return g, ok
}

func (a *Assignments) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.byGuest)
}

// DropTable cascades a table deletion: every assignment referencing the
// table is removed. Returns the guests that lost their seat.
func (a *Assignments) DropTable(tableID domain.TableID) []domain.GuestID {
	a.mu.Lock()
	defer a.mu.Unlock()
	var evicted []domain.GuestID
	for gid, asg := range a.byGuest {
		if asg.TableID == tableID {
			evicted = append(evicted, gid)
		}
	}
	sort.Slice(evicted, func(i, j int) bool { return evicted[i] < evicted[j] })
	for _, gid := range evicted {
		a.unassignLocked(gid)
	}
	return evicted
}

// Snapshot returns all assignments ordered by table then seat.
func (a *Assignments) Snapshot() []domain.Assignment {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]domain.Assignment, 0, len(a.byGuest))
	for _, asg := range a.byGuest {
		out = append(out, asg)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TableID != out[j].TableID {
			return out[i].TableID < out[j].TableID
		}
		return out[i].SeatIndex < out[j].SeatIndex
	})
	return out
}

// Restore replaces the book with a persisted snapshot, dropping entries
// that no longer satisfy the invariants instead of failing the load.
func (a *Assignments) Restore(assignments []domain.Assignment) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.byGuest = make(map[domain.GuestID]domain.Assignment, len(assignments))
	a.bySeat = make(map[seatKey]domain.GuestID, len(assignments))
	for _, asg := range assignments {
		if err := a.assignLocked(asg.GuestID, asg.TableID, asg.SeatIndex); err != nil {
			log.Warn().Str("module", "core.assignments").Str("guest", string(asg.GuestID)).Err(err).Msg("dropped stale assignment on restore")
		}
	}
}

// AssignPolicy steers BulkAutoAssign.
type AssignPolicy struct {
	// KeepParties seats a declared party at one table when a table with
	// enough free seats exists; otherwise the party is split best-effort.
	KeepParties bool
	// AccessibleTable, when set, makes guests carrying the accessible
	// constraint prefer tables nearest to it.
	AccessibleTable domain.TableID
}

// BulkAutoAssign seats every unseated guest it can without ever breaking
// the base invariants. Guests that cannot be placed are returned rather
// than turned into an error: a full room is not a failure.
func (a *Assignments) BulkAutoAssign(guests []domain.Guest, tables []domain.Table, policy AssignPolicy) []domain.GuestID {
	groups := groupGuests(guests, policy.KeepParties, func(gid domain.GuestID) bool {
		_, seated := a.Of(gid)
		return seated
	})

	var unplaced []domain.GuestID
	for _, grp := range groups {
		order := tables
		if policy.AccessibleTable != "" && groupNeedsAccess(grp) {
			order = sortByDistanceTo(tables, policy.AccessibleTable)
		}
		unplaced = append(unplaced, a.placeGroup(grp, order)...)
	}
	return unplaced
}

// placeGroup tries to seat the whole group at one table, falling back to
// scattering members across whatever seats remain.
func (a *Assignments) placeGroup(grp []domain.Guest, tables []domain.Table) []domain.GuestID {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, t := range tables {
		free := a.freeSeatsLocked(t)
		if len(free) >= len(grp) {
			for i, g := range grp {
				if err := a.assignLocked(g.ID, t.ID, free[i]); err != nil {
					log.Warn().Str("module", "core.assignments").Str("guest", string(g.ID)).Err(err).Msg("auto-assign skip")
				}
			}
			return nil
		}
	}

	// Degrade: fill remaining seats table by table.
	var unplaced []domain.GuestID
	next := 0
	for _, t := range tables {
		for _, seat := range a.freeSeatsLocked(t) {
			if next >= len(grp) {
				return unplaced
			}
			if err := a.assignLocked(grp[next].ID, t.ID, seat); err == nil {
				next++
			}
		}
	}
	for ; next < len(grp); next++ {
		unplaced = append(unplaced, grp[next].ID)
	}
	return unplaced
}

func (a *Assignments) freeSeatsLocked(t domain.Table) []int {
	free := make([]int, 0, t.Capacity)
	for seat := 0; seat < t.Capacity; seat++ {
		if _, taken := a.bySeat[seatKey{t.ID, seat}]; !taken {
			free = append(free, seat)
		}
	}
	return free
}

// groupGuests buckets unseated guests by party (or singly), ordered by
// party id then guest id so runs are deterministic.
func groupGuests(guests []domain.Guest, keepParties bool, seated func(domain.GuestID) bool) [][]domain.Guest {
	byParty := make(map[domain.PartyID][]domain.Guest)
	var keys []domain.PartyID
	for _, g := range guests {
		if seated(g.ID) {
			continue
		}
		key := domain.PartyID("solo:" + string(g.ID))
		if keepParties && g.PartyID != "" {
			key = g.PartyID
		}
		if _, seen := byParty[key]; !seen {
			keys = append(keys, key)
		}
		byParty[key] = append(byParty[key], g)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	out := make([][]domain.Guest, 0, len(keys))
	for _, key := range keys {
		grp := byParty[key]
		sort.Slice(grp, func(i, j int) bool { return grp[i].ID < grp[j].ID })
		out = append(out, grp)
	}
	return out
}

func groupNeedsAccess(grp []domain.Guest) bool {
	for _, g := range grp {
		if g.Has(domain.ConstraintAccessible) {
			return true
		}
	}
	return false
}

func sortByDistanceTo(tables []domain.Table, anchor domain.TableID) []domain.Table {
	var ax, ay float64
	for _, t := range tables {
		if t.ID == anchor {
			ax, ay = t.X, t.Y
			break
		}
	}
	out := make([]domain.Table, len(tables))
	copy(out, tables)
	sort.SliceStable(out, func(i, j int) bool {
		di := math.Hypot(out[i].X-ax, out[i].Y-ay)
		dj := math.Hypot(out[j].X-ax, out[j].Y-ay)
		if di != dj {
			return di < dj
		}
		return out[i].ID < out[j].ID
	})
	return out
}
