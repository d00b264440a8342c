package domain

type (
	GuestID string
	PartyID string
)

// Constraint tags come from the guest-management collaborator as-is.
type Constraint string

const ConstraintAccessible Constraint = "accessible"

// Guest is owned externally; this core references it and never mutates it.
type Guest struct {
	ID          GuestID      `json:"id"`
	Name        string       `json:"name"`
	PartyID     PartyID      `json:"partyId,omitempty"`
	Constraints []Constraint `json:"constraints,omitempty"`
}

func (g Guest) Has(c Constraint) bool {
	for _, got := range g.Constraints {
		if got == c {
			return true
		}
	}
	return false
}

// Assignment binds one guest to one seat of one table.
type Assignment struct {
	GuestID   GuestID `json:"guestId"`
	TableID   TableID `json:"tableId"`
	SeatIndex int     `json:"seatIndex"`
}
