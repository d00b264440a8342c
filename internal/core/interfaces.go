package core

import (
	"context"

	"github.com/lovenda/seatplan/internal/domain"
)

// PlanSnapshot is the whole seating document as persisted: the unit of
// save, load and undo history.
type PlanSnapshot struct {
	Tables      []domain.Table      `json:"tables"`
	Assignments []domain.Assignment `json:"assignments"`
}

// PlanStore is the persistence collaborator. Saves are whole-document,
// which makes remote conflict resolution last-write-wins by policy.
type PlanStore interface {
	LoadPlan(ctx context.Context, weddingID domain.WeddingID) (PlanSnapshot, error)
	SavePlan(ctx context.Context, weddingID domain.WeddingID, snap PlanSnapshot) error
}

// UIPrefs is the single versioned preference document per wedding.
type UIPrefs struct {
	Version         int                     `json:"version"`
	Viewport        *Viewport               `json:"viewport,omitempty"`
	Onboarding      *domain.OnboardingState `json:"onboarding,omitempty"`
	PanelVisibility map[string]bool         `json:"panelVisibility,omitempty"`
}

// PrefStore persists UI preferences best-effort: failures are logged and
// ignored, never surfaced to the editing loop.
type PrefStore interface {
	LoadUIPrefs(ctx context.Context, weddingID domain.WeddingID) (UIPrefs, error)
	SaveUIPrefs(ctx context.Context, weddingID domain.WeddingID, prefs UIPrefs) error
}

// PresenceChannel abstracts the real-time transport so polling, sockets
// or anything else can back the tracker without touching its logic.
// Subscribe returns an unsubscribe func. Reconnection is the adapter's
// problem, not the core's.
type PresenceChannel interface {
	Subscribe(weddingID domain.WeddingID, fn func([]domain.PresenceEntry)) (func(), error)
	Publish(weddingID domain.WeddingID, entry domain.PresenceEntry) error
}
