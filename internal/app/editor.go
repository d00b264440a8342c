package app

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lovenda/seatplan/internal/analytics"
	"github.com/lovenda/seatplan/internal/core"
	"github.com/lovenda/seatplan/internal/domain"
)

// saveDebounce matches the product's autosave delay after a mutation.
const saveDebounce = 800 * time.Millisecond

// Editor is one user's live editing session over one wedding's seating
// plan. It wires the core components together: every mutation goes
// through the core invariants first, then fans out to onboarding,
// presence and analytics without ever blocking on them.
type Editor struct {
	WeddingID domain.WeddingID
	UserID    domain.UserID

	Layout      *core.Layout
	Assignments *core.Assignments
	Gate        *core.Gate
	Presence    *core.Tracker
	Pipeline    *analytics.Pipeline

	store   core.PlanStore
	prefs   core.PrefStore
	channel core.PresenceChannel

	mu       sync.Mutex
	viewport core.Viewport
	guests   []domain.Guest
	hist     *history
	color    string

	saveMu      sync.Mutex
	saveTimer   *time.Timer
	unsubscribe func()
}

type EditorDeps struct {
	Store    core.PlanStore
	Prefs    core.PrefStore
	Channel  core.PresenceChannel
	Pipeline *analytics.Pipeline
	Bounds   core.Bounds
	Color    string
}

func NewEditor(weddingID domain.WeddingID, userID domain.UserID, deps EditorDeps) *Editor {
	layout := core.NewLayout(deps.Bounds)
	return &Editor{
		WeddingID:   weddingID,
		UserID:      userID,
		Layout:      layout,
		Assignments: core.NewAssignments(layout.Capacity),
		Gate:        core.NewGate(domain.OnboardingState{}),
		Presence:    core.NewTracker(core.DefaultPresenceTTL),
		Pipeline:    deps.Pipeline,
		store:       deps.Store,
		prefs:       deps.Prefs,
		channel:     deps.Channel,
		viewport:    core.DefaultViewport(),
		color:       deps.Color,
	}
}

// Load pulls the persisted plan and preferences, restores the in-memory
// model and subscribes to presence. Preference failures are non-fatal;
// the plan store failing is not ours to hide.
func (e *Editor) Load(ctx context.Context) error {
	snap, err := e.store.LoadPlan(ctx, e.WeddingID)
	if err != nil {
		return err
	}
	e.Layout.Restore(snap.Tables)
	e.Assignments.Restore(snap.Assignments)

	e.mu.Lock()
	e.hist = newHistory(e.snapshot())
	e.mu.Unlock()

	if prefs, err := e.prefs.LoadUIPrefs(ctx, e.WeddingID); err != nil {
		log.Warn().Str("module", "app.editor").Str("wedding", string(e.WeddingID)).Err(err).Msg("ui prefs unavailable, using defaults")
	} else {
		if prefs.Viewport != nil {
			e.mu.Lock()
			e.viewport = prefs.Viewport.Sanitize()
			e.mu.Unlock()
		}
		if prefs.Onboarding != nil {
			e.Gate = core.NewGate(*prefs.Onboarding)
		}
	}

	// Persisted flags may lag reality; derive what we can see.
	if e.Layout.Count() > 0 {
		e.Gate.MarkSpaceConfigured()
	}
	if e.Assignments.Len() > 0 {
		e.Gate.MarkFirstAssignment()
	}

	if e.channel != nil {
		unsub, err := e.channel.Subscribe(e.WeddingID, e.Presence.Apply)
		if err != nil {
			log.Warn().Str("module", "app.editor").Err(err).Msg("presence unavailable")
		} else {
			e.unsubscribe = unsub
		}
	}
	e.announce(domain.StatusViewing, "")
	return nil
}

// Save writes the whole document. Timed through the pipeline so slow
// saves show up in the metrics.
func (e *Editor) Save(ctx context.Context) error {
	e.mu.Lock()
	snap := e.snapshot()
	e.mu.Unlock()
	return e.Pipeline.TrackTiming("plan_save", func() error {
		return e.store.SavePlan(ctx, e.WeddingID, snap)
	}, map[string]any{"tables": len(snap.Tables), "assignments": len(snap.Assignments)})
}

func (e *Editor) snapshot() core.PlanSnapshot {
	return core.PlanSnapshot{
		Tables:      e.Layout.Tables(),
		Assignments: e.Assignments.Snapshot(),
	}
}

// AddTable admits a new table and advances onboarding on the first one.
func (e *Editor) AddTable(t domain.Table) (domain.Table, error) {
	added, err := e.Layout.AddTable(t)
	if err != nil {
		return added, err
	}
	if e.Gate.MarkSpaceConfigured() {
		e.Pipeline.Track("onboarding_space_configured", nil)
	}
	e.afterMutation("table_added", domain.ElementID(added.ID), map[string]any{"tableId": string(added.ID)})
	return added, nil
}

func (e *Editor) PlaceTable(id domain.TableID, pos core.Point) (core.Point, error) {
	accepted, err := e.Layout.PlaceTable(id, pos)
	if err != nil {
		return accepted, err
	}
	e.afterMutation("table_moved", domain.ElementID(id), map[string]any{"tableId": string(id)})
	return accepted, nil
}

// RemoveTable deletes a table and cascades to its assignments.
func (e *Editor) RemoveTable(id domain.TableID) []domain.GuestID {
	evicted := e.Assignments.DropTable(id)
	e.Layout.RemoveTable(id)
	e.afterMutation("table_removed", domain.ElementID(id), map[string]any{
		"tableId": string(id),
		"evicted": len(evicted),
	})
	return evicted
}

// SetGuests replaces the externally-owned guest list.
func (e *Editor) SetGuests(guests []domain.Guest) {
	e.mu.Lock()
	e.guests = guests
	e.mu.Unlock()
	if len(guests) > 0 && e.Gate.MarkGuestsImported() {
		e.Pipeline.Track("onboarding_guests_imported", map[string]any{"count": len(guests)})
	}
}

func (e *Editor) Guests() []domain.Guest {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.Guest, len(e.guests))
	copy(out, e.guests)
	return out
}

func (e *Editor) Assign(guestID domain.GuestID, tableID domain.TableID, seat int) error {
	if err := e.Assignments.Assign(guestID, tableID, seat); err != nil {
		return err
	}
	if e.Gate.MarkFirstAssignment() {
		e.Pipeline.Track("onboarding_first_assignment", nil)
	}
	e.afterMutation("guest_assigned", domain.ElementID(tableID), map[string]any{
		"guestId": string(guestID),
		"tableId": string(tableID),
		"seat":    seat,
	})
	return nil
}

func (e *Editor) Unassign(guestID domain.GuestID) {
	e.Assignments.Unassign(guestID)
	e.afterMutation("guest_unassigned", "", map[string]any{"guestId": string(guestID)})
}

func (e *Editor) Move(guestID domain.GuestID, tableID domain.TableID, seat int) error {
	if err := e.Assignments.Move(guestID, tableID, seat); err != nil {
		return err
	}
	e.afterMutation("guest_moved", domain.ElementID(tableID), map[string]any{
		"guestId": string(guestID),
		"tableId": string(tableID),
		"seat":    seat,
	})
	return nil
}

// AutoLayout recomputes the whole arrangement and applies it. Calling it
// again simply supersedes the previous result.
func (e *Editor) AutoLayout(strategy core.Strategy) ([]domain.Table, error) {
	arranged, err := core.AutoLayout(e.Layout.Tables(), e.Layout.Bounds(), strategy)
	if err != nil {
		return nil, err
	}
	e.Layout.Restore(arranged)
	e.afterMutation("auto_layout", "", map[string]any{"strategy": string(strategy), "tables": len(arranged)})
	return arranged, nil
}

// BulkAutoAssign seats the current guest list and reports who did not
// fit.
func (e *Editor) BulkAutoAssign(policy core.AssignPolicy) []domain.GuestID {
	unplaced := e.Assignments.BulkAutoAssign(e.Guests(), e.Layout.Tables(), policy)
	if e.Assignments.Len() > 0 && e.Gate.MarkFirstAssignment() {
		e.Pipeline.Track("onboarding_first_assignment", nil)
	}
	e.afterMutation("bulk_auto_assign", "", map[string]any{"unplaced": len(unplaced)})
	return unplaced
}

func (e *Editor) Undo() bool { return e.timeTravel("undo", (*history).undo) }
func (e *Editor) Redo() bool { return e.timeTravel("redo", (*history).redo) }

func (e *Editor) timeTravel(name string, step func(*history) (core.PlanSnapshot, bool)) bool {
	e.mu.Lock()
	if e.hist == nil {
		e.mu.Unlock()
		return false
	}
	snap, ok := step(e.hist)
	e.mu.Unlock()
	if !ok {
		return false
	}
	e.Layout.Restore(snap.Tables)
	e.Assignments.Restore(snap.Assignments)
	e.Pipeline.Track(name, nil)
	e.scheduleSave()
	return true
}

// Viewport returns the session viewport.
func (e *Editor) Viewport() core.Viewport {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.viewport
}

// SetViewport stores the new viewport and persists it best-effort as a
// UI preference.
func (e *Editor) SetViewport(ctx context.Context, v core.Viewport) {
	v = v.Sanitize()
	e.mu.Lock()
	e.viewport = v
	e.mu.Unlock()

	state := e.Gate.State()
	prefs := core.UIPrefs{Version: 1, Viewport: &v, Onboarding: &state}
	if err := e.prefs.SaveUIPrefs(ctx, e.WeddingID, prefs); err != nil {
		log.Warn().Str("module", "app.editor").Err(err).Msg("ui pref save failed")
	}
}

// DismissOnboarding hides the overlay; step flags keep advancing.
func (e *Editor) DismissOnboarding(ctx context.Context, dismissed bool) {
	e.Gate.SetDismissed(dismissed)
	state := e.Gate.State()
	if err := e.prefs.SaveUIPrefs(ctx, e.WeddingID, core.UIPrefs{Version: 1, Onboarding: &state}); err != nil {
		log.Warn().Str("module", "app.editor").Err(err).Msg("ui pref save failed")
	}
	e.Pipeline.Track("onboarding_dismissed", map[string]any{"dismissed": dismissed})
}

// afterMutation is the common fan-out: history, presence, analytics and
// the debounced autosave. None of it can fail the mutation that already
// happened.
func (e *Editor) afterMutation(event string, target domain.ElementID, props map[string]any) {
	e.mu.Lock()
	if e.hist != nil {
		e.hist.push(e.snapshot())
	}
	e.mu.Unlock()

	status := domain.StatusViewing
	if target != "" {
		status = domain.StatusEditing
	}
	e.announce(status, target)
	e.Pipeline.Track(event, props)
	e.scheduleSave()
}

func (e *Editor) announce(status domain.PresenceStatus, target domain.ElementID) {
	if e.channel == nil {
		return
	}
	entry := domain.PresenceEntry{
		UserID:     e.UserID,
		Status:     status,
		Target:     target,
		Color:      e.color,
		LastSeenAt: time.Now(),
	}
	if err := e.channel.Publish(e.WeddingID, entry); err != nil {
		log.Warn().Str("module", "app.editor").Err(err).Msg("presence publish failed")
	}
}

// scheduleSave coalesces bursts of edits into one save.
func (e *Editor) scheduleSave() {
	e.saveMu.Lock()
	defer e.saveMu.Unlock()
	if e.saveTimer != nil {
		e.saveTimer.Stop()
	}
	e.saveTimer = time.AfterFunc(saveDebounce, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Save(ctx); err != nil {
			log.Error().Str("module", "app.editor").Str("wedding", string(e.WeddingID)).Err(err).Msg("autosave failed")
		}
	})
}

// Close tears the session down: presence unsubscribed, pending save
// flushed, pipeline stopped with its final flush.
func (e *Editor) Close(ctx context.Context) {
	if e.unsubscribe != nil {
		e.unsubscribe()
	}
	e.saveMu.Lock()
	pending := e.saveTimer != nil && e.saveTimer.Stop()
	e.saveMu.Unlock()
	if pending {
		if err := e.Save(ctx); err != nil {
			log.Error().Str("module", "app.editor").Err(err).Msg("final save failed")
		}
	}
	e.Pipeline.Stop()
	log.Info().Str("module", "app.editor").Str("wedding", string(e.WeddingID)).Str("user", string(e.UserID)).Msg("editor closed")
}
