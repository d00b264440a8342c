package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/lovenda/seatplan/internal/core"
	"github.com/lovenda/seatplan/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "seatplan.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPlanRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	snap := core.PlanSnapshot{
		Tables: []domain.Table{
			{ID: "T1", Shape: domain.ShapeCircle, X: 100, Y: 100, Width: 60, Height: 60, Capacity: 8},
		},
		Assignments: []domain.Assignment{
			{GuestID: "g1", TableID: "T1", SeatIndex: 0},
		},
	}
	if err := s.SavePlan(ctx, "w1", snap); err != nil {
		t.Fatalf("save plan: %v", err)
	}

	got, err := s.LoadPlan(ctx, "w1")
	if err != nil {
		t.Fatalf("load plan: %v", err)
	}
	if len(got.Tables) != 1 || got.Tables[0].ID != "T1" {
		t.Fatalf("tables lost: %+v", got.Tables)
	}
	if len(got.Assignments) != 1 || got.Assignments[0].GuestID != "g1" {
		t.Fatalf("assignments lost: %+v", got.Assignments)
	}
}

func TestLoadPlanMissingIsEmpty(t *testing.T) {
	s := openTestStore(t)
	got, err := s.LoadPlan(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("load plan: %v", err)
	}
	if len(got.Tables) != 0 || len(got.Assignments) != 0 {
		t.Fatalf("expected empty snapshot, got %+v", got)
	}
}

func TestSavePlanOverwrites(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first := core.PlanSnapshot{Tables: []domain.Table{{ID: "T1", Shape: domain.ShapeCircle, Width: 60, Height: 60, Capacity: 4}}}
	second := core.PlanSnapshot{Tables: []domain.Table{{ID: "T2", Shape: domain.ShapeRectangle, Width: 80, Height: 60, Capacity: 6}}}
	if err := s.SavePlan(ctx, "w1", first); err != nil {
		t.Fatalf("save first: %v", err)
	}
	if err := s.SavePlan(ctx, "w1", second); err != nil {
		t.Fatalf("save second: %v", err)
	}

	got, err := s.LoadPlan(ctx, "w1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got.Tables) != 1 || got.Tables[0].ID != "T2" {
		t.Fatalf("last write did not win: %+v", got.Tables)
	}
}

func TestUIPrefsRoundTripAndDefaults(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	prefs, err := s.LoadUIPrefs(ctx, "w1")
	if err != nil {
		t.Fatalf("load default prefs: %v", err)
	}
	if prefs.Version != 1 || prefs.Viewport != nil {
		t.Fatalf("unexpected default prefs: %+v", prefs)
	}

	vp := core.Viewport{Zoom: 1.5, Pan: core.Point{X: 10, Y: -20}}
	state := domain.OnboardingState{Steps: domain.OnboardingSteps{SpaceConfigured: true}}
	in := core.UIPrefs{
		Version:         1,
		Viewport:        &vp,
		Onboarding:      &state,
		PanelVisibility: map[string]bool{"guests": true},
	}
	if err := s.SaveUIPrefs(ctx, "w1", in); err != nil {
		t.Fatalf("save prefs: %v", err)
	}

	got, err := s.LoadUIPrefs(ctx, "w1")
	if err != nil {
		t.Fatalf("load prefs: %v", err)
	}
	if got.Viewport == nil || got.Viewport.Zoom != 1.5 {
		t.Fatalf("viewport lost: %+v", got.Viewport)
	}
	if got.Onboarding == nil || !got.Onboarding.Steps.SpaceConfigured {
		t.Fatalf("onboarding lost: %+v", got.Onboarding)
	}
	if !got.PanelVisibility["guests"] {
		t.Fatalf("panel visibility lost: %+v", got.PanelVisibility)
	}
}

func TestEventBatchInsert(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	batch := []domain.Event{
		{Name: "table_added", SessionID: "s1", WeddingID: "w1", CreatedAt: time.Now(), Properties: map[string]any{"tableId": "T1"}},
		{Name: "guest_assigned", SessionID: "s1", WeddingID: "w1", CreatedAt: time.Now()},
	}
	if err := s.Send(ctx, batch); err != nil {
		t.Fatalf("send batch: %v", err)
	}

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events WHERE session_id = 's1'`).Scan(&count); err != nil {
		t.Fatalf("count events: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 events, got %d", count)
	}
}
