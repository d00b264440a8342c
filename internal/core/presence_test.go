package core

import (
	"testing"
	"time"

	"github.com/lovenda/seatplan/internal/domain"
)

func presenceAt(user string, status domain.PresenceStatus, target string, seen time.Time) domain.PresenceEntry {
	return domain.PresenceEntry{
		UserID:     domain.UserID(user),
		Status:     status,
		Target:     domain.ElementID(target),
		LastSeenAt: seen,
	}
}

func TestTrackerConflictBadges(t *testing.T) {
	now := time.Now()
	tr := NewTracker(DefaultPresenceTTL)
	tr.now = func() time.Time { return now }

	tr.Apply([]domain.PresenceEntry{
		presenceAt("u1", domain.StatusEditing, "T1", now),
		presenceAt("u2", domain.StatusEditing, "T1", now),
		presenceAt("u3", domain.StatusEditing, "T2", now),
		presenceAt("u4", domain.StatusViewing, "T1", now),
	})

	if !tr.HasConflict("T1") {
		t.Fatalf("expected conflict on T1")
	}
	if tr.HasConflict("T2") {
		t.Fatalf("single editor is not a conflict")
	}
	conflicts := tr.Conflicts()
	if len(conflicts) != 1 {
		t.Fatalf("expected 1 conflicted element, got %v", conflicts)
	}
	if users := conflicts["T1"]; len(users) != 2 {
		t.Fatalf("expected 2 editors on T1, got %v", users)
	}
}

func TestTrackerExpiresStaleEntries(t *testing.T) {
	now := time.Now()
	tr := NewTracker(30 * time.Second)
	tr.now = func() time.Time { return now }

	tr.Apply([]domain.PresenceEntry{
		presenceAt("fresh", domain.StatusViewing, "", now.Add(-10*time.Second)),
		presenceAt("stale", domain.StatusEditing, "T1", now.Add(-45*time.Second)),
	})

	if got := tr.OnlineCount(); got != 1 {
		t.Fatalf("expected 1 online, got %d", got)
	}
	if tr.HasConflict("T1") || len(tr.Editors("T1")) != 0 {
		t.Fatalf("stale editor still counted")
	}

	// A heartbeat revives the stale user.
	tr.Touch(presenceAt("stale", domain.StatusEditing, "T1", now))
	if got := tr.OnlineCount(); got != 2 {
		t.Fatalf("expected 2 online after heartbeat, got %d", got)
	}
}

func TestTrackerCoercesUnknownStatus(t *testing.T) {
	now := time.Now()
	tr := NewTracker(DefaultPresenceTTL)
	tr.now = func() time.Time { return now }

	tr.Touch(domain.PresenceEntry{UserID: "u1", Status: "typing", LastSeenAt: now})
	online := tr.Online()
	if len(online) != 1 || online[0].Status != domain.StatusViewing {
		t.Fatalf("unknown status not coerced: %+v", online)
	}
}

func TestTrackerRemove(t *testing.T) {
	now := time.Now()
	tr := NewTracker(DefaultPresenceTTL)
	tr.now = func() time.Time { return now }

	tr.Touch(presenceAt("u1", domain.StatusViewing, "", now))
	tr.Remove("u1")
	if got := tr.OnlineCount(); got != 0 {
		t.Fatalf("expected 0 online after remove, got %d", got)
	}
}
