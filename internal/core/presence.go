package core

import (
	"sort"
	"sync"
	"time"

	"github.com/lovenda/seatplan/internal/domain"
)

// DefaultPresenceTTL is how long a collaborator stays visible without a
// heartbeat.
const DefaultPresenceTTL = 30 * time.Second

// Tracker mirrors what the presence channel reports. It has no authority
// over edits: its whole job is making concurrent activity visible, never
// preventing it.
type Tracker struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[domain.UserID]domain.PresenceEntry
	now     func() time.Time
}

func NewTracker(ttl time.Duration) *Tracker {
	if ttl <= 0 {
		ttl = DefaultPresenceTTL
	}
	return &Tracker{
		ttl:     ttl,
		entries: make(map[domain.UserID]domain.PresenceEntry),
		now:     time.Now,
	}
}

// Apply replaces the tracked set with the latest channel delivery.
func (t *Tracker) Apply(entries []domain.PresenceEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = make(map[domain.UserID]domain.PresenceEntry, len(entries))
	for _, e := range entries {
		if e.Status != domain.StatusEditing {
			e.Status = domain.StatusViewing
		}
		t.entries[e.UserID] = e
	}
}

// Touch upserts a single entry, as delivered by a heartbeat.
func (t *Tracker) Touch(entry domain.PresenceEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if entry.Status != domain.StatusEditing {
		entry.Status = domain.StatusViewing
	}
	t.entries[entry.UserID] = entry
}

func (t *Tracker) Remove(userID domain.UserID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, userID)
}

// Online returns collaborators seen within the TTL, ordered by user id.
func (t *Tracker) Online() []domain.PresenceEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	cutoff := t.now().Add(-t.ttl)
	out := make([]domain.PresenceEntry, 0, len(t.entries))
	for _, e := range t.entries {
		if e.LastSeenAt.After(cutoff) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

func (t *Tracker) OnlineCount() int {
	return len(t.Online())
}

// Editors lists who reports editing the given element right now.
func (t *Tracker) Editors(target domain.ElementID) []domain.UserID {
	var out []domain.UserID
	for _, e := range t.Online() {
		if e.Status == domain.StatusEditing && e.Target == target {
			out = append(out, e.UserID)
		}
	}
	return out
}

// Conflicts returns every element at least two distinct users report
// editing, keyed by element. The UI renders these as warning badges;
// resolution stays last-write-wins at the persistence layer.
func (t *Tracker) Conflicts() map[domain.ElementID][]domain.UserID {
	byTarget := make(map[domain.ElementID][]domain.UserID)
	for _, e := range t.Online() {
		if e.Status == domain.StatusEditing && e.Target != "" {
			byTarget[e.Target] = append(byTarget[e.Target], e.UserID)
		}
	}
	for target, users := range byTarget {
		if len(users) < 2 {
			delete(byTarget, target)
		}
	}
	return byTarget
}

func (t *Tracker) HasConflict(target domain.ElementID) bool {
	return len(t.Editors(target)) >= 2
}
