// Package presencews carries presence over WebSocket. It is one
// implementation of core.PresenceChannel; the tracker does not care
// whether entries arrive from here, from polling or from anywhere else.
package presencews

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lovenda/seatplan/internal/core"
	"github.com/lovenda/seatplan/internal/domain"
)

// Channel fans presence entries out to websocket clients and in-process
// subscribers, one hub per wedding.
type Channel struct {
	mu   sync.RWMutex
	hubs map[domain.WeddingID]*hub
	ttl  time.Duration
}

func NewChannel(ttl time.Duration) *Channel {
	if ttl <= 0 {
		ttl = core.DefaultPresenceTTL
	}
	return &Channel{
		hubs: make(map[domain.WeddingID]*hub),
		ttl:  ttl,
	}
}

func (c *Channel) hub(weddingID domain.WeddingID) *hub {
	c.mu.RLock()
	h, ok := c.hubs[weddingID]
	c.mu.RUnlock()
	if ok {
		return h
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if h, ok = c.hubs[weddingID]; ok {
		return h
	}
	h = newHub(weddingID, c.ttl)
	c.hubs[weddingID] = h
	return h
}

// Subscribe registers an in-process listener for a wedding's roster.
func (c *Channel) Subscribe(weddingID domain.WeddingID, fn func([]domain.PresenceEntry)) (func(), error) {
	return c.hub(weddingID).subscribe(fn), nil
}

// Publish upserts an entry and fans the new roster out everywhere.
func (c *Channel) Publish(weddingID domain.WeddingID, entry domain.PresenceEntry) error {
	c.hub(weddingID).touch(entry)
	return nil
}

type hub struct {
	weddingID domain.WeddingID
	ttl       time.Duration

	mu      sync.Mutex
	entries map[domain.UserID]domain.PresenceEntry
	conns   map[*wsConn]struct{}
	subs    map[int]func([]domain.PresenceEntry)
	nextSub int
}

func newHub(weddingID domain.WeddingID, ttl time.Duration) *hub {
	return &hub{
		weddingID: weddingID,
		ttl:       ttl,
		entries:   make(map[domain.UserID]domain.PresenceEntry),
		conns:     make(map[*wsConn]struct{}),
		subs:      make(map[int]func([]domain.PresenceEntry)),
	}
}

func (h *hub) subscribe(fn func([]domain.PresenceEntry)) func() {
	h.mu.Lock()
	id := h.nextSub
	h.nextSub++
	h.subs[id] = fn
	h.mu.Unlock()
	return func() {
		h.mu.Lock()
		delete(h.subs, id)
		h.mu.Unlock()
	}
}

func (h *hub) touch(entry domain.PresenceEntry) {
	h.mu.Lock()
	h.entries[entry.UserID] = entry
	h.mu.Unlock()
	h.broadcast()
}

func (h *hub) drop(userID domain.UserID) {
	h.mu.Lock()
	delete(h.entries, userID)
	h.mu.Unlock()
	h.broadcast()
}

func (h *hub) attach(c *wsConn) {
	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.mu.Unlock()
}

func (h *hub) detach(c *wsConn) {
	h.mu.Lock()
	delete(h.conns, c)
	h.mu.Unlock()
}

// roster prunes expired entries under the lock and returns the rest.
func (h *hub) roster() []domain.PresenceEntry {
	cutoff := time.Now().Add(-h.ttl)
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]domain.PresenceEntry, 0, len(h.entries))
	for uid, e := range h.entries {
		if e.LastSeenAt.Before(cutoff) {
			delete(h.entries, uid)
			continue
		}
		out = append(out, e)
	}
	return out
}

// broadcast pushes the roster to subscribers and sockets. Slow sockets
// lose the frame: the next heartbeat re-syncs them, and presence must
// never stall anything.
func (h *hub) broadcast() {
	entries := h.roster()

	h.mu.Lock()
	subs := make([]func([]domain.PresenceEntry), 0, len(h.subs))
	for _, fn := range h.subs {
		subs = append(subs, fn)
	}
	conns := make([]*wsConn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, fn := range subs {
		fn(entries)
	}
	if len(conns) == 0 {
		return
	}
	frame, err := encodeRoster(entries)
	if err != nil {
		log.Error().Str("module", "presencews").Err(err).Msg("encode roster")
		return
	}
	dropped := 0
	for _, c := range conns {
		if err := c.TrySend(frame); err != nil {
			dropped++
		}
	}
	if dropped > 0 {
		log.Debug().Str("module", "presencews").Str("wedding", string(h.weddingID)).Int("dropped", dropped).Msg("roster frame dropped for slow clients")
	}
}
