package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/lovenda/seatplan/internal/analytics"
	"github.com/lovenda/seatplan/internal/core"
	"github.com/lovenda/seatplan/internal/domain"
)

// presenceColors is the palette cycled across collaborators.
var presenceColors = []string{
	"#e8598c", "#5b8def", "#46b37f", "#f2a33c", "#9b6ef3", "#e05b4b",
}

// Deps are the collaborators every editor shares.
type Deps struct {
	Store   core.PlanStore
	Prefs   core.PrefStore
	Channel core.PresenceChannel
	Sink    analytics.Sink
	Bounds  core.Bounds
	Flush   analytics.Config
}

// Registry owns the live editor sessions, one per client token. It is
// the only place sessions are created and torn down.
type Registry struct {
	mu      sync.RWMutex
	deps    Deps
	editors map[domain.SessionID]*Editor
	next    int
}

func NewRegistry(deps Deps) *Registry {
	return &Registry{
		deps:    deps,
		editors: make(map[domain.SessionID]*Editor),
	}
}

// GetOrCreate returns the session's editor, loading the plan on first
// touch. The double-checked locking mirrors how rooms are created: the
// cheap read path first, creation under the write lock.
func (r *Registry) GetOrCreate(ctx context.Context, sid domain.SessionID, weddingID domain.WeddingID, userID domain.UserID) (*Editor, error) {
	r.mu.RLock()
	ed, ok := r.editors[sid]
	r.mu.RUnlock()
	if ok && ed.WeddingID == weddingID {
		return ed, nil
	}

	r.mu.Lock()
	if ed, ok = r.editors[sid]; ok && ed.WeddingID == weddingID {
		r.mu.Unlock()
		return ed, nil
	}
	if ok {
		// Same client switched weddings: retire the old session.
		delete(r.editors, sid)
		go ed.Close(context.Background())
	}

	cfg := r.deps.Flush
	cfg.UserID = userID
	cfg.WeddingID = weddingID
	pipeline := analytics.NewPipeline(r.deps.Sink, cfg)

	ed = NewEditor(weddingID, userID, EditorDeps{
		Store:    r.deps.Store,
		Prefs:    r.deps.Prefs,
		Channel:  r.deps.Channel,
		Pipeline: pipeline,
		Bounds:   r.deps.Bounds,
		Color:    presenceColors[r.next%len(presenceColors)],
	})
	r.next++
	r.editors[sid] = ed
	r.mu.Unlock()

	pipeline.Start(ctx)
	if err := ed.Load(ctx); err != nil {
		r.Drop(ctx, sid)
		return nil, err
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("wedding", string(weddingID)).Msg("editor session opened")
	return ed, nil
}

// Get returns an existing session without creating one.
func (r *Registry) Get(sid domain.SessionID) (*Editor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ed, ok := r.editors[sid]
	return ed, ok
}

// Drop closes and forgets a session.
func (r *Registry) Drop(ctx context.Context, sid domain.SessionID) {
	r.mu.Lock()
	ed, ok := r.editors[sid]
	delete(r.editors, sid)
	r.mu.Unlock()
	if ok {
		ed.Close(ctx)
		log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("editor session dropped")
	}
}

// CloseAll tears down every session; used on server shutdown.
func (r *Registry) CloseAll(ctx context.Context) {
	r.mu.Lock()
	editors := make([]*Editor, 0, len(r.editors))
	for _, ed := range r.editors {
		editors = append(editors, ed)
	}
	r.editors = make(map[domain.SessionID]*Editor)
	r.mu.Unlock()
	for _, ed := range editors {
		ed.Close(ctx)
	}
}
