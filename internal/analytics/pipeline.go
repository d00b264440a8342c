// Package analytics is the fire-and-forget event pipeline. Nothing in
// here may ever stall the editing loop: tracking is an in-memory append,
// network I/O happens on the pipeline's own goroutine, and failures are
// logged and retried, not returned.
package analytics

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/lovenda/seatplan/internal/domain"
)

const (
	// DefaultFlushInterval is the auto-flush timer period.
	DefaultFlushInterval = 30 * time.Second
	// DefaultBatchThreshold triggers an eager flush when the queue
	// reaches this size.
	DefaultBatchThreshold = 10

	flushTimeout = 5 * time.Second
)

// Sink receives event batches. Any non-nil error means the whole batch
// is requeued.
type Sink interface {
	Send(ctx context.Context, batch []domain.Event) error
}

// Config carries the per-session pipeline knobs; zero values fall back
// to the defaults above.
type Config struct {
	FlushInterval  time.Duration
	BatchThreshold int
	UserID         domain.UserID
	WeddingID      domain.WeddingID
}

// Pipeline queues events for one editor session and flushes them in
// batches. Construct one per session and pass it around explicitly; the
// Start/Stop lifecycle replaces any notion of a process-global tracker.
type Pipeline struct {
	mu        sync.Mutex
	queue     []domain.Event
	sessionID string
	startedAt time.Time
	sink      Sink
	cfg       Config
	now       func() time.Time

	kick    chan struct{}
	stop    chan struct{}
	done    chan struct{}
	started bool

	startOnce sync.Once
	stopOnce  sync.Once
}

func NewPipeline(sink Sink, cfg Config) *Pipeline {
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultFlushInterval
	}
	if cfg.BatchThreshold <= 0 {
		cfg.BatchThreshold = DefaultBatchThreshold
	}
	now := time.Now
	return &Pipeline{
		sessionID: uuid.NewString(),
		startedAt: now(),
		sink:      sink,
		cfg:       cfg,
		now:       now,
		kick:      make(chan struct{}, 1),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

func (p *Pipeline) SessionID() string { return p.sessionID }

// Start launches the flush loop. Safe to call once per pipeline.
func (p *Pipeline) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		p.mu.Lock()
		p.started = true
		p.mu.Unlock()
		go p.loop(ctx)
	})
}

// Stop drains the loop and makes a final flush attempt so teardown does
// not silently discard the tail of the session.
func (p *Pipeline) Stop() {
	p.stopOnce.Do(func() {
		close(p.stop)
		p.mu.Lock()
		started := p.started
		p.mu.Unlock()
		if started {
			<-p.done
		}
		ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
		defer cancel()
		p.Flush(ctx)
	})
}

// Track enqueues an event. It never fails from the caller's point of
// view; a stopped or sink-less pipeline just logs and drops.
func (p *Pipeline) Track(name string, properties map[string]any) {
	if name == "" {
		log.Warn().Str("module", "analytics").Msg("dropping unnamed event")
		return
	}
	now := p.now()
	ev := domain.Event{
		Name:       name,
		Properties: properties,
		SessionID:  p.sessionID,
		UserID:     p.cfg.UserID,
		WeddingID:  p.cfg.WeddingID,
		CreatedAt:  now,
		SinceStart: now.Sub(p.startedAt),
	}

	p.mu.Lock()
	p.queue = append(p.queue, ev)
	full := len(p.queue) >= p.cfg.BatchThreshold
	p.mu.Unlock()

	if full {
		select {
		case p.kick <- struct{}{}:
		default:
		}
	}
}

// TrackTiming runs fn, records its duration and outcome, and hands the
// original error straight back. It never masks the wrapped failure.
func (p *Pipeline) TrackTiming(name string, fn func() error, properties map[string]any) error {
	start := p.now()
	err := fn()

	props := make(map[string]any, len(properties)+2)
	for k, v := range properties {
		props[k] = v
	}
	props["durationMs"] = p.now().Sub(start).Milliseconds()
	props["success"] = err == nil
	p.Track(name, props)

	if err != nil {
		log.Debug().Str("module", "analytics").Str("event", name).Err(err).Msg("timed operation failed")
	}
	return err
}

// Flush drains the queue and sends it as one batch. On failure the batch
// goes back to the head of the queue so order is preserved for the next
// attempt.
func (p *Pipeline) Flush(ctx context.Context) {
	p.mu.Lock()
	if len(p.queue) == 0 {
		p.mu.Unlock()
		return
	}
	batch := p.queue
	p.queue = nil
	p.mu.Unlock()

	if err := p.sink.Send(ctx, batch); err != nil {
		log.Warn().Str("module", "analytics").Int("batch", len(batch)).Err(err).Msg("flush failed, requeueing")
		p.mu.Lock()
		p.queue = append(batch, p.queue...)
		p.mu.Unlock()
		return
	}
	log.Debug().Str("module", "analytics").Int("batch", len(batch)).Msg("flushed")
}

// QueueLen reports pending events; handy for panels and tests.
func (p *Pipeline) QueueLen() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

func (p *Pipeline) loop(ctx context.Context) {
	defer close(p.done)
	ticker := time.NewTicker(p.cfg.FlushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stop:
			return
		case <-ticker.C:
		case <-p.kick:
		}
		flushCtx, cancel := context.WithTimeout(context.Background(), flushTimeout)
		p.Flush(flushCtx)
		cancel()
	}
}
