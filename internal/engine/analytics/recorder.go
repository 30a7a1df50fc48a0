package analytics

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"linkroute/internal/engine/routing"
	"linkroute/internal/engine/visitor"
	"linkroute/internal/platform/telemetry"
)

var ErrRecorderClosed = errors.New("click recorder closed")

type ClickStore interface {
	InsertClick(ctx context.Context, c *Click) error
}

// ClickCounter bumps the denormalised counter on the link row.
type ClickCounter interface {
	IncrementClickCount(ctx context.Context, linkID string, at time.Time) error
}

// Enricher derives visitor fields for clicks recorded without them. at is
// the moment of the visit, so local time does not drift with queue lag.
type Enricher interface {
	ExtractAt(ctx context.Context, meta visitor.RequestMeta, at time.Time) routing.VisitorContext
}

// Recorder persists clicks off the request path through a bounded queue.
// When the queue is full new clicks are dropped.
type Recorder struct {
	store     ClickStore
	counter   ClickCounter
	forwarder *Forwarder
	enricher  Enricher
	timeout   time.Duration

	queue  chan *Click
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewRecorder(store ClickStore, counter ClickCounter, forwarder *Forwarder, queueSize, workers int) *Recorder {
	if queueSize <= 0 {
		queueSize = 1024
	}
	if workers <= 0 {
		workers = 2
	}
	r := &Recorder{
		store:     store,
		counter:   counter,
		forwarder: forwarder,
		timeout:   5 * time.Second,
		queue:     make(chan *Click, queueSize),
	}
	r.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go r.work()
	}
	return r
}

// WithEnricher sets the extractor used for clicks queued without visitor fields.
func (r *Recorder) WithEnricher(e Enricher) *Recorder {
	r.enricher = e
	return r
}

// Record enqueues c without blocking. It reports false when c was dropped.
func (r *Recorder) Record(c *Click) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		telemetry.ClicksDropped.Inc()
		return false
	}

	select {
	case r.queue <- c:
		telemetry.ClickQueueDepth.Set(float64(len(r.queue)))
		return true
	default:
		telemetry.ClicksDropped.Inc()
		log.Warn().Str("alias", c.Alias).Msg("click queue full, dropping click")
		return false
	}
}

// Close stops accepting clicks and waits for the queue to drain or ctx to end.
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrRecorderClosed
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Recorder) work() {
	defer r.wg.Done()
	for c := range r.queue {
		telemetry.ClickQueueDepth.Set(float64(len(r.queue)))
		r.persist(c)
	}
}

func (r *Recorder) persist(c *Click) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Interface("panic", rec).Str("click_id", c.ID).Msg("recovered from panic while recording click")
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if c.meta != nil {
		if r.enricher != nil {
			c.setVisitor(r.enricher.ExtractAt(ctx, *c.meta, time.UnixMilli(c.Timestamp)))
		}
		c.meta = nil
	}

	if err := r.store.InsertClick(ctx, c); err != nil {
		telemetry.ClicksDropped.Inc()
		log.Error().Err(err).Str("link_id", c.LinkID).Msg("failed to store click")
		return
	}
	telemetry.ClicksRecorded.Inc()

	if r.counter != nil {
		if err := r.counter.IncrementClickCount(ctx, c.LinkID, time.UnixMilli(c.Timestamp)); err != nil {
			log.Error().Err(err).Str("link_id", c.LinkID).Msg("failed to increment click count")
		}
	}

	if r.forwarder != nil {
		if err := r.forwarder.Forward(ctx, c); err != nil {
			log.Warn().Err(err).Str("click_id", c.ID).Msg("failed to forward click")
		}
	}
}
