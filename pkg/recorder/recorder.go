// Package recorder persists click events off the request path. Events are
// handed over through a bounded channel and drained by a small worker
// pool; a full buffer drops the event rather than delaying a redirect that
// has already been issued.
package recorder

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kompihq/kompi-engine/pkg/core/domain"
	"github.com/kompihq/kompi-engine/pkg/log"
	"github.com/kompihq/kompi-engine/pkg/metrics"
	"github.com/kompihq/kompi-engine/pkg/ports"
)

// Options tunes the worker pool. Zero values take the defaults.
type Options struct {
	BufferSize int
	Workers    int
	Retries    int
	// RetryDelay is the base backoff between append attempts.
	RetryDelay time.Duration
	// AppendTimeout bounds a single store append.
	AppendTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.BufferSize <= 0 {
		o.BufferSize = 1024
	}
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.Retries < 0 {
		o.Retries = 0
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = 100 * time.Millisecond
	}
	if o.AppendTimeout <= 0 {
		o.AppendTimeout = 5 * time.Second
	}
	return o
}

// Recorder is the asynchronous click/scan recorder.
type Recorder struct {
	store  ports.EventStore
	queue  chan domain.ClickEvent
	opts   Options
	logger zerolog.Logger

	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New starts the worker pool immediately.
func New(store ports.EventStore, opts Options) *Recorder {
	opts = opts.withDefaults()
	r := &Recorder{
		store:  store,
		queue:  make(chan domain.ClickEvent, opts.BufferSize),
		opts:   opts,
		logger: log.WithComponent("recorder"),
	}
	for i := 0; i < opts.Workers; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}
	return r
}

// Enqueue hands an event to the pool without blocking. It reports false
// when the buffer is full and the event was dropped.
func (r *Recorder) Enqueue(event domain.ClickEvent) bool {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	select {
	case r.queue <- event:
		metrics.RecorderQueueDepth.Inc()
		return true
	default:
		metrics.EventsDropped.WithLabelValues("queue_full").Inc()
		return false
	}
}

// Close stops intake, drains the buffer, and waits for the workers.
func (r *Recorder) Close() {
	r.closeOnce.Do(func() {
		close(r.queue)
	})
	r.wg.Wait()
}

func (r *Recorder) worker(id int) {
	defer r.wg.Done()
	for event := range r.queue {
		metrics.RecorderQueueDepth.Dec()
		r.persist(id, event)
	}
}

func (r *Recorder) persist(workerID int, event domain.ClickEvent) {
	var err error
	for attempt := 0; attempt <= r.opts.Retries; attempt++ {
		if attempt > 0 {
			time.Sleep(r.opts.RetryDelay * time.Duration(attempt))
		}
		ctx, cancel := context.WithTimeout(context.Background(), r.opts.AppendTimeout)
		err = r.store.Append(ctx, &event)
		cancel()
		if err == nil {
			metrics.EventsRecorded.WithLabelValues(string(event.Kind)).Inc()
			return
		}
	}

	// Terminal failure: the event is lost for this request. The redirect
	// was already served, so all we can do is count and log it.
	metrics.EventsDropped.WithLabelValues("store_error").Inc()
	r.logger.Error().
		Err(err).
		Int("worker", workerID).
		Str("kind", string(event.Kind)).
		Str("link_id", event.LinkID).
		Str("code_id", event.CodeID).
		Msg("click event dropped after retries")
}

var _ ports.Recorder = (*Recorder)(nil)
