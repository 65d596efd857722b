// Package debounce coalesces bursts of live queries so that only the latest
// call per key reaches the search pipeline.
package debounce

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/placematch/internal/metrics"
)

// DefaultQuiet is the quiet period used when none is configured.
const DefaultQuiet = 500 * time.Millisecond

// ErrSuperseded is returned to a call replaced by a newer one for the same
// key, whether it was still waiting or already running.
var ErrSuperseded = eris.New("debounce: superseded by a newer call")

type slot struct {
	gen    uint64
	cancel context.CancelFunc
}

// Debouncer runs fn for the latest call per key once the key has been quiet
// for the configured period. Older calls return ErrSuperseded and their
// results are discarded.
type Debouncer[T any] struct {
	quiet time.Duration

	mu    sync.Mutex
	seq   uint64
	slots map[string]*slot
}

// New creates a Debouncer. A non-positive quiet period uses DefaultQuiet.
func New[T any](quiet time.Duration) *Debouncer[T] {
	if quiet <= 0 {
		quiet = DefaultQuiet
	}
	return &Debouncer[T]{quiet: quiet, slots: make(map[string]*slot)}
}

// Quiet returns the configured quiet period.
func (d *Debouncer[T]) Quiet() time.Duration {
	return d.quiet
}

// Do registers a call for key, waits out the quiet period and runs fn if no
// newer call for key arrived meanwhile. The context passed to fn is cancelled
// as soon as a newer call arrives.
func (d *Debouncer[T]) Do(ctx context.Context, key string, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	gen := d.register(key, cancel)
	defer d.release(key, gen)

	timer := time.NewTimer(d.quiet)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-runCtx.Done():
		if !d.latest(key, gen) {
			return zero, d.superseded(key)
		}
		return zero, eris.Wrap(ctx.Err(), "debounce: wait")
	}

	if !d.latest(key, gen) {
		return zero, d.superseded(key)
	}

	v, err := fn(runCtx)
	if !d.latest(key, gen) {
		return zero, d.superseded(key)
	}
	if err != nil {
		return zero, err
	}
	return v, nil
}

func (d *Debouncer[T]) register(key string, cancel context.CancelFunc) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	s, ok := d.slots[key]
	if !ok {
		s = &slot{}
		d.slots[key] = s
	}
	if s.cancel != nil {
		s.cancel()
	}
	d.seq++
	s.gen = d.seq
	s.cancel = cancel
	return s.gen
}

func (d *Debouncer[T]) latest(key string, gen uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.slots[key]
	return ok && s.gen == gen
}

// release drops the key once its latest call is done.
func (d *Debouncer[T]) release(key string, gen uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if s, ok := d.slots[key]; ok && s.gen == gen {
		delete(d.slots, key)
	}
}

func (d *Debouncer[T]) superseded(key string) error {
	metrics.RecordDebounceSuperseded()
	zap.L().Debug("debounce: call superseded", zap.String("key", key))
	return ErrSuperseded
}
