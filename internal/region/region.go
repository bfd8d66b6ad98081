package region

import (
	"container/heap"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Stats counts what a region's queue has done since start.
type Stats struct {
	Executed uint64
	Stale    uint64
	Failed   uint64
	Pending  int
}

// Region is one partition of the world with a single serial action queue.
// Only the goroutine calling Tick (normally Run) mutates the region's state.
type Region struct {
	ID   uint16
	Name string

	mu      sync.Mutex
	queue   actionQueue
	seq     uint64
	stopped bool

	tickMu sync.Mutex

	executed atomic.Uint64
	stale    atomic.Uint64
	failed   atomic.Uint64

	log *zap.Logger
}

func New(id uint16, name string, log *zap.Logger) *Region {
	return &Region{
		ID:   id,
		Name: name,
		log:  log.With(zap.Uint16("region", id)),
	}
}

// Schedule hands a to the region queue to run after delay. A zero delay runs
// it on the next tick. Safe from any goroutine.
func (r *Region) Schedule(a *Action, delay time.Duration) error {
	if !a.state.CompareAndSwap(int32(ActionCreated), int32(ActionScheduled)) {
		return ErrActionReused
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		a.state.Store(int32(ActionCompleted))
		return ErrRegionStopped
	}
	r.seq++
	a.seq = r.seq
	a.due = time.Now().Add(delay)
	heap.Push(&r.queue, a)
	return nil
}

// Post builds an action for owner and schedules it for the next tick.
func (r *Region) Post(name string, owner Owner, fn func() error) error {
	return r.Schedule(NewAction(name, owner, fn), 0)
}

// Pending returns the number of queued actions.
func (r *Region) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queue)
}

// Tick runs every action due at now, in order. Actions scheduled while the
// tick is running wait for the next tick. Returns the number of actions run.
func (r *Region) Tick(now time.Time) int {
	r.tickMu.Lock()
	defer r.tickMu.Unlock()

	r.mu.Lock()
	limit := r.seq
	r.mu.Unlock()

	ran := 0
	for {
		a := r.next(now, limit)
		if a == nil {
			return ran
		}
		ran++
		r.execute(a)
	}
}

func (r *Region) next(now time.Time, limit uint64) *Action {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.queue) == 0 {
		return nil
	}
	top := r.queue[0]
	// Actions queued during this tick wait for the next one.
	if top.due.After(now) || top.seq > limit {
		return nil
	}
	heap.Pop(&r.queue)
	return top
}

func (r *Region) execute(a *Action) {
	err := a.run()
	switch {
	case err == nil:
		r.executed.Add(1)
	case errors.Is(err, errStaleOwner):
		r.stale.Add(1)
		r.log.Debug("stale actor, action dropped", zap.String("action", a.name))
	default:
		r.failed.Add(1)
		r.log.Error("region action failed", zap.String("action", a.name), zap.Error(err))
	}
}

// Run ticks the region until ctx is done. On stop, queued actions without
// an owner still run; owned ones are dropped.
func (r *Region) Run(ctx context.Context, tickRate time.Duration) error {
	ticker := time.NewTicker(tickRate)
	defer ticker.Stop()
	defer r.stop()

	for {
		select {
		case now := <-ticker.C:
			r.Tick(now)
		case <-ctx.Done():
			return nil
		}
	}
}

// stop closes the queue to new actions, then runs the detached ones left in
// it (final saves) in queue order, whatever their due time.
func (r *Region) stop() {
	r.tickMu.Lock()
	defer r.tickMu.Unlock()

	r.mu.Lock()
	r.stopped = true
	left := make([]*Action, 0, len(r.queue))
	for r.queue.Len() > 0 {
		left = append(left, heap.Pop(&r.queue).(*Action))
	}
	r.queue = nil
	r.mu.Unlock()

	dropped := 0
	for _, a := range left {
		if a.owner != nil {
			a.state.Store(int32(ActionCompleted))
			dropped++
			continue
		}
		r.execute(a)
	}
	if len(left) > 0 {
		r.log.Info("region stopped with pending actions",
			zap.Int("ran", len(left)-dropped), zap.Int("dropped", dropped))
	}
}

// Stats returns the region's counters.
func (r *Region) Stats() Stats {
	return Stats{
		Executed: r.executed.Load(),
		Stale:    r.stale.Load(),
		Failed:   r.failed.Load(),
		Pending:  r.Pending(),
	}
}
