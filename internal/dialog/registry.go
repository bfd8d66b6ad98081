package dialog

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

var ErrAlreadyPending = errors.New("continuation already pending")

// Policy decides what Present does when the key is already in use.
type Policy int

const (
	// Reject keeps the existing continuation and fails the new one.
	Reject Policy = iota
	// Overwrite drops the existing continuation without calling it.
	Overwrite
	// Supersede calls the existing continuation with ResponseDecline, then
	// replaces it.
	Supersede
)

// Callback runs on the owner's region goroutine when the client answers.
type Callback func(resp Response, state any)

type entry struct {
	cb      Callback
	state   any
	created time.Time
}

type ownerKey struct {
	owner uint64
	key   Key
}

// Registry holds the pending continuations of every connected owner. The
// owner is the session id of the player the question was sent to.
type Registry struct {
	mu      sync.Mutex
	pending map[ownerKey]*entry
	ttl     time.Duration
	now     func() time.Time
	log     *zap.Logger
}

// NewRegistry builds an empty registry. A zero ttl disables Expire.
func NewRegistry(ttl time.Duration, log *zap.Logger) *Registry {
	return &Registry{
		pending: make(map[ownerKey]*entry),
		ttl:     ttl,
		now:     time.Now,
		log:     log,
	}
}

// Present stores cb under (owner, key). Under Supersede the displaced
// callback is invoked after the new one is in place, outside the lock.
func (r *Registry) Present(owner uint64, key Key, cb Callback, state any, policy Policy) error {
	pk := ownerKey{owner, key}
	e := &entry{cb: cb, state: state, created: r.now()}

	r.mu.Lock()
	old, exists := r.pending[pk]
	if exists && policy == Reject {
		r.mu.Unlock()
		return ErrAlreadyPending
	}
	r.pending[pk] = e
	r.mu.Unlock()

	if exists {
		r.log.Debug("continuation replaced",
			zap.Uint64("owner", owner),
			zap.Stringer("key", key),
			zap.Bool("superseded", policy == Supersede))
		if policy == Supersede {
			old.cb(ResponseDecline, old.state)
		}
	}
	return nil
}

// Resolve removes the continuation for (owner, key) and runs it with resp.
// Returns false when nothing was pending; that is not an error.
func (r *Registry) Resolve(owner uint64, key Key, resp Response) bool {
	pk := ownerKey{owner, key}

	r.mu.Lock()
	e, exists := r.pending[pk]
	if exists {
		delete(r.pending, pk)
	}
	r.mu.Unlock()

	if !exists {
		r.log.Debug("unmatched dialog response",
			zap.Uint64("owner", owner),
			zap.Stringer("key", key))
		return false
	}
	e.cb(resp, e.state)
	return true
}

// Pending reports whether a continuation waits under (owner, key).
func (r *Registry) Pending(owner uint64, key Key) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.pending[ownerKey{owner, key}]
	return ok
}

// Len returns the number of pending continuations across all owners.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// ClearOwner drops every continuation held for owner without running them.
func (r *Registry) ClearOwner(owner uint64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for k := range r.pending {
		if k.owner == owner {
			delete(r.pending, k)
			n++
		}
	}
	return n
}

// Expire drops continuations older than the registry ttl without running
// them. Returns the number dropped.
func (r *Registry) Expire(now time.Time) int {
	if r.ttl <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for k, e := range r.pending {
		if now.Sub(e.created) >= r.ttl {
			delete(r.pending, k)
			n++
		}
	}
	if n > 0 {
		r.log.Debug("expired dialog continuations", zap.Int("count", n))
	}
	return n
}
