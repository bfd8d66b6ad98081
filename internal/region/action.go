package region

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"
)

var (
	ErrActionReused  = errors.New("action already scheduled")
	ErrRegionStopped = errors.New("region stopped")
	errStaleOwner    = errors.New("owner no longer alive")
)

// ActionState is the lifecycle of a deferred action.
type ActionState int32

const (
	ActionCreated ActionState = iota
	ActionScheduled
	ActionRunning
	ActionCompleted
)

func (s ActionState) String() string {
	switch s {
	case ActionCreated:
		return "Created"
	case ActionScheduled:
		return "Scheduled"
	case ActionRunning:
		return "Running"
	case ActionCompleted:
		return "Completed"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// Owner is the actor an action was decoded for. The action holds it as a
// plain back reference and asks Alive before touching world state.
type Owner interface {
	Alive() bool
}

// Action is one unit of world mutation decoded on a network goroutine and
// executed later on its region's goroutine. It runs at most once.
type Action struct {
	name  string
	owner Owner
	fn    func() error
	state atomic.Int32

	due   time.Time
	seq   uint64
	index int
}

// NewAction wraps fn. A nil owner means the action is not bound to an actor.
func NewAction(name string, owner Owner, fn func() error) *Action {
	return &Action{name: name, owner: owner, fn: fn, index: -1}
}

func (a *Action) Name() string { return a.name }

func (a *Action) State() ActionState {
	return ActionState(a.state.Load())
}

// run executes the action on the region goroutine. A dead owner turns the
// run into a no-op reported as errStaleOwner.
func (a *Action) run() (err error) {
	a.state.Store(int32(ActionRunning))
	defer a.state.Store(int32(ActionCompleted))

	if a.owner != nil && !a.owner.Alive() {
		return errStaleOwner
	}
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("action %s panicked: %v", a.name, rec)
		}
	}()
	return a.fn()
}

// actionQueue orders actions by due time, then by enqueue sequence.
type actionQueue []*Action

func (q actionQueue) Len() int { return len(q) }

func (q actionQueue) Less(i, j int) bool {
	if q[i].due.Equal(q[j].due) {
		return q[i].seq < q[j].seq
	}
	return q[i].due.Before(q[j].due)
}

func (q actionQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *actionQueue) Push(x any) {
	a := x.(*Action)
	a.index = len(*q)
	*q = append(*q, a)
}

func (q *actionQueue) Pop() any {
	old := *q
	n := len(old)
	a := old[n-1]
	old[n-1] = nil
	a.index = -1
	*q = old[:n-1]
	return a
}
