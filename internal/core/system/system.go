package system

import "time"

// Phase defines execution ordering within a single housekeeping tick.
type Phase int

const (
	PhaseExpire  Phase = iota // 0: drop timed out continuations
	PhasePersist              // 1: autosave + journal flush
	PhaseReport               // 2: periodic stats
)

// System is the interface every housekeeping system implements. Update runs
// on the runner goroutine and must not touch player state directly; work on
// players is posted to their region.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
