package system

import (
	"time"

	coresys "github.com/dolgo/server/internal/core/system"
	"github.com/dolgo/server/internal/handler"
	"github.com/dolgo/server/internal/persist"
	"go.uber.org/zap"
)

// JournalStatter exposes journal counters.
type JournalStatter interface {
	Stats() persist.JournalStats
}

// StatsSystem logs server counters every interval ticks. Phase 2 (Report).
type StatsSystem struct {
	deps      *handler.Deps
	journal   JournalStatter
	log       *zap.Logger
	tickCount int
	interval  int
}

func NewStatsSystem(deps *handler.Deps, journal JournalStatter, log *zap.Logger, intervalTicks int) *StatsSystem {
	if intervalTicks < 1 {
		intervalTicks = 1
	}
	return &StatsSystem{deps: deps, journal: journal, log: log, interval: intervalTicks}
}

func (s *StatsSystem) Phase() coresys.Phase { return coresys.PhaseReport }

func (s *StatsSystem) Update(_ time.Duration) {
	s.tickCount++
	if s.tickCount < s.interval {
		return
	}
	s.tickCount = 0
	s.log.Info("server stats", s.Fields()...)
}

// Fields collects the current counters as log fields.
func (s *StatsSystem) Fields() []zap.Field {
	var executed, stale, failed uint64
	pending := 0
	for _, r := range s.deps.Regions.All() {
		st := r.Stats()
		executed += st.Executed
		stale += st.Stale
		failed += st.Failed
		pending += st.Pending
	}
	login := s.deps.Stats()
	fields := []zap.Field{
		zap.Int("players", s.deps.World.Count()),
		zap.Int("online", login.Online),
		zap.Uint64("logins", login.Logins),
		zap.Int("dialogs", s.deps.Dialogs.Len()),
		zap.Uint64("actions", executed),
		zap.Uint64("actions_stale", stale),
		zap.Uint64("actions_failed", failed),
		zap.Int("actions_pending", pending),
	}
	if s.journal != nil {
		js := s.journal.Stats()
		fields = append(fields,
			zap.Uint64("saves", js.Saves),
			zap.Uint64("wal", js.WAL),
			zap.Uint64("journal_dropped", js.Dropped),
			zap.Int("journal_queued", js.Queued),
		)
	}
	return fields
}
