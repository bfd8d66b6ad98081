package system

import (
	"time"

	coresys "github.com/dolgo/server/internal/core/system"
	"github.com/dolgo/server/internal/handler"
	"github.com/dolgo/server/internal/world"
	"go.uber.org/zap"
)

// Flusher asks the journal to write what it has queued.
type Flusher interface {
	RequestFlush()
}

// PersistenceSystem periodically queues an autosave for every player in the
// world and then flushes the journal. Phase 1 (Persist).
type PersistenceSystem struct {
	deps      *handler.Deps
	journal   Flusher
	log       *zap.Logger
	tickCount int
	interval  int // autosave every N ticks
}

func NewPersistenceSystem(deps *handler.Deps, journal Flusher, log *zap.Logger, intervalTicks int) *PersistenceSystem {
	if intervalTicks < 1 {
		intervalTicks = 1
	}
	return &PersistenceSystem{
		deps:     deps,
		journal:  journal,
		log:      log,
		interval: intervalTicks,
	}
}

func (s *PersistenceSystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *PersistenceSystem) Update(_ time.Duration) {
	s.tickCount++
	if s.tickCount < s.interval {
		return
	}
	s.tickCount = 0
	s.SaveAll()
}

// SaveAll queues a save for every player and requests a journal flush.
// Saves run on the region goroutines, so the flush may not include all of
// them; the next one will.
func (s *PersistenceSystem) SaveAll() int {
	count := 0
	s.deps.World.All(func(p *world.Player) {
		if err := handler.SavePlayer(s.deps, p); err != nil {
			s.log.Warn("autosave not queued", zap.String("name", p.Name), zap.Error(err))
			return
		}
		count++
	})
	s.journal.RequestFlush()
	if count > 0 {
		s.log.Debug("autosave queued", zap.Int("players", count))
	}
	return count
}
