package system

import (
	"time"

	coresys "github.com/dolgo/server/internal/core/system"
	"github.com/dolgo/server/internal/dialog"
	"go.uber.org/zap"
)

// DialogExpirySystem drops continuations older than the registry TTL.
// Phase 0 (Expire).
type DialogExpirySystem struct {
	dialogs *dialog.Registry
	log     *zap.Logger
	now     func() time.Time
}

func NewDialogExpirySystem(dialogs *dialog.Registry, log *zap.Logger) *DialogExpirySystem {
	return &DialogExpirySystem{dialogs: dialogs, log: log, now: time.Now}
}

func (s *DialogExpirySystem) Phase() coresys.Phase { return coresys.PhaseExpire }

func (s *DialogExpirySystem) Update(_ time.Duration) {
	if n := s.dialogs.Expire(s.now()); n > 0 {
		s.log.Debug("dialogs expired", zap.Int("count", n))
	}
}
