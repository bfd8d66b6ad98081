package packet

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
)

var (
	ErrUnknownOpcode   = errors.New("unknown opcode")
	ErrDuplicateOpcode = errors.New("duplicate opcode")
	ErrRegistryFrozen  = errors.New("registry frozen")
	ErrStatusRejected  = errors.New("opcode not allowed in session status")
	ErrHandlerFault    = errors.New("handler fault")
)

// Status represents the client's current protocol phase (eClientStatus).
type Status int

const (
	StatusNone Status = iota
	StatusConnecting
	StatusCharScreen
	StatusWorldResetting
	StatusPlayerInGame
	StatusLinkdead
)

func (s Status) String() string {
	switch s {
	case StatusNone:
		return "None"
	case StatusConnecting:
		return "Connecting"
	case StatusCharScreen:
		return "CharScreen"
	case StatusWorldResetting:
		return "WorldResetting"
	case StatusPlayerInGame:
		return "PlayerInGame"
	case StatusLinkdead:
		return "Linkdead"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// Session is the view of a connection the registry needs.
// Handlers type-assert it to the concrete session type.
type Session interface {
	ID() uint64
	Status() Status
}

// HandlerFunc decodes the rest of a frame and acts on it. The frame cursor
// is positioned just after the opcode.
type HandlerFunc func(sess Session, f *Frame) error

// Handler is one registration: opcode, allowed statuses and the callback.
// Description is only used for diagnostics.
type Handler struct {
	Opcode      Opcode
	Description string
	Statuses    []Status
	Fn          HandlerFunc

	allowed map[Status]bool
}

// Registry maps opcodes to handlers. It is filled once at startup, frozen,
// and read without locks afterwards.
type Registry struct {
	version  Version
	handlers map[Opcode]*Handler
	frozen   bool
	slow     time.Duration
	log      *zap.Logger
}

func NewRegistry(version Version, log *zap.Logger) *Registry {
	return &Registry{
		version:  version,
		handlers: make(map[Opcode]*Handler),
		slow:     time.Second,
		log:      log,
	}
}

// SetSlowThreshold sets the duration above which a handler call is logged as slow.
// Zero disables the warning.
func (reg *Registry) SetSlowThreshold(d time.Duration) {
	reg.slow = d
}

// Version returns the protocol version the registry decodes.
func (reg *Registry) Version() Version {
	return reg.version
}

// Register maps an opcode to a handler. A duplicate opcode is an error; the
// first registration stays in place.
func (reg *Registry) Register(h Handler) error {
	if reg.frozen {
		return fmt.Errorf("register %s: %w", h.Opcode, ErrRegistryFrozen)
	}
	if h.Fn == nil {
		return fmt.Errorf("register %s: nil handler func", h.Opcode)
	}
	if prev, ok := reg.handlers[h.Opcode]; ok {
		return fmt.Errorf("register %s (%q, already %q): %w",
			h.Opcode, h.Description, prev.Description, ErrDuplicateOpcode)
	}
	h.allowed = make(map[Status]bool, len(h.Statuses))
	for _, s := range h.Statuses {
		h.allowed[s] = true
	}
	reg.handlers[h.Opcode] = &h
	return nil
}

// Freeze ends the registration phase.
func (reg *Registry) Freeze() {
	reg.frozen = true
}

// Resolve returns the handler registered for op.
func (reg *Registry) Resolve(op Opcode) (*Handler, bool) {
	h, ok := reg.handlers[op]
	return h, ok
}

// Len returns the number of registered handlers.
func (reg *Registry) Len() int {
	return len(reg.handlers)
}

// Describe returns all registrations sorted by opcode.
func (reg *Registry) Describe() []Handler {
	out := make([]Handler, 0, len(reg.handlers))
	for _, h := range reg.handlers {
		out = append(out, *h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Opcode < out[j].Opcode })
	return out
}

// Dispatch reads the opcode from raw, validates the session status and calls
// the handler on the calling goroutine. Every failure is logged here exactly
// once and returned for the caller's bookkeeping; nothing panics out.
func (reg *Registry) Dispatch(sess Session, raw []byte) error {
	f := NewFrame(raw)
	wire, err := f.ReadShort()
	if err != nil {
		reg.log.Warn("frame truncated", zap.Uint64("session", sess.ID()), zap.Int("size", len(raw)))
		return fmt.Errorf("read opcode: %w", err)
	}
	op := reg.version.Decode(wire)
	status := sess.Status()

	h, ok := reg.handlers[op]
	if !ok {
		reg.log.Warn("unknown opcode",
			zap.Uint64("session", sess.ID()),
			zap.String("opcode", op.String()),
			zap.Uint16("wire", wire),
			zap.Int("size", len(raw)),
		)
		return fmt.Errorf("opcode %s: %w", op, ErrUnknownOpcode)
	}

	if !h.allowed[status] {
		reg.log.Debug("opcode not allowed in status",
			zap.Uint64("session", sess.ID()),
			zap.String("opcode", op.String()),
			zap.String("status", status.String()),
		)
		return fmt.Errorf("opcode %s in %s: %w", op, status, ErrStatusRejected)
	}

	start := time.Now()
	err = reg.safeCall(h, sess, f)
	if took := time.Since(start); reg.slow > 0 && took > reg.slow {
		reg.log.Warn("slow packet handler",
			zap.String("opcode", op.String()),
			zap.String("handler", h.Description),
			zap.Duration("took", took),
		)
	}
	if err == nil {
		return nil
	}

	if errors.Is(err, ErrFrameTruncated) {
		reg.log.Warn("frame truncated",
			zap.Uint64("session", sess.ID()),
			zap.String("opcode", op.String()),
			zap.Error(err),
		)
		return err
	}
	reg.log.Error("handler fault",
		zap.Uint64("session", sess.ID()),
		zap.String("opcode", op.String()),
		zap.String("handler", h.Description),
		zap.Error(err),
	)
	if errors.Is(err, ErrHandlerFault) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrHandlerFault, err)
}

// safeCall executes a handler with panic recovery so that a single bad
// packet cannot take down the connection.
func (reg *Registry) safeCall(h *Handler, sess Session, f *Frame) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: opcode %s panicked: %v", ErrHandlerFault, h.Opcode, rec)
		}
	}()
	return h.Fn(sess, f)
}
