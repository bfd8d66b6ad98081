package packet

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type testSession struct {
	id     uint64
	status Status
}

func (s *testSession) ID() uint64     { return s.id }
func (s *testSession) Status() Status { return s.status }

func newTestRegistry(t *testing.T) (*Registry, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	return NewRegistry(Version168, zap.New(core)), logs
}

func inGame() *testSession {
	return &testSession{id: 1, status: StatusPlayerInGame}
}

func frameFor(op Opcode, body ...byte) []byte {
	w := NewWriter()
	w.WriteShort(Version168.Encode(op))
	w.WriteBytes(body)
	return w.Bytes()
}

const testEcho Opcode = 0x01

func TestDispatchEchoHandler(t *testing.T) {
	reg, _ := newTestRegistry(t)
	var got uint16
	var endPos, endLen int
	err := reg.Register(Handler{
		Opcode:      testEcho,
		Description: "echo",
		Statuses:    []Status{StatusPlayerInGame},
		Fn: func(_ Session, f *Frame) error {
			v, err := f.ReadShort()
			if err != nil {
				return err
			}
			got = v
			endPos, endLen = f.Pos(), f.Len()
			return nil
		},
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	reg.Freeze()

	if err := reg.Dispatch(inGame(), frameFor(testEcho, 0xBE, 0xEF)); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if got != 0xBEEF {
		t.Fatalf("payload = %#x", got)
	}
	if endPos != endLen {
		t.Fatalf("cursor %d not at end of frame %d", endPos, endLen)
	}
}

func TestDispatchUnknownOpcode(t *testing.T) {
	reg, logs := newTestRegistry(t)
	reg.Freeze()

	err := reg.Dispatch(inGame(), frameFor(0x55, 1, 2))
	if !errors.Is(err, ErrUnknownOpcode) {
		t.Fatalf("expected ErrUnknownOpcode, got %v", err)
	}
	if n := logs.FilterMessage("unknown opcode").Len(); n != 1 {
		t.Fatalf("unknown opcode events = %d", n)
	}
	if _, ok := reg.Resolve(0x55); ok {
		t.Fatalf("dispatch must not register the opcode")
	}
	if reg.Len() != 0 {
		t.Fatalf("registry grew to %d", reg.Len())
	}
}

func TestDispatchTruncatedFrameLogsOnce(t *testing.T) {
	for size := 0; size < 6; size++ {
		reg, logs := newTestRegistry(t)
		if err := reg.Register(Handler{
			Opcode:   testEcho,
			Statuses: []Status{StatusPlayerInGame},
			Fn: func(_ Session, f *Frame) error {
				if _, err := f.ReadInt(); err != nil {
					return err
				}
				return nil
			},
		}); err != nil {
			t.Fatal(err)
		}
		raw := frameFor(testEcho, 1, 2, 3, 4)[:size]

		err := reg.Dispatch(inGame(), raw)
		if !errors.Is(err, ErrFrameTruncated) {
			t.Fatalf("size %d: expected ErrFrameTruncated, got %v", size, err)
		}
		events := logs.FilterMessage("frame truncated").Len() + logs.FilterMessage("handler fault").Len()
		if events != 1 {
			t.Fatalf("size %d: logged %d fault events", size, events)
		}
	}
}

func TestDispatchRecoversPanics(t *testing.T) {
	reg, logs := newTestRegistry(t)
	_ = reg.Register(Handler{
		Opcode:   testEcho,
		Statuses: []Status{StatusPlayerInGame},
		Fn: func(Session, *Frame) error {
			var m map[string]int
			m["boom"]++
			return nil
		},
	})

	err := reg.Dispatch(inGame(), frameFor(testEcho))
	if !errors.Is(err, ErrHandlerFault) {
		t.Fatalf("expected ErrHandlerFault, got %v", err)
	}
	if n := logs.FilterMessage("handler fault").Len(); n != 1 {
		t.Fatalf("handler fault events = %d", n)
	}
}

func TestDispatchWrapsHandlerErrors(t *testing.T) {
	reg, logs := newTestRegistry(t)
	cause := errors.New("no such merchant")
	_ = reg.Register(Handler{
		Opcode:   testEcho,
		Statuses: []Status{StatusPlayerInGame},
		Fn:       func(Session, *Frame) error { return cause },
	})

	err := reg.Dispatch(inGame(), frameFor(testEcho))
	if !errors.Is(err, ErrHandlerFault) || !errors.Is(err, cause) {
		t.Fatalf("expected fault wrapping cause, got %v", err)
	}
	if logs.FilterMessage("handler fault").Len() != 1 {
		t.Fatalf("expected one handler fault event")
	}
}

func TestDispatchStatusGate(t *testing.T) {
	reg, _ := newTestRegistry(t)
	called := false
	_ = reg.Register(Handler{
		Opcode:   testEcho,
		Statuses: []Status{StatusPlayerInGame},
		Fn:       func(Session, *Frame) error { called = true; return nil },
	})

	err := reg.Dispatch(&testSession{id: 2, status: StatusCharScreen}, frameFor(testEcho))
	if !errors.Is(err, ErrStatusRejected) {
		t.Fatalf("expected ErrStatusRejected, got %v", err)
	}
	if called {
		t.Fatalf("handler ran in the wrong status")
	}
}

func TestRegisterDuplicateAndFrozen(t *testing.T) {
	reg, _ := newTestRegistry(t)
	first := Handler{Opcode: testEcho, Description: "first", Fn: func(Session, *Frame) error { return nil }}
	second := Handler{Opcode: testEcho, Description: "second", Fn: func(Session, *Frame) error { return nil }}

	if err := reg.Register(first); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := reg.Register(second); !errors.Is(err, ErrDuplicateOpcode) {
		t.Fatalf("expected ErrDuplicateOpcode, got %v", err)
	}
	h, _ := reg.Resolve(testEcho)
	if h.Description != "first" {
		t.Fatalf("duplicate replaced the first handler: %q", h.Description)
	}

	reg.Freeze()
	other := Handler{Opcode: 0x02, Fn: func(Session, *Frame) error { return nil }}
	if err := reg.Register(other); !errors.Is(err, ErrRegistryFrozen) {
		t.Fatalf("expected ErrRegistryFrozen, got %v", err)
	}
}

func TestDescribeSortedByOpcode(t *testing.T) {
	reg, _ := newTestRegistry(t)
	for _, op := range []Opcode{0x30, 0x10, 0x20} {
		_ = reg.Register(Handler{Opcode: op, Fn: func(Session, *Frame) error { return nil }})
	}
	d := reg.Describe()
	if len(d) != 3 || d[0].Opcode != 0x10 || d[2].Opcode != 0x30 {
		t.Fatalf("describe = %+v", d)
	}
}
