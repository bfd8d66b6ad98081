package scripting

import (
	"path/filepath"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newTestEngine(t *testing.T) (*Engine, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	e, err := NewEngine(filepath.Join("..", "..", "scripts"), zap.New(core))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	t.Cleanup(e.Close)
	return e, logs
}

func TestCanJumpBundledScript(t *testing.T) {
	e, _ := newTestEngine(t)

	ok, msg := e.CanJump("frontier_access", JumpContext{Player: "Arthur", Level: 5})
	if ok || msg == "" {
		t.Fatalf("low level allowed: ok=%v msg=%q", ok, msg)
	}
	ok, msg = e.CanJump("frontier_access", JumpContext{Player: "Arthur", Level: 50})
	if !ok || msg != "" {
		t.Fatalf("high level denied: ok=%v msg=%q", ok, msg)
	}
}

func TestCanJumpMissingFunctionLoggedOnce(t *testing.T) {
	e, logs := newTestEngine(t)
	for i := 0; i < 3; i++ {
		if ok, _ := e.CanJump("no_such_check", JumpContext{}); !ok {
			t.Fatalf("missing check denied the jump")
		}
	}
	if n := logs.FilterMessage("lua jump check not found, allowing").Len(); n != 1 {
		t.Fatalf("logged %d times", n)
	}
}

func TestCanJumpScriptError(t *testing.T) {
	e, _ := newTestEngine(t)
	if err := e.DoString(`function broken(ctx) error("boom") end`); err != nil {
		t.Fatal(err)
	}
	if ok, _ := e.CanJump("broken", JumpContext{}); ok {
		t.Fatalf("failing script allowed the jump")
	}
}

func TestPriceModifier(t *testing.T) {
	e, _ := newTestEngine(t)
	if got := e.PriceModifier(PriceContext{BasePrice: 100, Region: 1}); got != 100 {
		t.Fatalf("home price = %d", got)
	}
	if got := e.PriceModifier(PriceContext{BasePrice: 100, Region: 163}); got != 110 {
		t.Fatalf("frontier price = %d", got)
	}

	if err := e.DoString(`function merchant_price(ctx) return "free" end`); err != nil {
		t.Fatal(err)
	}
	if got := e.PriceModifier(PriceContext{BasePrice: 100}); got != 100 {
		t.Fatalf("bad script price = %d", got)
	}
}

func TestConcurrentCalls(t *testing.T) {
	e, _ := newTestEngine(t)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(level int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				e.CanJump("frontier_access", JumpContext{Level: level})
				e.PriceModifier(PriceContext{BasePrice: 10})
			}
		}(i * 10)
	}
	wg.Wait()
}
