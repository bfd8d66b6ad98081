package system

import (
	"context"
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu    sync.Mutex
	order []string
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	r.order = append(r.order, s)
	r.mu.Unlock()
}

type stub struct {
	name  string
	phase Phase
	rec   *recorder
}

func (s *stub) Phase() Phase { return s.phase }
func (s *stub) Update(_ time.Duration) { s.rec.add(s.name) }

func TestRunnerPhaseOrder(t *testing.T) {
	rec := &recorder{}
	r := NewRunner()
	r.Register(&stub{"report", PhaseReport, rec})
	r.Register(&stub{"persist", PhasePersist, rec})
	r.Register(&stub{"expire", PhaseExpire, rec})
	r.Register(&stub{"persist2", PhasePersist, rec})
	r.Tick(time.Second)

	want := []string{"expire", "persist", "persist2", "report"}
	if len(rec.order) != len(want) {
		t.Fatalf("order = %v", rec.order)
	}
	for i := range want {
		if rec.order[i] != want[i] {
			t.Fatalf("order = %v, want %v", rec.order, want)
		}
	}
}

func TestRunnerRunStops(t *testing.T) {
	rec := &recorder{}
	r := NewRunner()
	r.Register(&stub{"tick", PhaseExpire, rec})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx, 5*time.Millisecond) }()
	time.Sleep(30 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("runner did not stop")
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.order) == 0 {
		t.Fatal("no ticks ran")
	}
}
