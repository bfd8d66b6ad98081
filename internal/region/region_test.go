package region

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

type fakeOwner struct{ alive atomic.Bool }

func newOwner() *fakeOwner {
	o := &fakeOwner{}
	o.alive.Store(true)
	return o
}

func (o *fakeOwner) Alive() bool { return o.alive.Load() }

func later() time.Time { return time.Now().Add(time.Hour) }

func TestActionsRunFIFO(t *testing.T) {
	r := New(1, "Camelot", zap.NewNop())
	var order []string
	var aDone atomic.Bool
	owner := newOwner()

	a := NewAction("A", owner, func() error {
		time.Sleep(5 * time.Millisecond)
		order = append(order, "A")
		aDone.Store(true)
		return nil
	})
	b := NewAction("B", owner, func() error {
		if !aDone.Load() {
			t.Errorf("B started before A completed")
		}
		order = append(order, "B")
		return nil
	})
	if err := r.Schedule(a, 0); err != nil {
		t.Fatal(err)
	}
	if err := r.Schedule(b, 0); err != nil {
		t.Fatal(err)
	}
	if a.State() != ActionScheduled {
		t.Fatalf("state = %s", a.State())
	}

	if n := r.Tick(later()); n != 2 {
		t.Fatalf("ran %d actions", n)
	}
	if len(order) != 2 || order[0] != "A" || order[1] != "B" {
		t.Fatalf("order = %v", order)
	}
	if a.State() != ActionCompleted || b.State() != ActionCompleted {
		t.Fatalf("states = %s, %s", a.State(), b.State())
	}
}

func TestStaleOwnerIsNoop(t *testing.T) {
	r := New(1, "Camelot", zap.NewNop())
	owner := newOwner()
	mutations := 0
	a := NewAction("buy", owner, func() error {
		mutations++
		return nil
	})
	if err := r.Schedule(a, 0); err != nil {
		t.Fatal(err)
	}

	owner.alive.Store(false) // disconnect between decode and run
	r.Tick(later())

	if mutations != 0 {
		t.Fatalf("stale action mutated state %d times", mutations)
	}
	if a.State() != ActionCompleted {
		t.Fatalf("state = %s", a.State())
	}
	if s := r.Stats(); s.Stale != 1 || s.Failed != 0 {
		t.Fatalf("stats = %+v", s)
	}
}

func TestFailingActionDoesNotStopQueue(t *testing.T) {
	r := New(1, "Camelot", zap.NewNop())
	ran := 0
	_ = r.Post("err", nil, func() error { return errors.New("no money") })
	_ = r.Post("panic", nil, func() error { panic("bad slot") })
	_ = r.Post("ok", nil, func() error { ran++; return nil })

	r.Tick(later())
	if ran != 1 {
		t.Fatalf("later action did not run")
	}
	if s := r.Stats(); s.Failed != 2 || s.Executed != 1 || s.Pending != 0 {
		t.Fatalf("stats = %+v", s)
	}
}

func TestScheduleRejectsReuse(t *testing.T) {
	r := New(1, "Camelot", zap.NewNop())
	a := NewAction("once", nil, func() error { return nil })
	if err := r.Schedule(a, 0); err != nil {
		t.Fatal(err)
	}
	if err := r.Schedule(a, 0); !errors.Is(err, ErrActionReused) {
		t.Fatalf("expected ErrActionReused, got %v", err)
	}
	r.Tick(later())
	if err := r.Schedule(a, 0); !errors.Is(err, ErrActionReused) {
		t.Fatalf("completed action rescheduled: %v", err)
	}
}

func TestDelayAndNextTick(t *testing.T) {
	r := New(1, "Camelot", zap.NewNop())
	ran := 0
	_ = r.Schedule(NewAction("late", nil, func() error { ran++; return nil }), time.Minute)
	if n := r.Tick(time.Now()); n != 0 {
		t.Fatalf("delayed action ran early")
	}

	// Actions queued from inside a tick wait for the following tick.
	_ = r.Post("outer", nil, func() error {
		return r.Post("inner", nil, func() error { ran += 10; return nil })
	})
	r.Tick(time.Now().Add(time.Second))
	if ran != 0 || r.Pending() != 2 {
		t.Fatalf("ran=%d pending=%d", ran, r.Pending())
	}
	r.Tick(later())
	if ran != 11 {
		t.Fatalf("ran = %d", ran)
	}
}

func TestConcurrentScheduleSerialExecution(t *testing.T) {
	r := New(1, "Camelot", zap.NewNop())
	var running, overlap atomic.Int32
	var wg sync.WaitGroup
	total := 0
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_ = r.Post("inc", nil, func() error {
					if running.Add(1) > 1 {
						overlap.Add(1)
					}
					total++
					running.Add(-1)
					return nil
				})
			}
		}()
	}
	wg.Wait()

	done := make(chan struct{})
	go func() { r.Tick(later()); close(done) }()
	r.Tick(later())
	<-done

	if overlap.Load() != 0 {
		t.Fatalf("actions overlapped")
	}
	if total != 400 {
		t.Fatalf("total = %d", total)
	}
}

func TestRunStopsAndRejects(t *testing.T) {
	r := New(1, "Camelot", zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	ran := make(chan struct{})
	_ = r.Post("first", nil, func() error { close(ran); return nil })

	errCh := make(chan error, 1)
	go func() { errCh <- r.Run(ctx, time.Millisecond) }()

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatalf("action never ran")
	}
	cancel()
	if err := <-errCh; err != nil {
		t.Fatalf("run: %v", err)
	}
	if err := r.Post("late", nil, func() error { return nil }); !errors.Is(err, ErrRegionStopped) {
		t.Fatalf("expected ErrRegionStopped, got %v", err)
	}
}

func TestStopRunsDetachedActions(t *testing.T) {
	r := New(1, "Camelot", zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- r.Run(ctx, time.Hour) }()

	var saved, moved atomic.Bool
	detached := NewAction("final save", nil, func() error { saved.Store(true); return nil })
	if err := r.Schedule(detached, time.Hour); err != nil {
		t.Fatal(err)
	}
	if err := r.Post("move", newOwner(), func() error { moved.Store(true); return nil }); err != nil {
		t.Fatal(err)
	}

	cancel()
	if err := <-errCh; err != nil {
		t.Fatalf("run: %v", err)
	}
	if !saved.Load() {
		t.Fatal("detached action dropped on stop")
	}
	if moved.Load() {
		t.Fatal("owned action ran on stop")
	}
	if detached.State() != ActionCompleted || r.Pending() != 0 {
		t.Fatalf("state %s pending %d", detached.State(), r.Pending())
	}
	if st := r.Stats(); st.Executed != 1 {
		t.Fatalf("executed = %d", st.Executed)
	}
}

func TestManager(t *testing.T) {
	m := NewManager(time.Millisecond, zap.NewNop())
	if _, err := m.Add(1, "Camelot"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Add(1, "again"); err == nil {
		t.Fatalf("duplicate region accepted")
	}
	_, _ = m.Add(51, "Jordheim")
	if r, ok := m.Get(51); !ok || r.Name != "Jordheim" {
		t.Fatalf("get = %v, %v", r, ok)
	}
	if all := m.All(); len(all) != 2 || all[0].ID != 1 {
		t.Fatalf("all = %v", all)
	}

	ctx, cancel := context.WithCancel(context.Background())
	r, _ := m.Get(1)
	done := make(chan struct{})
	_ = r.Post("x", nil, func() error { close(done); return nil })
	errCh := make(chan error, 1)
	go func() { errCh <- m.Run(ctx) }()
	<-done
	cancel()
	if err := <-errCh; err != nil {
		t.Fatalf("manager run: %v", err)
	}
}
