package system

import (
	"sync"
	"testing"
	"time"

	"github.com/dolgo/server/internal/dialog"
	"github.com/dolgo/server/internal/handler"
	"github.com/dolgo/server/internal/persist"
	"github.com/dolgo/server/internal/region"
	"github.com/dolgo/server/internal/world"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeJournal struct {
	mu      sync.Mutex
	saves   []persist.CharacterSave
	flushes int
}

func (j *fakeJournal) SaveCharacter(s persist.CharacterSave) {
	j.mu.Lock()
	j.saves = append(j.saves, s)
	j.mu.Unlock()
}

func (j *fakeJournal) Record(persist.WALEntry) {}

func (j *fakeJournal) RequestFlush() {
	j.mu.Lock()
	j.flushes++
	j.mu.Unlock()
}

func (j *fakeJournal) Stats() persist.JournalStats {
	j.mu.Lock()
	defer j.mu.Unlock()
	return persist.JournalStats{Saves: uint64(len(j.saves))}
}

func newDeps(t *testing.T, log *zap.Logger) (*handler.Deps, *fakeJournal, *region.Region) {
	t.Helper()
	regions := region.NewManager(50*time.Millisecond, log)
	r, err := regions.Add(1, "Albion")
	if err != nil {
		t.Fatal(err)
	}
	j := &fakeJournal{}
	deps := &handler.Deps{
		Log:     log,
		World:   world.NewState(),
		Regions: regions,
		Dialogs: dialog.NewRegistry(time.Minute, log),
		Journal: j,
	}
	return deps, j, r
}

func TestDialogExpirySystem(t *testing.T) {
	deps, _, _ := newDeps(t, zap.NewNop())
	key := dialog.Key{Kind: dialog.CustomDialog, Correlation: 7}
	deps.Dialogs.Present(1, key, func(dialog.Response, any) {
		t.Error("expired continuation ran")
	}, nil, dialog.Reject)

	s := NewDialogExpirySystem(deps.Dialogs, zap.NewNop())
	s.Update(0)
	if deps.Dialogs.Len() != 1 {
		t.Fatal("fresh dialog expired")
	}
	s.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	s.Update(0)
	if deps.Dialogs.Len() != 0 {
		t.Fatal("old dialog kept")
	}
}

func TestPersistenceSystem(t *testing.T) {
	deps, j, r := newDeps(t, zap.NewNop())
	p := world.NewPlayer(nil, 42, "Elaine", "elaine")
	p.Place(1, world.Position{X: 100, Y: 100})
	p.Money = 77
	if err := deps.World.Add(p); err != nil {
		t.Fatal(err)
	}

	s := NewPersistenceSystem(deps, j, zap.NewNop(), 2)
	s.Update(0)
	if r.Pending() != 0 || j.flushes != 0 {
		t.Fatal("saved before interval")
	}
	s.Update(0)
	r.Tick(time.Now())

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.flushes != 1 || len(j.saves) != 1 {
		t.Fatalf("flushes %d saves %d", j.flushes, len(j.saves))
	}
	if j.saves[0].CharID != 42 || j.saves[0].Money != 77 || j.saves[0].Items == nil {
		t.Fatalf("save = %+v", j.saves[0])
	}
}

func TestStatsSystem(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	log := zap.New(core)
	deps, j, _ := newDeps(t, log)
	deps.World.Add(world.NewPlayer(nil, 1, "Enid", "enid"))

	s := NewStatsSystem(deps, j, log, 1)
	s.Update(0)
	entries := logs.FilterMessage("server stats").All()
	if len(entries) != 1 {
		t.Fatalf("stats logged %d times", len(entries))
	}
	if got := entries[0].ContextMap()["players"]; got != int64(1) {
		t.Fatalf("players = %v", got)
	}
}
