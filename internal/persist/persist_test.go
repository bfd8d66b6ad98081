package persist

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func newTestAuth(autoCreate bool) (*Authenticator, *MemoryAccounts) {
	store := NewMemoryAccounts()
	a := NewAuthenticator(store, autoCreate, zap.NewNop())
	a.SetCost(bcrypt.MinCost)
	return a, store
}

func TestLoginAutoCreate(t *testing.T) {
	a, store := newTestAuth(true)
	ctx := context.Background()

	row, err := a.Login(ctx, "Merlin", "secret", "10.0.0.1")
	if err != nil {
		t.Fatalf("first login: %v", err)
	}
	if row.Name != "merlin" {
		t.Fatalf("name = %q", row.Name)
	}
	stored, _ := store.Load(ctx, "merlin")
	if stored == nil || stored.PasswordHash == "secret" {
		t.Fatalf("password not hashed: %+v", stored)
	}

	if _, err := a.Login(ctx, "merlin", "secret", "10.0.0.1"); err != nil {
		t.Fatalf("second login: %v", err)
	}
	if _, err := a.Login(ctx, "merlin", "wrong", "10.0.0.1"); !errors.Is(err, ErrBadPassword) {
		t.Fatalf("wrong password: %v", err)
	}
}

func TestLoginWithoutAutoCreate(t *testing.T) {
	a, _ := newTestAuth(false)
	if _, err := a.Login(context.Background(), "nobody", "x", ""); !errors.Is(err, ErrNoAccount) {
		t.Fatalf("unknown account: %v", err)
	}
}

func TestLoginBanned(t *testing.T) {
	a, store := newTestAuth(true)
	ctx := context.Background()
	_, _ = a.Login(ctx, "mordred", "pw", "")
	store.accounts["mordred"].Banned = true
	if _, err := a.Login(ctx, "mordred", "pw", ""); !errors.Is(err, ErrBanned) {
		t.Fatalf("banned account: %v", err)
	}
}

func TestMemoryCharacters(t *testing.T) {
	m := NewMemoryCharacters()
	ctx := context.Background()
	c := &CharacterRow{Account: "acct", Name: "Lancelot", Realm: 1, Region: 1}
	if err := m.Create(ctx, c); err != nil {
		t.Fatal(err)
	}
	if c.ID == 0 {
		t.Fatalf("id not assigned")
	}
	if err := m.Create(ctx, &CharacterRow{Account: "b", Name: "Lancelot"}); err == nil {
		t.Fatalf("duplicate name accepted")
	}
	got, _ := m.LoadForAccount(ctx, "acct")
	if got == nil || got.Name != "Lancelot" {
		t.Fatalf("load = %+v", got)
	}
	if none, _ := m.LoadForAccount(ctx, "other"); none != nil {
		t.Fatalf("unexpected character %+v", none)
	}
}

func startJournal(t *testing.T, j *Journal) func() {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	go j.Run(ctx)
	return func() {
		cancel()
		select {
		case <-j.Done():
		case <-time.After(2 * time.Second):
			t.Fatalf("journal did not stop")
		}
	}
}

func TestJournalFlushOnStop(t *testing.T) {
	chars := NewMemoryCharacters()
	wal := NewMemoryWAL()
	c := &CharacterRow{Account: "a", Name: "Gawain"}
	_ = chars.Create(context.Background(), c)

	j := NewJournal(chars, wal, 64, 1000, 0, zap.NewNop())
	stop := startJournal(t, j)

	j.SaveCharacter(CharacterSave{CharID: c.ID, Region: 1, X: 100, Money: 5,
		Items: []ItemRow{{Slot: 40, TemplateID: "short_sword", Count: 1}}})
	j.SaveCharacter(CharacterSave{CharID: c.ID, Region: 1, X: 200, Money: 7})
	j.Record(WALEntry{TxType: TxBuy, CharID: c.ID, TemplateID: "short_sword", Count: 1, Money: -120})
	stop()

	got, _ := chars.Get(c.ID)
	if got.X != 200 || got.Money != 7 {
		t.Fatalf("latest save not applied: %+v", got)
	}
	if chars.Saves() != 1 {
		t.Fatalf("saves not coalesced: %d", chars.Saves())
	}
	items, _ := chars.LoadItems(context.Background(), c.ID)
	if len(items) != 1 || items[0].TemplateID != "short_sword" {
		t.Fatalf("inventory lost in coalescing: %+v", items)
	}
	if e := wal.Entries(); len(e) != 1 || e[0].Money != -120 {
		t.Fatalf("wal = %+v", e)
	}
	if s := j.Stats(); s.Saves != 1 || s.WAL != 1 {
		t.Fatalf("stats = %+v", s)
	}
}

func TestJournalRequestFlush(t *testing.T) {
	wal := NewMemoryWAL()
	j := NewJournal(NewMemoryCharacters(), wal, 64, 1000, 0, zap.NewNop())
	stop := startJournal(t, j)
	defer stop()

	j.Record(WALEntry{TxType: TxDestroy, CharID: 1, TemplateID: "rock", Count: 1})
	deadline := time.Now().Add(2 * time.Second)
	for len(wal.Entries()) == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("flush never happened")
		}
		j.RequestFlush()
		time.Sleep(5 * time.Millisecond)
	}
}

func TestJournalDropsWhenFull(t *testing.T) {
	j := NewJournal(NewMemoryCharacters(), NewMemoryWAL(), 1, 10, 0, zap.NewNop())
	j.Record(WALEntry{TxType: TxBuy})
	j.Record(WALEntry{TxType: TxBuy})
	if s := j.Stats(); s.Dropped != 1 || s.Queued != 1 {
		t.Fatalf("stats = %+v", s)
	}
}
