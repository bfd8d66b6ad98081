package persist

import (
	"context"
	"fmt"
	"sync"
)

// WAL transaction types.
const (
	TxBuy     = "buy"
	TxDestroy = "destroy"
)

// WALEntry represents one economic write-ahead log entry.
type WALEntry struct {
	TxType     string
	CharID     int64
	TemplateID string
	Count      int32
	Money      int64 // copper moved; negative when the character paid
}

// WALWriter persists economic journal entries.
type WALWriter interface {
	WriteWAL(ctx context.Context, entries []WALEntry) error
}

type WALRepo struct {
	db *DB
}

func NewWALRepo(db *DB) *WALRepo {
	return &WALRepo{db: db}
}

// WriteWAL atomically writes a batch of WAL entries in a single transaction.
func (r *WALRepo) WriteWAL(ctx context.Context, entries []WALEntry) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("wal begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, e := range entries {
		if _, err := tx.Exec(ctx,
			`INSERT INTO economic_wal (tx_type, char_id, template_id, count, money)
			 VALUES ($1, $2, $3, $4, $5)`,
			e.TxType, e.CharID, e.TemplateID, e.Count, e.Money,
		); err != nil {
			return fmt.Errorf("wal insert: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// MemoryWAL collects entries in memory.
type MemoryWAL struct {
	mu      sync.Mutex
	entries []WALEntry
}

func NewMemoryWAL() *MemoryWAL {
	return &MemoryWAL{}
}

func (m *MemoryWAL) WriteWAL(_ context.Context, entries []WALEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entries...)
	return nil
}

// Entries returns a copy of everything written so far.
func (m *MemoryWAL) Entries() []WALEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]WALEntry(nil), m.entries...)
}
