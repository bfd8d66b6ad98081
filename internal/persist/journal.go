package persist

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// JournalStats counts what the journal has done since start.
type JournalStats struct {
	Saves   uint64
	WAL     uint64
	Dropped uint64
	Failed  uint64
	Queued  int
}

type journalRecord struct {
	save *CharacterSave
	wal  *WALEntry
}

// Journal writes character saves and WAL entries from a single goroutine so
// region goroutines never wait on the database. Saves for the same
// character within one batch are coalesced; the latest wins.
type Journal struct {
	chars CharacterStore
	wal   WALWriter
	queue chan journalRecord
	flush chan struct{}
	batch int
	every time.Duration
	done  chan struct{}

	saves   atomic.Uint64
	written atomic.Uint64
	dropped atomic.Uint64
	failed  atomic.Uint64

	log *zap.Logger
}

// NewJournal builds a journal. queueSize bounds the pending records, batch
// is the flush threshold and every the periodic flush interval.
func NewJournal(chars CharacterStore, wal WALWriter, queueSize, batch int, every time.Duration, log *zap.Logger) *Journal {
	if batch <= 0 {
		batch = 1
	}
	return &Journal{
		chars: chars,
		wal:   wal,
		queue: make(chan journalRecord, queueSize),
		flush: make(chan struct{}, 1),
		batch: batch,
		every: every,
		done:  make(chan struct{}),
		log:   log,
	}
}

// SaveCharacter queues a character save. Never blocks; a full queue drops
// the record and logs it.
func (j *Journal) SaveCharacter(s CharacterSave) {
	j.enqueue(journalRecord{save: &s})
}

// Record queues an economic journal entry. Never blocks.
func (j *Journal) Record(e WALEntry) {
	j.enqueue(journalRecord{wal: &e})
}

func (j *Journal) enqueue(r journalRecord) {
	select {
	case j.queue <- r:
	default:
		j.dropped.Add(1)
		j.log.Warn("journal queue full, record dropped")
	}
}

// RequestFlush asks the writer to flush at its next opportunity.
func (j *Journal) RequestFlush() {
	select {
	case j.flush <- struct{}{}:
	default:
	}
}

// Run drains the queue until ctx is done, then flushes what is left.
func (j *Journal) Run(ctx context.Context) error {
	defer close(j.done)

	var tick <-chan time.Time
	if j.every > 0 {
		t := time.NewTicker(j.every)
		defer t.Stop()
		tick = t.C
	}

	pending := newJournalBatch()
	for {
		select {
		case r := <-j.queue:
			pending.add(r)
			if pending.len() >= j.batch {
				j.write(ctx, pending)
				pending = newJournalBatch()
			}
		case <-tick:
			pending = j.drainAndWrite(ctx, pending)
		case <-j.flush:
			pending = j.drainAndWrite(ctx, pending)
		case <-ctx.Done():
			final, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			j.drainAndWrite(final, pending)
			cancel()
			return nil
		}
	}
}

// Done is closed once Run has returned.
func (j *Journal) Done() <-chan struct{} { return j.done }

func (j *Journal) drainAndWrite(ctx context.Context, b *journalBatch) *journalBatch {
drain:
	for {
		select {
		case r := <-j.queue:
			b.add(r)
		default:
			break drain
		}
	}
	if b.len() > 0 {
		j.write(ctx, b)
	}
	return newJournalBatch()
}

func (j *Journal) write(ctx context.Context, b *journalBatch) {
	if len(b.wal) > 0 {
		if err := j.wal.WriteWAL(ctx, b.wal); err != nil {
			j.failed.Add(uint64(len(b.wal)))
			j.log.Error("write wal batch", zap.Int("entries", len(b.wal)), zap.Error(err))
		} else {
			j.written.Add(uint64(len(b.wal)))
		}
	}
	for _, id := range b.order {
		s := b.saves[id]
		if err := j.chars.Save(ctx, s); err != nil {
			j.failed.Add(1)
			j.log.Error("save character", zap.Int64("char_id", id), zap.Error(err))
			continue
		}
		j.saves.Add(1)
	}
}

// Stats returns the journal counters.
func (j *Journal) Stats() JournalStats {
	return JournalStats{
		Saves:   j.saves.Load(),
		WAL:     j.written.Load(),
		Dropped: j.dropped.Load(),
		Failed:  j.failed.Load(),
		Queued:  len(j.queue),
	}
}

type journalBatch struct {
	saves map[int64]*CharacterSave
	order []int64
	wal   []WALEntry
}

func newJournalBatch() *journalBatch {
	return &journalBatch{saves: make(map[int64]*CharacterSave)}
}

func (b *journalBatch) add(r journalRecord) {
	if r.wal != nil {
		b.wal = append(b.wal, *r.wal)
	}
	if r.save != nil {
		prev, seen := b.saves[r.save.CharID]
		if !seen {
			b.order = append(b.order, r.save.CharID)
		}
		// A save without items must not discard an inventory queued earlier.
		if seen && r.save.Items == nil && prev.Items != nil {
			r.save.Items = prev.Items
		}
		b.saves[r.save.CharID] = r.save
	}
}

func (b *journalBatch) len() int {
	return len(b.saves) + len(b.wal)
}
