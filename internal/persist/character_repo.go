package persist

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
)

type CharacterRow struct {
	ID      int64
	Account string
	Name    string
	Realm   int16
	Level   int16
	Region  int32
	X       int64
	Y       int64
	Z       int32
	Heading int32
	Money   int64
}

// ItemRow is one occupied inventory slot.
type ItemRow struct {
	Slot       int32
	TemplateID string
	Count      int32
}

// CharacterSave is the mutable part of a character written back by the
// journal. A nil Items leaves the stored inventory unchanged.
type CharacterSave struct {
	CharID  int64
	Region  int32
	X       int64
	Y       int64
	Z       int32
	Heading int32
	Money   int64
	Items   []ItemRow
}

// CharacterStore loads and saves characters. LoadForAccount returns nil, nil
// when the account has no character yet.
type CharacterStore interface {
	LoadForAccount(ctx context.Context, account string) (*CharacterRow, error)
	LoadItems(ctx context.Context, charID int64) ([]ItemRow, error)
	Create(ctx context.Context, c *CharacterRow) error
	Save(ctx context.Context, s *CharacterSave) error
}

type CharacterRepo struct {
	db *DB
}

func NewCharacterRepo(db *DB) *CharacterRepo {
	return &CharacterRepo{db: db}
}

// LoadForAccount returns the most recently played character of an account.
func (r *CharacterRepo) LoadForAccount(ctx context.Context, account string) (*CharacterRow, error) {
	c := &CharacterRow{}
	err := r.db.Pool.QueryRow(ctx,
		`SELECT id, account, name, realm, level, region, x, y, z, heading, money
		 FROM characters WHERE account = $1
		 ORDER BY last_played DESC LIMIT 1`, account,
	).Scan(
		&c.ID, &c.Account, &c.Name, &c.Realm, &c.Level,
		&c.Region, &c.X, &c.Y, &c.Z, &c.Heading, &c.Money,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Create inserts c and fills in its id.
func (r *CharacterRepo) Create(ctx context.Context, c *CharacterRow) error {
	return r.db.Pool.QueryRow(ctx,
		`INSERT INTO characters (account, name, realm, level, region, x, y, z, heading, money)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id`,
		c.Account, c.Name, c.Realm, c.Level, c.Region, c.X, c.Y, c.Z, c.Heading, c.Money,
	).Scan(&c.ID)
}

// LoadItems returns the inventory of a character.
func (r *CharacterRepo) LoadItems(ctx context.Context, charID int64) ([]ItemRow, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT slot, template_id, count FROM character_items WHERE char_id = $1`, charID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ItemRow
	for rows.Next() {
		var it ItemRow
		if err := rows.Scan(&it.Slot, &it.TemplateID, &it.Count); err != nil {
			return nil, err
		}
		result = append(result, it)
	}
	return result, rows.Err()
}

// Save writes position and money, and replaces the inventory when
// s.Items is not nil, in one transaction.
func (r *CharacterRepo) Save(ctx context.Context, s *CharacterSave) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("save begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`UPDATE characters SET region = $1, x = $2, y = $3, z = $4, heading = $5,
		        money = $6, last_played = NOW()
		 WHERE id = $7`,
		s.Region, s.X, s.Y, s.Z, s.Heading, s.Money, s.CharID,
	); err != nil {
		return fmt.Errorf("save character %d: %w", s.CharID, err)
	}

	if s.Items != nil {
		if _, err := tx.Exec(ctx, `DELETE FROM character_items WHERE char_id = $1`, s.CharID); err != nil {
			return fmt.Errorf("clear items %d: %w", s.CharID, err)
		}
		batch := &pgx.Batch{}
		for _, it := range s.Items {
			batch.Queue(
				`INSERT INTO character_items (char_id, slot, template_id, count) VALUES ($1, $2, $3, $4)`,
				s.CharID, it.Slot, it.TemplateID, it.Count,
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert items %d: %w", s.CharID, err)
		}
	}

	return tx.Commit(ctx)
}

// MemoryCharacters keeps characters in process memory.
type MemoryCharacters struct {
	mu     sync.Mutex
	nextID int64
	chars  map[int64]*CharacterRow
	items  map[int64][]ItemRow
	saves  int
}

func NewMemoryCharacters() *MemoryCharacters {
	return &MemoryCharacters{
		chars: make(map[int64]*CharacterRow),
		items: make(map[int64][]ItemRow),
	}
}

func (m *MemoryCharacters) LoadForAccount(_ context.Context, account string) (*CharacterRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.chars {
		if c.Account == account {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MemoryCharacters) LoadItems(_ context.Context, charID int64) ([]ItemRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ItemRow(nil), m.items[charID]...), nil
}

func (m *MemoryCharacters) Create(_ context.Context, c *CharacterRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.chars {
		if existing.Name == c.Name {
			return fmt.Errorf("character %s exists", c.Name)
		}
	}
	m.nextID++
	c.ID = m.nextID
	cp := *c
	m.chars[c.ID] = &cp
	return nil
}

func (m *MemoryCharacters) Save(_ context.Context, s *CharacterSave) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.chars[s.CharID]
	if !ok {
		return fmt.Errorf("character %d not found", s.CharID)
	}
	c.Region, c.X, c.Y, c.Z, c.Heading, c.Money = s.Region, s.X, s.Y, s.Z, s.Heading, s.Money
	if s.Items != nil {
		m.items[s.CharID] = append([]ItemRow(nil), s.Items...)
	}
	m.saves++
	return nil
}

// Get returns a copy of the stored character.
func (m *MemoryCharacters) Get(id int64) (CharacterRow, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.chars[id]
	if !ok {
		return CharacterRow{}, false
	}
	return *c, true
}

// Saves returns how many saves were applied.
func (m *MemoryCharacters) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
