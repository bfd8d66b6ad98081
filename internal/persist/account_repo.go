package persist

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrNoAccount   = errors.New("account not found")
	ErrBadPassword = errors.New("wrong password")
	ErrBanned      = errors.New("account banned")
)

type AccountRow struct {
	Name         string
	PasswordHash string
	PrivLevel    int16
	Banned       bool
	LastIP       string
	CreatedAt    time.Time
	LastLogin    *time.Time
}

// AccountStore is where accounts live. Load returns nil, nil for a name
// that does not exist.
type AccountStore interface {
	Load(ctx context.Context, name string) (*AccountRow, error)
	Create(ctx context.Context, name, passwordHash, ip string) (*AccountRow, error)
	UpdateLastLogin(ctx context.Context, name, ip string) error
}

type AccountRepo struct {
	db *DB
}

func NewAccountRepo(db *DB) *AccountRepo {
	return &AccountRepo{db: db}
}

func (r *AccountRepo) Load(ctx context.Context, name string) (*AccountRow, error) {
	row := &AccountRow{}
	err := r.db.Pool.QueryRow(ctx,
		`SELECT name, password_hash, priv_level, banned, COALESCE(last_ip,''), created_at, last_login
		 FROM accounts WHERE name = $1`, name,
	).Scan(
		&row.Name, &row.PasswordHash, &row.PrivLevel, &row.Banned, &row.LastIP, &row.CreatedAt, &row.LastLogin,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row, nil
}

func (r *AccountRepo) Create(ctx context.Context, name, passwordHash, ip string) (*AccountRow, error) {
	now := time.Now()
	row := &AccountRow{
		Name:         name,
		PasswordHash: passwordHash,
		PrivLevel:    1,
		LastIP:       ip,
		CreatedAt:    now,
		LastLogin:    &now,
	}
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO accounts (name, password_hash, last_ip, last_login)
		 VALUES ($1, $2, $3, $4)`,
		row.Name, row.PasswordHash, row.LastIP, row.LastLogin,
	)
	if err != nil {
		return nil, err
	}
	return row, nil
}

func (r *AccountRepo) UpdateLastLogin(ctx context.Context, name, ip string) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE accounts SET last_login = NOW(), last_ip = $2 WHERE name = $1`,
		name, ip,
	)
	return err
}

// MemoryAccounts keeps accounts in process memory. Used when no database
// is configured.
type MemoryAccounts struct {
	mu       sync.Mutex
	accounts map[string]*AccountRow
}

func NewMemoryAccounts() *MemoryAccounts {
	return &MemoryAccounts{accounts: make(map[string]*AccountRow)}
}

func (m *MemoryAccounts) Load(_ context.Context, name string) (*AccountRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.accounts[name]
	if !ok {
		return nil, nil
	}
	cp := *row
	return &cp, nil
}

func (m *MemoryAccounts) Create(_ context.Context, name, passwordHash, ip string) (*AccountRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[name]; ok {
		return nil, errors.New("account exists")
	}
	now := time.Now()
	row := &AccountRow{
		Name:         name,
		PasswordHash: passwordHash,
		PrivLevel:    1,
		LastIP:       ip,
		CreatedAt:    now,
		LastLogin:    &now,
	}
	m.accounts[name] = row
	cp := *row
	return &cp, nil
}

func (m *MemoryAccounts) UpdateLastLogin(_ context.Context, name, ip string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if row, ok := m.accounts[name]; ok {
		now := time.Now()
		row.LastLogin = &now
		row.LastIP = ip
	}
	return nil
}

// Authenticator checks login credentials against a store.
type Authenticator struct {
	store      AccountStore
	autoCreate bool
	cost       int
	log        *zap.Logger
}

// NewAuthenticator builds an authenticator. With autoCreate an unknown
// account name is registered with the password it first logs in with.
func NewAuthenticator(store AccountStore, autoCreate bool, log *zap.Logger) *Authenticator {
	return &Authenticator{store: store, autoCreate: autoCreate, cost: bcrypt.DefaultCost, log: log}
}

// SetCost changes the bcrypt cost used for new accounts.
func (a *Authenticator) SetCost(cost int) { a.cost = cost }

// Login validates name/password and returns the account.
func (a *Authenticator) Login(ctx context.Context, name, password, ip string) (*AccountRow, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	row, err := a.store.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	if row == nil {
		if !a.autoCreate {
			return nil, ErrNoAccount
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
		if err != nil {
			return nil, err
		}
		row, err = a.store.Create(ctx, name, string(hash), ip)
		if err != nil {
			return nil, err
		}
		a.log.Info("account created", zap.String("account", name), zap.String("ip", ip))
		return row, nil
	}
	if row.Banned {
		return nil, ErrBanned
	}
	if bcrypt.CompareHashAndPassword([]byte(row.PasswordHash), []byte(password)) != nil {
		return nil, ErrBadPassword
	}
	if err := a.store.UpdateLastLogin(ctx, name, ip); err != nil {
		a.log.Warn("update last login", zap.String("account", name), zap.Error(err))
	}
	return row, nil
}
