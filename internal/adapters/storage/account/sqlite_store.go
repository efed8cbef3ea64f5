package account

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"restock/internal/adapters/storage"
	domain "restock/internal/domain/account"
)

const timeLayout = "2006-01-02T15:04:05Z07:00"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new SQLiteStore.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID retrieves an Account by its ID.
// PRE: id is non-empty
// POST: Returns the account or domain.ErrNotFound
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Account, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, store_name, display_name, created_at
		 FROM account WHERE id = ?`, id)
	return scanAccount(row)
}

// GetByEmail retrieves an Account by its email address.
// PRE: email is non-empty
// POST: Returns the account or domain.ErrNotFound
func (s *SQLiteStore) GetByEmail(ctx context.Context, email string) (domain.Account, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, store_name, display_name, created_at
		 FROM account WHERE email = ?`, email)
	return scanAccount(row)
}

// Save persists an Account (insert or update).
// PRE: account has been validated
// POST: Entity is persisted
func (s *SQLiteStore) Save(ctx context.Context, a domain.Account) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO account (id, email, password_hash, store_name, display_name, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   email=excluded.email, password_hash=excluded.password_hash,
		   store_name=excluded.store_name, display_name=excluded.display_name,
		   created_at=excluded.created_at`,
		a.ID, a.Email, a.PasswordHash, a.StoreName, a.DisplayName,
		a.CreatedAt.Format(timeLayout))
	return err
}

// Count returns the number of accounts, used for first-run admin seeding.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM account`).Scan(&n)
	return n, err
}

func scanAccount(row *sql.Row) (domain.Account, error) {
	var a domain.Account
	var createdAt string
	err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.StoreName, &a.DisplayName, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Account{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Account{}, err
	}
	if t, err := time.Parse(timeLayout, createdAt); err == nil {
		a.CreatedAt = t
	}
	return a, nil
}
