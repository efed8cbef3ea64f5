package supplier

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"restock/internal/adapters/storage"
	domain "restock/internal/domain/supplier"
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

// GetByID retrieves a Supplier by its ID.
// PRE: id is non-empty
// POST: Returns the supplier or domain.ErrNotFound
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Supplier, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, owner_id, name, email, phone, notes, created_at, updated_at
		 FROM supplier WHERE id = ?`, id)
	sup, err := scanSupplier(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Supplier{}, domain.ErrNotFound
	}
	return sup, err
}

// Save persists a Supplier (insert or update).
// PRE: supplier has been validated
// POST: Entity is persisted
func (s *SQLiteStore) Save(ctx context.Context, sup domain.Supplier) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO supplier (id, owner_id, name, email, phone, notes, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   owner_id=excluded.owner_id, name=excluded.name, email=excluded.email,
		   phone=excluded.phone, notes=excluded.notes,
		   created_at=excluded.created_at, updated_at=excluded.updated_at`,
		sup.ID, sup.OwnerID, sup.Name, sup.Email, sup.Phone, sup.Notes,
		sup.CreatedAt.Format(timeLayout), nullTime(sup.UpdatedAt))
	return err
}

// Delete removes a Supplier.
// PRE: id is non-empty
// POST: Entity with given id is removed
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM supplier WHERE id = ?`, id)
	return err
}

// ListByOwner retrieves all suppliers for an owner, sorted by name.
// PRE: ownerID is non-empty
// POST: Returns the owner's suppliers
func (s *SQLiteStore) ListByOwner(ctx context.Context, ownerID string) ([]domain.Supplier, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner_id, name, email, phone, notes, created_at, updated_at
		 FROM supplier WHERE owner_id = ? ORDER BY name`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var suppliers []domain.Supplier
	for rows.Next() {
		sup, err := scanSupplier(rows.Scan)
		if err != nil {
			return nil, err
		}
		suppliers = append(suppliers, sup)
	}
	return suppliers, rows.Err()
}

func scanSupplier(scan func(dest ...any) error) (domain.Supplier, error) {
	var sup domain.Supplier
	var createdAt string
	var updatedAt sql.NullString
	if err := scan(&sup.ID, &sup.OwnerID, &sup.Name, &sup.Email, &sup.Phone, &sup.Notes,
		&createdAt, &updatedAt); err != nil {
		return domain.Supplier{}, err
	}
	t, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return domain.Supplier{}, err
	}
	sup.CreatedAt = t
	if updatedAt.Valid && updatedAt.String != "" {
		if t, err := time.Parse(timeLayout, updatedAt.String); err == nil {
			sup.UpdatedAt = t
		}
	}
	return sup, nil
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Format(timeLayout)
}
