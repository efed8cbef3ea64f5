package session

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"restock/internal/adapters/storage"
	domain "restock/internal/domain/session"
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

// GetByID retrieves a RestockSession with its line items.
// PRE: id is non-empty
// POST: Returns the session or domain.ErrSessionNotFound
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.RestockSession, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, owner_id, name, status, created_at, updated_at
		 FROM restock_session WHERE id = ?`, id)
	sess, err := scanSession(row)
	if err != nil {
		return domain.RestockSession{}, err
	}
	items, err := s.loadItems(ctx, id)
	if err != nil {
		return domain.RestockSession{}, err
	}
	sess.Items = items
	return sess, nil
}

// Save persists a RestockSession and replaces its line items wholesale.
// PRE: session has been validated
// POST: Session and items are persisted (insert or update)
func (s *SQLiteStore) Save(ctx context.Context, sess domain.RestockSession) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO restock_session (id, owner_id, name, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   owner_id=excluded.owner_id, name=excluded.name, status=excluded.status,
		   created_at=excluded.created_at, updated_at=excluded.updated_at`,
		sess.ID, sess.OwnerID, sess.Name, sess.Status,
		sess.CreatedAt.Format(timeLayout), nullTime(sess.UpdatedAt))
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM line_item WHERE session_id = ?`, sess.ID); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO line_item (id, session_id, position, product_name, quantity, supplier_name, supplier_email, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, item := range sess.Items {
		if _, err := stmt.ExecContext(ctx, item.ID, sess.ID, i,
			item.ProductName, item.Quantity, item.SupplierName, item.SupplierEmail, item.Notes); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Delete removes a RestockSession; line items cascade.
// PRE: id is non-empty
// POST: Session and its items are removed
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM restock_session WHERE id = ?`, id)
	return err
}

// ListByOwner retrieves all sessions for an owner, newest first.
// PRE: ownerID is non-empty
// POST: Returns sessions with line items populated
func (s *SQLiteStore) ListByOwner(ctx context.Context, ownerID string) ([]domain.RestockSession, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner_id, name, status, created_at, updated_at
		 FROM restock_session WHERE owner_id = ? ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []domain.RestockSession
	for rows.Next() {
		sess, err := scanSessionRows(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range sessions {
		items, err := s.loadItems(ctx, sessions[i].ID)
		if err != nil {
			return nil, err
		}
		sessions[i].Items = items
	}
	return sessions, nil
}

// MarkSent transitions a session to sent status with a guarded update.
// The write is committed by the time this returns, so callers may notify
// dependent readers immediately without a settling delay.
// PRE: id is non-empty
// POST: Status is sent, or domain.ErrSessionNotFound if no row matched
func (s *SQLiteStore) MarkSent(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE restock_session SET status = ?, updated_at = ? WHERE id = ?`,
		domain.StatusSent, time.Now().Format(timeLayout), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (s *SQLiteStore) loadItems(ctx context.Context, sessionID string) ([]domain.LineItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, product_name, quantity, supplier_name, supplier_email, notes
		 FROM line_item WHERE session_id = ? ORDER BY position`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.LineItem
	for rows.Next() {
		var item domain.LineItem
		if err := rows.Scan(&item.ID, &item.ProductName, &item.Quantity,
			&item.SupplierName, &item.SupplierEmail, &item.Notes); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row *sql.Row) (domain.RestockSession, error) {
	sess, err := scanSessionFrom(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.RestockSession{}, domain.ErrSessionNotFound
	}
	return sess, err
}

func scanSessionRows(rows *sql.Rows) (domain.RestockSession, error) {
	return scanSessionFrom(rows)
}

func scanSessionFrom(r rowScanner) (domain.RestockSession, error) {
	var sess domain.RestockSession
	var createdAt string
	var updatedAt sql.NullString
	if err := r.Scan(&sess.ID, &sess.OwnerID, &sess.Name, &sess.Status, &createdAt, &updatedAt); err != nil {
		return domain.RestockSession{}, err
	}
	t, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return domain.RestockSession{}, err
	}
	sess.CreatedAt = t
	if updatedAt.Valid && updatedAt.String != "" {
		if t, err := time.Parse(timeLayout, updatedAt.String); err == nil {
			sess.UpdatedAt = t
		}
	}
	return sess, nil
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Format(timeLayout)
}
