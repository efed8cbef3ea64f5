package session

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"restock/internal/adapters/storage"
	domain "restock/internal/domain/session"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	if err := storage.InitDB(db); err != nil {
		t.Fatal(err)
	}
	// Sessions reference an owning account.
	if _, err := db.Exec(`INSERT INTO account (id, email, created_at) VALUES (?, ?, ?)`,
		"owner-1", "mere@cornerdairy.co.nz", "2026-03-02T09:00:00Z"); err != nil {
		t.Fatal(err)
	}
	return db
}

func testSession() domain.RestockSession {
	return domain.RestockSession{
		ID:        "s1",
		OwnerID:   "owner-1",
		Name:      "Monday walkthrough",
		Status:    domain.StatusDraft,
		CreatedAt: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		Items: []domain.LineItem{
			{ID: "i1", ProductName: "Widget", Quantity: 3, SupplierName: "Acme", SupplierEmail: "orders@acme.com"},
			{ID: "i2", ProductName: "Bolt", Quantity: 9, SupplierName: "Bolt Co", SupplierEmail: "sales@bolt.co", Notes: "M8 only"},
		},
	}
}

// TestSaveAndGetByID tests the round trip including item order and notes.
func TestSaveAndGetByID(t *testing.T) {
	ctx := context.Background()
	store := NewSQLiteStore(testDB(t))

	want := testSession()
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.GetByID(ctx, "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != want.Name || got.Status != want.Status || got.OwnerID != want.OwnerID {
		t.Errorf("unexpected session: %+v", got)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) {
		t.Errorf("created_at mismatch: %v vs %v", got.CreatedAt, want.CreatedAt)
	}
	if len(got.Items) != 2 || got.Items[0].ID != "i1" || got.Items[1].ID != "i2" {
		t.Fatalf("unexpected items: %+v", got.Items)
	}
	if got.Items[1].Notes != "M8 only" {
		t.Errorf("expected notes round trip, got %q", got.Items[1].Notes)
	}
}

// TestGetByID_NotFound tests the sentinel error.
func TestGetByID_NotFound(t *testing.T) {
	store := NewSQLiteStore(testDB(t))
	_, err := store.GetByID(context.Background(), "missing")
	if !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got: %v", err)
	}
}

// TestSave_ReplacesItemsWholesale tests that every save rewrites the item
// list rather than appending.
func TestSave_ReplacesItemsWholesale(t *testing.T) {
	ctx := context.Background()
	store := NewSQLiteStore(testDB(t))

	sess := testSession()
	if err := store.Save(ctx, sess); err != nil {
		t.Fatal(err)
	}
	sess.Items = sess.Items[:1]
	if err := store.Save(ctx, sess); err != nil {
		t.Fatal(err)
	}

	got, err := store.GetByID(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Items) != 1 || got.Items[0].ID != "i1" {
		t.Errorf("expected single remaining item, got %+v", got.Items)
	}
}

// TestDelete_CascadesItems tests that deleting a session removes its items.
func TestDelete_CascadesItems(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	store := NewSQLiteStore(db)

	if err := store.Save(ctx, testSession()); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(ctx, "s1"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.GetByID(ctx, "s1"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected session gone, got: %v", err)
	}

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM line_item WHERE session_id = ?`, "s1").Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("expected items cascaded, found %d", n)
	}
}

// TestListByOwner tests ordering and ownership scoping.
func TestListByOwner(t *testing.T) {
	ctx := context.Background()
	store := NewSQLiteStore(testDB(t))

	old := testSession()
	if err := store.Save(ctx, old); err != nil {
		t.Fatal(err)
	}
	recent := testSession()
	recent.ID = "s2"
	recent.Name = "Friday top-up"
	recent.CreatedAt = old.CreatedAt.Add(24 * time.Hour)
	for i := range recent.Items {
		recent.Items[i].ID = "s2-" + recent.Items[i].ID
	}
	if err := store.Save(ctx, recent); err != nil {
		t.Fatal(err)
	}

	got, err := store.ListByOwner(ctx, "owner-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != "s2" || got[1].ID != "s1" {
		t.Fatalf("expected newest first, got %+v", got)
	}
	if len(got[0].Items) != 2 {
		t.Errorf("expected items populated, got %+v", got[0].Items)
	}

	none, err := store.ListByOwner(ctx, "owner-2")
	if err != nil {
		t.Fatal(err)
	}
	if len(none) != 0 {
		t.Errorf("expected no sessions for other owner, got %d", len(none))
	}
}

// TestMarkSent tests the guarded status update.
func TestMarkSent(t *testing.T) {
	ctx := context.Background()
	store := NewSQLiteStore(testDB(t))

	sess := testSession()
	sess.Status = domain.StatusEmailGenerated
	if err := store.Save(ctx, sess); err != nil {
		t.Fatal(err)
	}

	if err := store.MarkSent(ctx, "s1"); err != nil {
		t.Fatalf("mark sent: %v", err)
	}
	got, err := store.GetByID(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.StatusSent {
		t.Errorf("expected sent status, got %s", got.Status)
	}

	if err := store.MarkSent(ctx, "missing"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got: %v", err)
	}
}
