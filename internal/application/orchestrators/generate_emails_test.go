package orchestrators

import (
	"context"
	"errors"
	"testing"
	"time"

	"restock/internal/adapters/cache"
	"restock/internal/application/events"
	"restock/internal/application/state"
	sessionDomain "restock/internal/domain/session"
)

func generateFixture(items []sessionDomain.LineItem) (GenerateEmailsDeps, *mockSessionStore) {
	sessions := newMockSessionStore(sessionDomain.RestockSession{
		ID:        "s1",
		OwnerID:   "owner-1",
		Name:      "Monday walkthrough",
		Status:    sessionDomain.StatusDraft,
		Items:     items,
		CreatedAt: testNow,
	})
	deps := GenerateEmailsDeps{
		Sessions: sessions,
		State:    state.NewStore(cache.NewMemCache()),
		Bus:      events.NewBus(),
		Identity: testIdentity,
		Now:      func() time.Time { return testNow },
	}
	return deps, sessions
}

func restockItems() []sessionDomain.LineItem {
	return []sessionDomain.LineItem{
		{ID: "i1", ProductName: "Widget", Quantity: 3, SupplierName: "Acme", SupplierEmail: "orders@acme.com"},
		{ID: "i2", ProductName: "Bolt", Quantity: 9, SupplierName: "Bolt Co", SupplierEmail: "sales@bolt.co"},
		{ID: "i3", ProductName: "Gasket", Quantity: 2, SupplierName: "Acme", SupplierEmail: "orders@acme.com"},
	}
}

// TestGenerateEmails_GroupsAndActivates tests the draft to email_generated
// transition and the activation of the email session.
func TestGenerateEmails_GroupsAndActivates(t *testing.T) {
	ctx := context.Background()
	deps, sessions := generateFixture(restockItems())

	sess, err := ExecuteGenerateEmails(ctx, GenerateEmailsInput{SessionID: "s1"}, deps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sess.Drafts) != 2 {
		t.Fatalf("expected one draft per supplier, got %d", len(sess.Drafts))
	}
	if sess.ProductCount != 3 {
		t.Errorf("expected product count 3, got %d", sess.ProductCount)
	}

	stored, _ := sessions.GetByID(ctx, "s1")
	if stored.Status != sessionDomain.StatusEmailGenerated {
		t.Errorf("expected stored status email_generated, got %s", stored.Status)
	}
	if deps.State.ActiveID() != "s1" {
		t.Error("expected generated session to be active")
	}
}

// TestGenerateEmails_Regenerate tests that regenerating the same session is
// allowed and yields identical drafts.
func TestGenerateEmails_Regenerate(t *testing.T) {
	ctx := context.Background()
	deps, _ := generateFixture(restockItems())

	first, err := ExecuteGenerateEmails(ctx, GenerateEmailsInput{SessionID: "s1"}, deps)
	if err != nil {
		t.Fatal(err)
	}
	second, err := ExecuteGenerateEmails(ctx, GenerateEmailsInput{SessionID: "s1"}, deps)
	if err != nil {
		t.Fatalf("regeneration must be allowed: %v", err)
	}
	if len(first.Drafts) != len(second.Drafts) {
		t.Fatalf("draft counts differ: %d vs %d", len(first.Drafts), len(second.Drafts))
	}
	for i := range first.Drafts {
		if first.Drafts[i].ID != second.Drafts[i].ID || first.Drafts[i].Body != second.Drafts[i].Body {
			t.Errorf("draft %d differs between regenerations", i)
		}
	}
}

// TestGenerateEmails_NoItems tests the empty-session guard.
func TestGenerateEmails_NoItems(t *testing.T) {
	deps, _ := generateFixture(nil)
	_, err := ExecuteGenerateEmails(context.Background(), GenerateEmailsInput{SessionID: "s1"}, deps)
	if !errors.Is(err, sessionDomain.ErrNoItems) {
		t.Errorf("expected ErrNoItems, got: %v", err)
	}
}

// TestGenerateEmails_SentSession tests that sent sessions are terminal.
func TestGenerateEmails_SentSession(t *testing.T) {
	deps, sessions := generateFixture(restockItems())
	s := sessions.sessions["s1"]
	s.Status = sessionDomain.StatusSent
	sessions.sessions["s1"] = s

	_, err := ExecuteGenerateEmails(context.Background(), GenerateEmailsInput{SessionID: "s1"}, deps)
	if !errors.Is(err, sessionDomain.ErrAlreadySent) {
		t.Errorf("expected ErrAlreadySent, got: %v", err)
	}
}

// TestGenerateEmails_UnknownSession tests the not-found path.
func TestGenerateEmails_UnknownSession(t *testing.T) {
	deps, _ := generateFixture(restockItems())
	_, err := ExecuteGenerateEmails(context.Background(), GenerateEmailsInput{SessionID: "missing"}, deps)
	if !errors.Is(err, sessionDomain.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got: %v", err)
	}
}
