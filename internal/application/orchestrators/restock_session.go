package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"time"

	sessionStore "restock/internal/adapters/storage/session"
	"restock/internal/application/events"
	"restock/internal/application/state"
	sessionDomain "restock/internal/domain/session"
)

// --- Create Session ---

// CreateSessionInput carries input for starting a walkthrough session.
type CreateSessionInput struct {
	OwnerID string
	Name    string
}

// CreateSessionDeps holds dependencies for CreateSession.
type CreateSessionDeps struct {
	Sessions   sessionStore.Store
	GenerateID func() string
	Now        func() time.Time
}

// ExecuteCreateSession creates a new draft restock session.
// PRE: OwnerID is non-empty
// POST: Session persisted in draft status with no items
func ExecuteCreateSession(ctx context.Context, input CreateSessionInput, deps CreateSessionDeps) (sessionDomain.RestockSession, error) {
	if input.OwnerID == "" {
		return sessionDomain.RestockSession{}, sessionDomain.ErrEmptyOwner
	}

	now := deps.Now()
	sess := sessionDomain.RestockSession{
		ID:        deps.GenerateID(),
		OwnerID:   input.OwnerID,
		Name:      input.Name,
		Status:    sessionDomain.StatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := sess.Validate(); err != nil {
		return sessionDomain.RestockSession{}, err
	}
	if err := deps.Sessions.Save(ctx, sess); err != nil {
		return sessionDomain.RestockSession{}, err
	}

	slog.Info("session_event", "event", "session_created", "session_id", sess.ID, "owner_id", sess.OwnerID)
	return sess, nil
}

// --- Rename Session ---

// RenameSessionInput carries input for renaming a session.
type RenameSessionInput struct {
	SessionID string
	Name      string
}

// RenameSessionDeps holds dependencies for RenameSession.
type RenameSessionDeps struct {
	Sessions sessionStore.Store
	Now      func() time.Time
}

// ExecuteRenameSession updates a session's display name.
// PRE: SessionID exists
// POST: Name is updated
func ExecuteRenameSession(ctx context.Context, input RenameSessionInput, deps RenameSessionDeps) (sessionDomain.RestockSession, error) {
	sess, err := deps.Sessions.GetByID(ctx, input.SessionID)
	if err != nil {
		return sessionDomain.RestockSession{}, err
	}
	sess.Name = input.Name
	sess.UpdatedAt = deps.Now()
	if err := deps.Sessions.Save(ctx, sess); err != nil {
		return sessionDomain.RestockSession{}, err
	}
	return sess, nil
}

// --- Add / Remove Line Item ---

// AddLineItemInput carries one restock need recorded on the floor.
type AddLineItemInput struct {
	SessionID     string
	ProductName   string
	Quantity      int
	SupplierName  string
	SupplierEmail string
	Notes         string
}

// AddLineItemDeps holds dependencies for AddLineItem.
type AddLineItemDeps struct {
	Sessions   sessionStore.Store
	GenerateID func() string
	Now        func() time.Time
}

// ExecuteAddLineItem validates and appends a line item to a draft session.
// PRE: Session exists and is in draft status; quantity is positive
// POST: Item persisted at the end of the session's item list
func ExecuteAddLineItem(ctx context.Context, input AddLineItemInput, deps AddLineItemDeps) (sessionDomain.RestockSession, error) {
	sess, err := deps.Sessions.GetByID(ctx, input.SessionID)
	if err != nil {
		return sessionDomain.RestockSession{}, err
	}

	item := sessionDomain.LineItem{
		ID:            deps.GenerateID(),
		ProductName:   input.ProductName,
		Quantity:      input.Quantity,
		SupplierName:  input.SupplierName,
		SupplierEmail: input.SupplierEmail,
		Notes:         input.Notes,
	}
	if err := sess.AddItem(item); err != nil {
		return sessionDomain.RestockSession{}, err
	}
	sess.UpdatedAt = deps.Now()
	if err := deps.Sessions.Save(ctx, sess); err != nil {
		return sessionDomain.RestockSession{}, err
	}

	slog.Info("session_event", "event", "item_added", "session_id", sess.ID, "product", item.ProductName, "quantity", item.Quantity)
	return sess, nil
}

// RemoveLineItemInput identifies a line item to delete.
type RemoveLineItemInput struct {
	SessionID string
	ItemID    string
}

// ExecuteRemoveLineItem deletes a line item from a draft session.
// PRE: Session exists and is in draft status; item exists
// POST: Item removed, remaining order preserved
func ExecuteRemoveLineItem(ctx context.Context, input RemoveLineItemInput, deps AddLineItemDeps) (sessionDomain.RestockSession, error) {
	sess, err := deps.Sessions.GetByID(ctx, input.SessionID)
	if err != nil {
		return sessionDomain.RestockSession{}, err
	}
	if err := sess.RemoveItem(input.ItemID); err != nil {
		return sessionDomain.RestockSession{}, err
	}
	sess.UpdatedAt = deps.Now()
	if err := deps.Sessions.Save(ctx, sess); err != nil {
		return sessionDomain.RestockSession{}, err
	}
	return sess, nil
}

// --- Discard Session ---

// DiscardSessionInput identifies a session to discard.
type DiscardSessionInput struct {
	SessionID string
}

// DiscardSessionDeps holds dependencies for DiscardSession.
type DiscardSessionDeps struct {
	Sessions sessionStore.Store
	State    *state.Store
	Bus      *events.Bus
}

// ExecuteDiscardSession deletes a session and, if it is the active email
// session, clears the cache slot so stale drafts cannot resurface.
// PRE: SessionID is non-empty
// POST: Session removed from storage; no active email session for it
func ExecuteDiscardSession(ctx context.Context, input DiscardSessionInput, deps DiscardSessionDeps) error {
	if input.SessionID == "" {
		return errors.New("session ID is required")
	}
	if err := deps.Sessions.Delete(ctx, input.SessionID); err != nil {
		return err
	}
	if deps.State != nil && deps.State.ActiveID() == input.SessionID {
		if err := deps.State.Clear(ctx); err != nil {
			return err
		}
	}
	if deps.Bus != nil {
		deps.Bus.PublishSessionUpdated(events.SessionUpdated{SessionID: input.SessionID})
	}
	slog.Info("session_event", "event", "session_discarded", "session_id", input.SessionID)
	return nil
}
