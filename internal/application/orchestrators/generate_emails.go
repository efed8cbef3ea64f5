package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"time"

	sessionStore "restock/internal/adapters/storage/session"
	"restock/internal/application/events"
	"restock/internal/application/state"
	"restock/internal/domain/draft"
	sessionDomain "restock/internal/domain/session"
)

// GenerateEmailsInput carries input for generating supplier drafts.
type GenerateEmailsInput struct {
	SessionID string
}

// GenerateEmailsDeps holds dependencies for GenerateEmails.
type GenerateEmailsDeps struct {
	Sessions sessionStore.Store
	State    *state.Store
	Bus      *events.Bus
	Identity draft.Sender
	Now      func() time.Time
}

// ExecuteGenerateEmails derives one email draft per supplier from the
// session's line items and activates the result as the current email
// session. Regeneration for the same session is idempotent: grouping order
// and draft IDs are stable for identical input.
// PRE: Session exists, is not sent, and has at least one line item
// POST: Session status is email_generated; the cache slot holds the drafts
func ExecuteGenerateEmails(ctx context.Context, input GenerateEmailsInput, deps GenerateEmailsDeps) (draft.EmailSession, error) {
	if input.SessionID == "" {
		return draft.EmailSession{}, errors.New("session ID is required")
	}

	sess, err := deps.Sessions.GetByID(ctx, input.SessionID)
	if err != nil {
		return draft.EmailSession{}, err
	}
	if len(sess.Items) == 0 {
		return draft.EmailSession{}, sessionDomain.ErrNoItems
	}
	if err := sess.MarkEmailGenerated(); err != nil {
		return draft.EmailSession{}, err
	}
	sess.UpdatedAt = deps.Now()
	if err := deps.Sessions.Save(ctx, sess); err != nil {
		return draft.EmailSession{}, err
	}

	items := make([]draft.LineItem, 0, len(sess.Items))
	for _, item := range sess.Items {
		items = append(items, draft.LineItem{
			ProductName:   item.ProductName,
			Quantity:      item.Quantity,
			SupplierName:  item.SupplierName,
			SupplierEmail: item.SupplierEmail,
			Notes:         item.Notes,
		})
	}

	emailSess, err := deps.State.Activate(ctx, sess.ID, items, deps.Identity, deps.Now())
	if err != nil {
		return draft.EmailSession{}, err
	}

	if deps.Bus != nil {
		deps.Bus.PublishSessionUpdated(events.SessionUpdated{SessionID: sess.ID})
	}
	slog.Info("email_event", "event", "emails_generated", "session_id", sess.ID, "draft_count", len(emailSess.Drafts))
	return emailSess, nil
}
