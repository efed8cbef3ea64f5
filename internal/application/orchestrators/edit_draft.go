package orchestrators

import (
	"context"
	"fmt"
	"log/slog"

	"restock/internal/application/state"
	"restock/internal/domain/draft"
)

// EditDraftInput carries the edited subject and body for one draft.
type EditDraftInput struct {
	SessionID string
	DraftID   string
	Subject   string
	Body      string
}

// EditDraftDeps holds dependencies for EditDraft.
type EditDraftDeps struct {
	State    *state.Store
	Identity draft.Sender
}

// ExecuteEditDraft commits an edit to a single draft. The body's signature
// block is re-derived from the current sender identity and the draft is
// flagged as edited, so the edit survives reloads via the cache slot.
// PRE: Active email session matches SessionID; draft exists
// POST: Draft carries the new subject/body with IsEdited set
func ExecuteEditDraft(ctx context.Context, input EditDraftInput, deps EditDraftDeps) (draft.EmailDraft, error) {
	sess, err := deps.State.Load(ctx, deps.Identity)
	if err != nil {
		return draft.EmailDraft{}, err
	}
	if sess == nil || sess.ID != input.SessionID {
		return draft.EmailDraft{}, fmt.Errorf("email session %s is not active", input.SessionID)
	}

	target, err := sess.DraftByID(input.DraftID)
	if err != nil {
		return draft.EmailDraft{}, err
	}

	var editor draft.Editor
	editor.Start(*target)
	editor.SetSubject(input.Subject)
	editor.SetBody(input.Body)
	updated, ok := editor.Save(deps.Identity)
	if !ok {
		return draft.EmailDraft{}, fmt.Errorf("no edit in progress for draft %s", input.DraftID)
	}

	*target = updated
	if err := deps.State.UpdateDrafts(ctx, sess.ID, sess.Drafts); err != nil {
		return draft.EmailDraft{}, err
	}

	slog.Info("email_event", "event", "draft_edited", "session_id", sess.ID, "draft_id", updated.ID)
	return updated, nil
}
