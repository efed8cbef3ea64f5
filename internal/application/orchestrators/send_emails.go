package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	emailAdapter "restock/internal/adapters/email"
	"restock/internal/adapters/metrics"
	sessionStore "restock/internal/adapters/storage/session"
	"restock/internal/application/events"
	"restock/internal/application/state"
	"restock/internal/domain/draft"
)

// SendResult is the outcome of a send operation. Expected failures
// (misconfiguration, not-found, transport errors) are reported here rather
// than as Go errors; errors are reserved for infrastructure faults.
type SendResult struct {
	Success bool
	Message string
	Session *draft.EmailSession // Post-operation state; nil once the session completed
}

// SendDeps holds the collaborators shared by the send orchestrators.
type SendDeps struct {
	State       *state.Store
	Sessions    sessionStore.Store
	Sender      emailAdapter.Sender
	Bus         *events.Bus
	Metrics     *metrics.Metrics
	Identity    draft.Sender // Sender identity for cache hydration
	FromAddress string       // Provider "from" address; empty means not configured
	ReplyTo     string
}

// SendDraftInput identifies a single draft to send.
type SendDraftInput struct {
	SessionID string
	DraftID   string
}

// SendAllInput identifies a session whose remaining drafts should be sent.
type SendAllInput struct {
	SessionID string
}

// ExecuteSendDraft sends one draft. The draft moves to sending before the
// transport call and lands on exactly sent or failed afterwards. When the
// send completes the session (every draft sent), the completion protocol
// runs once.
// PRE: Active email session matches SessionID; FromAddress configured
// POST: Draft status is sent or failed; session completed iff all sent
func ExecuteSendDraft(ctx context.Context, input SendDraftInput, deps SendDeps) (SendResult, error) {
	sess, res, err := loadForSend(ctx, input.SessionID, deps)
	if err != nil || !res.Success {
		return res, err
	}

	target, err := sess.DraftByID(input.DraftID)
	if err != nil {
		return SendResult{Message: fmt.Sprintf("email %s not found in session", input.DraftID)}, nil
	}
	if err := target.MarkSending(); err != nil {
		return SendResult{Message: err.Error(), Session: sess}, nil
	}
	// Persist the intermediate sending state before the transport call.
	if err := deps.State.UpdateDrafts(ctx, sess.ID, sess.Drafts); err != nil {
		return SendResult{}, err
	}

	sendErr := deliver(ctx, deps, target)
	if sendErr != nil {
		target.MarkFailed(sendErr)
	} else {
		target.MarkSent()
	}
	if err := deps.State.UpdateDrafts(ctx, sess.ID, sess.Drafts); err != nil {
		return SendResult{}, err
	}

	if sendErr != nil {
		return SendResult{
			Message: fmt.Sprintf("failed to send email to %s: %v", target.SupplierName, sendErr),
			Session: sess,
		}, nil
	}

	if sess.AllSent() {
		if err := runCompletion(ctx, sess.ID, deps); err != nil {
			return SendResult{Message: err.Error(), Session: sess}, nil
		}
		return SendResult{Success: true, Message: "all emails sent"}, nil
	}
	return SendResult{Success: true, Session: sess}, nil
}

// ExecuteSendAll sends every unsent draft in the session concurrently and
// joins all outcomes: a failing send never cancels its siblings. On partial
// failure the session stays active with drafts resolved to sent or failed
// individually, so the user can retry the failed subset.
// PRE: Active email session matches SessionID; FromAddress configured
// POST: Every dispatched draft is sent or failed; completion runs only when
// nothing failed
func ExecuteSendAll(ctx context.Context, input SendAllInput, deps SendDeps) (SendResult, error) {
	sess, res, err := loadForSend(ctx, input.SessionID, deps)
	if err != nil || !res.Success {
		return res, err
	}

	// Already-sent drafts are terminal and are not dispatched again.
	var pending []*draft.EmailDraft
	for i := range sess.Drafts {
		if !sess.Drafts[i].IsSent() {
			pending = append(pending, &sess.Drafts[i])
		}
	}

	if len(pending) > 0 {
		for _, d := range pending {
			if err := d.MarkSending(); err != nil {
				return SendResult{Message: err.Error(), Session: sess}, nil
			}
		}
		if err := deps.State.UpdateDrafts(ctx, sess.ID, sess.Drafts); err != nil {
			return SendResult{}, err
		}

		// One goroutine per draft; each writes only its own entry.
		sendErrs := make([]error, len(pending))
		var g errgroup.Group
		for i, d := range pending {
			g.Go(func() error {
				sendErrs[i] = deliver(ctx, deps, d)
				return sendErrs[i]
			})
		}
		// Wait joins all sends; the group error is ignored because per-draft
		// outcomes are what decide the result.
		_ = g.Wait()

		failed := 0
		for i, d := range pending {
			if sendErrs[i] != nil {
				d.MarkFailed(sendErrs[i])
				failed++
			} else {
				d.MarkSent()
			}
		}
		if err := deps.State.UpdateDrafts(ctx, sess.ID, sess.Drafts); err != nil {
			return SendResult{}, err
		}

		if failed > 0 {
			slog.Warn("send_all_partial_failure", "session_id", sess.ID, "failed", failed, "total", len(pending))
			return SendResult{
				Message: fmt.Sprintf("%d out of %d emails failed to send", failed, len(pending)),
				Session: sess,
			}, nil
		}
	}

	if err := runCompletion(ctx, sess.ID, deps); err != nil {
		return SendResult{Message: err.Error(), Session: sess}, nil
	}
	return SendResult{Success: true, Message: "all emails sent"}, nil
}

// loadForSend runs the shared preconditions: sender configured, transport
// present, active session matching the requested ID.
func loadForSend(ctx context.Context, sessionID string, deps SendDeps) (*draft.EmailSession, SendResult, error) {
	if deps.FromAddress == "" {
		return nil, SendResult{Message: "email sender address is not configured"}, nil
	}
	if deps.Sender == nil {
		return nil, SendResult{Message: "email provider is not configured"}, nil
	}

	sess, err := deps.State.Load(ctx, deps.Identity)
	if err != nil {
		return nil, SendResult{}, err
	}
	if sess == nil || sess.ID != sessionID {
		return nil, SendResult{Message: fmt.Sprintf("email session %s is not active", sessionID)}, nil
	}
	if len(sess.Drafts) == 0 {
		return nil, SendResult{Message: draft.ErrNoDrafts.Error()}, nil
	}
	return sess, SendResult{Success: true}, nil
}

// deliver makes the transport call for one draft and enforces the success
// criteria: no transport error and a non-empty provider message ID.
func deliver(ctx context.Context, deps SendDeps, d *draft.EmailDraft) error {
	result, err := deps.Sender.Send(ctx, emailAdapter.SendRequest{
		To:      d.SupplierEmail,
		From:    deps.FromAddress,
		Subject: d.Subject,
		HTML:    emailAdapter.RenderHTML(d.Body),
		ReplyTo: deps.ReplyTo,
	})
	if err == nil && result.MessageID == "" {
		err = errors.New("provider returned no message ID")
	}
	if deps.Metrics != nil {
		if err != nil {
			deps.Metrics.EmailsFailedTotal.Inc()
		} else {
			deps.Metrics.EmailsSentTotal.Inc()
		}
	}
	if err != nil {
		slog.Warn("draft_send_failed", "draft_id", d.ID, "supplier", d.SupplierName, "error", err.Error())
		return err
	}
	slog.Info("draft_sent", "draft_id", d.ID, "supplier", d.SupplierName, "message_id", result.MessageID)
	return nil
}

// runCompletion finalizes a fully-sent session: the restock session is
// marked sent in storage, the cache slot and in-memory state are cleared,
// and a SessionSent event is published. MarkSent commits before the event
// fires, so subscribers re-querying storage observe the final status
// without a settling delay.
// PRE: Every draft in the session is sent
// POST: No active email session; SessionSent published exactly once
func runCompletion(ctx context.Context, sessionID string, deps SendDeps) error {
	if err := deps.Sessions.MarkSent(ctx, sessionID); err != nil {
		slog.Error("session_mark_sent_failed", "session_id", sessionID, "error", err.Error())
		return fmt.Errorf("failed to finalize session: %w", err)
	}
	if err := deps.State.Clear(ctx); err != nil {
		slog.Error("session_cache_clear_failed", "session_id", sessionID, "error", err.Error())
		return err
	}
	if deps.Metrics != nil {
		deps.Metrics.SessionsCompletedTotal.Inc()
	}
	if deps.Bus != nil {
		deps.Bus.PublishSessionSent(events.SessionSent{SessionID: sessionID})
	}
	slog.Info("session_completed", "event", "session_sent", "session_id", sessionID)
	return nil
}
