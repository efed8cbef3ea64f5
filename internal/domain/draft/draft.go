package draft

import (
	"errors"
	"time"
)

// Status constants for the per-draft send lifecycle.
const (
	StatusDraft   = "draft"
	StatusSending = "sending"
	StatusSent    = "sent"
	StatusFailed  = "failed"
)

// Domain errors
var (
	ErrAlreadySent   = errors.New("draft has already been sent")
	ErrNotSending    = errors.New("draft is not in sending status")
	ErrDraftNotFound = errors.New("draft not found in session")
	ErrNoDrafts      = errors.New("session has no drafts")
)

// EmailDraft is one supplier-facing email derived from a restock session.
// Products holds human-readable line summaries ("3x Widget") captured at
// generation time; they are a snapshot, not a live reference to line items.
type EmailDraft struct {
	ID            string
	SupplierName  string
	SupplierEmail string
	Subject       string
	Body          string
	Status        string
	Products      []string
	IsEdited      bool
	ErrorMessage  string // Last transport error if the send failed
}

// EmailSession groups the drafts generated from one restock session.
// Its ID equals the originating restock session's ID. At most one
// EmailSession is active at a time.
type EmailSession struct {
	ID           string
	Drafts       []EmailDraft
	ProductCount int
	CreatedAt    time.Time
}

// MarkSending transitions the draft into the sending state.
// PRE: Draft is not already sent
// POST: Status is sending, previous error is cleared
func (d *EmailDraft) MarkSending() error {
	if d.Status == StatusSent {
		return ErrAlreadySent
	}
	d.Status = StatusSending
	d.ErrorMessage = ""
	return nil
}

// MarkSent records a successful transport delivery.
// PRE: Draft is in sending status
// POST: Status is sent (terminal)
func (d *EmailDraft) MarkSent() {
	d.Status = StatusSent
	d.ErrorMessage = ""
}

// MarkFailed records a transport failure. The draft stays retryable:
// a fresh user-initiated send moves it back through sending.
// PRE: Draft is in sending status
// POST: Status is failed, ErrorMessage is set
func (d *EmailDraft) MarkFailed(err error) {
	d.Status = StatusFailed
	if err != nil {
		d.ErrorMessage = err.Error()
	}
}

// IsSent returns true if the draft reached the terminal sent state.
// INVARIANT: Status field is not mutated
func (d *EmailDraft) IsSent() bool {
	return d.Status == StatusSent
}

// AllSent reports whether every draft in the session is sent.
// An empty session is never considered complete.
// INVARIANT: Drafts are not mutated
func (s *EmailSession) AllSent() bool {
	if len(s.Drafts) == 0 {
		return false
	}
	for i := range s.Drafts {
		if !s.Drafts[i].IsSent() {
			return false
		}
	}
	return true
}

// DraftByID returns a pointer to the draft with the given ID.
// PRE: id is non-empty
// POST: Returns the draft or ErrDraftNotFound
func (s *EmailSession) DraftByID(id string) (*EmailDraft, error) {
	for i := range s.Drafts {
		if s.Drafts[i].ID == id {
			return &s.Drafts[i], nil
		}
	}
	return nil, ErrDraftNotFound
}
