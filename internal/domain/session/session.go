package session

import (
	"errors"
	"time"
)

// Status constants for the restock session lifecycle.
const (
	StatusDraft          = "draft"
	StatusEmailGenerated = "email_generated"
	StatusSent           = "sent"
)

// Domain errors
var (
	ErrEmptyOwner      = errors.New("owner ID is required")
	ErrBadQuantity     = errors.New("quantity must be a positive integer")
	ErrEmptyProduct    = errors.New("product name is required")
	ErrNoItems         = errors.New("session has no line items")
	ErrNotDraft        = errors.New("session is not in draft status")
	ErrAlreadySent     = errors.New("session has already been sent")
	ErrItemNotFound    = errors.New("line item not found")
	ErrSessionNotFound = errors.New("session not found")
)

// LineItem is one restock need recorded during a store walkthrough.
type LineItem struct {
	ID            string
	ProductName   string
	Quantity      int
	SupplierName  string
	SupplierEmail string
	Notes         string
}

// RestockSession is a walkthrough's worth of restock needs. It moves from
// draft (items being recorded) to email_generated (drafts exist) to sent
// (every supplier email delivered).
type RestockSession struct {
	ID        string
	OwnerID   string
	Name      string
	Status    string
	Items     []LineItem
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks that the session has valid data.
// PRE: struct is populated
// POST: Returns nil if valid, error otherwise
func (s *RestockSession) Validate() error {
	if s.OwnerID == "" {
		return ErrEmptyOwner
	}
	if s.CreatedAt.IsZero() {
		return errors.New("created_at must be set")
	}
	for _, item := range s.Items {
		if err := item.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks a single line item.
func (i *LineItem) Validate() error {
	if i.ProductName == "" {
		return ErrEmptyProduct
	}
	if i.Quantity <= 0 {
		return ErrBadQuantity
	}
	return nil
}

// IsDraft returns true while items are still being recorded.
// INVARIANT: Status field is not mutated
func (s *RestockSession) IsDraft() bool {
	return s.Status == StatusDraft
}

// IsSent returns true once the completion protocol has run.
// INVARIANT: Status field is not mutated
func (s *RestockSession) IsSent() bool {
	return s.Status == StatusSent
}

// MarkEmailGenerated transitions the session once drafts exist for it.
// Regenerating from an email_generated session is allowed (idempotent).
// PRE: Session is not already sent
// POST: Status is email_generated
func (s *RestockSession) MarkEmailGenerated() error {
	if s.Status == StatusSent {
		return ErrAlreadySent
	}
	s.Status = StatusEmailGenerated
	return nil
}

// MarkSent records that every supplier email was delivered. Terminal.
// PRE: Session is in email_generated status
// POST: Status is sent
func (s *RestockSession) MarkSent() error {
	if s.Status == StatusSent {
		return ErrAlreadySent
	}
	s.Status = StatusSent
	return nil
}

// AddItem validates and appends a line item.
// PRE: Session is in draft status
// POST: Item appended
func (s *RestockSession) AddItem(item LineItem) error {
	if !s.IsDraft() {
		return ErrNotDraft
	}
	if err := item.Validate(); err != nil {
		return err
	}
	s.Items = append(s.Items, item)
	return nil
}

// RemoveItem deletes a line item by ID, preserving order of the rest.
// PRE: Session is in draft status
// POST: Item removed or ErrItemNotFound
func (s *RestockSession) RemoveItem(itemID string) error {
	if !s.IsDraft() {
		return ErrNotDraft
	}
	for i, item := range s.Items {
		if item.ID == itemID {
			s.Items = append(s.Items[:i], s.Items[i+1:]...)
			return nil
		}
	}
	return ErrItemNotFound
}
