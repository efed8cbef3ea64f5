package supplier

import (
	"errors"
	"time"
)

// Domain errors
var (
	ErrEmptyName = errors.New("supplier name is required")
	ErrNotFound  = errors.New("supplier not found")
)

// Supplier is an address-book entry used by the product entry screens to
// prefill line items. Drafts group by supplier display name, not by this ID,
// so two suppliers sharing a name end up in one combined email.
type Supplier struct {
	ID        string
	Name      string
	Email     string
	Phone     string
	Notes     string
	OwnerID   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks that the supplier has valid data.
func (s *Supplier) Validate() error {
	if s.Name == "" {
		return ErrEmptyName
	}
	if s.OwnerID == "" {
		return errors.New("owner ID is required")
	}
	return nil
}
