package draft

import (
	"fmt"
	"strings"
	"time"
)

// Fallback sender identity used when profile data is missing. Generation
// must always succeed, so every field has a hardcoded default.
const (
	FallbackStoreName = "Your Store"
	FallbackUserName  = "Store Manager"
	FallbackUserEmail = "manager@store.com"
)

// UnknownSupplier is the bucket for line items without a supplier name.
const UnknownSupplier = "Unknown Supplier"

// placeholderEmail is used when a supplier group has no email address.
const placeholderEmail = "supplier@example.com"

// LineItem is the slice of a restock session a draft is generated from.
type LineItem struct {
	ProductName   string
	Quantity      int
	SupplierName  string
	SupplierEmail string
	Notes         string
}

// Sender is the identity substituted into the email template.
type Sender struct {
	StoreName string
	UserName  string
	UserEmail string
}

// withFallbacks fills blank identity fields with the defaults.
func (s Sender) withFallbacks() Sender {
	if s.StoreName == "" {
		s.StoreName = FallbackStoreName
	}
	if s.UserName == "" {
		s.UserName = FallbackUserName
	}
	if s.UserEmail == "" {
		s.UserEmail = FallbackUserEmail
	}
	return s
}

// Generate derives one EmailDraft per distinct supplier name from the line
// items. Grouping is by exact supplier display name in insertion order of
// first occurrence; a blank name falls into the "Unknown Supplier" bucket.
// Two suppliers sharing a display name are conflated into one draft, a
// known limitation of keying on name rather than a stable supplier ID.
// PRE: none; missing sender fields fall back to defaults
// POST: Deterministic output; union of all Products equals the input items,
// each exactly once; never returns an error
func Generate(sessionID string, items []LineItem, sender Sender) []EmailDraft {
	sender = sender.withFallbacks()

	type group struct {
		name  string
		email string
		items []LineItem
	}
	var order []string
	groups := make(map[string]*group)

	for _, item := range items {
		name := item.SupplierName
		if name == "" {
			name = UnknownSupplier
		}
		g, ok := groups[name]
		if !ok {
			g = &group{name: name}
			groups[name] = g
			order = append(order, name)
		}
		if g.email == "" {
			g.email = item.SupplierEmail
		}
		g.items = append(g.items, item)
	}

	drafts := make([]EmailDraft, 0, len(order))
	for ordinal, name := range order {
		g := groups[name]
		email := g.email
		if email == "" {
			email = placeholderEmail
		}

		products := make([]string, 0, len(g.items))
		for _, item := range g.items {
			products = append(products, fmt.Sprintf("%dx %s", item.Quantity, item.ProductName))
		}

		drafts = append(drafts, EmailDraft{
			ID:            fmt.Sprintf("%s-%d", sessionID, ordinal),
			SupplierName:  name,
			SupplierEmail: email,
			Subject:       fmt.Sprintf("Restock Order from %s", sender.StoreName),
			Body:          renderBody(g.name, g.items, sender),
			Status:        StatusDraft,
			Products:      products,
		})
	}
	return drafts
}

// NewSession wraps freshly generated drafts in an EmailSession.
// PRE: sessionID matches the originating restock session
// POST: ProductCount equals len(items)
func NewSession(sessionID string, items []LineItem, sender Sender, now time.Time) EmailSession {
	return EmailSession{
		ID:           sessionID,
		Drafts:       Generate(sessionID, items, sender),
		ProductCount: len(items),
		CreatedAt:    now,
	}
}

// renderBody produces the fixed order-request template for one supplier group.
func renderBody(supplierName string, items []LineItem, sender Sender) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", supplierName)
	b.WriteString("We would like to place a restock order for the following items:\n\n")
	for _, item := range items {
		fmt.Fprintf(&b, "• %dx %s", item.Quantity, item.ProductName)
		if item.Notes != "" {
			fmt.Fprintf(&b, " (%s)", item.Notes)
		}
		b.WriteString("\n")
	}
	b.WriteString("\nPlease confirm availability and expected delivery time at your earliest convenience.\n\n")
	b.WriteString(Signature(sender))
	return b.String()
}

// Signature renders the trailing signature block of a draft body.
// The editor re-derives this block on save so edits never carry a stale
// sender identity.
func Signature(sender Sender) string {
	sender = sender.withFallbacks()
	return fmt.Sprintf("Best regards,\n%s\n%s\n%s", sender.UserName, sender.StoreName, sender.UserEmail)
}
