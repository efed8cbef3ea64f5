package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"restock/internal/adapters/cache"
	"restock/internal/domain/draft"
)

// SlotKey is the single cache slot holding the active email session.
// Only one email session is cached at a time; activating a new session
// overwrites the slot.
const SlotKey = "currentEmailSession"

// Errors returned by the store.
var (
	ErrNoActiveSession = errors.New("no active email session")
	ErrSessionMismatch = errors.New("session ID does not match the active email session")
)

// cachedBlob is the JSON shape persisted in the cache slot. Products are
// kept so drafts can be regenerated after a reload; editedEmails, when
// present, take precedence so user edits survive reloads.
type cachedBlob struct {
	SessionID    string           `json:"sessionId"`
	Products     []draft.LineItem `json:"products"`
	CreatedAt    time.Time        `json:"createdAt"`
	EditedEmails []cachedDraft    `json:"editedEmails,omitempty"`
}

type cachedDraft struct {
	ID            string   `json:"id"`
	SupplierName  string   `json:"supplierName"`
	SupplierEmail string   `json:"supplierEmail"`
	Subject       string   `json:"subject"`
	Body          string   `json:"body"`
	Status        string   `json:"status"`
	Products      []string `json:"products"`
	IsEdited      bool     `json:"isEdited,omitempty"`
}

// Store owns the active EmailSession and its cache mirror. It is the only
// writer of the cache slot. Safe for concurrent use by HTTP handlers.
type Store struct {
	mu     sync.Mutex
	cache  cache.Cache
	active *draft.EmailSession
	blob   cachedBlob
}

// NewStore creates a Store over the given cache.
func NewStore(c cache.Cache) *Store {
	return &Store{cache: c}
}

// Load returns the active email session, hydrating from the cache slot if
// nothing is in memory. A missing slot yields (nil, nil). A corrupt cached
// blob is treated as absent rather than surfaced as an error.
// POST: Returns a copy; mutating it does not affect the store
func (s *Store) Load(ctx context.Context, sender draft.Sender) (*draft.EmailSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active != nil {
		return copySession(s.active), nil
	}

	raw, ok, err := s.cache.Get(ctx, SlotKey)
	if err != nil {
		return nil, fmt.Errorf("read email session cache: %w", err)
	}
	if !ok {
		return nil, nil
	}

	var blob cachedBlob
	if err := json.Unmarshal([]byte(raw), &blob); err != nil {
		slog.Warn("email_session_cache_corrupt", "error", err.Error())
		return nil, nil
	}

	sess := draft.EmailSession{
		ID:           blob.SessionID,
		ProductCount: len(blob.Products),
		CreatedAt:    blob.CreatedAt,
	}
	if len(blob.EditedEmails) > 0 {
		sess.Drafts = fromCachedDrafts(blob.EditedEmails)
	} else {
		sess.Drafts = draft.Generate(blob.SessionID, blob.Products, sender)
	}

	s.active = &sess
	s.blob = blob
	return copySession(s.active), nil
}

// Activate generates drafts for a session and makes it the active email
// session, overwriting the cache slot.
// PRE: sessionID is non-empty
// POST: The slot holds the new session; any previous session is evicted
func (s *Store) Activate(ctx context.Context, sessionID string, items []draft.LineItem, sender draft.Sender, now time.Time) (draft.EmailSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := draft.NewSession(sessionID, items, sender, now)
	blob := cachedBlob{
		SessionID: sessionID,
		Products:  items,
		CreatedAt: now,
	}
	if err := s.persist(ctx, blob); err != nil {
		return draft.EmailSession{}, err
	}

	s.active = &sess
	s.blob = blob
	return *copySession(s.active), nil
}

// UpdateDrafts replaces the active session's draft list wholesale and
// persists it into the cached blob's editedEmails field. Writes are scoped
// to the matching session only.
// PRE: sessionID equals the active session's ID
// POST: In-memory and cached drafts both reflect the replacement
func (s *Store) UpdateDrafts(ctx context.Context, sessionID string, drafts []draft.EmailDraft) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil {
		return ErrNoActiveSession
	}
	if s.active.ID != sessionID {
		return ErrSessionMismatch
	}

	blob := s.blob
	blob.EditedEmails = toCachedDrafts(drafts)
	if err := s.persist(ctx, blob); err != nil {
		return err
	}

	s.active.Drafts = copyDrafts(drafts)
	s.blob = blob
	return nil
}

// Clear removes the cache slot and drops the in-memory active session.
// POST: Load yields (nil, nil) until the next Activate
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.cache.Remove(ctx, SlotKey); err != nil {
		return fmt.Errorf("clear email session cache: %w", err)
	}
	s.active = nil
	s.blob = cachedBlob{}
	return nil
}

// ActiveID returns the active session's ID, or "" when none is active.
func (s *Store) ActiveID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return ""
	}
	return s.active.ID
}

func (s *Store) persist(ctx context.Context, blob cachedBlob) error {
	raw, err := json.Marshal(blob)
	if err != nil {
		return fmt.Errorf("encode email session cache: %w", err)
	}
	if err := s.cache.Set(ctx, SlotKey, string(raw)); err != nil {
		return fmt.Errorf("write email session cache: %w", err)
	}
	return nil
}

func copySession(sess *draft.EmailSession) *draft.EmailSession {
	out := *sess
	out.Drafts = copyDrafts(sess.Drafts)
	return &out
}

func copyDrafts(drafts []draft.EmailDraft) []draft.EmailDraft {
	out := make([]draft.EmailDraft, len(drafts))
	copy(out, drafts)
	for i := range out {
		out[i].Products = append([]string(nil), drafts[i].Products...)
	}
	return out
}

func toCachedDrafts(drafts []draft.EmailDraft) []cachedDraft {
	out := make([]cachedDraft, 0, len(drafts))
	for _, d := range drafts {
		out = append(out, cachedDraft{
			ID:            d.ID,
			SupplierName:  d.SupplierName,
			SupplierEmail: d.SupplierEmail,
			Subject:       d.Subject,
			Body:          d.Body,
			Status:        d.Status,
			Products:      d.Products,
			IsEdited:      d.IsEdited,
		})
	}
	return out
}

func fromCachedDrafts(cached []cachedDraft) []draft.EmailDraft {
	out := make([]draft.EmailDraft, 0, len(cached))
	for _, c := range cached {
		status := c.Status
		if status == "" {
			status = draft.StatusDraft
		}
		out = append(out, draft.EmailDraft{
			ID:            c.ID,
			SupplierName:  c.SupplierName,
			SupplierEmail: c.SupplierEmail,
			Subject:       c.Subject,
			Body:          c.Body,
			Status:        status,
			Products:      c.Products,
			IsEdited:      c.IsEdited,
		})
	}
	return out
}
