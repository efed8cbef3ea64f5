package session

import (
	"context"

	domain "restock/internal/domain/session"
)

// Store persists RestockSession state including line items.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.RestockSession, error)
	Save(ctx context.Context, s domain.RestockSession) error
	Delete(ctx context.Context, id string) error
	ListByOwner(ctx context.Context, ownerID string) ([]domain.RestockSession, error)
	// MarkSent transitions a session to sent with a guarded update.
	// Returns domain.ErrSessionNotFound when no row matched.
	MarkSent(ctx context.Context, id string) error
}
