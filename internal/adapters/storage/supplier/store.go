package supplier

import (
	"context"

	domain "restock/internal/domain/supplier"
)

// Store persists Supplier state.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Supplier, error)
	Save(ctx context.Context, s domain.Supplier) error
	Delete(ctx context.Context, id string) error
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Supplier, error)
}
