package store

import (
	"context"

	"github.com/phrazzld/kioku-api/internal/domain"
)

// ItemStore defines the interface for reviewable content persistence.
type ItemStore interface {
	// Create saves a new item.
	// Returns ErrDuplicate if an item with the same ID exists.
	Create(ctx context.Context, item *domain.Item) error

	// GetByID retrieves an item.
	// Returns ErrItemNotFound if the item does not exist.
	GetByID(ctx context.Context, id string) (*domain.Item, error)

	// GetMany retrieves the items that exist among ids, keyed by ID.
	// Missing ids are simply absent from the map.
	GetMany(ctx context.Context, ids []string) (map[string]*domain.Item, error)

	// UpdateFields stores generated display fields for an item.
	// Returns ErrItemNotFound if the item does not exist.
	UpdateFields(ctx context.Context, id string, reading, meaning string) error

	// Delete removes an item.
	// Returns ErrItemNotFound if the item does not exist.
	Delete(ctx context.Context, id string) error
}
