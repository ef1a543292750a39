package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/phrazzld/kioku-api/internal/domain"
	"github.com/phrazzld/kioku-api/internal/store"
)

// ItemStore is a mutex-guarded store.ItemStore.
type ItemStore struct {
	mu    sync.RWMutex
	items map[string]*domain.Item
	now   func() time.Time
}

// NewItemStore creates an empty ItemStore.
func NewItemStore() *ItemStore {
	return &ItemStore{items: make(map[string]*domain.Item), now: time.Now}
}

var _ store.ItemStore = (*ItemStore)(nil)

func cloneItem(i *domain.Item) *domain.Item {
	cp := *i
	return &cp
}

// Create implements store.ItemStore.Create
func (s *ItemStore) Create(ctx context.Context, item *domain.Item) error {
	if err := item.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[item.ID]; exists {
		return store.ErrDuplicate
	}
	s.items[item.ID] = cloneItem(item)
	return nil
}

// GetByID implements store.ItemStore.GetByID
func (s *ItemStore) GetByID(ctx context.Context, id string) (*domain.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[id]
	if !ok {
		return nil, store.ErrItemNotFound
	}
	return cloneItem(item), nil
}

// GetMany implements store.ItemStore.GetMany
func (s *ItemStore) GetMany(ctx context.Context, ids []string) (map[string]*domain.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]*domain.Item, len(ids))
	for _, id := range ids {
		if item, ok := s.items[id]; ok {
			out[id] = cloneItem(item)
		}
	}
	return out, nil
}

// UpdateFields implements store.ItemStore.UpdateFields
func (s *ItemStore) UpdateFields(ctx context.Context, id string, reading, meaning string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return store.ErrItemNotFound
	}
	item.Reading = reading
	item.Meaning = meaning
	item.UpdatedAt = s.now().UTC()
	return nil
}

// Delete implements store.ItemStore.Delete
func (s *ItemStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return store.ErrItemNotFound
	}
	delete(s.items, id)
	return nil
}
