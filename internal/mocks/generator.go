package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/kioku-api/internal/generation"
)

// MockFieldGenerator implements generation.FieldGenerator for testing
type MockFieldGenerator struct {
	// GenerateFn allows test cases to mock the Generate behavior
	GenerateFn func(ctx context.Context, itemID, text string) (*generation.GeneratedFields, error)

	// Default response values
	Fields *generation.GeneratedFields
	Err    error

	mu      sync.Mutex
	itemIDs []string
}

var _ generation.FieldGenerator = (*MockFieldGenerator)(nil)

// Generate implements the generation.FieldGenerator interface
func (m *MockFieldGenerator) Generate(ctx context.Context, itemID, text string) (*generation.GeneratedFields, error) {
	m.mu.Lock()
	m.itemIDs = append(m.itemIDs, itemID)
	m.mu.Unlock()

	if m.GenerateFn != nil {
		return m.GenerateFn(ctx, itemID, text)
	}
	return m.Fields, m.Err
}

// Calls returns the item ids passed to Generate, in call order.
func (m *MockFieldGenerator) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.itemIDs...)
}

// NewMockFieldGeneratorWithFields creates a MockFieldGenerator that always returns fields
func NewMockFieldGeneratorWithFields(reading, meaning string) *MockFieldGenerator {
	return &MockFieldGenerator{
		Fields: &generation.GeneratedFields{Reading: reading, Meaning: meaning},
	}
}

// NewMockFieldGeneratorWithError creates a MockFieldGenerator that returns the specified error
func NewMockFieldGeneratorWithError(err error) *MockFieldGenerator {
	return &MockFieldGenerator{Err: err}
}
