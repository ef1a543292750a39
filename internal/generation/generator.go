package generation

import (
	"context"
	"strings"
)

// GeneratedFields carries the display fields produced for one item.
type GeneratedFields struct {
	Reading string `json:"reading"`
	Meaning string `json:"meaning"`
}

// Complete reports whether both fields are present.
func (f *GeneratedFields) Complete() bool {
	return f != nil && strings.TrimSpace(f.Reading) != "" && strings.TrimSpace(f.Meaning) != ""
}

// FieldGenerator produces the reading and meaning for an item's raw text.
// Implementations must be safe for concurrent use.
type FieldGenerator interface {
	// Generate returns the fields for the item identified by itemID.
	// Errors wrap one of the sentinels in errors.go.
	Generate(ctx context.Context, itemID, text string) (*GeneratedFields, error)
}

// FieldGeneratorFunc adapts a function to the FieldGenerator interface.
type FieldGeneratorFunc func(ctx context.Context, itemID, text string) (*GeneratedFields, error)

// Generate implements FieldGenerator.
func (f FieldGeneratorFunc) Generate(ctx context.Context, itemID, text string) (*GeneratedFields, error) {
	return f(ctx, itemID, text)
}
