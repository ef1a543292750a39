// Package mocks provides centralized mock implementations for testing.
//
// Mocks follow one pattern: a function field per interface method, a default
// return value used when the field is nil, and call tracking where tests need
// to assert on arguments.
//
//	gen := &mocks.MockFieldGenerator{
//	    GenerateFn: func(ctx context.Context, itemID, text string) (*generation.GeneratedFields, error) {
//	        return &generation.GeneratedFields{Reading: "やま", Meaning: "mountain"}, nil
//	    },
//	}
package mocks
