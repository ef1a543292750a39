// Package main implements the kioku command, which maintains the review
// candidate pool and assembles, grades, and abandons exams from it.
package main

import (
	"fmt"
	"os"

	"github.com/phrazzld/kioku-api/internal/redact"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", redact.Error(err))
		os.Exit(1)
	}
}
