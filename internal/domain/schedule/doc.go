// Package schedule implements the review scheduling policy: a pure mapping
// from (mode, base date, correctness, streak) to the next due date, the next
// streak and the graduation flag. It performs no I/O.
package schedule
