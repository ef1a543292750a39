// Package postgres provides PostgreSQL implementations of the store interfaces,
// together with the embedded goose migrations that create their schema.
//
// Candidate locking relies on single-statement conditional updates
// (UPDATE ... WHERE status = 'open' AND lock_owner_id IS NULL); an update that
// touches no rows is reported as store.ErrConditionFailed.
package postgres
