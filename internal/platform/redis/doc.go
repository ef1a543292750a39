// Package redis provides a Redis implementation of store.CandidateStore built
// on WATCH/MULTI optimistic transactions.
package redis
