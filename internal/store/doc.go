// Package store defines interfaces for data persistence operations.
// These interfaces abstract the underlying data storage mechanism from
// the application's core logic, allowing scheduling rules to remain
// independent of specific database technologies. Any backend that offers
// a single-row conditional write can implement CandidateStore.
package store
