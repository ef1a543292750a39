// Package testdb provides helpers for integration tests that need a real
// PostgreSQL database or Redis server. Tests call GetTestDBWithT or
// GetTestRedisWithT, which skip the test when DATABASE_URL or REDIS_ADDR
// is not set.
package testdb
