package testdb

import (
	"context"
	"os"
	"testing"

	"github.com/redis/go-redis/v9"
)

// GetTestRedisAddr returns REDIS_ADDR, or "" when Redis tests should be skipped.
func GetTestRedisAddr() string {
	return os.Getenv("REDIS_ADDR")
}

// GetTestRedisWithT connects to the test Redis server. The test is skipped
// when REDIS_ADDR is not set.
func GetTestRedisWithT(t *testing.T) *redis.Client {
	t.Helper()

	addr := GetTestRedisAddr()
	if addr == "" {
		t.Skip("Skipping integration test - requires REDIS_ADDR environment variable")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		t.Fatalf("failed to ping redis at %s: %v", addr, err)
	}

	t.Cleanup(func() { _ = client.Close() })
	return client
}
