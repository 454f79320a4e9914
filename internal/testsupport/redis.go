package testsupport

import (
	"context"
	"testing"

	"traderwatch/internal/adapters/redis"
)

// NewTestRedis opens a redis client against the integration environment and
// flushes the configured test database on cleanup.
func NewTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	dbConfigs := LoadDatabaseConfigsFromEnv(t)

	client, err := redis.NewClient(dbConfigs.Redis)
	if err != nil {
		t.Fatalf("failed to create redis client: %v", err)
	}

	t.Cleanup(func() {
		_ = client.Client().FlushDB(context.Background()).Err()
		_ = client.Close()
	})

	return client
}
