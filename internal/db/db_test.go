package db

import (
	"testing"

	"backend-spotfinder/internal/config"
)

func TestConnectPostgresInvalidURL(t *testing.T) {
	_, err := ConnectPostgres(config.Config{PostgresURL: "not-a-url"})
	if err == nil {
		t.Fatalf("expected error for invalid postgres url")
	}
}

func TestConnectRedisDisabled(t *testing.T) {
	if c := ConnectRedis(config.Config{}); c != nil {
		t.Fatalf("expected nil client when redis is unconfigured")
	}
}

func TestConnectRedisConfigured(t *testing.T) {
	c := ConnectRedis(config.Config{RedisAddr: "localhost:6379"})
	if c == nil {
		t.Fatalf("expected client")
	}
	_ = c.Close()
}
