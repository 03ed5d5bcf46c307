package redis

import (
	"context"
	"testing"

	"empires-server/internal/shared/config"
)

func TestOptions(t *testing.T) {
	opts, err := options(config.RedisConfig{Host: "cache", Port: "6380", DB: 2})
	if err != nil {
		t.Fatal(err)
	}
	if opts.Addr != "cache:6380" || opts.DB != 2 {
		t.Fatalf("host options = %+v", opts)
	}

	opts, err = options(config.RedisConfig{URL: "redis://:pw@example:6379/4", Host: "ignored"})
	if err != nil {
		t.Fatal(err)
	}
	if opts.Addr != "example:6379" || opts.DB != 4 || opts.Password != "pw" {
		t.Fatalf("url options = %+v", opts)
	}

	if _, err := options(config.RedisConfig{URL: "http://nope"}); err == nil {
		t.Fatal("expected an error for a non-redis URL")
	}
}

func TestConnectDisabled(t *testing.T) {
	c, err := Connect(context.Background(), config.RedisConfig{Enabled: false})
	if err != nil || c != nil {
		t.Fatalf("Connect = %v, %v", c, err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("closing a nil client: %v", err)
	}
}
