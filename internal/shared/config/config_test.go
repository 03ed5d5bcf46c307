package config

import (
	"strings"
	"testing"
	"time"
)

const secret = "0123456789abcdef0123456789abcdef"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", secret)
	t.Setenv("WORLD_STORE", "memory")

	cfg, err := load()
	if err != nil {
		t.Fatal(err)
	}
	if err := cfg.validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	if cfg.World.TickDuration != time.Minute || cfg.World.AdvanceInterval != 10*time.Second {
		t.Fatalf("world = %+v", cfg.World)
	}
	if cfg.Redis.Enabled || cfg.Redis.EventsChannel != "world:events" || cfg.Redis.AdvanceLockTTL != 30*time.Second {
		t.Fatalf("redis = %+v", cfg.Redis)
	}
	if cfg.Universe.Radius != 6 || cfg.Universe.MaxCelestialSize != 12 {
		t.Fatalf("universe = %+v", cfg.Universe)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"short secret", map[string]string{"JWT_SECRET": "short"}, "JWT_SECRET"},
		{"unknown store", map[string]string{"WORLD_STORE": "files"}, "WORLD_STORE"},
		{"sub-second tick", map[string]string{"TICK_DURATION_SECONDS": "0"}, "TICK_DURATION_SECONDS"},
		{"interval longer than tick", map[string]string{"TICK_DURATION_SECONDS": "5", "ADVANCE_INTERVAL_SECONDS": "10"}, "ADVANCE_INTERVAL_SECONDS"},
		{"negative radius", map[string]string{"UNIVERSE_RADIUS": "-1"}, "UNIVERSE_RADIUS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", secret)
			t.Setenv("WORLD_STORE", "memory")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := load()
			if err != nil {
				t.Fatal(err)
			}
			err = cfg.validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("validate error = %v, want mention of %s", err, tt.want)
			}
		})
	}
}

func TestConnectionString(t *testing.T) {
	cfg := &Config{Database: DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", Name: "empires", SSLMode: "disable"}}
	want := "host=db port=5432 user=u password=p dbname=empires sslmode=disable"
	if got := cfg.ConnectionString(); got != want {
		t.Fatalf("ConnectionString() = %q", got)
	}
}
