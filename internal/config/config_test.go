package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/garrettladley/imisrelay/internal/db"
	xenv "github.com/garrettladley/imisrelay/internal/env"
	"github.com/garrettladley/imisrelay/internal/redis"
)

func TestReadDefaults(t *testing.T) {
	t.Setenv("OPENIMIS_USERNAME", "admin")
	t.Setenv("OPENIMIS_PASSWORD", "secret")

	cfg, err := Read()
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	want := Config{
		Port: "80",
		Env:  xenv.Development,
		OpenIMIS: OpenIMIS{
			Username: "admin",
			Password: "secret",
			Timeout:  10 * time.Second,
		},
		Database: db.Config{Driver: db.DriverSQLite, Path: "notifications.db"},
		Redis:    redis.Config{PingTimeout: 5 * time.Second},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestReadRequiresCredentials(t *testing.T) {
	t.Setenv("OPENIMIS_USERNAME", "")
	t.Setenv("OPENIMIS_PASSWORD", "")

	if _, err := Read(); err == nil {
		t.Fatal("Read() error = nil, want missing credentials error")
	}
}

func TestReadPostgresRequiresURL(t *testing.T) {
	t.Setenv("OPENIMIS_USERNAME", "admin")
	t.Setenv("OPENIMIS_PASSWORD", "secret")
	t.Setenv("DATABASE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "")

	if _, err := Read(); err == nil {
		t.Fatal("Read() error = nil, want missing DATABASE_URL error")
	}
}
