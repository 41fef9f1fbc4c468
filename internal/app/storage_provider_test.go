package app

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/yungbote/fleet-backend/internal/data/docstore"
	"github.com/yungbote/fleet-backend/internal/data/docstore/redisstore"
	"github.com/yungbote/fleet-backend/internal/platform/logger"
)

func TestResolveStoreInvalidDriver(t *testing.T) {
	_, err := resolveStore(context.Background(), logger.NewNop(), StoreConfig{Driver: "mongo"})

	var got *StoreBootstrapError
	if !errors.As(err, &got) {
		t.Fatalf("expected StoreBootstrapError, got=%T", err)
	}
	if got.Code != StoreBootstrapErrorInvalidDriver {
		t.Fatalf("code: want=%q got=%q", StoreBootstrapErrorInvalidDriver, got.Code)
	}
}

func TestResolveStoreMissingPostgresConfig(t *testing.T) {
	_, err := resolveStore(context.Background(), logger.NewNop(), StoreConfig{Driver: DriverPostgres})

	var got *StoreBootstrapError
	if !errors.As(err, &got) {
		t.Fatalf("expected StoreBootstrapError, got=%T", err)
	}
	if got.Code != StoreBootstrapErrorMissingConfig {
		t.Fatalf("code: want=%q got=%q", StoreBootstrapErrorMissingConfig, got.Code)
	}
}

func TestResolveStoreConnectFailedWrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	prev := openRedis
	openRedis = func(context.Context, redisstore.Config, *logger.Logger) (*redisstore.Store, error) {
		return nil, cause
	}
	t.Cleanup(func() { openRedis = prev })

	_, err := resolveStore(context.Background(), logger.NewNop(), StoreConfig{
		Driver: DriverRedis,
		Redis:  redisstore.Config{Addr: "127.0.0.1:1"},
	})
	var got *StoreBootstrapError
	if !errors.As(err, &got) {
		t.Fatalf("expected StoreBootstrapError, got=%T", err)
	}
	if got.Code != StoreBootstrapErrorConnectFailed || got.Driver != DriverRedis {
		t.Fatalf("unexpected error: %+v", got)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("cause not wrapped: %v", err)
	}
}

func TestResolveStoreDrivers(t *testing.T) {
	mr := miniredis.RunT(t)
	dir := t.TempDir()

	cases := []struct {
		cfg           StoreConfig
		transactional bool
	}{
		{StoreConfig{Driver: ""}, true},
		{StoreConfig{Driver: "MEMORY"}, true},
		{StoreConfig{Driver: DriverSQLite, SQLitePath: filepath.Join(dir, "fleet.db"), AutoMigrate: true}, true},
		{StoreConfig{Driver: DriverRedis, Redis: redisstore.Config{Addr: mr.Addr(), Prefix: "t"}}, false},
		{StoreConfig{Driver: DriverBolt, Bolt: boltOptions(filepath.Join(dir, "fleet.bolt"))}, true},
	}
	for _, tc := range cases {
		opened, err := resolveStore(context.Background(), logger.NewNop(), tc.cfg)
		if err != nil {
			t.Fatalf("%q: %v", tc.cfg.Driver, err)
		}
		if _, ok := opened.store.(docstore.Transactor); ok != tc.transactional {
			t.Fatalf("%q: transactional want=%v got=%v", tc.cfg.Driver, tc.transactional, ok)
		}
		if _, err := opened.store.Save(context.Background(), "Boats", []byte(`{}`)); err != nil {
			t.Fatalf("%q: save: %v", tc.cfg.Driver, err)
		}
		if err := opened.close(); err != nil {
			t.Fatalf("%q: close: %v", tc.cfg.Driver, err)
		}
	}
}
