package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/yungbote/fleet-backend/internal/data/docstore"
	"github.com/yungbote/fleet-backend/internal/data/docstore/boltstore"
	"github.com/yungbote/fleet-backend/internal/data/docstore/dsstore"
	"github.com/yungbote/fleet-backend/internal/data/docstore/memory"
	"github.com/yungbote/fleet-backend/internal/data/docstore/redisstore"
	"github.com/yungbote/fleet-backend/internal/data/docstore/sqlstore"
	"github.com/yungbote/fleet-backend/internal/platform/logger"
)

type StoreBootstrapErrorCode string

const (
	StoreBootstrapErrorInvalidDriver StoreBootstrapErrorCode = "invalid_driver"
	StoreBootstrapErrorMissingConfig StoreBootstrapErrorCode = "missing_config"
	StoreBootstrapErrorConnectFailed StoreBootstrapErrorCode = "connect_failed"
	StoreBootstrapErrorMigrateFailed StoreBootstrapErrorCode = "migrate_failed"
)

type StoreBootstrapError struct {
	Code   StoreBootstrapErrorCode
	Driver string
	Cause  error
}

func (e *StoreBootstrapError) Error() string {
	if e == nil {
		return "document store bootstrap failed"
	}
	return fmt.Sprintf("document store bootstrap failed (code=%s driver=%q): %v", e.Code, e.Driver, e.Cause)
}

func (e *StoreBootstrapError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// openedStore is a backend plus the function releasing its connection.
type openedStore struct {
	store docstore.Store
	close func() error
}

var (
	openPostgres  = sqlstore.OpenPostgres
	openSQLite    = sqlstore.OpenSQLite
	openRedis     = redisstore.Open
	openBolt      = boltstore.Open
	openDatastore = func(ctx context.Context, cfg dsstore.Config, log *logger.Logger) (*dsstore.Store, error) {
		return dsstore.Open(ctx, cfg, log)
	}
)

func resolveStore(ctx context.Context, log *logger.Logger, cfg StoreConfig) (*openedStore, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" {
		driver = DriverMemory
	}
	log.Info("Selecting document store", "driver", driver)

	opened, err := openStore(ctx, log, driver, cfg)
	if err != nil {
		var bootErr *StoreBootstrapError
		if !errors.As(err, &bootErr) {
			bootErr = &StoreBootstrapError{Code: StoreBootstrapErrorConnectFailed, Driver: driver, Cause: err}
		}
		log.Error("Document store bootstrap failed", "driver", driver, "error_code", bootErr.Code, "error", bootErr.Cause)
		return nil, bootErr
	}
	return opened, nil
}

func openStore(ctx context.Context, log *logger.Logger, driver string, cfg StoreConfig) (*openedStore, error) {
	switch driver {
	case DriverMemory:
		return &openedStore{store: memory.New(), close: func() error { return nil }}, nil

	case DriverPostgres:
		if cfg.Postgres.DSN == "" && cfg.Postgres.Host == "" {
			return nil, &StoreBootstrapError{
				Code:   StoreBootstrapErrorMissingConfig,
				Driver: driver,
				Cause:  errors.New("POSTGRES_DSN or POSTGRES_HOST is required"),
			}
		}
		s, err := openPostgres(cfg.Postgres, log)
		if err != nil {
			return nil, err
		}
		return migrated(driver, s, cfg.AutoMigrate)

	case DriverSQLite:
		s, err := openSQLite(cfg.SQLitePath, log)
		if err != nil {
			return nil, err
		}
		return migrated(driver, s, cfg.AutoMigrate)

	case DriverRedis:
		if strings.TrimSpace(cfg.Redis.Addr) == "" {
			return nil, &StoreBootstrapError{
				Code:   StoreBootstrapErrorMissingConfig,
				Driver: driver,
				Cause:  errors.New("REDIS_ADDR is required"),
			}
		}
		s, err := openRedis(ctx, cfg.Redis, log)
		if err != nil {
			return nil, err
		}
		return &openedStore{store: s, close: s.Close}, nil

	case DriverBolt:
		s, err := openBolt(cfg.Bolt, log)
		if err != nil {
			return nil, err
		}
		return &openedStore{store: s, close: s.Close}, nil

	case DriverDatastore:
		s, err := openDatastore(ctx, cfg.Datastore, log)
		if err != nil {
			return nil, err
		}
		return &openedStore{store: s, close: s.Close}, nil

	default:
		return nil, &StoreBootstrapError{
			Code:   StoreBootstrapErrorInvalidDriver,
			Driver: driver,
			Cause:  fmt.Errorf("unsupported store driver %q", driver),
		}
	}
}

type migratingStore interface {
	docstore.Store
	io.Closer
	AutoMigrate() error
}

func migrated(driver string, s migratingStore, autoMigrate bool) (*openedStore, error) {
	if autoMigrate {
		if err := s.AutoMigrate(); err != nil {
			_ = s.Close()
			return nil, &StoreBootstrapError{Code: StoreBootstrapErrorMigrateFailed, Driver: driver, Cause: err}
		}
	}
	return &openedStore{store: s, close: s.Close}, nil
}
