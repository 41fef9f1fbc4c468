package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/fleet-backend/internal/data/docstore/boltstore"
	"github.com/yungbote/fleet-backend/internal/data/docstore/dsstore"
	"github.com/yungbote/fleet-backend/internal/data/docstore/redisstore"
	"github.com/yungbote/fleet-backend/internal/data/docstore/sqlstore"
	httpMW "github.com/yungbote/fleet-backend/internal/http/middleware"
	"github.com/yungbote/fleet-backend/internal/observability"
	"github.com/yungbote/fleet-backend/internal/platform/envutil"
	"github.com/yungbote/fleet-backend/internal/platform/logger"
)

const (
	DriverMemory    = "memory"
	DriverPostgres  = "postgres"
	DriverSQLite    = "sqlite"
	DriverRedis     = "redis"
	DriverBolt      = "bolt"
	DriverDatastore = "datastore"
)

type StoreConfig struct {
	Driver     string                  `yaml:"driver"`
	Postgres   sqlstore.PostgresConfig `yaml:"postgres"`
	SQLitePath string                  `yaml:"sqlite_path"`
	Redis      redisstore.Config       `yaml:"redis"`
	Bolt       boltstore.Options       `yaml:"bolt"`
	Datastore  dsstore.Config          `yaml:"datastore"`
	// AutoMigrate creates the SQL document table on startup.
	AutoMigrate bool `yaml:"auto_migrate"`
}

type Config struct {
	Port               int                         `yaml:"port"`
	LogMode            string                      `yaml:"log_mode"`
	Environment        string                      `yaml:"environment"`
	ServiceName        string                      `yaml:"service_name"`
	Store              StoreConfig                 `yaml:"store"`
	CORSAllowedOrigins []string                    `yaml:"cors_allowed_origins"`
	MetricsEnabled     bool                        `yaml:"metrics_enabled"`
	Tracing            observability.TracingConfig `yaml:"tracing"`
	// TrustedProxies lists the IPs or CIDRs allowed to set X-Forwarded-Proto.
	TrustedProxies     []string                    `yaml:"trusted_proxies"`
	ShutdownTimeout    time.Duration               `yaml:"shutdown_timeout"`
	EntityLocksEnabled bool                        `yaml:"entity_locks_enabled"`
}

func DefaultConfig() Config {
	return Config{
		Port:        8080,
		LogMode:     "development",
		Environment: "local",
		ServiceName: "fleet-backend",
		Store: StoreConfig{
			Driver:      DriverMemory,
			SQLitePath:  "fleet.db",
			Redis:       redisstore.Config{Addr: "localhost:6379", Prefix: "fleet"},
			Bolt:        boltstore.Options{Path: "fleet.bolt"},
			AutoMigrate: true,
		},
		Tracing:            observability.DefaultTracingConfig(),
		TrustedProxies:     []string{"127.0.0.1", "::1"},
		ShutdownTimeout:    15 * time.Second,
		EntityLocksEnabled: true,
	}
}

// LoadConfig starts from DefaultConfig, applies FLEET_CONFIG_FILE when set and then
// environment overrides.
func LoadConfig(log *logger.Logger) (Config, error) {
	cfg := DefaultConfig()
	if path := envutil.String("FLEET_CONFIG_FILE", ""); path != "" {
		if err := loadConfigFile(path, &cfg); err != nil {
			return Config{}, err
		}
		log.Info("Loaded config file", "path", path)
	}
	applyEnv(&cfg)
	cfg.Store.Driver = strings.ToLower(strings.TrimSpace(cfg.Store.Driver))
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return Config{}, fmt.Errorf("invalid port %d", cfg.Port)
	}
	if _, err := httpMW.ParseTrustedProxies(cfg.TrustedProxies); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadConfigFile(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("parse config %q: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Port = envutil.Int("PORT", cfg.Port)
	cfg.LogMode = envutil.String("LOG_MODE", cfg.LogMode)
	cfg.Environment = envutil.String("APP_ENV", cfg.Environment)
	cfg.ServiceName = envutil.String("OTEL_SERVICE_NAME", cfg.ServiceName)

	st := &cfg.Store
	st.Driver = envutil.String("STORE_DRIVER", st.Driver)
	st.Postgres.DSN = envutil.String("POSTGRES_DSN", st.Postgres.DSN)
	st.Postgres.Host = envutil.String("POSTGRES_HOST", st.Postgres.Host)
	st.Postgres.Port = envutil.String("POSTGRES_PORT", st.Postgres.Port)
	st.Postgres.User = envutil.String("POSTGRES_USER", st.Postgres.User)
	st.Postgres.Password = envutil.String("POSTGRES_PASSWORD", st.Postgres.Password)
	st.Postgres.Name = envutil.String("POSTGRES_NAME", st.Postgres.Name)
	st.SQLitePath = envutil.String("SQLITE_PATH", st.SQLitePath)
	st.Redis.Addr = envutil.String("REDIS_ADDR", st.Redis.Addr)
	st.Redis.Password = envutil.String("REDIS_PASSWORD", st.Redis.Password)
	st.Redis.DB = envutil.Int("REDIS_DB", st.Redis.DB)
	st.Redis.Prefix = envutil.String("REDIS_PREFIX", st.Redis.Prefix)
	st.Bolt.Path = envutil.String("BOLT_PATH", st.Bolt.Path)
	st.Datastore.ProjectID = envutil.String("DATASTORE_PROJECT_ID", st.Datastore.ProjectID)
	st.AutoMigrate = envutil.Bool("STORE_AUTO_MIGRATE", st.AutoMigrate)

	cfg.CORSAllowedOrigins = envutil.List("CORS_ALLOWED_ORIGINS", cfg.CORSAllowedOrigins)
	cfg.MetricsEnabled = envutil.Bool("METRICS_ENABLED", cfg.MetricsEnabled)
	cfg.TrustedProxies = envutil.List("TRUSTED_PROXIES", cfg.TrustedProxies)

	tr := &cfg.Tracing
	tr.Enabled = envutil.Bool("OTEL_ENABLED", tr.Enabled)
	tr.Endpoint = envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", tr.Endpoint)
	tr.Headers = envutil.Map("OTEL_EXPORTER_OTLP_HEADERS", tr.Headers)
	tr.Insecure = envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", tr.Insecure)
	tr.SampleRatio = envutil.Float("OTEL_SAMPLER_RATIO", tr.SampleRatio)
	cfg.ShutdownTimeout = envutil.Duration("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	cfg.EntityLocksEnabled = envutil.Bool("ENTITY_LOCKS_ENABLED", cfg.EntityLocksEnabled)
}

func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
