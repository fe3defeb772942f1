package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/yungbote/reforest-backend/internal/data/db"
	"github.com/yungbote/reforest-backend/internal/observability"
)

const envPrefix = "REFOREST"

type LogConfig struct {
	Mode string
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	Channel  string
}

type MetricsConfig struct {
	Enabled         bool
	Addr            string
	CollectInterval time.Duration
}

// WritesConfig bounds replays of aggregate writes that hit serialization
// failures or deadlocks.
type WritesConfig struct {
	Attempts int
	Backoff  time.Duration
}

type AuditConfig struct {
	// Sink is one of "log", "redis" or "none".
	Sink    string
	Buffer  int
	Workers int
}

type Config struct {
	Log     LogConfig
	DB      db.Config
	Redis   RedisConfig
	Metrics MetricsConfig
	Otel    observability.OtelConfig
	Writes  WritesConfig
	Audit   AuditConfig
	// NodeID seeds HID generation and must differ between running processes.
	NodeID int64
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.mode", "development")

	v.SetDefault("db.driver", db.DriverPostgres)
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.name", "reforest")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.path", "reforest.db")
	v.SetDefault("db.slow_threshold", time.Second)
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.channel", "reforest.changes")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.addr", ":9464")
	v.SetDefault("metrics.collect_interval", 15*time.Second)

	v.SetDefault("otel.enabled", false)
	v.SetDefault("otel.service_name", "reforest-backend")
	v.SetDefault("otel.environment", "development")
	v.SetDefault("otel.version", "")
	v.SetDefault("otel.endpoint", "")
	v.SetDefault("otel.insecure", false)
	v.SetDefault("otel.headers", map[string]string{})
	v.SetDefault("otel.sample_ratio", 1.0)

	v.SetDefault("writes.attempts", 3)
	v.SetDefault("writes.backoff", 25*time.Millisecond)

	v.SetDefault("audit.sink", "log")
	v.SetDefault("audit.buffer", 256)
	v.SetDefault("audit.workers", 2)

	v.SetDefault("node_id", 1)
}

// LoadConfig layers defaults, an optional YAML file and REFOREST_* environment
// variables (REFOREST_DB_HOST overrides db.host). A missing file is not an
// error unless path was given explicitly.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path = strings.TrimSpace(path); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		Log: LogConfig{Mode: v.GetString("log.mode")},
		DB: db.Config{
			Driver:        v.GetString("db.driver"),
			Host:          v.GetString("db.host"),
			Port:          v.GetInt("db.port"),
			User:          v.GetString("db.user"),
			Password:      v.GetString("db.password"),
			Name:          v.GetString("db.name"),
			SSLMode:       v.GetString("db.sslmode"),
			Path:          v.GetString("db.path"),
			SlowThreshold: v.GetDuration("db.slow_threshold"),
			MaxOpenConns:  v.GetInt("db.max_open_conns"),
			MaxIdleConns:  v.GetInt("db.max_idle_conns"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			Channel:  v.GetString("redis.channel"),
		},
		Metrics: MetricsConfig{
			Enabled:         v.GetBool("metrics.enabled"),
			Addr:            v.GetString("metrics.addr"),
			CollectInterval: v.GetDuration("metrics.collect_interval"),
		},
		Otel: observability.OtelConfig{
			Enabled:     v.GetBool("otel.enabled"),
			ServiceName: v.GetString("otel.service_name"),
			Environment: v.GetString("otel.environment"),
			Version:     v.GetString("otel.version"),
			Endpoint:    v.GetString("otel.endpoint"),
			Insecure:    v.GetBool("otel.insecure"),
			Headers:     v.GetStringMapString("otel.headers"),
			SampleRatio: v.GetFloat64("otel.sample_ratio"),
		},
		Writes: WritesConfig{
			Attempts: v.GetInt("writes.attempts"),
			Backoff:  v.GetDuration("writes.backoff"),
		},
		Audit: AuditConfig{
			Sink:    strings.ToLower(strings.TrimSpace(v.GetString("audit.sink"))),
			Buffer:  v.GetInt("audit.buffer"),
			Workers: v.GetInt("audit.workers"),
		},
		NodeID: v.GetInt64("node_id"),
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch strings.ToLower(c.DB.Driver) {
	case db.DriverPostgres, db.DriverSQLite:
	default:
		return fmt.Errorf("db.driver must be %q or %q, got %q", db.DriverPostgres, db.DriverSQLite, c.DB.Driver)
	}
	switch c.Audit.Sink {
	case "log", "redis", "none":
	default:
		return fmt.Errorf("audit.sink must be log, redis or none, got %q", c.Audit.Sink)
	}
	if c.Audit.Sink == "redis" && !c.Redis.Enabled {
		return fmt.Errorf("audit.sink=redis requires redis.enabled")
	}
	if c.Writes.Attempts < 1 {
		return fmt.Errorf("writes.attempts must be at least 1, got %d", c.Writes.Attempts)
	}
	if c.NodeID < 0 || c.NodeID > 1023 {
		return fmt.Errorf("node_id must be within 0-1023, got %d", c.NodeID)
	}
	return nil
}
