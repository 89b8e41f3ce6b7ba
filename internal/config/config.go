package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

const (
	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
	DBDriverMemory   = "memory"

	RealtimePostgres = "postgres"
	RealtimeRedis    = "redis"
	RealtimeNone     = "none"

	StorageLocal = "local"
	StorageGCS   = "gcs"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	Env               string
	Port              string
	DB                DB
	Redis             Redis
	Sync              Sync
	Storage           Storage
	Log               Log
	HTTP              HTTP
	KeepAliveInterval time.Duration
}

type DB struct {
	Driver      string
	User        string
	Password    string
	Host        string
	Port        string
	Name        string
	SSLMode     string
	SQLitePath  string
	AutoMigrate bool
}

type Redis struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
	CacheTTL time.Duration
}

type Sync struct {
	Realtime        string
	ChannelName     string
	Table           string
	FallbackDelay   time.Duration
	PollInterval    time.Duration
	FallbackPolling bool
	Location        *time.Location
}

type Storage struct {
	Backend        string
	LocalDir       string
	PublicBaseURL  string
	GCSBucket      string
	GCSCredentials string
	GCSEndpoint    string
}

type Log struct {
	Level string
	File  string
}

type HTTP struct {
	AllowOrigins []string
	RateLimit    int
	RateWindow   time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_env", EnvLocal)
	v.SetDefault("port", "8080")

	v.SetDefault("db_driver", DBDriverPostgres)
	v.SetDefault("db_host", "localhost")
	v.SetDefault("db_port", "5432")
	v.SetDefault("db_name", "ferienplan")
	v.SetDefault("db_sslmode", "disable")
	v.SetDefault("sqlite_path", "ferienplan.db")
	v.SetDefault("db_auto_migrate", true)

	v.SetDefault("redis_enabled", true)
	v.SetDefault("redis_host", "localhost")
	v.SetDefault("redis_port", "6379")
	v.SetDefault("redis_db", 0)
	v.SetDefault("cache_ttl", "30s")

	v.SetDefault("realtime_backend", RealtimePostgres)
	v.SetDefault("sync_channel", "ferienplan-changes")
	v.SetDefault("sync_table", "offers")
	v.SetDefault("sync_fallback_delay", "3s")
	v.SetDefault("sync_poll_interval", "5s")
	v.SetDefault("sync_fallback_polling", true)
	v.SetDefault("sync_timezone", "UTC")

	v.SetDefault("storage_backend", StorageLocal)
	v.SetDefault("storage_local_dir", "data/images")
	v.SetDefault("gcs_bucket", "ferienplan-bilder")

	v.SetDefault("keep_alive_interval", "6h")

	v.SetDefault("log_level", "")

	v.SetDefault("cors_allow_origins", "*")
	v.SetDefault("rate_limit", 100)
	v.SetDefault("rate_limit_window", "1m")
}

// Load reads envFile when present and then the process environment, which
// takes precedence.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		_ = godotenv.Load(envFile)
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		Env:  strings.ToLower(v.GetString("app_env")),
		Port: v.GetString("port"),
		DB: DB{
			Driver:      strings.ToLower(v.GetString("db_driver")),
			User:        v.GetString("db_user"),
			Password:    v.GetString("db_password"),
			Host:        v.GetString("db_host"),
			Port:        v.GetString("db_port"),
			Name:        v.GetString("db_name"),
			SSLMode:     v.GetString("db_sslmode"),
			SQLitePath:  v.GetString("sqlite_path"),
			AutoMigrate: v.GetBool("db_auto_migrate"),
		},
		Redis: Redis{
			Enabled:  v.GetBool("redis_enabled"),
			Host:     v.GetString("redis_host"),
			Port:     v.GetString("redis_port"),
			Password: v.GetString("redis_password"),
			DB:       v.GetInt("redis_db"),
			CacheTTL: v.GetDuration("cache_ttl"),
		},
		Sync: Sync{
			Realtime:        strings.ToLower(v.GetString("realtime_backend")),
			ChannelName:     v.GetString("sync_channel"),
			Table:           v.GetString("sync_table"),
			FallbackDelay:   v.GetDuration("sync_fallback_delay"),
			PollInterval:    v.GetDuration("sync_poll_interval"),
			FallbackPolling: v.GetBool("sync_fallback_polling"),
		},
		Storage: Storage{
			Backend:        strings.ToLower(v.GetString("storage_backend")),
			LocalDir:       v.GetString("storage_local_dir"),
			PublicBaseURL:  v.GetString("storage_public_url"),
			GCSBucket:      v.GetString("gcs_bucket"),
			GCSCredentials: v.GetString("google_application_credentials"),
			GCSEndpoint:    v.GetString("gcs_endpoint"),
		},
		Log: Log{
			Level: v.GetString("log_level"),
			File:  v.GetString("log_file"),
		},
		HTTP: HTTP{
			AllowOrigins: splitList(v.GetString("cors_allow_origins")),
			RateLimit:    v.GetInt("rate_limit"),
			RateWindow:   v.GetDuration("rate_limit_window"),
		},
		KeepAliveInterval: v.GetDuration("keep_alive_interval"),
	}

	loc, err := time.LoadLocation(v.GetString("sync_timezone"))
	if err != nil {
		return nil, fmt.Errorf("%w: SYNC_TIMEZONE: %v", ErrInvalidConfig, err)
	}
	cfg.Sync.Location = loc

	if cfg.Storage.Backend == StorageLocal && cfg.Storage.PublicBaseURL == "" {
		cfg.Storage.PublicBaseURL = "http://localhost:" + cfg.Port + "/media"
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DB.Driver {
	case DBDriverPostgres, DBDriverSQLite, DBDriverMemory:
	default:
		return fmt.Errorf("%w: unknown DB_DRIVER %q", ErrInvalidConfig, c.DB.Driver)
	}

	switch c.Sync.Realtime {
	case RealtimePostgres:
		if c.DB.Driver != DBDriverPostgres {
			return fmt.Errorf("%w: REALTIME_BACKEND=postgres needs DB_DRIVER=postgres", ErrInvalidConfig)
		}
	case RealtimeRedis:
		if !c.Redis.Enabled {
			return fmt.Errorf("%w: REALTIME_BACKEND=redis needs REDIS_ENABLED", ErrInvalidConfig)
		}
	case RealtimeNone:
	default:
		return fmt.Errorf("%w: unknown REALTIME_BACKEND %q", ErrInvalidConfig, c.Sync.Realtime)
	}

	switch c.Storage.Backend {
	case StorageLocal:
	case StorageGCS:
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("%w: GCS_BUCKET is required", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown STORAGE_BACKEND %q", ErrInvalidConfig, c.Storage.Backend)
	}

	if c.Sync.FallbackDelay < 0 || c.Sync.PollInterval < 0 || c.KeepAliveInterval < 0 {
		return fmt.Errorf("%w: durations must not be negative", ErrInvalidConfig)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
