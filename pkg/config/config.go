package config

import (
	"context"
	"time"
)

// Config represents the complete configuration for the task service.
type Config struct {
	Server     ServerConfig     `koanf:"server"     validate:"required"`
	Database   DatabaseConfig   `koanf:"database"   validate:"required"`
	Redis      RedisConfig      `koanf:"redis"`
	Reference  ReferenceConfig  `koanf:"reference"  validate:"required"`
	Tasks      TasksConfig      `koanf:"tasks"      validate:"required"`
	Notes      NotesConfig      `koanf:"notes"      validate:"required"`
	Monitoring MonitoringConfig `koanf:"monitoring"`
	Runtime    RuntimeConfig    `koanf:"runtime"    validate:"required"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Host    string        `koanf:"host"    validate:"required"        env:"SERVER_HOST"`
	Port    int           `koanf:"port"    validate:"min=1,max=65535" env:"SERVER_PORT"`
	Timeout time.Duration `koanf:"timeout"                            env:"SERVER_TIMEOUT"`
	Auth    AuthConfig    `koanf:"auth"`
}

// AuthConfig holds the HS256 secret bearer tokens are verified against.
// The server refuses to start without it.
type AuthConfig struct {
	Secret SensitiveString `koanf:"secret" env:"SERVER_AUTH_SECRET" sensitive:"true"`
}

// DatabaseConfig contains database connection configuration.
type DatabaseConfig struct {
	ConnString        string          `koanf:"conn_string"         env:"DB_CONN_STRING"`
	Host              string          `koanf:"host"                env:"DB_HOST"`
	Port              string          `koanf:"port"                env:"DB_PORT"`
	User              string          `koanf:"user"                env:"DB_USER"`
	Password          SensitiveString `koanf:"password"            env:"DB_PASSWORD"            sensitive:"true"`
	DBName            string          `koanf:"name"                env:"DB_NAME"`
	SSLMode           string          `koanf:"ssl_mode"            env:"DB_SSL_MODE"`
	MaxOpenConns      int             `koanf:"max_open_conns"      env:"DB_MAX_OPEN_CONNS"      validate:"min=0"`
	MaxIdleConns      int             `koanf:"max_idle_conns"      env:"DB_MAX_IDLE_CONNS"      validate:"min=0"`
	ConnMaxLifetime   time.Duration   `koanf:"conn_max_lifetime"   env:"DB_CONN_MAX_LIFETIME"`
	ConnMaxIdleTime   time.Duration   `koanf:"conn_max_idle_time"  env:"DB_CONN_MAX_IDLE_TIME"`
	PingTimeout       time.Duration   `koanf:"ping_timeout"        env:"DB_PING_TIMEOUT"`
	ConnectRetries    uint64          `koanf:"connect_retries"     env:"DB_CONNECT_RETRIES"`
	ConnectRetryDelay time.Duration   `koanf:"connect_retry_delay" env:"DB_CONNECT_RETRY_DELAY"`
}

// RedisConfig configures the optional shared reference cache. An empty
// address disables it.
type RedisConfig struct {
	Addr     string          `koanf:"addr"     env:"REDIS_ADDR"`
	Password SensitiveString `koanf:"password" env:"REDIS_PASSWORD" sensitive:"true"`
	DB       int             `koanf:"db"       env:"REDIS_DB"       validate:"min=0"`
	Prefix   string          `koanf:"prefix"   env:"REDIS_PREFIX"`
	TTL      time.Duration   `koanf:"ttl"      env:"REDIS_TTL"`
}

// ReferenceConfig sizes the in-process reference code memo.
type ReferenceConfig struct {
	CacheSize int `koanf:"cache_size" validate:"min=1" env:"REFERENCE_CACHE_SIZE"`
}

// TasksConfig holds the reference codes the task hierarchy depends on.
type TasksConfig struct {
	StationParamCode string `koanf:"station_param_code" validate:"required" env:"TASKS_STATION_PARAM_CODE"`
	RouteParamCode   string `koanf:"route_param_code"   validate:"required" env:"TASKS_ROUTE_PARAM_CODE"`
	StatusEventKind  string `koanf:"status_event_kind"  validate:"required" env:"TASKS_STATUS_EVENT_KIND"`
	StatusParamCode  string `koanf:"status_param_code"  validate:"required" env:"TASKS_STATUS_PARAM_CODE"`
}

// NotesConfig holds the app_event kind ids note events are written with.
type NotesConfig struct {
	StatusEventKind  int64 `koanf:"status_event_kind"  validate:"min=1" env:"NOTES_STATUS_EVENT_KIND"`
	CreatedEventKind int64 `koanf:"created_event_kind" validate:"min=1" env:"NOTES_CREATED_EVENT_KIND"`
}

// MonitoringConfig controls the Prometheus exporter.
type MonitoringConfig struct {
	Enabled bool   `koanf:"enabled" env:"MONITORING_ENABLED"`
	Path    string `koanf:"path"    env:"MONITORING_PATH"`
}

// RuntimeConfig contains runtime behavior configuration.
type RuntimeConfig struct {
	Environment string `koanf:"environment" validate:"oneof=development staging production" env:"RUNTIME_ENVIRONMENT"`
	LogLevel    string `koanf:"log_level"   validate:"oneof=debug info warn error"          env:"RUNTIME_LOG_LEVEL"`
	LogJSON     bool   `koanf:"log_json"                                                    env:"RUNTIME_LOG_JSON"`
}

// Service defines the configuration management service interface.
type Service interface {
	// Load merges sources as defaults < yaml < env < cli.
	Load(ctx context.Context, sources ...Source) (*Config, error)
	// Validate checks if the configuration meets all validation requirements.
	Validate(config *Config) error
	// GetSource returns the source type for a specific configuration key.
	GetSource(key string) SourceType
}

// Source defines the interface for configuration sources.
type Source interface {
	// Load reads configuration from the source.
	Load() (map[string]any, error)
	// Type returns the source type identifier.
	Type() SourceType
	// Close releases any resources held by the source.
	Close() error
}

// SourceType identifies the type of configuration source.
type SourceType string

const (
	SourceCLI     SourceType = "cli"
	SourceYAML    SourceType = "yaml"
	SourceEnv     SourceType = "env"
	SourceDefault SourceType = "default"
)

// Default returns a Config with default values for development.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    5001,
			Timeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Host:              "localhost",
			Port:              "5432",
			User:              "postgres",
			DBName:            "mpdriver",
			SSLMode:           "disable",
			MaxOpenConns:      20,
			PingTimeout:       3 * time.Second,
			ConnectRetries:    5,
			ConnectRetryDelay: time.Second,
		},
		Redis: RedisConfig{
			Prefix: "mpdriver:lst:",
			TTL:    time.Hour,
		},
		Reference: ReferenceConfig{
			CacheSize: 1024,
		},
		Tasks: TasksConfig{
			StationParamCode: "ID_MST",
			RouteParamCode:   "ID_MARSH_TRS",
			StatusEventKind:  "Change",
			StatusParamCode:  "APP_STATUS",
		},
		Notes: NotesConfig{
			StatusEventKind:  8797,
			CreatedEventKind: 8795,
		},
		Monitoring: MonitoringConfig{
			Enabled: false,
			Path:    "/metrics",
		},
		Runtime: RuntimeConfig{
			Environment: "development",
			LogLevel:    "info",
		},
	}
}
