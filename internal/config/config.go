package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth"     validate:"required"`
	Upload   UploadConfig   `mapstructure:"upload"   validate:"required"`
	Broker   BrokerConfig   `mapstructure:"broker"   validate:"required"`
	Task     TaskConfig     `mapstructure:"task"     validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	// ShowErrorDetail includes the redacted failure detail in rendered 500 pages.
	ShowErrorDetail bool `mapstructure:"show_error_detail"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL             string        `mapstructure:"url"               validate:"required,url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"    validate:"gt=0"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"    validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"gte=0"`
	// AcquireTimeout bounds how long a session waits for a pooled connection
	// before failing with dbsession.ErrResourceExhausted.
	AcquireTimeout time.Duration `mapstructure:"acquire_timeout" validate:"gt=0"`
}

// AuthConfig contains all authentication and session cookie settings.
type AuthConfig struct {
	SecretKey              string `mapstructure:"secret_key"               validate:"required,min=16"`
	SessionLifetimeMinutes int    `mapstructure:"session_lifetime_minutes" validate:"required,gt=0"`
	BcryptCost             int    `mapstructure:"bcrypt_cost"              validate:"gte=4,lte=31"`
}

// UploadConfig limits request bodies and file uploads.
type UploadConfig struct {
	MaxContentLength int64    `mapstructure:"max_content_length" validate:"gt=0"`
	Extensions       []string `mapstructure:"extensions"         validate:"required,min=1,dive,startswith=."`
}

// BrokerConfig configures the task broker and the result backend.
type BrokerConfig struct {
	URL       string        `mapstructure:"url"        validate:"required,url"`
	Queue     string        `mapstructure:"queue"      validate:"required"`
	KeyPrefix string        `mapstructure:"key_prefix"`
	ResultTTL time.Duration `mapstructure:"result_ttl" validate:"gt=0"`
}

// TaskConfig contains settings for the background worker.
type TaskConfig struct {
	WorkerCount int `mapstructure:"worker_count" validate:"gt=0"`
	QueueSize   int `mapstructure:"queue_size"   validate:"gt=0"`
}
