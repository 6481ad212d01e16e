package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable read by Load.
const EnvPrefix = "TODOS"

// legacyEnv lists the bare environment variable names the service has always
// honoured, checked after the prefixed name.
var legacyEnv = map[string]string{
	"server.log_level": "LOG_LEVEL",
	"auth.secret_key":  "SECRET_KEY",
	"database.url":     "SQLALCHEMY_DATABASE_URI",
}

// setDefaults registers every configuration key with its default value.
// Keys without a sensible default are registered empty so that environment
// variables can still populate them during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.show_error_detail", false)

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_open_conns", 5)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.acquire_timeout", 30*time.Second)

	v.SetDefault("auth.secret_key", "")
	v.SetDefault("auth.session_lifetime_minutes", 60*24)
	v.SetDefault("auth.bcrypt_cost", 10)

	v.SetDefault("upload.max_content_length", 1024*1024)
	v.SetDefault("upload.extensions", []string{".jpg", ".png", ".gif"})

	v.SetDefault("broker.url", "redis://localhost:6379/0")
	v.SetDefault("broker.queue", "todos_tasks")
	v.SetDefault("broker.key_prefix", "todos_mvc_")
	v.SetDefault("broker.result_ttl", 24*time.Hour)

	v.SetDefault("task.worker_count", 2)
	v.SetDefault("task.queue_size", 100)
}

// Load configuration from a .env file, an optional config file and
// environment variables. Environment variables take precedence over values
// from config files. Returns a populated Config struct or an error if
// loading/validation fails.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, legacy := range legacyEnv {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return nil, fmt.Errorf("failed to bind environment for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// LOG_LEVEL has historically been given in upper case.
	cfg.Server.LogLevel = strings.ToLower(cfg.Server.LogLevel)
	for i, ext := range cfg.Upload.Extensions {
		cfg.Upload.Extensions[i] = strings.ToLower(strings.TrimSpace(ext))
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// AllowsExtension reports whether the (dot-prefixed) file extension is
// accepted for uploads. The comparison is case-insensitive.
func (u UploadConfig) AllowsExtension(ext string) bool {
	ext = strings.ToLower(ext)
	for _, allowed := range u.Extensions {
		if ext == allowed {
			return true
		}
	}
	return false
}
