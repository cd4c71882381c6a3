package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every configuration environment variable,
// e.g. TASKD_DATABASE_URL.
const EnvPrefix = "TASKD"

var defaults = map[string]any{
	"server.port":                        3000,
	"server.log_level":                   "info",
	"auth.token_lifetime_minutes":        0,
	"auth.bcrypt_cost":                   8,
	"mail.from_address":                  "noreply@taskd.local",
	"mail.from_name":                     "Task App",
	"mail.queue_size":                    64,
	"mail.worker_count":                  2,
	"ratelimit.auth_requests_per_minute": 10,
}

// keys without defaults still need an explicit env binding for Unmarshal
var envOnlyKeys = []string{
	"database.url",
	"auth.jwt_secret",
	"mail.sendgrid_api_key",
}

// Load configuration from environment variables and optionally a config.yaml
// in the working directory. Environment variables take precedence over
// values from the file. Returns a populated Config or an error if loading or
// validation fails.
func Load() (*Config, error) {
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

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

	for _, key := range envOnlyKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}
	// PORT is honoured for platforms that inject it.
	if err := v.BindEnv("server.port", EnvPrefix+"_SERVER_PORT", "PORT"); err != nil {
		return nil, fmt.Errorf("failed to bind server.port: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}
