package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from environment variables and an optional
// config.yaml in the working directory. Environment variables take
// precedence over values from the config file, and use the ATELIER_ prefix
// with underscores for nesting (e.g. ATELIER_SERVER_PORT).
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; env vars may carry everything.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("ATELIER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers default values so a minimal environment can boot.
// Keys without a sensible default get an empty one so viper's AutomaticEnv
// can still populate them during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("database.url", "")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.service_token", "")
	v.SetDefault("runner.endpoint", "")
	v.SetDefault("runner.service_token", "")
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.image_model", "imagen-3.0-generate-002")
	v.SetDefault("gemini.asset_dir", "data/generations")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("auth.token_lifetime_minutes", 60)
	v.SetDefault("runner.timeout_seconds", 60)
	v.SetDefault("generation.max_batch_size", 4)
	v.SetDefault("generation.sweeper_enabled", false)
	v.SetDefault("generation.stale_task_age", 30*time.Minute)
	v.SetDefault("generation.sweep_interval", 5*time.Minute)
}
