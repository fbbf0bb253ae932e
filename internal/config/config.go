package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"     validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database"   validate:"required"`
	Auth       AuthConfig       `mapstructure:"auth"       validate:"required"`
	Runner     RunnerConfig     `mapstructure:"runner"`
	Gemini     GeminiConfig     `mapstructure:"gemini"`
	Generation GenerationConfig `mapstructure:"generation" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"required,min=32"`

	// TokenLifetimeMinutes is the access token validity window.
	TokenLifetimeMinutes int `mapstructure:"token_lifetime_minutes" validate:"required,gt=0"`

	// ServiceToken authenticates the image runner's inbound status writes.
	ServiceToken string `mapstructure:"service_token" validate:"required,min=32"`
}

// RunnerConfig describes the remote image runner endpoint. When Endpoint is
// empty the server falls back to the in-process Gemini-backed runner, which
// requires GeminiConfig.
type RunnerConfig struct {
	Endpoint       string `mapstructure:"endpoint"        validate:"omitempty,url"`
	ServiceToken   string `mapstructure:"service_token"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" validate:"omitempty,gt=0"`
}

// GeminiConfig contains settings for the in-process Gemini image provider.
type GeminiConfig struct {
	APIKey     string `mapstructure:"api_key"`
	ImageModel string `mapstructure:"image_model"`

	// AssetDir is where the in-process provider writes rendered images.
	AssetDir string `mapstructure:"asset_dir"`
}

// GenerationConfig contains limits and maintenance settings for the image
// generation pipeline.
type GenerationConfig struct {
	// MaxBatchSize bounds imageNum on a single create-image request.
	MaxBatchSize int `mapstructure:"max_batch_size" validate:"required,gt=0"`

	// SweeperEnabled turns on the stale-pending task sweeper. Off by
	// default: a pending task with a lost status write stays pending, which
	// matches the documented behavior of the pipeline.
	SweeperEnabled bool `mapstructure:"sweeper_enabled"`

	// StaleTaskAge is how long a task may sit pending before the sweeper
	// marks it as errored.
	StaleTaskAge time.Duration `mapstructure:"stale_task_age"`

	// SweepInterval is how often the sweeper runs.
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// RunnerTimeout returns the configured runner call timeout as a duration.
func (c RunnerConfig) RunnerTimeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}
