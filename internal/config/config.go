package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server  ServerConfig  `mapstructure:"server" validate:"required"`
	Store   StoreConfig   `mapstructure:"store" validate:"required"`
	Task    TaskConfig    `mapstructure:"task" validate:"required"`
	Output  OutputConfig  `mapstructure:"output" validate:"required"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// Store drivers accepted by StoreConfig.Driver
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// StoreConfig selects and configures the status store backend.
type StoreConfig struct {
	Driver      string `mapstructure:"driver" validate:"required,oneof=memory postgres redis"`
	DatabaseURL string `mapstructure:"database_url" validate:"required_if=Driver postgres"`
	RedisURL    string `mapstructure:"redis_url" validate:"required_if=Driver redis"`
}

// TaskConfig contains settings for the background generation runner.
type TaskConfig struct {
	WorkerCount int `mapstructure:"worker_count" validate:"required,gt=0"`
	QueueSize   int `mapstructure:"queue_size" validate:"required,gt=0"`
	// RecordTTL is how long a completed record is kept before it expires.
	RecordTTL time.Duration `mapstructure:"record_ttl" validate:"required,gt=0"`
	// SweepInterval is how often expired records are removed.
	SweepInterval time.Duration `mapstructure:"sweep_interval" validate:"required,gt=0"`
}

// OutputConfig controls where generated images are written and how they are addressed.
type OutputConfig struct {
	ImageDir string `mapstructure:"image_dir" validate:"required"`
	// PublicPrefix is prepended to image file names in image paths returned to clients.
	PublicPrefix string `mapstructure:"public_prefix"`
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}
