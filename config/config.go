package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	Occupancy    OccupancyConfig    `yaml:"occupancy"`
	Sweeper      SweeperConfig      `yaml:"sweeper"`
	Notification NotificationConfig `yaml:"notification"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	RateLimitPerSec float64       `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int           `yaml:"rate_limit_burst"`
	CacheTTLSeconds int           `yaml:"cache_ttl_seconds"`
	CacheTTL        time.Duration `yaml:"-"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"` // postgres, mysql or sqlite
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	LogLevel               string `yaml:"log_level"`
	// EnableExclusionConstraint installs the btree_gist overlap constraint on postgres.
	EnableExclusionConstraint bool `yaml:"enable_exclusion_constraint"`
}

// OccupancyConfig tunes the occupancy engine.
type OccupancyConfig struct {
	Timezone        string `yaml:"timezone"`
	ConflictRetries int    `yaml:"conflict_retries"`
}

// SweeperConfig controls the periodic no-show job.
type SweeperConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Schedule  string `yaml:"schedule"`
	GraceDays int    `yaml:"grace_days"`
	ActorName string `yaml:"actor_name"`
}

// NotificationConfig holds the configuration for the notification worker pool.
type NotificationConfig struct {
	WorkerPoolSize int `yaml:"worker_pool_size"`
	QueueSize      int `yaml:"queue_size"`
}

// Load reads the configuration from the given path, then applies environment overrides.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	// A missing .env is the normal case outside local development.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("failed to read .env: %v", err)
	}
	cfg.applyEnv()
	cfg.applyDefaults()

	return &cfg, nil
}

func (cfg *Config) applyEnv() {
	if v := os.Getenv("DORM_DB_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("DORM_DB_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("DORM_SERVER_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			log.Printf("ignoring invalid DORM_SERVER_PORT %q: %v", v, err)
		} else {
			cfg.Server.Port = port
		}
	}
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 30
	}
	cfg.Server.CacheTTL = time.Duration(cfg.Server.CacheTTLSeconds) * time.Second

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}

	if cfg.Occupancy.Timezone == "" {
		cfg.Occupancy.Timezone = "UTC"
	}
	if cfg.Occupancy.ConflictRetries < 0 {
		cfg.Occupancy.ConflictRetries = 0
	}

	if cfg.Sweeper.Schedule == "" {
		cfg.Sweeper.Schedule = "@every 1h"
	}
	if cfg.Sweeper.GraceDays <= 0 {
		cfg.Sweeper.GraceDays = 1
	}
	if cfg.Sweeper.ActorName == "" {
		cfg.Sweeper.ActorName = "no-show sweeper"
	}

	if cfg.Notification.WorkerPoolSize <= 0 {
		log.Printf("notification.worker_pool_size is not set or invalid; defaulting to 1")
		cfg.Notification.WorkerPoolSize = 1
	}
	if cfg.Notification.QueueSize <= 0 {
		cfg.Notification.QueueSize = 64
	}
}
