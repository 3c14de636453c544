package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	API        APIConfig        `yaml:"api"`
	Session    SessionConfig    `yaml:"session"`
	Waitlist   WaitlistConfig   `yaml:"waitlist"`
	Watcher    WatcherConfig    `yaml:"watcher"`
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
	Redis      RedisConfig      `yaml:"redis"`
	Log        LogConfig        `yaml:"log"`
}

// APIConfig describes how to reach the meal-program backend.
type APIConfig struct {
	BaseURL         string        `yaml:"base_url" validate:"required,url"`
	StudentPrefix   string        `yaml:"student_prefix"`
	AdminPrefix     string        `yaml:"admin_prefix"`
	TimeoutSeconds  int           `yaml:"timeout_seconds" validate:"gte=0"`
	Timeout         time.Duration `yaml:"-"`
	HTTPProxy       string        `yaml:"http_proxy" validate:"omitempty,url"`
	RateLimitPerSec float64       `yaml:"rate_limit_per_sec" validate:"gte=0"`
	Burst           int           `yaml:"burst" validate:"gte=0"`
	UserAgent       string        `yaml:"user_agent"`
}

// SessionConfig holds credentials and where the session token is persisted.
type SessionConfig struct {
	Matricula string `yaml:"matricula"`
	Password  string `yaml:"password"`
	Token     string `yaml:"token"`
	TokenFile string `yaml:"token_file"`
}

// WaitlistConfig tunes the waitlist coordinator.
type WaitlistConfig struct {
	BusyPolicy string `yaml:"busy_policy" validate:"omitempty,oneof=shared per_resource"`
}

// WatcherConfig holds the background mirror configuration.
type WatcherConfig struct {
	Enabled         bool          `yaml:"enabled"`
	IntervalSeconds int           `yaml:"interval_seconds"`
	Interval        time.Duration `yaml:"-"` // Ignored by YAML parser
	Timezone        string        `yaml:"timezone"`
	NotifyStatuses  []string      `yaml:"notify_statuses" validate:"dive,oneof=aguardando proximo confirmado"`
}

// ServerConfig holds the local HTTP facade configuration.
type ServerConfig struct {
	Port            int      `yaml:"port" validate:"gte=0,lte=65535"`
	RequestIPHeader string   `yaml:"request_ip_header"`
	RateLimitPerSec float64  `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int      `yaml:"rate_limit_burst"`
	CacheTTLSeconds int      `yaml:"cache_ttl_seconds"`
	AllowOrigins    []string `yaml:"allow_origins"`
}

// DatabaseConfig holds the mirror database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver" validate:"omitempty,oneof=postgres sqlite"`
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	EnableTimescale        bool   `yaml:"enable_timescale"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// RedisConfig enables publishing position events. Empty Addr disables it.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Channel  string `yaml:"channel"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	File  string `yaml:"file"`
}

var validate = validator.New()

// Load reads the configuration from the given path, applies .env and FILA_*
// environment overrides, fills defaults and validates the result.
func Load(path string) (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate runs struct validation on an already populated config.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if _, err := time.LoadLocation(cfg.Watcher.Timezone); err != nil {
		return fmt.Errorf("invalid watcher.timezone %q: %w", cfg.Watcher.Timezone, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	override := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	override(&cfg.API.BaseURL, "FILA_API_BASE_URL")
	override(&cfg.Session.Matricula, "FILA_MATRICULA")
	override(&cfg.Session.Password, "FILA_PASSWORD")
	override(&cfg.Session.Token, "FILA_TOKEN")
	override(&cfg.Database.DSN, "FILA_DB_DSN")
	override(&cfg.Redis.Addr, "FILA_REDIS_ADDR")
	override(&cfg.Push.PublicKey, "FILA_VAPID_PUBLIC_KEY")
	override(&cfg.Push.PrivateKey, "FILA_VAPID_PRIVATE_KEY")
}

func applyDefaults(cfg *Config) {
	cfg.API.BaseURL = strings.TrimRight(cfg.API.BaseURL, "/")
	if cfg.API.StudentPrefix == "" {
		cfg.API.StudentPrefix = "estudante"
	}
	if cfg.API.AdminPrefix == "" {
		cfg.API.AdminPrefix = "admin"
	}
	if cfg.API.TimeoutSeconds <= 0 {
		cfg.API.TimeoutSeconds = 30
	}
	cfg.API.Timeout = time.Duration(cfg.API.TimeoutSeconds) * time.Second
	if cfg.API.Burst <= 0 {
		cfg.API.Burst = 1
	}

	if cfg.Waitlist.BusyPolicy == "" {
		cfg.Waitlist.BusyPolicy = "shared"
	}

	if cfg.Watcher.IntervalSeconds <= 0 {
		cfg.Watcher.IntervalSeconds = 60
	}
	cfg.Watcher.Interval = time.Duration(cfg.Watcher.IntervalSeconds) * time.Second
	if cfg.Watcher.Timezone == "" {
		cfg.Watcher.Timezone = "America/Sao_Paulo"
	}
	if len(cfg.Watcher.NotifyStatuses) == 0 {
		cfg.Watcher.NotifyStatuses = []string{"proximo", "confirmado"}
	}

	if cfg.Server.Port == 0 {
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

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.DSN == "" && cfg.Database.Driver == "sqlite" {
		cfg.Database.DSN = "fila.db"
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		cfg.WorkerPool.Size = 1
	}

	if cfg.Redis.Channel == "" {
		cfg.Redis.Channel = "fila-extras.posicoes"
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}
