package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	API     APIConfig     `yaml:"api"`
	Auth    AuthConfig    `yaml:"auth"`
	Session SessionConfig `yaml:"session"`
	Redis   RedisConfig   `yaml:"redis"`
	Kafka   KafkaConfig   `yaml:"kafka"`
	Booking BookingConfig `yaml:"booking"`
	Log     LogConfig     `yaml:"log"`
}

// HTTPConfig configures the loopback bridge the UI talks to.
type HTTPConfig struct {
	Address        string   `yaml:"address"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type APIConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

func (a APIConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds) * time.Second
}

type AuthConfig struct {
	LoginURL      string `yaml:"login_url"`
	TokenParam    string `yaml:"token_param"`
	AfterLoginURL string `yaml:"after_login_url"`
}

type SessionConfig struct {
	Store      string `yaml:"store"`
	FilePath   string `yaml:"file_path"`
	StorageKey string `yaml:"storage_key"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers            []string `yaml:"brokers"`
	BookingEventsTopic string   `yaml:"booking_events_topic"`
	NotificationsTopic string   `yaml:"notifications_topic"`
	GroupID            string   `yaml:"group_id"`
}

func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0 && k.BookingEventsTopic != ""
}

type BookingConfig struct {
	Timezone               string `yaml:"timezone"`
	BookingsCacheTTLSecond int    `yaml:"bookings_cache_ttl_seconds"`
}

// Location resolves the wall-clock zone used to combine a date and a time label.
func (b BookingConfig) Location() (*time.Location, error) {
	if b.Timezone == "" || b.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(b.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", b.Timezone, err)
	}
	return loc, nil
}

func (b BookingConfig) BookingsCacheTTL() time.Duration {
	return time.Duration(b.BookingsCacheTTLSecond) * time.Second
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
	File        string `yaml:"file"`
	MaxSizeMB   int    `yaml:"max_size_mb"`
	MaxBackups  int    `yaml:"max_backups"`
	MaxAgeDays  int    `yaml:"max_age_days"`
}

const (
	SessionStoreFile  = "file"
	SessionStoreRedis = "redis"
)

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.HTTP.Address == "" {
		c.HTTP.Address = "127.0.0.1:3000"
	}
	if c.API.BaseURL == "" {
		c.API.BaseURL = "http://localhost:8080"
	}
	if c.API.TimeoutSeconds == 0 {
		c.API.TimeoutSeconds = 10
	}
	if c.Auth.LoginURL == "" {
		c.Auth.LoginURL = c.API.BaseURL + "/oauth2/authorization/google"
	}
	if c.Auth.TokenParam == "" {
		c.Auth.TokenParam = "token"
	}
	if c.Auth.AfterLoginURL == "" {
		c.Auth.AfterLoginURL = "/"
	}
	if c.Session.Store == "" {
		c.Session.Store = SessionStoreFile
	}
	if c.Session.FilePath == "" {
		c.Session.FilePath = "session.json"
	}
	if c.Session.StorageKey == "" {
		c.Session.StorageKey = "jwtToken"
	}
	if c.Booking.BookingsCacheTTLSecond == 0 {
		c.Booking.BookingsCacheTTLSecond = 60
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

func (c *Config) validate() error {
	switch c.Session.Store {
	case SessionStoreFile:
	case SessionStoreRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("session store %q requires redis.addr", c.Session.Store)
		}
	default:
		return fmt.Errorf("unknown session store %q", c.Session.Store)
	}
	if _, err := c.Booking.Location(); err != nil {
		return err
	}
	return nil
}
