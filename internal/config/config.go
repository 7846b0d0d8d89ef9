// internal/config/config.go
//
// Runtime configuration for the breach server.
// Sources, lowest to highest precedence:
//   1. built-in defaults
//   2. a .env file in the working directory (development convenience)
//   3. process environment
//
// Environment variables:
//   PORT, LOG_LEVEL, APP_ENV, CLIENT_ORIGIN, COOKIE_NAME,
//   SESSION_SECRET, SESSION_TTL, FEED_INTERVAL, FEED_LINES

package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	minProductionSecret = 32
	devSecret           = "dev_secret_change_me"
)

// Config holds every tunable of the server.
type Config struct {
	Port          string        `mapstructure:"port"`
	LogLevel      string        `mapstructure:"log_level"`
	Env           string        `mapstructure:"env"`
	ClientOrigin  string        `mapstructure:"client_origin"`
	CookieName    string        `mapstructure:"cookie_name"`
	SessionSecret string        `mapstructure:"session_secret"`
	SessionTTL    time.Duration `mapstructure:"session_ttl"`
	FeedInterval  time.Duration `mapstructure:"feed_interval"`
	FeedLines     int           `mapstructure:"feed_lines"`
}

// Production reports whether cookies should be Secure/SameSite=None.
func (c Config) Production() bool { return c.Env == EnvProduction }

// Addr is the listen address derived from Port.
func (c Config) Addr() string { return ":" + c.Port }

var bindings = map[string]string{
	"port":           "PORT",
	"log_level":      "LOG_LEVEL",
	"env":            "APP_ENV",
	"client_origin":  "CLIENT_ORIGIN",
	"cookie_name":    "COOKIE_NAME",
	"session_secret": "SESSION_SECRET",
	"session_ttl":    "SESSION_TTL",
	"feed_interval":  "FEED_INTERVAL",
	"feed_lines":     "FEED_LINES",
}

// Load reads .env (if present) and the environment into a Config.
func Load() (Config, error) {
	_ = godotenv.Load()
	return load(viper.New())
}

func load(v *viper.Viper) (Config, error) {
	v.SetDefault("port", "5175")
	v.SetDefault("log_level", "info")
	v.SetDefault("env", EnvDevelopment)
	v.SetDefault("client_origin", "http://localhost:5173")
	v.SetDefault("cookie_name", "breach_session")
	v.SetDefault("session_secret", devSecret)
	v.SetDefault("session_ttl", "72h")
	v.SetDefault("feed_interval", "2s")
	v.SetDefault("feed_lines", 20)

	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return Config{}, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Port == "" {
		return fmt.Errorf("config: PORT must not be empty")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("config: SESSION_TTL must be positive, got %s", c.SessionTTL)
	}
	if c.FeedInterval <= 0 {
		return fmt.Errorf("config: FEED_INTERVAL must be positive, got %s", c.FeedInterval)
	}
	if c.FeedLines <= 0 {
		return fmt.Errorf("config: FEED_LINES must be positive, got %d", c.FeedLines)
	}
	if c.Production() && (c.SessionSecret == devSecret || len(c.SessionSecret) < minProductionSecret) {
		return fmt.Errorf("config: SESSION_SECRET must be at least %d chars in production", minProductionSecret)
	}
	return nil
}
