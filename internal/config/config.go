// Package config loads the web-server configuration.
//
// Values are layered: built-in defaults, an optional YAML file, an optional
// .env file, then the process environment. Later layers win.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full service configuration.
type Config struct {
	HTTPAddr  string `yaml:"http_addr" env:"SERVICE_HTTP_ADDR"`
	WebFolder string `yaml:"web_folder" env:"SERVICE_WEB_FOLDER"`

	DBURL            string        `yaml:"db_url" env:"SERVICE_DB_URL"`
	DBMaxConns       int           `yaml:"db_max_conns" env:"SERVICE_DB_MAX_CONNS"`
	DBAcquireTimeout time.Duration `yaml:"db_acquire_timeout" env:"SERVICE_DB_ACQUIRE_TIMEOUT"`

	// Base64url encoded keys.
	PwdKey        string        `yaml:"pwd_key" env:"SERVICE_PWD_KEY"`
	TokenKey      string        `yaml:"token_key" env:"SERVICE_TOKEN_KEY"`
	TokenDuration time.Duration `yaml:"token_duration" env:"SERVICE_TOKEN_DURATION"`

	// Empty keeps sessions in process memory.
	RedisURL string `yaml:"redis_url" env:"SERVICE_REDIS_URL"`

	RateLimitRPS   float64 `yaml:"rate_limit_rps" env:"SERVICE_RATE_LIMIT_RPS"`
	RateLimitBurst int     `yaml:"rate_limit_burst" env:"SERVICE_RATE_LIMIT_BURST"`
	// Comma separated.
	CORSOrigins string `yaml:"cors_origins" env:"SERVICE_CORS_ORIGINS"`

	LogLevel  string `yaml:"log_level" env:"SERVICE_LOG_LEVEL"`
	LogFormat string `yaml:"log_format" env:"SERVICE_LOG_FORMAT"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		HTTPAddr:         ":8080",
		WebFolder:        "web-folder/",
		DBMaxConns:       5,
		DBAcquireTimeout: 3 * time.Second,
		TokenDuration:    30 * time.Minute,
		RateLimitRPS:     20,
		RateLimitBurst:   40,
		LogLevel:         "info",
		LogFormat:        "json",
	}
}

// Load builds a Config. path may be empty; a missing .env file is ignored.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Config{}, fmt.Errorf("decode environment: %w", err)
	}

	return cfg, nil
}

// Validate reports the first setting the server cannot start without.
func (c Config) Validate() error {
	switch {
	case strings.TrimSpace(c.DBURL) == "":
		return errors.New("config: db_url is required")
	case strings.TrimSpace(c.PwdKey) == "":
		return errors.New("config: pwd_key is required")
	case strings.TrimSpace(c.TokenKey) == "":
		return errors.New("config: token_key is required")
	case c.DBMaxConns <= 0:
		return fmt.Errorf("config: db_max_conns must be positive, got %d", c.DBMaxConns)
	case c.DBAcquireTimeout <= 0:
		return fmt.Errorf("config: db_acquire_timeout must be positive, got %s", c.DBAcquireTimeout)
	case c.TokenDuration <= 0:
		return fmt.Errorf("config: token_duration must be positive, got %s", c.TokenDuration)
	}
	return nil
}

// Origins returns the allowed CORS origins.
func (c Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
