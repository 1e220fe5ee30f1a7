package lintas

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk client configuration.
type FileConfig struct {
	BaseURL   string            `toml:"base_url" yaml:"base_url"`
	Timeout   string            `toml:"timeout" yaml:"timeout"`
	Headers   map[string]string `toml:"headers" yaml:"headers"`
	Debug     bool              `toml:"debug" yaml:"debug"`
	Metrics   bool              `toml:"metrics" yaml:"metrics"`
	Auth      AuthConfig        `toml:"auth" yaml:"auth"`
	RateLimit RateLimitConfig   `toml:"rate_limit" yaml:"rate_limit"`
}

// AuthConfig selects the credential store. The first non-empty source wins,
// in the order Token, TokenFile, TokenEnv, Redis.
type AuthConfig struct {
	Token     string      `toml:"token" yaml:"token"`
	TokenFile string      `toml:"token_file" yaml:"token_file"`
	TokenEnv  string      `toml:"token_env" yaml:"token_env"`
	Redis     RedisConfig `toml:"redis" yaml:"redis"`
}

// RedisConfig points at a shared token kept in Redis.
type RedisConfig struct {
	Addr     string `toml:"addr" yaml:"addr"`
	Password string `toml:"password" yaml:"password"`
	DB       int    `toml:"db" yaml:"db"`
	Key      string `toml:"key" yaml:"key"`
}

// RateLimitConfig enables client side rate limiting when PerSecond > 0.
type RateLimitConfig struct {
	PerSecond float64 `toml:"per_second" yaml:"per_second"`
	Burst     int     `toml:"burst" yaml:"burst"`
}

// DefaultFileConfig returns the configuration used when no file is given.
func DefaultFileConfig() *FileConfig {
	return &FileConfig{
		Timeout: defaultTimeout.String(),
	}
}

// LoadConfig reads a TOML or YAML file, chosen by extension, then applies
// LINTAS_* environment overrides. An empty path yields the defaults with
// overrides applied.
func LoadConfig(path string) (*FileConfig, error) {
	cfg := DefaultFileConfig()

	if path != "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".toml":
			if _, err := toml.DecodeFile(path, cfg); err != nil {
				return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
			}
		case ".yaml", ".yml":
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("failed to read YAML config from %s: %w", path, err)
			}
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to load YAML config from %s: %w", path, err)
			}
		default:
			return nil, fmt.Errorf("%w: unsupported config format %q", ErrInvalidConfig, filepath.Ext(path))
		}
	}

	if err := cfg.ApplyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnvOverrides applies environment variable overrides:
//   - LINTAS_BASE_URL: overrides base_url
//   - LINTAS_TIMEOUT: overrides timeout (Go duration)
//   - LINTAS_TOKEN: overrides auth.token
//   - LINTAS_TOKEN_FILE: overrides auth.token_file
//   - LINTAS_REDIS_ADDR: overrides auth.redis.addr
//   - LINTAS_RATE_LIMIT: overrides rate_limit.per_second
//   - LINTAS_DEBUG: overrides debug ("1" or "true")
func (c *FileConfig) ApplyEnvOverrides() error {
	if v := os.Getenv("LINTAS_BASE_URL"); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv("LINTAS_TIMEOUT"); v != "" {
		c.Timeout = v
	}
	if v := os.Getenv("LINTAS_TOKEN"); v != "" {
		c.Auth.Token = v
	}
	if v := os.Getenv("LINTAS_TOKEN_FILE"); v != "" {
		c.Auth.TokenFile = v
	}
	if v := os.Getenv("LINTAS_REDIS_ADDR"); v != "" {
		c.Auth.Redis.Addr = v
	}
	if v := os.Getenv("LINTAS_RATE_LIMIT"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%w: LINTAS_RATE_LIMIT: %v", ErrInvalidConfig, err)
		}
		c.RateLimit.PerSecond = f
	}
	if v := os.Getenv("LINTAS_DEBUG"); v != "" {
		c.Debug = v == "1" || strings.EqualFold(v, "true")
	}
	return nil
}

// Validate checks the values that Options cannot recover from.
func (c *FileConfig) Validate() error {
	if c.Timeout != "" {
		d, err := time.ParseDuration(c.Timeout)
		if err != nil {
			return fmt.Errorf("%w: timeout: %v", ErrInvalidConfig, err)
		}
		if d <= 0 {
			return fmt.Errorf("%w: timeout must be positive", ErrInvalidConfig)
		}
	}
	if c.RateLimit.PerSecond < 0 {
		return fmt.Errorf("%w: rate_limit.per_second must not be negative", ErrInvalidConfig)
	}
	if c.RateLimit.PerSecond > 0 && c.RateLimit.Burst < 0 {
		return fmt.Errorf("%w: rate_limit.burst must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Options converts the configuration to client options. A token file store
// started here is returned as the closer so the caller can stop watching.
func (c *FileConfig) Options(logger Logger) ([]Option, func() error, error) {
	if err := c.Validate(); err != nil {
		return nil, nil, err
	}
	if logger == nil {
		logger = NopLogger()
	}

	closer := func() error { return nil }
	opts := []Option{WithLogger(logger)}

	if c.BaseURL != "" {
		opts = append(opts, WithBaseURL(c.BaseURL))
	}
	if c.Timeout != "" {
		d, _ := time.ParseDuration(c.Timeout)
		opts = append(opts, WithTimeout(d))
	}
	if len(c.Headers) > 0 {
		opts = append(opts, WithHeaders(c.Headers))
	}
	if c.Debug {
		opts = append(opts, WithDebug())
	}
	if c.Metrics {
		opts = append(opts, WithMetrics())
	}
	if c.RateLimit.PerSecond > 0 {
		burst := c.RateLimit.Burst
		if burst == 0 {
			burst = 1
		}
		opts = append(opts, WithRateLimit(c.RateLimit.PerSecond, burst))
	}

	switch {
	case c.Auth.Token != "":
		opts = append(opts, WithCredentialStore(StaticToken(c.Auth.Token)))
	case c.Auth.TokenFile != "":
		store, err := NewFileTokenStore(c.Auth.TokenFile, logger)
		if err != nil {
			return nil, nil, err
		}
		closer = store.Close
		opts = append(opts, WithCredentialStore(store))
	case c.Auth.TokenEnv != "":
		opts = append(opts, WithCredentialStore(EnvToken(c.Auth.TokenEnv)))
	case c.Auth.Redis.Addr != "":
		rdb := redis.NewClient(&redis.Options{
			Addr:     c.Auth.Redis.Addr,
			Password: c.Auth.Redis.Password,
			DB:       c.Auth.Redis.DB,
		})
		closer = rdb.Close
		opts = append(opts, WithCredentialStore(NewRedisTokenStore(rdb, c.Auth.Redis.Key)))
	}

	return opts, closer, nil
}
