package internal

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"http_server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Security  SecurityConfig  `mapstructure:"security"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Gateway   GatewayConfig   `mapstructure:"gateway"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	AllowedOrigins string        `mapstructure:"allowed_origins"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
}

type DatabaseConfig struct {
	Source          string        `mapstructure:"source"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type SecurityConfig struct {
	AccessTokenSecret    string        `mapstructure:"access_token_secret"`
	RefreshTokenSecret   string        `mapstructure:"refresh_token_secret"`
	AccessTokenDuration  time.Duration `mapstructure:"access_token_duration"`
	RefreshTokenDuration time.Duration `mapstructure:"refresh_token_duration"`
}

// RateLimitConfig parameterizes the two limiter instances. The login limiter
// is keyed by client IP, the message limiter by authenticated user id.
type RateLimitConfig struct {
	LoginMaxAttempts   int           `mapstructure:"login_max_attempts"`
	LoginWindow        time.Duration `mapstructure:"login_window"`
	LoginCooldown      time.Duration `mapstructure:"login_cooldown"`
	MessageMaxMessages int           `mapstructure:"message_max_messages"`
	MessageWindow      time.Duration `mapstructure:"message_window"`
	MessageCooldown    time.Duration `mapstructure:"message_cooldown"`
}

// GatewayConfig tunes the real-time hub.
type GatewayConfig struct {
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	AllowedMisses     int           `mapstructure:"allowed_misses"`
	SendBufferSize    int           `mapstructure:"send_buffer_size"`
}

type LoggingConfig struct {
	Env string `mapstructure:"env"`
}

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}
	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}
	if err := c.Security.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("security config: %v", err))
	}
	if err := c.RateLimit.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("rate limit config: %v", err))
	}
	if err := c.Gateway.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("gateway config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func (c *ServerConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.AllowedOrigins != "" {
		for _, origin := range strings.Split(c.AllowedOrigins, ",") {
			origin = strings.TrimSpace(origin)
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	if c.Source == "" {
		return errors.New("database source is required")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *SecurityConfig) Validate() error {
	if len(c.AccessTokenSecret) < 32 {
		return errors.New("access token secret must be at least 32 characters")
	}
	if len(c.RefreshTokenSecret) < 32 {
		return errors.New("refresh token secret must be at least 32 characters")
	}
	if c.AccessTokenDuration <= 0 || c.RefreshTokenDuration <= 0 {
		return errors.New("token durations must be positive")
	}
	return nil
}

func (c *RateLimitConfig) Validate() error {
	if c.LoginMaxAttempts <= 0 || c.MessageMaxMessages <= 0 {
		return errors.New("limiter maximums must be positive")
	}
	if c.LoginWindow <= 0 || c.MessageWindow <= 0 {
		return errors.New("limiter windows must be positive")
	}
	return nil
}

func (c *GatewayConfig) Validate() error {
	if c.HeartbeatInterval <= 0 {
		return errors.New("heartbeat_interval must be positive")
	}
	if c.AllowedMisses < 1 {
		return errors.New("allowed_misses must be at least 1")
	}
	if c.SendBufferSize < 1 {
		return errors.New("send_buffer_size must be at least 1")
	}
	return nil
}
