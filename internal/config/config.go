package config

import (
	"errors"
	"time"
)

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`

	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`

	DatabasePath string `mapstructure:"database_path" yaml:"database_path"`

	JWTSecret   string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer   string        `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience string        `mapstructure:"jwt_audience" yaml:"jwt_audience"`
	JWTTTL      time.Duration `mapstructure:"jwt_ttl" yaml:"jwt_ttl"`

	// MaxMessageBytes caps a single websocket frame.
	MaxMessageBytes int64 `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
	// MaxMessageLength caps chat message text, in characters.
	MaxMessageLength  int      `mapstructure:"max_message_length" yaml:"max_message_length"`
	HistoryLimit      int      `mapstructure:"history_limit" yaml:"history_limit"`
	ClientBuffer      int      `mapstructure:"client_buffer" yaml:"client_buffer"`
	MessagesPerMinute int      `mapstructure:"messages_per_minute" yaml:"messages_per_minute"`
	AllowedOrigins    []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`

	// RedisAddr enables cross-node fan-out when set.
	RedisAddr    string `mapstructure:"redis_addr" yaml:"redis_addr"`
	RedisChannel string `mapstructure:"redis_channel" yaml:"redis_channel"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		LogLevel:          "info",
		LogFormat:         "console",
		DatabasePath:      "roomchat.db",
		JWTSecret:         "change-me",
		JWTIssuer:         "roomchat",
		JWTAudience:       "roomchat",
		JWTTTL:            24 * time.Hour,
		MaxMessageBytes:   1 << 16,
		MaxMessageLength:  2000,
		HistoryLimit:      100,
		ClientBuffer:      64,
		MessagesPerMinute: 120,
		AllowedOrigins:    []string{"localhost:*", "127.0.0.1:*"},
		RedisChannel:      "roomchat:broadcast",
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.LogFormat != "" {
		c.LogFormat = other.LogFormat
	}
	if other.DatabasePath != "" {
		c.DatabasePath = other.DatabasePath
	}
	if other.JWTSecret != "" {
		c.JWTSecret = other.JWTSecret
	}
	if other.RedisAddr != "" {
		c.RedisAddr = other.RedisAddr
	}
}

// Validate reports configuration values the server cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr is required"))
	}
	if c.DatabasePath == "" {
		errs = append(errs, errors.New("database_path is required"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("jwt_secret is required"))
	}
	if c.JWTTTL <= 0 {
		errs = append(errs, errors.New("jwt_ttl must be positive"))
	}
	if c.HistoryLimit <= 0 {
		errs = append(errs, errors.New("history_limit must be positive"))
	}
	if c.ClientBuffer <= 0 {
		errs = append(errs, errors.New("client_buffer must be positive"))
	}
	if c.MaxMessageLength <= 0 {
		errs = append(errs, errors.New("max_message_length must be positive"))
	}
	return errors.Join(errs...)
}
