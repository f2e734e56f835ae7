package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	DatabasePath      string        `mapstructure:"database_path" yaml:"database_path"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`

	// JWT verification settings for the auth gate. Tokens are issued by the
	// external account service sharing the same secret.
	JWTSecret   string `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer   string `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience string `mapstructure:"jwt_audience" yaml:"jwt_audience"`

	// HistoryLimit caps how many recent messages are replayed on join.
	HistoryLimit int `mapstructure:"history_limit" yaml:"history_limit"`

	// ConnectionsPerMinute limits websocket admissions; zero disables the limit.
	ConnectionsPerMinute int `mapstructure:"connections_per_minute" yaml:"connections_per_minute"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:                 ":8080",
		ReadHeaderTimeout:    5 * time.Second,
		ShutdownTimeout:      5 * time.Second,
		DatabasePath:         "gateway.db",
		LogLevel:             "info",
		JWTSecret:            "",
		JWTIssuer:            "rbschat",
		JWTAudience:          "rbschat-gateway",
		HistoryLimit:         50,
		ConnectionsPerMinute: 0,
	}
}
