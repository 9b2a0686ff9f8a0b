// Package config provides Viper-based configuration loading for the
// session coordinator.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig holds the HTTP/WebSocket listener settings.
type ServerConfig struct {
	// Host is the bind address for the listener.
	Host string `mapstructure:"host"`
	// Port is the TCP port for the listener.
	Port int `mapstructure:"port"`
	// ShutdownTimeout bounds graceful HTTP server shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr returns the "host:port" listen address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// WebSocketConfig holds per-connection WebSocket tuning.
type WebSocketConfig struct {
	// WriteTimeout is the deadline for a single outbound frame write.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// PongWait is how long to wait for a pong before the read side gives up.
	PongWait time.Duration `mapstructure:"pong_wait"`
	// PingPeriod is the interval between keepalive pings. Must be < PongWait.
	PingPeriod time.Duration `mapstructure:"ping_period"`
	// MaxMessageBytes is the inbound frame size limit.
	MaxMessageBytes int64 `mapstructure:"max_message_bytes"`
	// SendBuffer is the per-connection outbound channel capacity.
	// When the buffer is full, frames to that connection are dropped.
	SendBuffer int `mapstructure:"send_buffer"`
	// ReadBufferSize is the upgrader read buffer size.
	ReadBufferSize int `mapstructure:"read_buffer_size"`
	// WriteBufferSize is the upgrader write buffer size.
	WriteBufferSize int `mapstructure:"write_buffer_size"`
}

// RoomConfig holds room lifecycle settings.
type RoomConfig struct {
	// GraceWindow is how long a room survives after a player disconnect
	// before it is deleted.
	GraceWindow time.Duration `mapstructure:"grace_window"`
	// SweepInterval is how often the idle sweeper runs.
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	// IdleThreshold is the inactivity age beyond which the sweeper
	// deletes a room.
	IdleThreshold time.Duration `mapstructure:"idle_threshold"`
	// CodeLength is the number of characters in a room code.
	CodeLength int `mapstructure:"code_length"`
	// CreateRetries bounds the regeneration loop when a freshly
	// generated code collides with a registered room.
	CreateRetries int `mapstructure:"create_retries"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	WebSocket WebSocketConfig `mapstructure:"websocket"`
	Room      RoomConfig      `mapstructure:"room"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateServer(c.Server); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateWebSocket(c.WebSocket); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateRoom(c.Room); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateServer(s ServerConfig) error {
	var errs []string
	if s.Port < 1 || s.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", s.Port))
	}
	if s.ShutdownTimeout < 0 {
		errs = append(errs, "server.shutdown_timeout must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateWebSocket(w WebSocketConfig) error {
	var errs []string
	if w.WriteTimeout <= 0 {
		errs = append(errs, "websocket.write_timeout must be positive")
	}
	if w.PongWait <= 0 {
		errs = append(errs, "websocket.pong_wait must be positive")
	}
	if w.PingPeriod <= 0 {
		errs = append(errs, "websocket.ping_period must be positive")
	} else if w.PongWait > 0 && w.PingPeriod >= w.PongWait {
		errs = append(errs, fmt.Sprintf("websocket.ping_period must be less than websocket.pong_wait, got %s >= %s", w.PingPeriod, w.PongWait))
	}
	if w.MaxMessageBytes < 1 {
		errs = append(errs, fmt.Sprintf("websocket.max_message_bytes must be >= 1, got %d", w.MaxMessageBytes))
	}
	if w.SendBuffer < 1 {
		errs = append(errs, fmt.Sprintf("websocket.send_buffer must be >= 1, got %d", w.SendBuffer))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateRoom(r RoomConfig) error {
	var errs []string
	if r.GraceWindow <= 0 {
		errs = append(errs, "room.grace_window must be positive")
	}
	if r.SweepInterval <= 0 {
		errs = append(errs, "room.sweep_interval must be positive")
	}
	if r.IdleThreshold <= 0 {
		errs = append(errs, "room.idle_threshold must be positive")
	}
	if r.CodeLength < 1 {
		errs = append(errs, fmt.Sprintf("room.code_length must be >= 1, got %d", r.CodeLength))
	}
	if r.CreateRetries < 1 {
		errs = append(errs, fmt.Sprintf("room.create_retries must be >= 1, got %d", r.CreateRetries))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable overrides with ROMGON_ prefix
	v.SetEnvPrefix("ROMGON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Default returns the built-in configuration, used when no config file is
// supplied on the command line.
//
// Postcondition: Returns a Config that passes Validate.
func Default() Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// Cannot fail: every key is set by setDefaults.
	_ = v.Unmarshal(&cfg)
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("websocket.write_timeout", "10s")
	v.SetDefault("websocket.pong_wait", "60s")
	v.SetDefault("websocket.ping_period", "54s")
	v.SetDefault("websocket.max_message_bytes", 65536)
	v.SetDefault("websocket.send_buffer", 64)
	v.SetDefault("websocket.read_buffer_size", 1024)
	v.SetDefault("websocket.write_buffer_size", 1024)

	v.SetDefault("room.grace_window", "5m")
	v.SetDefault("room.sweep_interval", "1h")
	v.SetDefault("room.idle_threshold", "24h")
	v.SetDefault("room.code_length", 6)
	v.SetDefault("room.create_retries", 8)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}
