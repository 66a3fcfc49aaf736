// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 UE-1 Contributors

// Package config loads the login server configuration from a YAML file
// and command-line flags.
package config

import (
	"net/url"
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/UniversoExpandido2018/UE-1/internal/logging"
)

// DatabaseURLEnv is consulted when database.url is not configured.
const DatabaseURLEnv = "DATABASE_URL"

const redacted = "[REDACTED]"

// Config is the complete login server configuration.
type Config struct {
	Login      LoginConfig      `koanf:"login" yaml:"login"`
	Accounts   AccountsConfig   `koanf:"accounts" yaml:"accounts"`
	SessionAPI SessionAPIConfig `koanf:"session_api" yaml:"session_api"`
	Directory  DirectoryConfig  `koanf:"directory" yaml:"directory"`
	Server     ServerConfig     `koanf:"server" yaml:"server"`
	Log        LogConfig        `koanf:"log" yaml:"log"`
	Database   DatabaseConfig   `koanf:"database" yaml:"database"`
}

// LoginConfig holds login policy.
type LoginConfig struct {
	RequiredVersion     string `koanf:"required_version" yaml:"required_version"`
	AutoRegistration    bool   `koanf:"auto_registration" yaml:"auto_registration"`
	RegistrationMessage string `koanf:"registration_message" yaml:"registration_message"`
	InactiveTitle       string `koanf:"inactive_title" yaml:"inactive_title"`
	InactiveText        string `koanf:"inactive_text" yaml:"inactive_text"`
	DBSecret            string `koanf:"db_secret" yaml:"db_secret"`
	AttemptsPerMinute   int    `koanf:"attempts_per_minute" yaml:"attempts_per_minute"`
}

// AccountsConfig holds account cache settings.
type AccountsConfig struct {
	Namespace uint16 `koanf:"namespace" yaml:"namespace"`
}

// SessionAPIConfig points at the external session authority. An empty URL
// approves every login locally.
type SessionAPIConfig struct {
	URL        string        `koanf:"url" yaml:"url"`
	Timeout    time.Duration `koanf:"timeout" yaml:"timeout"`
	FailOpen   bool          `koanf:"fail_open" yaml:"fail_open"`
	MaxRetries uint64        `koanf:"max_retries" yaml:"max_retries"`
}

// DirectoryConfig is the static cluster list sent after login.
type DirectoryConfig struct {
	MaxCharsPerUser int             `koanf:"max_chars_per_user" yaml:"max_chars_per_user"`
	Clusters        []ClusterConfig `koanf:"clusters" yaml:"clusters"`
}

// ClusterConfig describes one cluster.
type ClusterConfig struct {
	ID       uint32 `koanf:"id" yaml:"id"`
	Name     string `koanf:"name" yaml:"name"`
	Timezone int    `koanf:"timezone" yaml:"timezone"`
	Address  string `koanf:"address" yaml:"address"`
	Port     uint16 `koanf:"port" yaml:"port"`
}

// ServerConfig holds listen addresses. An empty metrics or health address
// disables that listener.
type ServerConfig struct {
	ListenAddr  string `koanf:"listen_addr" yaml:"listen_addr"`
	MetricsAddr string `koanf:"metrics_addr" yaml:"metrics_addr"`
	HealthAddr  string `koanf:"health_addr" yaml:"health_addr"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Format string `koanf:"format" yaml:"format"`
	Level  string `koanf:"level" yaml:"level"`
}

// DatabaseConfig holds the PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string `koanf:"url" yaml:"url"`
	MaxConns int32  `koanf:"max_conns" yaml:"max_conns"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Login: LoginConfig{
			AutoRegistration:  true,
			AttemptsPerMinute: 30,
		},
		Accounts: AccountsConfig{Namespace: 3},
		SessionAPI: SessionAPIConfig{
			Timeout:    5 * time.Second,
			MaxRetries: 2,
		},
		Directory: DirectoryConfig{MaxCharsPerUser: 2},
		Server: ServerConfig{
			ListenAddr:  "0.0.0.0:44453",
			MetricsAddr: "127.0.0.1:9100",
			HealthAddr:  "127.0.0.1:9101",
		},
		Log: LogConfig{Format: "json", Level: "info"},
		Database: DatabaseConfig{
			MaxConns: 10,
		},
	}
}

// flagKeys maps command-line flags onto configuration keys.
var flagKeys = map[string]string{
	"listen-addr":         "server.listen_addr",
	"metrics-addr":        "server.metrics_addr",
	"health-addr":         "server.health_addr",
	"log-format":          "log.format",
	"log-level":           "log.level",
	"required-version":    "login.required_version",
	"auto-registration":   "login.auto_registration",
	"attempts-per-minute": "login.attempts_per_minute",
	"session-api-url":     "session_api.url",
	"session-api-timeout": "session_api.timeout",
	"database-url":        "database.url",
}

// RegisterFlags adds the overridable settings to fs, defaulting to Default().
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("listen-addr", d.Server.ListenAddr, "login listener address")
	fs.String("metrics-addr", d.Server.MetricsAddr, "metrics/health HTTP address (empty = disabled)")
	fs.String("health-addr", d.Server.HealthAddr, "gRPC health address (empty = disabled)")
	fs.String("log-format", d.Log.Format, "log format (json or text)")
	fs.String("log-level", d.Log.Level, "log level (debug, info, warn, error)")
	fs.String("required-version", d.Login.RequiredVersion, "client version required to log in (empty = any)")
	fs.Bool("auto-registration", d.Login.AutoRegistration, "create accounts for unknown usernames")
	fs.Int("attempts-per-minute", d.Login.AttemptsPerMinute, "login attempts allowed per IP per minute (0 = unlimited)")
	fs.String("session-api-url", d.SessionAPI.URL, "session API base URL (empty = approve locally)")
	fs.Duration("session-api-timeout", d.SessionAPI.Timeout, "session API request timeout")
	fs.String("database-url", d.Database.URL, "PostgreSQL URL (default: $"+DatabaseURLEnv+")")
}

// Load reads path (if not empty), then applies flags that were set.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
		}
	}

	if fs != nil {
		provider := posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(fs, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_PARSE_FAILED").With("path", path).Wrap(err)
	}

	if cfg.Database.URL == "" {
		cfg.Database.URL = os.Getenv(DatabaseURLEnv)
	}
	return &cfg, nil
}

// Validate checks the settings needed to serve logins.
func (c *Config) Validate() error {
	if c.Server.ListenAddr == "" {
		return oops.Code("CONFIG_INVALID").With("key", "server.listen_addr").Errorf("listen address is required")
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return oops.Code("CONFIG_INVALID").With("key", "log.format").Errorf("log format must be 'json' or 'text', got %q", c.Log.Format)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return oops.Code("CONFIG_INVALID").With("key", "log.level").Errorf("unknown log level %q", c.Log.Level)
	}
	if c.Login.DBSecret == "" {
		return oops.Code("CONFIG_INVALID").With("key", "login.db_secret").Errorf("password hashing secret is required")
	}
	if c.Login.AttemptsPerMinute < 0 {
		return oops.Code("CONFIG_INVALID").With("key", "login.attempts_per_minute").Errorf("attempts per minute cannot be negative")
	}
	if c.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").With("key", "database.url").Errorf("database URL is required (or set %s)", DatabaseURLEnv)
	}
	if c.SessionAPI.URL != "" {
		u, err := url.Parse(c.SessionAPI.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return oops.Code("CONFIG_INVALID").With("key", "session_api.url").Errorf("session API URL must be an absolute http(s) URL, got %q", c.SessionAPI.URL)
		}
		if c.SessionAPI.Timeout <= 0 {
			return oops.Code("CONFIG_INVALID").With("key", "session_api.timeout").Errorf("session API timeout must be positive")
		}
	}
	seen := make(map[uint32]struct{}, len(c.Directory.Clusters))
	for _, cl := range c.Directory.Clusters {
		if _, dup := seen[cl.ID]; dup {
			return oops.Code("CONFIG_INVALID").With("key", "directory.clusters").With("cluster_id", cl.ID).Errorf("duplicate cluster id %d", cl.ID)
		}
		seen[cl.ID] = struct{}{}
	}
	return nil
}

// Redacted returns a copy safe to print.
func (c *Config) Redacted() Config {
	out := *c
	out.Directory.Clusters = append([]ClusterConfig(nil), c.Directory.Clusters...)
	if out.Login.DBSecret != "" {
		out.Login.DBSecret = redacted
	}
	if u, err := url.Parse(out.Database.URL); err == nil && u.User != nil {
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), "xxxxx")
			out.Database.URL = u.String()
		}
	}
	return out
}
