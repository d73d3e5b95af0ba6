// Package config loads the application configuration from defaults, an
// optional YAML file and MM_-prefixed environment variables, in that order.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultConfigPaths are tried in order; the first existing file wins.
var DefaultConfigPaths = []string{"config.yaml", "config.yml"}

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Session  SessionConfig  `koanf:"session"`
	Mapbox   MapboxConfig   `koanf:"mapbox"`
	Log      LogConfig      `koanf:"log"`
}

type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
}

// DatabaseConfig selects the driver and either a full DSN or the discrete
// connection parameters the DSN is assembled from.
type DatabaseConfig struct {
	Driver   string `koanf:"driver"` // postgres or sqlite3
	DSN      string `koanf:"dsn"`
	Host     string `koanf:"host"`
	Port     string `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	Name     string `koanf:"name"`
	SSLMode  string `koanf:"sslmode"`
}

type SessionConfig struct {
	Secret string `koanf:"secret"`
	Secure bool   `koanf:"secure"`
	MaxAge int    `koanf:"max_age"` // seconds
}

type MapboxConfig struct {
	Token         string `koanf:"token"`
	DirectionsURL string `koanf:"directions_url"`
	GeocodingURL  string `koanf:"geocoding_url"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json or console
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8080,
		},
		Database: DatabaseConfig{
			Driver:  "postgres",
			Host:    "127.0.0.1",
			Port:    "5432",
			User:    "postgres",
			Name:    "merca_maps",
			SSLMode: "disable",
		},
		Session: SessionConfig{
			Secret: "",
			Secure: false,
			MaxAge: 7 * 24 * 60 * 60,
		},
		Mapbox: MapboxConfig{
			Token:         "",
			DirectionsURL: "https://api.mapbox.com/directions/v5/mapbox/driving-traffic",
			GeocodingURL:  "https://api.mapbox.com/geocoding/v5/mapbox.places",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the effective configuration. A missing config file is not an
// error; a file named explicitly via CONFIG_PATH must exist.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}

	if path := configFilePath(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
	}

	// MM_SERVER_PORT -> server.port
	err := k.Load(env.Provider("MM_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "MM_")), "_", ".")
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("config env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("config unmarshal: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func configFilePath() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		return p
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite3":
	default:
		return fmt.Errorf("config: unsupported database driver %q", c.Database.Driver)
	}
	if c.Session.Secure && c.Session.Secret == "" {
		return fmt.Errorf("config: session.secret is required when session.secure is set")
	}
	return nil
}

// Addr returns the host:port pair the HTTP server listens on.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
