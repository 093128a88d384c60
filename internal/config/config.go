// Package config provides configuration management for the class registry.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the class registry configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Logging LoggingConfig `yaml:"logging"`
	Seed    SeedConfig    `yaml:"seed"`
}

// ServerConfig represents HTTP server configuration.
type ServerConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	ReadTimeout  int    `yaml:"read_timeout"`
	WriteTimeout int    `yaml:"write_timeout"`
}

// StorageConfig represents storage backend configuration.
type StorageConfig struct {
	Type       string           `yaml:"type"` // memory, postgresql, mysql
	PostgreSQL PostgreSQLConfig `yaml:"postgresql"`
	MySQL      MySQLConfig      `yaml:"mysql"`
	Cache      CacheConfig      `yaml:"cache"`
}

// CacheConfig configures class-definition caching in front of database
// backends. The memory backend never caches.
type CacheConfig struct {
	Enabled    bool `yaml:"enabled"`
	Capacity   int  `yaml:"capacity"`
	TTLSeconds int  `yaml:"ttl_seconds"`
}

// PostgreSQLConfig represents PostgreSQL connection configuration.
type PostgreSQLConfig struct {
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	Database        string `yaml:"database"`
	User            string `yaml:"user"`
	Password        string `yaml:"password"`
	SSLMode         string `yaml:"ssl_mode"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime"` // seconds
}

// MySQLConfig represents MySQL connection configuration.
type MySQLConfig struct {
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	Database        string `yaml:"database"`
	User            string `yaml:"user"`
	Password        string `yaml:"password"`
	TLS             string `yaml:"tls"` // true, false, skip-verify, preferred
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime"` // seconds
}

// LoggingConfig represents logging configuration.
type LoggingConfig struct {
	Level  string          `yaml:"level"`
	Format string          `yaml:"format"` // json, text
	File   LogFileConfig   `yaml:"file"`
	Syslog LogSyslogConfig `yaml:"syslog"`
}

// LogFileConfig configures rotated file output in addition to stdout.
type LogFileConfig struct {
	Path       string `yaml:"path"` // Empty disables file output
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// LogSyslogConfig configures an optional syslog sink.
type LogSyslogConfig struct {
	Enabled bool   `yaml:"enabled"`
	Network string `yaml:"network"` // udp, tcp; empty for local syslog
	Address string `yaml:"address"`
	Tag     string `yaml:"tag"`
}

// SeedConfig configures class-definition seed files.
type SeedConfig struct {
	// Dir is a directory of YAML class definition files loaded at
	// startup. Empty disables seeding.
	Dir string `yaml:"dir"`
	// Watch reloads definition files when they change.
	Watch bool `yaml:"watch"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8082,
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		Storage: StorageConfig{
			Type: "memory",
			Cache: CacheConfig{
				Capacity:   1024,
				TTLSeconds: 30,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			File: LogFileConfig{
				MaxSizeMB:  100,
				MaxBackups: 5,
				MaxAgeDays: 30,
			},
			Syslog: LogSyslogConfig{
				Tag: "class-registry",
			},
		},
	}
}

// Load loads configuration from a YAML file and environment variables.
// Environment variables override file configuration.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		// #nosec G304 -- path is from command-line argument, user-controlled input is expected
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		// Expand environment variables in the config file
		expanded := os.ExpandEnv(string(data))

		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("CLASS_REGISTRY_HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("CLASS_REGISTRY_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("CLASS_REGISTRY_STORAGE_TYPE"); v != "" {
		c.Storage.Type = v
	}
	if v := os.Getenv("CLASS_REGISTRY_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("CLASS_REGISTRY_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("CLASS_REGISTRY_SEED_DIR"); v != "" {
		c.Seed.Dir = v
	}
	if v := os.Getenv("CLASS_REGISTRY_SEED_WATCH"); v != "" {
		c.Seed.Watch = strings.ToLower(v) == "true" || v == "1"
	}

	// PostgreSQL overrides
	if v := os.Getenv("CLASS_REGISTRY_PG_HOST"); v != "" {
		c.Storage.PostgreSQL.Host = v
	}
	if v := os.Getenv("CLASS_REGISTRY_PG_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Storage.PostgreSQL.Port = port
		}
	}
	if v := os.Getenv("CLASS_REGISTRY_PG_DATABASE"); v != "" {
		c.Storage.PostgreSQL.Database = v
	}
	if v := os.Getenv("CLASS_REGISTRY_PG_USER"); v != "" {
		c.Storage.PostgreSQL.User = v
	}
	if v := os.Getenv("CLASS_REGISTRY_PG_PASSWORD"); v != "" {
		c.Storage.PostgreSQL.Password = v
	}
	if v := os.Getenv("CLASS_REGISTRY_PG_SSLMODE"); v != "" {
		c.Storage.PostgreSQL.SSLMode = v
	}

	// MySQL overrides
	if v := os.Getenv("CLASS_REGISTRY_MYSQL_HOST"); v != "" {
		c.Storage.MySQL.Host = v
	}
	if v := os.Getenv("CLASS_REGISTRY_MYSQL_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Storage.MySQL.Port = port
		}
	}
	if v := os.Getenv("CLASS_REGISTRY_MYSQL_DATABASE"); v != "" {
		c.Storage.MySQL.Database = v
	}
	if v := os.Getenv("CLASS_REGISTRY_MYSQL_USER"); v != "" {
		c.Storage.MySQL.User = v
	}
	if v := os.Getenv("CLASS_REGISTRY_MYSQL_PASSWORD"); v != "" {
		c.Storage.MySQL.Password = v
	}
	if v := os.Getenv("CLASS_REGISTRY_MYSQL_TLS"); v != "" {
		c.Storage.MySQL.TLS = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	validStorageTypes := map[string]bool{
		"memory":     true,
		"postgresql": true,
		"mysql":      true,
	}
	if !validStorageTypes[c.Storage.Type] {
		return fmt.Errorf("invalid storage type: %s", c.Storage.Type)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	if c.Seed.Watch && c.Seed.Dir == "" {
		return fmt.Errorf("seed watch requires a seed directory")
	}

	return nil
}

// Address returns the server address string.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
