// Package config loads epcr settings from a YAML file.
//
// Every key has a default, so an absent file or an empty file yields a
// working local setup: a SQLite database and a snapshot file in the
// current directory.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage drivers.
const (
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
	DriverRedis  = "redis"
)

// DefaultEncryptionKey is the key used when the file sets none. It is
// public, so anyone with the snapshot and session files can read the
// token. Set auth.encryption_key for any real deployment.
const DefaultEncryptionKey = "default-key"

// ValidDrivers defines the allowed storage drivers.
var ValidDrivers = []string{DriverSQLite, DriverMemory, DriverRedis}

// ValidLogLevels defines the allowed log levels.
var ValidLogLevels = []string{"debug", "info", "warn", "error"}

// Config is the full epcr configuration.
type Config struct {
	Storage  Storage  `yaml:"storage"`
	Snapshot Snapshot `yaml:"snapshot"`
	Auth     Auth     `yaml:"auth"`
	Log      Log      `yaml:"log"`
	Export   Export   `yaml:"export"`
}

// Storage selects and configures the report medium.
type Storage struct {
	// Driver is one of ValidDrivers.
	Driver string `yaml:"driver"`

	// Path is the SQLite database file (driver sqlite).
	Path string `yaml:"path"`

	Redis Redis `yaml:"redis"`
}

// Redis configures the redis driver.
type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`

	// Key is the hash holding the collection.
	Key string `yaml:"key"`
}

// Snapshot configures the cache snapshot file used for rehydration.
type Snapshot struct {
	Path     string `yaml:"path"`
	Disabled bool   `yaml:"disabled"`
}

// Auth configures the staff session.
type Auth struct {
	// Email identifies the staff member logged in by the CLI.
	Email string `yaml:"email"`

	// EncryptionKey protects the session token at rest.
	EncryptionKey string `yaml:"encryption_key"`
}

// InsecureKey reports whether the session key is the built-in default.
func (a Auth) InsecureKey() bool {
	return a.EncryptionKey == DefaultEncryptionKey
}

// Log configures slog output.
type Log struct {
	Level string `yaml:"level"`
}

// Export configures document rendering.
type Export struct {
	// Dir receives exported files.
	Dir string `yaml:"dir"`

	// Timezone is an IANA name used for dates on documents.
	Timezone string `yaml:"timezone"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Storage: Storage{
			Driver: DriverSQLite,
			Path:   "epcr.db",
			Redis: Redis{
				Addr: "localhost:6379",
				Key:  "epcr:reports",
			},
		},
		Snapshot: Snapshot{
			Path: "patient-report-storage.json",
		},
		Auth: Auth{
			Email:         "paramedic@example.org",
			EncryptionKey: DefaultEncryptionKey,
		},
		Log: Log{
			Level: "info",
		},
		Export: Export{
			Dir:      ".",
			Timezone: "UTC",
		},
	}
}

// Load reads the YAML file at path over the defaults.
// An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg, err = Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result.
// Unknown keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse yaml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field values.
func (c Config) Validate() error {
	if !contains(ValidDrivers, c.Storage.Driver) {
		return fmt.Errorf("invalid storage.driver %q: must be one of %v", c.Storage.Driver, ValidDrivers)
	}
	if c.Storage.Driver == DriverSQLite && c.Storage.Path == "" {
		return errors.New("storage.path is required for the sqlite driver")
	}
	if c.Storage.Driver == DriverRedis && c.Storage.Redis.Addr == "" {
		return errors.New("storage.redis.addr is required for the redis driver")
	}
	if !contains(ValidLogLevels, strings.ToLower(c.Log.Level)) {
		return fmt.Errorf("invalid log.level %q: must be one of %v", c.Log.Level, ValidLogLevels)
	}
	if c.Auth.EncryptionKey == "" {
		return errors.New("auth.encryption_key cannot be empty")
	}
	if _, err := c.Export.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves Timezone. Empty means UTC.
func (e Export) Location() (*time.Location, error) {
	if e.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(e.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid export.timezone %q: %w", e.Timezone, err)
	}
	return loc, nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
