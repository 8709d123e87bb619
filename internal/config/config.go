// Package config reads the single INI-style operator file this system is handed at
// startup. It has no opinion on precedence, overrides, or hot-reload: it
// merely hands back values by (section, key), as the rest of the pipeline
// expects.
package config

import (
	"fmt"

	"gopkg.in/ini.v1"
)

// Config wraps a loaded INI file for (section, key) access.
type Config struct {
	file *ini.File
}

// Load reads the INI file at path.
func Load(path string) (*Config, error) {
	f, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("config: loading %q: %w", path, err)
	}
	return &Config{file: f}, nil
}

// Get returns the string value at (section, key), or an error if the key is
// absent. An empty section name refers to the INI default section.
func (c *Config) Get(section, key string) (string, error) {
	s, err := c.file.GetSection(section)
	if err != nil {
		return "", fmt.Errorf("config: section %q: %w", section, err)
	}
	k, err := s.GetKey(key)
	if err != nil {
		return "", fmt.Errorf("config: key %q in section %q: %w", key, section, err)
	}
	return k.String(), nil
}

// GetDefault returns the value at (section, key), or def if either the
// section or the key is absent.
func (c *Config) GetDefault(section, key, def string) string {
	v, err := c.Get(section, key)
	if err != nil {
		return def
	}
	return v
}

// DatabaseConfig holds a single store's connection string.
type DatabaseConfig struct {
	DSN string
}

// PrimaryDB reads the [primarydb] section (the operator-facing supplier /
// matrix_format store).
func (c *Config) PrimaryDB() (DatabaseConfig, error) {
	dsn, err := c.Get("primarydb", "dsn")
	if err != nil {
		return DatabaseConfig{}, err
	}
	return DatabaseConfig{DSN: dsn}, nil
}

// ExternalDB reads the [externaldb] section (the downstream analytics
// "altitude" store that quotes are stamped into).
func (c *Config) ExternalDB() (DatabaseConfig, error) {
	dsn, err := c.Get("externaldb", "dsn")
	if err != nil {
		return DatabaseConfig{}, err
	}
	return DatabaseConfig{DSN: dsn}, nil
}

// ObjectStoreConfig holds connection details for the audit content bucket.
type ObjectStoreConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

func (c *Config) ObjectStore() (ObjectStoreConfig, error) {
	endpoint, err := c.Get("objectstore", "endpoint")
	if err != nil {
		return ObjectStoreConfig{}, err
	}
	accessKey, err := c.Get("objectstore", "access_key")
	if err != nil {
		return ObjectStoreConfig{}, err
	}
	secretKey, err := c.Get("objectstore", "secret_key")
	if err != nil {
		return ObjectStoreConfig{}, err
	}
	bucket, err := c.Get("objectstore", "bucket")
	if err != nil {
		return ObjectStoreConfig{}, err
	}
	return ObjectStoreConfig{
		Endpoint:  endpoint,
		AccessKey: accessKey,
		SecretKey: secretKey,
		Bucket:    bucket,
		UseSSL:    c.GetDefault("objectstore", "use_ssl", "true") == "true",
	}, nil
}

// MetricsConfig holds the StatsD collector address.
type MetricsConfig struct {
	Host string
	Port string
}

func (c *Config) Metrics() MetricsConfig {
	return MetricsConfig{
		Host: c.GetDefault("metrics", "host", "localhost"),
		Port: c.GetDefault("metrics", "port", "8125"),
	}
}

// SubprocessConfig holds the path to the headless office conversion tool.
// PDFTableConverter's Tabula jar path has no equivalent entry here: no
// registered parser calls it yet, so there is nothing to default it for
// (see internal/preprocess.PDFTableConverter) — a future caller supplies
// its own jar path explicitly, the way the test that exercises it does.
type SubprocessConfig struct {
	OfficeConverterPath string
}

func (c *Config) Subprocess() SubprocessConfig {
	return SubprocessConfig{
		OfficeConverterPath: c.GetDefault("subprocess", "office_converter", "soffice"),
	}
}
