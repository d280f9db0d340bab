// Package config loads client and stub settings from an optional YAML file, an optional .env
// file and the environment, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// PermissionMode selects how photo library consent is obtained.
type PermissionMode string

const (
	// PermissionPrompt asks the user once at startup.
	PermissionPrompt PermissionMode = "prompt"
	// PermissionGranted behaves as if the user said yes.
	PermissionGranted PermissionMode = "granted"
	// PermissionDenied behaves as if the user said no.
	PermissionDenied PermissionMode = "denied"
	// PermissionNone is a platform without a consent dialog.
	PermissionNone PermissionMode = "none"
)

const DefaultPath = "config.yaml"

// Config holds every tunable of both binaries.
type Config struct {
	Endpoint       string         `yaml:"endpoint"`
	Origin         string         `yaml:"origin"`
	RequestTimeout time.Duration  `yaml:"request_timeout"`
	LibraryDir     string         `yaml:"library_dir"`
	Permission     PermissionMode `yaml:"permission"`
	LogLevel       string         `yaml:"log_level"`
	LogFile        string         `yaml:"log_file"`

	StubAddr        string        `yaml:"stub_addr"`
	StubVerdict     string        `yaml:"stub_verdict"`
	StubDelay       time.Duration `yaml:"stub_delay"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Endpoint:        "http://192.168.29.32:5000/",
		LibraryDir:      defaultLibraryDir(),
		Permission:      PermissionPrompt,
		LogLevel:        "info",
		LogFile:         "forgery-check.log",
		StubAddr:        ":5000",
		StubVerdict:     "hash",
		ShutdownTimeout: 15 * time.Second,
	}
}

// Load builds the configuration. A missing YAML or .env file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	// .env only fills variables that are not already set.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if path == "" {
		path = getEnv("FORGERY_CONFIG", DefaultPath)
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Endpoint = getEnv("FORGERY_ENDPOINT", c.Endpoint)
	c.Origin = getEnv("FORGERY_ORIGIN", c.Origin)
	c.LibraryDir = getEnv("FORGERY_LIBRARY_DIR", c.LibraryDir)
	c.Permission = PermissionMode(getEnv("FORGERY_PERMISSION", string(c.Permission)))
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFile = getEnv("LOG_FILE", c.LogFile)
	c.StubAddr = getEnv("STUB_ADDR", c.StubAddr)
	c.StubVerdict = getEnv("STUB_VERDICT", c.StubVerdict)

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"FORGERY_REQUEST_TIMEOUT", &c.RequestTimeout},
		{"STUB_DELAY", &c.StubDelay},
		{"SHUTDOWN_TIMEOUT", &c.ShutdownTimeout},
	}
	for _, d := range durations {
		value := os.Getenv(d.key)
		if value == "" {
			continue
		}
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("%s: %w", d.key, err)
		}
		*d.dst = parsed
	}
	return nil
}

// Validate rejects settings the binaries cannot work with.
func (c *Config) Validate() error {
	u, err := url.Parse(strings.TrimSpace(c.Endpoint))
	if err != nil {
		return fmt.Errorf("endpoint: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("endpoint %q must be an absolute http(s) URL", c.Endpoint)
	}

	switch c.Permission {
	case PermissionPrompt, PermissionGranted, PermissionDenied, PermissionNone:
	default:
		return fmt.Errorf("permission %q must be one of prompt, granted, denied, none", c.Permission)
	}

	if c.RequestTimeout < 0 || c.StubDelay < 0 || c.ShutdownTimeout < 0 {
		return errors.New("durations must not be negative")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func defaultLibraryDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, "Pictures")
}
