/*
SPDX-License-Identifier: Apache-2.0

Copyright 2024 The TrafficEye Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    https://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package config loads console configuration from defaults, a TOML file and
// environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config holds the application configuration.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Services ServicesConfig `toml:"services"`
	Session  SessionConfig  `toml:"session"`
	Log      LogConfig      `toml:"log"`
	Cache    CacheConfig    `toml:"cache"`
	Chat     ChatConfig     `toml:"chat"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Addr  string `toml:"addr"`  // e.g., "127.0.0.1:8097"
	Title string `toml:"title"` // shown in the page header
	Demo  bool   `toml:"demo"`  // serve the in-memory demo backend
}

// ServicesConfig holds the backend base URLs.
type ServicesConfig struct {
	AuthURL   string `toml:"auth_url"`   // users and login, e.g. "http://localhost:8080"
	CoreURL   string `toml:"core_url"`   // vehicles, accidents, violations, notifications
	VisionURL string `toml:"vision_url"` // cameras and chat
	Timeout   string `toml:"timeout"`    // e.g., "10s"
}

// SessionConfig holds login session settings.
type SessionConfig struct {
	DBPath     string `toml:"db_path"`
	CookieName string `toml:"cookie_name"`
	TTL        string `toml:"ttl"`        // e.g., "12h"
	JWTSecret  string `toml:"jwt_secret"` // empty means token claims are read unverified
	Secure     bool   `toml:"secure"`     // set the Secure cookie attribute
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level      string `toml:"level"`  // "debug", "info", "warn", "error"
	Format     string `toml:"format"` // "text" or "json"
	File       string `toml:"file"`   // empty means stderr
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
}

// CacheConfig holds settings for the backend lookup cache.
type CacheConfig struct {
	Size int    `toml:"size"`
	TTL  string `toml:"ttl"`
}

// ChatConfig holds chatbot widget settings.
type ChatConfig struct {
	RatePerMinute int `toml:"rate_per_minute"`
	Burst         int `toml:"burst"`
	History       int `toml:"history"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:  "127.0.0.1:8097",
			Title: "TrafficEye",
		},
		Services: ServicesConfig{
			AuthURL:   "http://localhost:8080",
			CoreURL:   "http://localhost:8081",
			VisionURL: "http://localhost:8000",
			Timeout:   "10s",
		},
		Session: SessionConfig{
			DBPath:     defaultDBPath(),
			CookieName: "trafficeye_session",
			TTL:        "12h",
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  50,
			MaxBackups: 3,
		},
		Cache: CacheConfig{
			Size: 128,
			TTL:  "5m",
		},
		Chat: ChatConfig{
			RatePerMinute: 20,
			Burst:         5,
			History:       50,
		},
	}
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "trafficeye.db"
	}
	return filepath.Join(home, ".local", "share", "trafficeye", "sessions.db")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "trafficeye.toml"
	}
	return filepath.Join(home, ".config", "trafficeye", "config.toml")
}

// Load loads configuration from the default path.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigPath())
}

// LoadFrom loads configuration from the specified path.
// It starts with defaults, overlays file config if it exists, then applies env overrides.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	if err := loadFromFile(path, cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	cfg.Session.DBPath = expandPath(cfg.Session.DBPath)
	cfg.Log.File = expandPath(cfg.Log.File)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // File doesn't exist, use defaults
		}
		return fmt.Errorf("reading config file: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	return nil
}

// applyEnvOverrides applies TRAFFICEYE_* environment variables.
// Environment variables take precedence over file config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TRAFFICEYE_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("TRAFFICEYE_DEMO"); v != "" {
		cfg.Server.Demo = v == "1" || strings.EqualFold(v, "true")
	}

	if v := os.Getenv("TRAFFICEYE_AUTH_URL"); v != "" {
		cfg.Services.AuthURL = v
	}
	if v := os.Getenv("TRAFFICEYE_CORE_URL"); v != "" {
		cfg.Services.CoreURL = v
	}
	if v := os.Getenv("TRAFFICEYE_VISION_URL"); v != "" {
		cfg.Services.VisionURL = v
	}
	if v := os.Getenv("TRAFFICEYE_TIMEOUT"); v != "" {
		cfg.Services.Timeout = v
	}

	if v := os.Getenv("TRAFFICEYE_SESSION_DB"); v != "" {
		cfg.Session.DBPath = v
	}
	if v := os.Getenv("TRAFFICEYE_JWT_SECRET"); v != "" {
		cfg.Session.JWTSecret = v
	}

	if v := os.Getenv("TRAFFICEYE_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("TRAFFICEYE_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("TRAFFICEYE_LOG_FILE"); v != "" {
		cfg.Log.File = v
	}

	if v := os.Getenv("TRAFFICEYE_CHAT_RATE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Chat.RatePerMinute = n
		}
	}
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server addr must be set")
	}
	for name, raw := range map[string]string{
		"auth_url":   c.Services.AuthURL,
		"core_url":   c.Services.CoreURL,
		"vision_url": c.Services.VisionURL,
	} {
		if err := validateBaseURL(raw, name); err != nil {
			return err
		}
	}
	if err := validateDuration(c.Services.Timeout, "services.timeout"); err != nil {
		return err
	}
	if err := validateDuration(c.Session.TTL, "session.ttl"); err != nil {
		return err
	}
	if err := validateDuration(c.Cache.TTL, "cache.ttl"); err != nil {
		return err
	}
	if c.Session.DBPath == "" {
		return errors.New("session db_path must be set")
	}
	if c.Session.CookieName == "" {
		return errors.New("session cookie_name must be set")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format: %s", c.Log.Format)
	}
	if c.Cache.Size <= 0 {
		return errors.New("cache size must be positive")
	}
	if c.Chat.RatePerMinute <= 0 || c.Chat.Burst <= 0 {
		return errors.New("chat rate_per_minute and burst must be positive")
	}
	if c.Chat.History <= 0 {
		return errors.New("chat history must be positive")
	}
	return nil
}

func validateBaseURL(raw, field string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s must be an absolute URL, got %q", field, raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must use http or https, got %q", field, raw)
	}
	return nil
}

func validateDuration(raw, field string) error {
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("%s must be a duration like \"10s\", got %q", field, raw)
	}
	if d <= 0 {
		return fmt.Errorf("%s must be positive", field)
	}
	return nil
}

// TimeoutDuration returns the backend request timeout.
func (s ServicesConfig) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(s.Timeout)
	return d
}

// TTLDuration returns the session lifetime.
func (s SessionConfig) TTLDuration() time.Duration {
	d, _ := time.ParseDuration(s.TTL)
	return d
}

// TTLDuration returns the cache entry lifetime.
func (c CacheConfig) TTLDuration() time.Duration {
	d, _ := time.ParseDuration(c.TTL)
	return d
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
