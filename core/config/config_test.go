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

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
}

func TestLoadFromMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if cfg.Services.CoreURL != "http://localhost:8081" {
		t.Errorf("expected default core url, got %q", cfg.Services.CoreURL)
	}
	if cfg.Services.TimeoutDuration() != 10*time.Second {
		t.Errorf("expected 10s timeout, got %v", cfg.Services.TimeoutDuration())
	}
}

func TestLoadFromFileOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[server]
addr = "0.0.0.0:9000"

[services]
core_url = "https://core.example.com"
timeout = "3s"

[log]
level = "debug"
format = "json"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if cfg.Server.Addr != "0.0.0.0:9000" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
	if cfg.Services.CoreURL != "https://core.example.com" {
		t.Errorf("core_url = %q", cfg.Services.CoreURL)
	}
	// Untouched values keep their defaults
	if cfg.Services.AuthURL != "http://localhost:8080" {
		t.Errorf("auth_url = %q", cfg.Services.AuthURL)
	}
	if cfg.Services.TimeoutDuration() != 3*time.Second {
		t.Errorf("timeout = %v", cfg.Services.TimeoutDuration())
	}
	if cfg.Log.Format != "json" {
		t.Errorf("log format = %q", cfg.Log.Format)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("TRAFFICEYE_CORE_URL", "http://core.internal:8081")
	t.Setenv("TRAFFICEYE_DEMO", "true")

	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "none.toml"))
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if cfg.Services.CoreURL != "http://core.internal:8081" {
		t.Errorf("core_url = %q", cfg.Services.CoreURL)
	}
	if !cfg.Server.Demo {
		t.Error("expected demo mode from env")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"relative url", func(c *Config) { c.Services.AuthURL = "localhost:8080" }, "auth_url"},
		{"bad scheme", func(c *Config) { c.Services.VisionURL = "ftp://cams" }, "vision_url"},
		{"bad timeout", func(c *Config) { c.Services.Timeout = "soon" }, "services.timeout"},
		{"zero ttl", func(c *Config) { c.Session.TTL = "0s" }, "session.ttl"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log level"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log format"},
		{"empty cookie", func(c *Config) { c.Session.CookieName = "" }, "cookie_name"},
		{"zero chat rate", func(c *Config) { c.Chat.RatePerMinute = 0 }, "chat"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestSaveToRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := Default()
	cfg.Server.Title = "Ops"
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo failed: %v", err)
	}
	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if loaded.Server.Title != "Ops" {
		t.Errorf("title = %q", loaded.Server.Title)
	}
}
