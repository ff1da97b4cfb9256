package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/JaimeStill/affwiki/internal/config"
)

const baseConfig = `
shutdown_timeout = "30s"
version = "0.1.0"

[server]
port = 8080

[database]
host = "localhost"
name = "affwiki"
user = "affwiki"

[api]
max_body_size = "2MB"

[api.pagination]
default_limit = 25
max_limit = 100

[editorial]
strict_publish = true
url_timeout = "5s"

[patrol]
interval = "1h"
stale_days = 14

[linkrules]
cache_ttl = "1m"

[agent]
name = "researcher"

[agent.provider]
name = "ollama"

[agent.model]
name = "llama3.1:8b"
`

const overlayConfig = `
[server]
port = 9090

[database]
host = "prodhost"

[patrol]
enabled = true
key = "ak_patrol"
`

func writeConfig(t *testing.T, dir, filename, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, filename), []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", filename, err)
	}
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	orig, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { os.Chdir(orig) })
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.toml", baseConfig)
	chdir(t, dir)

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("server port: got %d, want 8080", cfg.Server.Port)
	}
	if cfg.API.BasePath != "/api" {
		t.Errorf("api base_path: got %s, want /api", cfg.API.BasePath)
	}
	if cfg.API.MaxBodySizeBytes() != 2<<20 {
		t.Errorf("max body: got %d", cfg.API.MaxBodySizeBytes())
	}
	if cfg.API.Pagination.DefaultLimit != 25 || cfg.API.Pagination.MaxLimit != 100 {
		t.Errorf("pagination: got %+v", cfg.API.Pagination)
	}
	if !cfg.Editorial.StrictPublish || cfg.Editorial.URLTimeoutDuration() != 5*time.Second {
		t.Errorf("editorial: got %+v", cfg.Editorial)
	}
	if cfg.Editorial.VerifyWorkers != 10 {
		t.Errorf("verify workers default: got %d, want 10", cfg.Editorial.VerifyWorkers)
	}
	if cfg.Patrol.Enabled || cfg.Patrol.IntervalDuration() != time.Hour || cfg.Patrol.StaleDays != 14 || cfg.Patrol.BatchSize != 100 {
		t.Errorf("patrol: got %+v", cfg.Patrol)
	}
	if cfg.LinkRules.CacheTTLDuration() != time.Minute {
		t.Errorf("cache ttl: got %s", cfg.LinkRules.CacheTTL)
	}
	if cfg.Auth.OIDC.Enabled() || cfg.Auth.OIDC.RolesClaim != "roles" {
		t.Errorf("auth: got %+v", cfg.Auth)
	}
	if cfg.Agent.Provider == nil || cfg.Agent.Provider.Name != "ollama" {
		t.Errorf("agent provider: got %+v", cfg.Agent.Provider)
	}
	if cfg.Agent.Model == nil || cfg.Agent.Model.Name != "llama3.1:8b" {
		t.Errorf("agent model: got %+v", cfg.Agent.Model)
	}
}

func TestLoadWithOverlay(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.toml", baseConfig)
	writeConfig(t, dir, "config.staging.toml", overlayConfig)
	chdir(t, dir)

	t.Setenv(config.EnvAffwikiEnv, "staging")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("server port: got %d, want 9090 (from overlay)", cfg.Server.Port)
	}
	if cfg.Database.Host != "prodhost" {
		t.Errorf("db host: got %s, want prodhost (from overlay)", cfg.Database.Host)
	}
	if cfg.Database.Name != "affwiki" {
		t.Errorf("db name: got %s, want affwiki (from base)", cfg.Database.Name)
	}
	if !cfg.Patrol.Enabled || cfg.Patrol.Key != "ak_patrol" || cfg.Patrol.StaleDays != 14 {
		t.Errorf("patrol: got %+v", cfg.Patrol)
	}
}

func TestLoadEnvVarOverrides(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.toml", baseConfig)
	chdir(t, dir)

	t.Setenv(config.EnvAffwikiVersion, "2.0.0")
	t.Setenv(config.EnvServerPort, "3000")
	t.Setenv(config.EnvEditorialVerifyWorkers, "4")
	t.Setenv(config.EnvPatrolEnabled, "true")
	t.Setenv(config.EnvPatrolKey, "ak_env")
	t.Setenv(config.EnvAuthIssuer, "https://login.example.com")
	t.Setenv(config.EnvAuthClientID, "affwiki")
	t.Setenv(config.EnvAffwikiLogLevel, "debug")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Version != "2.0.0" {
		t.Errorf("version: got %s, want 2.0.0", cfg.Version)
	}
	if cfg.Server.Port != 3000 {
		t.Errorf("server port: got %d, want 3000", cfg.Server.Port)
	}
	if cfg.Editorial.VerifyWorkers != 4 {
		t.Errorf("verify workers: got %d, want 4", cfg.Editorial.VerifyWorkers)
	}
	if !cfg.Patrol.Enabled || cfg.Patrol.Key != "ak_env" {
		t.Errorf("patrol: got %+v", cfg.Patrol)
	}
	if !cfg.Auth.OIDC.Enabled() || cfg.Auth.OIDC.ClientID != "affwiki" {
		t.Errorf("oidc: got %+v", cfg.Auth.OIDC)
	}
	if cfg.Level() != slog.LevelDebug {
		t.Errorf("log level: got %s, want DEBUG", cfg.Level())
	}
}

func TestLoadNoConfigFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	t.Setenv("AFFWIKI_DB_USER", "testuser")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load without config.toml failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("server port default: got %d, want 8080", cfg.Server.Port)
	}
	if cfg.Database.Name != "affwiki" {
		t.Errorf("db name default: got %s, want affwiki", cfg.Database.Name)
	}
	if cfg.Storage.Enabled {
		t.Error("storage enabled by default")
	}
	if cfg.Patrol.IntervalDuration() != 6*time.Hour || cfg.Patrol.Workers != 10 || cfg.Patrol.StaleDays != 30 {
		t.Errorf("patrol defaults: got %+v", cfg.Patrol)
	}
	if cfg.Server.Addr() != "0.0.0.0:8080" || cfg.Server.ReadHeaderTimeoutDuration() != 10*time.Second {
		t.Errorf("server defaults: got %+v", cfg.Server)
	}
	if cfg.Agent.Name != config.DefaultAgentName {
		t.Errorf("agent name default: got %q", cfg.Agent.Name)
	}
	if cfg.Level() != slog.LevelInfo {
		t.Errorf("log level default: got %s", cfg.Level())
	}
	if cfg.LinkRules.CacheTTLDuration() != 5*time.Minute {
		t.Errorf("cache ttl default: got %s", cfg.LinkRules.CacheTTL)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "patrol without key",
			env:     map[string]string{config.EnvPatrolEnabled: "true"},
			wantErr: "key required",
		},
		{
			name:    "oidc without client",
			env:     map[string]string{config.EnvAuthIssuer: "https://login.example.com"},
			wantErr: "client_id required",
		},
		{
			name:    "bad url timeout",
			env:     map[string]string{config.EnvEditorialURLTimeout: "soon"},
			wantErr: "invalid url_timeout",
		},
		{
			name:    "bad ttl",
			env:     map[string]string{config.EnvLinkRulesTTL: "forever"},
			wantErr: "invalid cache_ttl",
		},
		{
			name:    "bad port",
			env:     map[string]string{config.EnvServerPort: "70000"},
			wantErr: "invalid port",
		},
		{
			name:    "bad header timeout",
			env:     map[string]string{config.EnvServerReadHeaderTimeout: "quick"},
			wantErr: "invalid read_header_timeout",
		},
		{
			name:    "nested base path",
			env:     map[string]string{config.EnvAPIBasePath: "/api/v1"},
			wantErr: "invalid base_path",
		},
		{
			name:    "bad log level",
			env:     map[string]string{config.EnvAffwikiLogLevel: "chatty"},
			wantErr: "invalid log_level",
		},
		{
			name:    "storage without credentials",
			env:     map[string]string{"AFFWIKI_STORAGE_ENABLED": "true"},
			wantErr: "connection_string or account_url required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chdir(t, t.TempDir())
			t.Setenv("AFFWIKI_DB_USER", "testuser")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := config.Load()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}
