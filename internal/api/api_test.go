package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JaimeStill/affwiki/internal/api"
	"github.com/JaimeStill/affwiki/internal/config"
	"github.com/JaimeStill/affwiki/internal/infrastructure"
	"github.com/JaimeStill/affwiki/pkg/database"
	"github.com/JaimeStill/affwiki/pkg/module"
	"github.com/JaimeStill/affwiki/pkg/pagination"
)

func validConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     "1m",
			WriteTimeout:    "15m",
			ShutdownTimeout: "30s",
		},
		Database: database.Config{
			Host:            "localhost",
			Port:            5432,
			Name:            "affwiki",
			User:            "affwiki",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: "15m",
			ConnTimeout:     "5s",
		},
		API: config.APIConfig{
			BasePath:    "/api",
			MaxBodySize: "1MB",
			Pagination:  pagination.Config{DefaultLimit: 50, MaxLimit: 200},
		},
		Editorial: config.EditorialConfig{URLTimeout: "10s", VerifyWorkers: 4},
		Patrol: config.PatrolConfig{
			Interval:  "6h",
			BatchSize: 100,
			Workers:   10,
			StaleDays: 30,
		},
		LinkRules:       config.LinkRulesConfig{CacheTTL: "5m"},
		ShutdownTimeout: "30s",
		Version:         "0.1.0",
	}
}

func setupInfra(t *testing.T, cfg *config.Config) *infrastructure.Infrastructure {
	t.Helper()
	infra, err := infrastructure.New(cfg)
	if err != nil {
		t.Fatalf("infrastructure.New() error = %v", err)
	}
	t.Cleanup(func() { infra.Close() })
	return infra
}

func TestNewModule(t *testing.T) {
	cfg := validConfig()
	m, err := api.NewModule(cfg, setupInfra(t, cfg))
	if err != nil {
		t.Fatalf("NewModule() error = %v", err)
	}
	if m.Prefix() != "/api" {
		t.Errorf("prefix = %s, want /api", m.Prefix())
	}

	router := module.NewRouter()
	router.Mount(m)

	tests := []struct {
		name string
		path string
		want int
	}{
		{"stats requires key", "/api/editorial/stats", http.StatusUnauthorized},
		{"proposals require key", "/api/editorial/proposals", http.StatusUnauthorized},
		{"rewrite requires url", "/api/editorial/link-rules/rewrite", http.StatusBadRequest},
		{"unknown route", "/api/editorial/unknown", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest("GET", tt.path, nil))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestNewDomainPatrol(t *testing.T) {
	cfg := validConfig()
	infra := setupInfra(t, cfg)

	domain, err := api.NewDomain(context.Background(), api.NewRuntime(cfg, infra))
	if err != nil {
		t.Fatalf("NewDomain() error = %v", err)
	}
	if domain.Patrol != nil {
		t.Error("patrol built while disabled")
	}
	if domain.Guard == nil || domain.Rewriter == nil || domain.Evidence == nil {
		t.Errorf("domain = %+v", domain)
	}

	cfg.Patrol.Enabled = true
	cfg.Patrol.Key = "ak_patrol"
	domain, err = api.NewDomain(context.Background(), api.NewRuntime(cfg, infra))
	if err != nil {
		t.Fatalf("NewDomain() error = %v", err)
	}
	if domain.Patrol == nil {
		t.Error("patrol not built while enabled")
	}
}
