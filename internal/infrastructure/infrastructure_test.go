package infrastructure_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/JaimeStill/affwiki/internal/config"
	"github.com/JaimeStill/affwiki/internal/infrastructure"
	"github.com/JaimeStill/affwiki/pkg/database"
	"github.com/JaimeStill/affwiki/pkg/storage"
)

const azuriteConnString = "DefaultEndpointsProtocol=http;AccountName=devstoreaccount1;AccountKey=Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw==;BlobEndpoint=http://127.0.0.1:10000/devstoreaccount1;"

func validConfig() *config.Config {
	return &config.Config{
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
		Storage: storage.Config{
			ContainerName:    "snapshots",
			ConnectionString: azuriteConnString,
			TryTimeout:       "30s",
		},
		Version:  "0.1.0",
		LogLevel: "warn",
	}
}

func TestNewStorageDisabled(t *testing.T) {
	infra, err := infrastructure.New(validConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer infra.Close()

	if infra.Lifecycle == nil || infra.Logger == nil || infra.Database == nil {
		t.Fatalf("infrastructure = %+v", infra)
	}
	if infra.Storage != nil {
		t.Error("Storage should be nil when disabled")
	}
	if err := infra.Start(); err != nil {
		t.Errorf("Start() error = %v", err)
	}
}

func TestNewStorageEnabled(t *testing.T) {
	cfg := validConfig()
	cfg.Storage.Enabled = true

	infra, err := infrastructure.New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer infra.Close()

	if infra.Storage == nil {
		t.Error("Storage is nil")
	}
}

func TestNewInvalidStorageConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Storage.Enabled = true
	cfg.Storage.ConnectionString = "not-a-connection-string"

	if _, err := infrastructure.New(cfg); err == nil {
		t.Fatal("expected error for invalid storage connection string")
	}
}

func TestScoped(t *testing.T) {
	infra, err := infrastructure.New(validConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer infra.Close()

	scoped := infra.Scoped("module", "api")
	if scoped == infra {
		t.Fatal("Scoped returned the same pointer")
	}
	if scoped.Logger == infra.Logger {
		t.Error("scoped logger not derived")
	}
	if scoped.Database != infra.Database || scoped.Lifecycle != infra.Lifecycle {
		t.Error("scoped copy does not share systems")
	}
	if infra.Logger.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info enabled at warn level")
	}
}
