// Package infrastructure assembles the shared systems the HTTP service and
// the agent CLI both run on: logging, the Postgres pool and, when enabled,
// blob storage for link evidence.
package infrastructure

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/JaimeStill/affwiki/internal/config"
	"github.com/JaimeStill/affwiki/pkg/database"
	"github.com/JaimeStill/affwiki/pkg/lifecycle"
	"github.com/JaimeStill/affwiki/pkg/storage"
)

// Infrastructure is passed by pointer into every module. Storage is nil
// when evidence capture is disabled; callers check before use.
type Infrastructure struct {
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger
	Database  database.System
	Storage   storage.System
}

// New builds each system without connecting anything. The server calls
// Start to hook them into the lifecycle; short-lived callers such as the
// CLI skip Start and call Close when done.
func New(cfg *config.Config) (*Infrastructure, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.Level(),
	}))

	db, err := database.New(&cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}

	var store storage.System
	if cfg.Storage.Enabled {
		if store, err = storage.New(&cfg.Storage, logger); err != nil {
			db.Connection().Close()
			return nil, fmt.Errorf("init storage: %w", err)
		}
	}

	return &Infrastructure{
		Lifecycle: lifecycle.New(),
		Logger:    logger,
		Database:  db,
		Storage:   store,
	}, nil
}

// Scoped returns a shallow copy whose logger carries args. Systems are
// shared with the original.
func (i *Infrastructure) Scoped(args ...any) *Infrastructure {
	scoped := *i
	scoped.Logger = i.Logger.With(args...)
	return &scoped
}

func (i *Infrastructure) Start() error {
	if err := i.Database.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("start database: %w", err)
	}
	if i.Storage == nil {
		return nil
	}
	if err := i.Storage.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("start storage: %w", err)
	}
	return nil
}

// Close releases the connection pool for callers that never ran Start.
func (i *Infrastructure) Close() error {
	return i.Database.Connection().Close()
}
