// Package testdb opens a migrated Postgres database for integration tests.
package testdb

import (
	"context"
	"database/sql"
	"os"
	"testing"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/JaimeStill/affwiki/internal/schema"
)

// EnvDSN names the variable holding a postgres:// URL for integration tests.
const EnvDSN = "AFFWIKI_TEST_DATABASE_DSN"

const truncateAll = `
	TRUNCATE approval_log, proposals, agent_keys, verification_runs, link_rules,
	         program_research_history, program_research, programs,
	         categories, cpa_network_research, cpa_networks
	RESTART IDENTITY CASCADE`

// Open skips the test unless EnvDSN is set, applies migrations, and
// returns a connection to a freshly truncated database.
func Open(t *testing.T) *sql.DB {
	t.Helper()

	dsn := os.Getenv(EnvDSN)
	if dsn == "" {
		t.Skipf("%s not set", EnvDSN)
	}

	if err := schema.Up(dsn); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.ExecContext(context.Background(), truncateAll); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return db
}

// SeedProgram inserts a program with its research document and returns the id.
func SeedProgram(t *testing.T, db *sql.DB, name, domain, signupURL, extracted string) int64 {
	t.Helper()
	ctx := context.Background()

	var id int64
	err := db.QueryRowContext(ctx,
		"INSERT INTO programs (name, domain, signup_url) VALUES ($1, $2, $3) RETURNING id",
		name, domain, signupURL,
	).Scan(&id)
	if err != nil {
		t.Fatalf("seed program: %v", err)
	}

	if _, err := db.ExecContext(ctx,
		"INSERT INTO program_research (program_id, extracted) VALUES ($1, $2::jsonb)",
		id, extracted,
	); err != nil {
		t.Fatalf("seed program research: %v", err)
	}
	return id
}

// SeedKey inserts an enabled agent key with the given role.
func SeedKey(t *testing.T, db *sql.DB, key, role string) {
	t.Helper()
	if _, err := db.ExecContext(context.Background(),
		"INSERT INTO agent_keys (id, name, agent_type) VALUES ($1, $2, $3)",
		key, role+"-agent", role,
	); err != nil {
		t.Fatalf("seed key: %v", err)
	}
}
