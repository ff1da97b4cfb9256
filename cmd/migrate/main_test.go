package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/golang-migrate/migrate/v4"
)

var errOffline = errors.New("offline")

func TestMigrateCommands(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		wantErr   string
		wantOpens int
		wantDSN   string
	}{
		{"up opens", []string{"up", "--dsn", "postgres://x@h/db"}, "offline", 1, "postgres://x@h/db"},
		{"steps negative", []string{"steps", "--dsn", "postgres://x@h/db", "--", "-1"}, "offline", 1, "postgres://x@h/db"},
		{"steps not a number", []string{"steps", "two", "--dsn", "postgres://x@h/db"}, "invalid number", 0, ""},
		{"force missing version", []string{"force", "--dsn", "postgres://x@h/db"}, "accepts 1 arg", 0, ""},
		{"version takes no args", []string{"version", "3"}, "unknown command", 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opens := 0
			var dsn string
			root := newRootCmd(func(d string) (*migrate.Migrate, error) {
				opens++
				dsn = d
				return nil, errOffline
			})
			root.SetArgs(tt.args)
			root.SetOut(&bytes.Buffer{})

			err := root.Execute()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("err = %v, want %q", err, tt.wantErr)
			}
			if opens != tt.wantOpens {
				t.Errorf("opens = %d, want %d", opens, tt.wantOpens)
			}
			if dsn != tt.wantDSN {
				t.Errorf("dsn = %q, want %q", dsn, tt.wantDSN)
			}
		})
	}
}
