package main

import (
	"strings"
	"testing"

	"pathway/internal/repository/postgres"
)

func TestSchemaStatements(t *testing.T) {
	tables := postgres.NewTableNames("test_")
	statements := schemaStatements(tables, "test_")

	if len(statements) == 0 {
		t.Fatal("no schema statements produced")
	}

	ddl := strings.Join(statements, "\n")

	for _, want := range []string{
		"CREATE TABLE IF NOT EXISTS test_sessions",
		"PRIMARY KEY (user_id, session_id)",
		"chat_history JSONB NOT NULL DEFAULT '[]'::jsonb",
		"language_code TEXT",
		"title TEXT",
		"updated_at TIMESTAMPTZ",
		"idx_test_sessions_user_updated",
	} {
		if !strings.Contains(ddl, want) {
			t.Errorf("schema missing %q", want)
		}
	}
}
