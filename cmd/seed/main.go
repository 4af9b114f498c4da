package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"

	"pathway/internal/config"
	chatModels "pathway/internal/domain/models/chat"
	"pathway/internal/repository/postgres"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	// Parse command-line flags
	dropTables := flag.Bool("drop-tables", false, "Drop the sessions table before setup (fresh start)")
	schemaOnly := flag.Bool("schema-only", false, "Only set up schema, don't seed a demo session")
	flag.Parse()

	// Load .env file
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// SAFETY: Prevent destructive operations in production
	if cfg.Environment == "prod" && *dropTables {
		log.Fatalf("🚫 BLOCKED: Cannot run --drop-tables in production environment")
	}

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	if *schemaOnly {
		log.Printf("🏗️  Setting up schema only (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)
	} else {
		log.Printf("🌱 Seeding database (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)
	}

	// Create database connection pool
	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	// Create table names
	tables := postgres.NewTableNames(cfg.TablePrefix)

	// Drop tables if requested
	if *dropTables {
		log.Println("🗑️  Dropping sessions table...")
		if _, err := pool.Exec(ctx, "DROP TABLE IF EXISTS "+tables.Sessions+" CASCADE"); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		log.Println("✅ Tables dropped")
	}

	// Run schema to ensure tables exist
	log.Println("📋 Ensuring database schema is up to date...")
	if err := runSchema(ctx, pool, tables, cfg.TablePrefix); err != nil {
		log.Fatalf("Failed to run schema: %v", err)
	}
	log.Println("✅ Schema ready")

	if *schemaOnly {
		log.Println("✅ Schema setup complete (schema-only mode)")
		return
	}

	// Seed one demo session so a fresh environment has history to load
	sessions := postgres.NewSessionRepository(&postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	})

	sessionID := uuid.NewString()
	entry := chatModels.Entry{
		User:     "What housing options are available for first-year students?",
		Chatbot:  "First-year students live in the north campus residence halls. Housing applications open in March.",
		Metadata: `[{"title":"housing.pdf (Knowledge Base)","uri":"s3://docs/housing.pdf"}]`,
	}
	if err := sessions.AddSession(ctx, "demo-user", sessionID, entry, "Housing Options", "en"); err != nil {
		log.Fatalf("Failed to seed demo session: %v", err)
	}
	log.Printf("✅ Created demo session (user: demo-user, session: %s)", sessionID)

	log.Println("🎉 Seeding complete!")
}

// runSchema creates the sessions table if it doesn't exist.
func runSchema(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames, tablePrefix string) error {
	for _, stmt := range schemaStatements(tables, tablePrefix) {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// schemaStatements returns the DDL for the session store. The composite
// primary key backs the duplicate-key fallback in AddSession.
func schemaStatements(tables *postgres.TableNames, tablePrefix string) []string {
	createSessions := `
		CREATE TABLE IF NOT EXISTS ` + tables.Sessions + ` (
			user_id TEXT NOT NULL,
			session_id UUID NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			language_code TEXT NOT NULL DEFAULT '',
			chat_history JSONB NOT NULL DEFAULT '[]'::jsonb,
			created_at TIMESTAMPTZ DEFAULT NOW(),
			updated_at TIMESTAMPTZ DEFAULT NOW(),
			PRIMARY KEY (user_id, session_id)
		)
	`

	// Recency listing per user (session pickers sort by last activity)
	indexSQL := `CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `sessions_user_updated ON ` +
		tables.Sessions + `(user_id, updated_at DESC)`

	return []string{createSessions, indexSQL}
}
