package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"pathway/internal/domain"
	chatModels "pathway/internal/domain/models/chat"
	"pathway/internal/domain/repositories"
)

// PostgresSessionRepository implements the SessionRepository interface
// using PostgreSQL. Chat history is stored as a JSONB array of entries;
// appends use the JSONB concat operator so they stay a single statement.
type PostgresSessionRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewSessionRepository creates a new PostgresSessionRepository
func NewSessionRepository(config *RepositoryConfig) repositories.SessionRepository {
	return &PostgresSessionRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// GetSession retrieves a session; a missing row yields an empty session,
// not an error. An error here means the store itself is unreachable.
func (r *PostgresSessionRepository) GetSession(ctx context.Context, userID, sessionID string) (*chatModels.Session, error) {
	query := fmt.Sprintf(`
		SELECT title, language_code, chat_history
		FROM %s
		WHERE user_id = $1 AND session_id = $2
	`, r.tables.Sessions)

	var (
		title        string
		languageCode string
		historyJSON  []byte
	)
	err := r.pool.QueryRow(ctx, query, userID, sessionID).Scan(&title, &languageCode, &historyJSON)
	if err != nil {
		if IsPgNoRowsError(err) {
			return &chatModels.Session{}, nil
		}
		return nil, fmt.Errorf("get session %s/%s: %w", userID, sessionID, domain.ErrSessionStore)
	}

	var history []chatModels.Entry
	if len(historyJSON) > 0 {
		if err := json.Unmarshal(historyJSON, &history); err != nil {
			return nil, fmt.Errorf("decode chat history %s/%s: %w", userID, sessionID, err)
		}
	}

	return &chatModels.Session{
		History:      history,
		Title:        title,
		LanguageCode: languageCode,
	}, nil
}

// AddSession creates a new session with its first entry and title.
func (r *PostgresSessionRepository) AddSession(ctx context.Context, userID, sessionID string, entry chatModels.Entry, title, languageCode string) error {
	historyJSON, err := json.Marshal([]chatModels.Entry{entry})
	if err != nil {
		return fmt.Errorf("encode chat history: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (user_id, session_id, title, language_code, chat_history, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
	`, r.tables.Sessions)

	now := time.Now()
	if _, err := r.pool.Exec(ctx, query, userID, sessionID, title, languageCode, historyJSON, now); err != nil {
		if IsPgDuplicateError(err) {
			// Concurrent first turns for the same key: fall back to append,
			// last-write-wins is the accepted store semantics.
			return r.UpdateSession(ctx, userID, sessionID, entry, languageCode)
		}
		return fmt.Errorf("add session %s/%s: %w", userID, sessionID, domain.ErrSessionStore)
	}

	r.logger.Info("session created",
		"user_id", userID,
		"session_id", sessionID,
	)

	return nil
}

// UpdateSession appends one entry to an existing session's history.
func (r *PostgresSessionRepository) UpdateSession(ctx context.Context, userID, sessionID string, entry chatModels.Entry, languageCode string) error {
	entryJSON, err := json.Marshal([]chatModels.Entry{entry})
	if err != nil {
		return fmt.Errorf("encode chat entry: %w", err)
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET chat_history = chat_history || $3::jsonb,
		    language_code = CASE WHEN $4 = '' THEN language_code ELSE $4 END,
		    updated_at = $5
		WHERE user_id = $1 AND session_id = $2
	`, r.tables.Sessions)

	tag, err := r.pool.Exec(ctx, query, userID, sessionID, entryJSON, languageCode, time.Now())
	if err != nil {
		return fmt.Errorf("update session %s/%s: %w", userID, sessionID, domain.ErrSessionStore)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("session %s/%s: %w", userID, sessionID, domain.ErrNotFound)
	}

	return nil
}
