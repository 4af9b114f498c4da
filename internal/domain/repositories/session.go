package repositories

import (
	"context"

	chatModels "pathway/internal/domain/models/chat"
)

// SessionRepository persists chat sessions keyed by (user id, session id).
//
// Concurrent turns for the same key are not coordinated here: the store
// is last-write-wins.
type SessionRepository interface {
	// GetSession returns the stored session, or a zero-value session
	// (empty history) when none exists. An error means the store itself
	// is unreachable.
	GetSession(ctx context.Context, userID, sessionID string) (*chatModels.Session, error)

	// AddSession creates a new session with its first entry and title.
	AddSession(ctx context.Context, userID, sessionID string, entry chatModels.Entry, title, languageCode string) error

	// UpdateSession appends one entry to an existing session.
	UpdateSession(ctx context.Context, userID, sessionID string, entry chatModels.Entry, languageCode string) error
}
