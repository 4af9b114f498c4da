package chat

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"pathway/internal/config"
	chatModels "pathway/internal/domain/models/chat"
	"pathway/internal/domain/repositories"
	domainchat "pathway/internal/domain/services/chat"
)

// titleInstructions prompts the compact completion that names a brand
// new session after its first round.
const titleInstructions = "Generate a concise title for this chat session based on the initial " +
	"user prompt and response. The title should succinctly capture the essence of the chat's " +
	"main topic without adding extra content."

// Finalizer persists a completed round. All of its failures are
// terminal for the write only: they are logged and never surface back
// to the client, whose turn already finished.
type Finalizer struct {
	sessions  repositories.SessionRepository
	generator domainchat.Generator
	logger    *slog.Logger
}

// NewFinalizer creates a session finalizer.
func NewFinalizer(sessions repositories.SessionRepository, generator domainchat.Generator, logger *slog.Logger) *Finalizer {
	return &Finalizer{
		sessions:  sessions,
		generator: generator,
		logger:    logger,
	}
}

// Finalize records one finished round. A session with no stored history
// is created with a freshly synthesized title; an existing session gets
// the round appended. The entry carries the user's message in their
// original language and the citation list as metadata.
func (f *Finalizer) Finalize(
	ctx context.Context,
	userID, sessionID string,
	userMessage, answer string,
	citations []chatModels.Citation,
	languageCode string,
) {
	session, err := f.sessions.GetSession(ctx, userID, sessionID)
	if err != nil {
		f.logger.Error("failed to load session before persisting round",
			"user_id", userID,
			"session_id", sessionID,
			"error", err,
		)
		return
	}

	entry := chatModels.Entry{
		User:     userMessage,
		Chatbot:  answer,
		Metadata: marshalCitations(citations, f.logger),
	}

	if len(session.History) == 0 {
		title := f.synthesizeTitle(ctx, userMessage, answer)
		if err := f.sessions.AddSession(ctx, userID, sessionID, entry, title, languageCode); err != nil {
			f.logger.Error("failed to create session",
				"user_id", userID,
				"session_id", sessionID,
				"error", err,
			)
		}
		return
	}

	if err := f.sessions.UpdateSession(ctx, userID, sessionID, entry, languageCode); err != nil {
		f.logger.Error("failed to append to session",
			"user_id", userID,
			"session_id", sessionID,
			"error", err,
		)
	}
}

// synthesizeTitle asks the generation backend for a short session title.
// Failures degrade to an empty title rather than blocking persistence.
func (f *Finalizer) synthesizeTitle(ctx context.Context, userMessage, answer string) string {
	prompt := titleInstructions + "\n\n" +
		"User: " + userMessage + "\n" +
		"Assistant: " + answer + "\n\n" +
		"Here's your session title:"

	title, err := f.generator.Complete(ctx, &domainchat.CompleteRequest{
		Prompt:    prompt,
		MaxTokens: config.TitleMaxTokens,
	})
	if err != nil {
		f.logger.Warn("title synthesis failed", "error", err)
		return ""
	}

	return strings.TrimSpace(strings.ReplaceAll(title, `"`, ""))
}

// marshalCitations encodes the citation list for the entry's metadata
// column. An empty list still produces a JSON array.
func marshalCitations(citations []chatModels.Citation, logger *slog.Logger) string {
	if citations == nil {
		citations = []chatModels.Citation{}
	}
	raw, err := json.Marshal(citations)
	if err != nil {
		logger.Error("failed to marshal citations", "error", err)
		return "[]"
	}
	return string(raw)
}
