package chat

import (
	"context"

	chatModels "pathway/internal/domain/models/chat"
)

// RetrievalResult is one scored passage returned by the retrieval
// backend, before confidence filtering.
type RetrievalResult struct {
	Content   string
	Score     float64
	SourceURI string
}

// KnowledgeBase is the vector/document retrieval backend, treated as a
// black box returning scored passages.
type KnowledgeBase interface {
	Retrieve(ctx context.Context, knowledgeBaseID, query string) ([]RetrievalResult, error)
}

// Translator is the language-identification and text-translation
// collaborator.
type Translator interface {
	DetectLanguage(ctx context.Context, text string) (string, error)
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}

// Relay delivers outgoing chunks to one open client connection. Sends
// are fire-and-forget from the orchestrator's perspective: delivery
// failures are logged by the implementation and never propagate into
// the orchestration loop. Close is idempotent.
type Relay interface {
	Send(payload string)
	SendEndOfStream()
	SendSources(citations []chatModels.Citation)
	Close()
}
