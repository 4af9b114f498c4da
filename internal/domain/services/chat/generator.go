package chat

import (
	"context"

	chatModels "pathway/internal/domain/models/chat"
)

// StreamRequest describes one generation stream to open.
type StreamRequest struct {
	System    string
	Messages  []*chatModels.Message
	MaxTokens int

	// EnableRetrieval exposes the knowledge-retrieval tool to the model.
	// Disabled for secondary passes (conflict report) that must not
	// trigger further retrieval.
	EnableRetrieval bool
}

// CompleteRequest describes a one-shot, non-streamed generation call
// (title synthesis).
type CompleteRequest struct {
	System    string
	Prompt    string
	MaxTokens int
}

// Generator is the generation backend. An adapter for a concrete
// provider converts its wire events into the StreamChunk variant; the
// orchestrator never sees provider types.
type Generator interface {
	// Stream opens one generation stream and returns a channel of
	// normalized chunks. The channel is closed when the stream ends;
	// a stream-level failure is delivered as a final chunk with Err set.
	Stream(ctx context.Context, req *StreamRequest) (<-chan chatModels.StreamChunk, error)

	// Complete issues a single blocking generation call and returns the
	// concatenated text content.
	Complete(ctx context.Context, req *CompleteRequest) (string, error)
}
