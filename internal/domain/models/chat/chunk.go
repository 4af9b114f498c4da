package chat

// ChunkKind tags one normalized unit of incremental generation output.
type ChunkKind string

const (
	// ChunkText carries a text fragment of the assistant answer.
	ChunkText ChunkKind = "text"
	// ChunkToolStart announces a new tool invocation (name + id).
	ChunkToolStart ChunkKind = "tool_start"
	// ChunkToolInput carries a partial-JSON fragment of the pending
	// invocation's argument. Same payload shape as ChunkText; the
	// orchestrator routes it by its own state, not by this tag alone.
	ChunkToolInput ChunkKind = "tool_input"
	// ChunkStop carries the provider's stop reason.
	ChunkStop ChunkKind = "stop"
)

// StopReasonToolUse is the stop reason signalling that the backend wants
// a tool executed before it can continue.
const StopReasonToolUse = "tool_use"

// StreamChunk is one parsed provider event. Any provider adapter must
// produce this closed variant, isolating the orchestrator from
// wire-format churn.
type StreamChunk struct {
	Kind       ChunkKind
	Text       string // ChunkText / ChunkToolInput fragment
	ToolName   string // ChunkToolStart
	ToolID     string // ChunkToolStart
	StopReason string // ChunkStop

	// Err reports a stream-level failure; the chunk carries no other
	// payload when set and the stream ends after it.
	Err error
}
