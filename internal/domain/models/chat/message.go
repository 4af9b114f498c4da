package chat

// Block types for message content
const (
	BlockTypeText       = "text"
	BlockTypeToolUse    = "tool_use"
	BlockTypeToolResult = "tool_result"
)

// Block is one content block inside a message: plain text, a tool
// invocation, or a tool result. Exactly one of the type-specific field
// sets is populated, selected by BlockType.
type Block struct {
	BlockType   string
	TextContent *string

	// tool_use fields
	ToolUseID string
	ToolName  string
	ToolInput map[string]interface{}

	// tool_result fields
	ResultForID string
	Result      string
}

// Message is one turn-contribution in the conversation fed to the
// generation backend. Ordering is significant: the message slice is the
// literal context window.
//
// Invariant: a tool_use block is always followed, later in the sequence,
// by exactly one tool_result block referencing the same ToolUseID.
type Message struct {
	Role    string // "user" or "assistant"
	Content []*Block
}

// NewTextMessage creates a single-block text message.
func NewTextMessage(role, text string) *Message {
	return &Message{
		Role:    role,
		Content: []*Block{{BlockType: BlockTypeText, TextContent: &text}},
	}
}

// NewToolUseMessage creates the assistant message recording a resolved
// tool invocation.
func NewToolUseMessage(toolUseID, toolName, query string) *Message {
	return &Message{
		Role: "assistant",
		Content: []*Block{{
			BlockType: BlockTypeToolUse,
			ToolUseID: toolUseID,
			ToolName:  toolName,
			ToolInput: map[string]interface{}{"query": query},
		}},
	}
}

// NewToolResultMessage creates the user message carrying the retrieval
// result back to the backend.
func NewToolResultMessage(toolUseID, content string) *Message {
	return &Message{
		Role: "user",
		Content: []*Block{{
			BlockType:   BlockTypeToolResult,
			ResultForID: toolUseID,
			Result:      content,
		}},
	}
}
