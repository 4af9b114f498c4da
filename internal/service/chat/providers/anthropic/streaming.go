package anthropic

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	chatModels "pathway/internal/domain/models/chat"
	domainchat "pathway/internal/domain/services/chat"
)

// Stream opens one generation stream against the Messages API and
// returns a channel of normalized chunks as deltas arrive.
func (p *Provider) Stream(ctx context.Context, req *domainchat.StreamRequest) (<-chan chatModels.StreamChunk, error) {
	messages, err := convertMessages(req.Messages)
	if err != nil {
		return nil, fmt.Errorf("failed to convert messages: %w", err)
	}

	apiParams := anthropic.MessageNewParams{
		Model:       anthropic.Model(p.model),
		Messages:    messages,
		MaxTokens:   int64(req.MaxTokens),
		Temperature: anthropic.Float(0.01),
	}

	if req.System != "" {
		apiParams.System = []anthropic.TextBlockParam{
			{
				Type: "text",
				Text: req.System,
			},
		}
	}

	if req.EnableRetrieval {
		apiParams.Tools = []anthropic.ToolUnionParam{retrievalTool()}
	}

	// Buffered to keep the SDK reader ahead of slow consumers
	chunkChan := make(chan chatModels.StreamChunk, 10)

	go func() {
		defer close(chunkChan)

		stream := p.client.Messages.NewStreaming(ctx, apiParams)

		for stream.Next() {
			event := stream.Current()

			chunk := ParseEvent(event)
			if chunk == nil {
				continue
			}

			select {
			case <-ctx.Done():
				chunkChan <- chatModels.StreamChunk{Err: ctx.Err()}
				return
			case chunkChan <- *chunk:
			}
		}

		if err := stream.Err(); err != nil {
			chunkChan <- chatModels.StreamChunk{Err: fmt.Errorf("anthropic streaming error: %w", err)}
		}
	}()

	return chunkChan, nil
}

// ParseEvent normalizes one raw provider event into a StreamChunk, or
// nil when the event carries nothing actionable. The function is
// stateless and safe to call from multiple concurrent streams; calling
// it twice on the same event yields identical output.
//
// Recognized shapes:
//   - content_block_delta / text_delta        -> ChunkText
//   - content_block_delta / input_json_delta  -> ChunkToolInput
//   - content_block_start / tool_use          -> ChunkToolStart
//   - message_delta with a stop reason        -> ChunkStop
func ParseEvent(event anthropic.MessageStreamEventUnion) *chatModels.StreamChunk {
	switch e := event.AsAny().(type) {
	case anthropic.ContentBlockDeltaEvent:
		switch e.Delta.Type {
		case "text_delta":
			return &chatModels.StreamChunk{
				Kind: chatModels.ChunkText,
				Text: e.Delta.Text,
			}
		case "input_json_delta":
			return &chatModels.StreamChunk{
				Kind: chatModels.ChunkToolInput,
				Text: e.Delta.PartialJSON,
			}
		}
		return nil

	case anthropic.ContentBlockStartEvent:
		if e.ContentBlock.Type == "tool_use" {
			return &chatModels.StreamChunk{
				Kind:     chatModels.ChunkToolStart,
				ToolName: e.ContentBlock.Name,
				ToolID:   e.ContentBlock.ID,
			}
		}
		return nil

	case anthropic.MessageDeltaEvent:
		if e.Delta.StopReason != "" {
			return &chatModels.StreamChunk{
				Kind:       chatModels.ChunkStop,
				StopReason: string(e.Delta.StopReason),
			}
		}
		return nil

	default:
		// message_start, content_block_stop, message_stop, ping: nothing
		// actionable for the orchestrator.
		return nil
	}
}

// convertMessages converts domain messages to Anthropic SDK format.
func convertMessages(messages []*chatModels.Message) ([]anthropic.MessageParam, error) {
	result := make([]anthropic.MessageParam, 0, len(messages))

	for i, msg := range messages {
		blocks := make([]anthropic.ContentBlockParamUnion, 0, len(msg.Content))

		for _, block := range msg.Content {
			switch block.BlockType {
			case chatModels.BlockTypeText:
				if block.TextContent == nil {
					return nil, fmt.Errorf("message %d: text block missing text content", i)
				}
				blocks = append(blocks, anthropic.NewTextBlock(*block.TextContent))

			case chatModels.BlockTypeToolUse:
				blocks = append(blocks, anthropic.ContentBlockParamUnion{
					OfToolUse: &anthropic.ToolUseBlockParam{
						ID:    block.ToolUseID,
						Name:  block.ToolName,
						Input: block.ToolInput,
					},
				})

			case chatModels.BlockTypeToolResult:
				blocks = append(blocks, anthropic.ContentBlockParamUnion{
					OfToolResult: &anthropic.ToolResultBlockParam{
						ToolUseID: block.ResultForID,
						Content: []anthropic.ToolResultBlockParamContentUnion{
							{OfText: &anthropic.TextBlockParam{Text: block.Result}},
						},
					},
				})

			default:
				return nil, fmt.Errorf("message %d: unsupported block type '%s'", i, block.BlockType)
			}
		}

		var message anthropic.MessageParam
		switch msg.Role {
		case "user":
			message = anthropic.NewUserMessage(blocks...)
		case "assistant":
			message = anthropic.NewAssistantMessage(blocks...)
		default:
			return nil, fmt.Errorf("message %d: unsupported role '%s'", i, msg.Role)
		}

		result = append(result, message)
	}

	return result, nil
}
