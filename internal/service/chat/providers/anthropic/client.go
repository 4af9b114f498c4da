package anthropic

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	domainchat "pathway/internal/domain/services/chat"
)

// RetrievalToolName is the tool the model calls to query the knowledge
// base. The orchestrator matches invocations by this name.
const RetrievalToolName = "query_db"

// Provider implements the Generator interface for Anthropic (Claude) models.
type Provider struct {
	client *anthropic.Client
	model  string
	// titleModel serves the cheap one-shot completions (session titles).
	titleModel string
}

// NewProvider creates a new Anthropic provider with the given API key.
func NewProvider(apiKey, model, titleModel string) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}
	if !strings.HasPrefix(model, "claude-") {
		return nil, fmt.Errorf("model '%s' is not supported by Anthropic provider", model)
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	return &Provider{
		client:     &client,
		model:      model,
		titleModel: titleModel,
	}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "anthropic"
}

// Complete issues a single blocking generation call and returns the
// concatenated text content.
func (p *Provider) Complete(ctx context.Context, req *domainchat.CompleteRequest) (string, error) {
	apiParams := anthropic.MessageNewParams{
		Model: anthropic.Model(p.titleModel),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
		MaxTokens: int64(req.MaxTokens),
	}

	if req.System != "" {
		apiParams.System = []anthropic.TextBlockParam{
			{
				Type: "text",
				Text: req.System,
			},
		}
	}

	message, err := p.client.Messages.New(ctx, apiParams)
	if err != nil {
		return "", fmt.Errorf("anthropic API call failed: %w", err)
	}

	var sb strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	return sb.String(), nil
}

// retrievalTool is the single tool definition exposed to the model when
// retrieval is enabled for a stream.
func retrievalTool() anthropic.ToolUnionParam {
	return anthropic.ToolUnionParam{
		OfTool: &anthropic.ToolParam{
			Name:        RetrievalToolName,
			Description: anthropic.String("Query a vector database for any information in your knowledge base. Try to use specific key words when possible."),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: map[string]interface{}{
					"query": map[string]interface{}{
						"type":        "string",
						"description": "The query you want to make to the vector database.",
					},
				},
				Required: []string{"query"},
			},
		},
	}
}
