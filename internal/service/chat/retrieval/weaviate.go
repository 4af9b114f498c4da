package retrieval

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	wvmodels "github.com/weaviate/weaviate/entities/models"

	domainchat "pathway/internal/domain/services/chat"
)

// passageFetchLimit is how many candidates one retrieval pulls before
// confidence filtering.
const passageFetchLimit = 10

// WeaviateKnowledgeBase implements the KnowledgeBase interface against a
// Weaviate instance. The knowledge base id is the Weaviate class name;
// certainty from nearText search is used as the confidence score.
type WeaviateKnowledgeBase struct {
	client *weaviate.Client
}

// NewWeaviateKnowledgeBase creates a knowledge base backed by Weaviate.
func NewWeaviateKnowledgeBase(scheme, host string) (*WeaviateKnowledgeBase, error) {
	client, err := weaviate.NewClient(weaviate.Config{
		Scheme: scheme,
		Host:   host,
	})
	if err != nil {
		return nil, fmt.Errorf("create weaviate client: %w", err)
	}

	return &WeaviateKnowledgeBase{client: client}, nil
}

// passageResponse mirrors the GraphQL response shape for passage queries.
// Weaviate returns the class results under Get.<ClassName>; the class
// name varies, so results are decoded per class below.
type passageResult struct {
	Content    string `json:"content"`
	SourceURI  string `json:"source_uri"`
	Additional struct {
		Certainty *float64 `json:"certainty"`
	} `json:"_additional"`
}

// Retrieve runs a nearText semantic search over the class named by
// knowledgeBaseID and returns scored passages.
func (w *WeaviateKnowledgeBase) Retrieve(ctx context.Context, knowledgeBaseID, query string) ([]domainchat.RetrievalResult, error) {
	nearText := w.client.GraphQL().NearTextArgBuilder().
		WithConcepts([]string{query})

	fields := []graphql.Field{
		{Name: "content"},
		{Name: "source_uri"},
		{Name: "_additional { certainty }"},
	}

	resp, err := w.client.GraphQL().Get().
		WithClassName(knowledgeBaseID).
		WithFields(fields...).
		WithNearText(nearText).
		WithLimit(passageFetchLimit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("semantic search: %w", err)
	}
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("search error: %s", resp.Errors[0].Message)
	}

	passages, err := parsePassages(resp, knowledgeBaseID)
	if err != nil {
		return nil, err
	}

	results := make([]domainchat.RetrievalResult, 0, len(passages))
	for _, p := range passages {
		var score float64
		if p.Additional.Certainty != nil {
			score = *p.Additional.Certainty
		}
		results = append(results, domainchat.RetrievalResult{
			Content:   p.Content,
			Score:     score,
			SourceURI: p.SourceURI,
		})
	}

	return results, nil
}

// parsePassages unwraps Get.<className> from the dynamic GraphQL
// response into typed results.
func parsePassages(resp *wvmodels.GraphQLResponse, className string) ([]passageResult, error) {
	raw, err := json.Marshal(resp.Data)
	if err != nil {
		return nil, fmt.Errorf("marshal graphql response: %w", err)
	}

	var envelope struct {
		Get map[string][]passageResult `json:"Get"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("unmarshal graphql response: %w", err)
	}

	return envelope.Get[className], nil
}
