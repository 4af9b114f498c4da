package retrieval

import (
	"context"
	"log/slog"
	"strings"

	"pathway/internal/config"
	chatModels "pathway/internal/domain/models/chat"
	domainchat "pathway/internal/domain/services/chat"
)

// Sentinel contents handed to the generation backend when retrieval
// produces nothing usable. The backend sees them as ordinary tool
// output; the client still receives an empty citation list.
const (
	NoEvidenceSentinel = "No knowledge available! This query is likely outside the scope of your knowledge.\n" +
		"Please provide a general answer but do not attempt to provide specific details."

	FailureSentinel = "No knowledge available! There is something wrong with the search tool. Please tell the user to submit feedback.\n" +
		"Please provide a general answer but do not attempt to provide specific details."
)

// citationTag suffixes every citation title to mark its provenance.
const citationTag = " (Knowledge Base)"

// Document is one retained passage with its provenance, kept so later
// stages can attribute text to a specific source.
type Document struct {
	Title   string
	URI     string
	Content string
}

// Bundle is the normalized evidence produced by one retrieval call, or
// accumulated across all retrieval calls in one turn. Content is the
// joined form fed back to the model as the tool result; Documents keep
// the same passages individually, paired with their titles.
type Bundle struct {
	Content   string
	Citations []chatModels.Citation
	Documents []Document
}

// Append folds another retrieval call's bundle into the turn-level
// bundle, keeping the citation list unique by URI.
func (b *Bundle) Append(other *Bundle) {
	b.Content += other.Content
	b.Citations = dedupeByURI(append(b.Citations, other.Citations...))
	b.Documents = append(b.Documents, other.Documents...)
}

// Retriever issues retrieval queries and converts scored passages into
// evidence bundles. Failures never escape: they become the failure
// sentinel so the orchestration loop keeps running.
type Retriever struct {
	kb     domainchat.KnowledgeBase
	kbID   string
	logger *slog.Logger
}

// NewRetriever creates a Retriever bound to one knowledge base id.
func NewRetriever(kb domainchat.KnowledgeBase, kbID string, logger *slog.Logger) *Retriever {
	return &Retriever{
		kb:     kb,
		kbID:   kbID,
		logger: logger,
	}
}

// Retrieve issues exactly one retrieval request and returns a bundle.
// Callers loop if the model asks for more than one retrieval.
func (r *Retriever) Retrieve(ctx context.Context, query string) *Bundle {
	r.logger.Info("querying knowledge base", "query", query)

	results, err := r.kb.Retrieve(ctx, r.kbID, query)
	if err != nil {
		r.logger.Error("could not retrieve knowledge base documents", "error", err)
		return &Bundle{Content: FailureSentinel, Citations: []chatModels.Citation{}}
	}

	filtered := filterByConfidence(results)

	var content strings.Builder
	citations := make([]chatModels.Citation, 0, len(filtered))
	documents := make([]Document, 0, len(filtered))
	for i, item := range filtered {
		if i > 0 {
			content.WriteString("\n")
		}
		content.WriteString(item.Content)
		title := citationTitle(item.SourceURI)
		citations = append(citations, chatModels.Citation{
			Title: title,
			URI:   item.SourceURI,
		})
		documents = append(documents, Document{
			Title:   title,
			URI:     item.SourceURI,
			Content: item.Content,
		})
	}

	if content.Len() == 0 {
		r.logger.Warn("no relevant sources found", "query", query)
		return &Bundle{Content: NoEvidenceSentinel, Citations: []chatModels.Citation{}}
	}

	return &Bundle{
		Content:   content.String(),
		Citations: dedupeByURI(citations),
		Documents: documents,
	}
}

// filterByConfidence keeps only results scoring strictly above the
// threshold; a score equal to the threshold is dropped.
func filterByConfidence(results []domainchat.RetrievalResult) []domainchat.RetrievalResult {
	filtered := make([]domainchat.RetrievalResult, 0, len(results))
	for _, r := range results {
		if r.Score > config.ConfidenceThreshold {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// dedupeByURI removes duplicate citations by exact URI match, first
// occurrence wins. Idempotent.
func dedupeByURI(citations []chatModels.Citation) []chatModels.Citation {
	seen := make(map[string]struct{}, len(citations))
	unique := make([]chatModels.Citation, 0, len(citations))
	for _, c := range citations {
		if _, ok := seen[c.URI]; ok {
			continue
		}
		seen[c.URI] = struct{}{}
		unique = append(unique, c)
	}
	return unique
}

// citationTitle derives a display title from the trailing path segment
// of the source URI, suffixed with the provenance tag.
func citationTitle(uri string) string {
	return uri[strings.LastIndex(uri, "/")+1:] + citationTag
}
