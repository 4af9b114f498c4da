package chat

import (
	"context"
	"strconv"
	"strings"

	"pathway/internal/config"
	chatModels "pathway/internal/domain/models/chat"
	domainchat "pathway/internal/domain/services/chat"
	"pathway/internal/service/chat/retrieval"
)

// ConflictNotice delimits the main answer from the conflict report in
// the outgoing stream. Sent verbatim: clients match it as a protocol
// literal, so it is never translated.
const ConflictNotice = "\n\nGenerating Report of Potential Source Conflicts...\n\n"

// conflictInstructions prompts the second pass that reviews the turn's
// accumulated evidence for contradictions.
const conflictInstructions = "Review the documents above and report any statements that contradict " +
	"each other across documents. For each conflict, name the documents involved and quote the " +
	"conflicting statements. If the documents are consistent with each other, say so briefly."

// conflictStage streams a second generation pass over the evidence
// gathered this turn, relaying it after the notice line. Report text
// goes through the shared output stream so translated turns get a
// translated report. Failures are logged and swallowed so the rest of
// the pipeline proceeds.
func (o *Orchestrator) conflictStage(ctx context.Context, out *outputStream, bundle *retrieval.Bundle) {
	out.writeRaw(ConflictNotice)

	prompt := buildConflictPrompt(bundle)
	chunks, err := o.generator.Stream(ctx, &domainchat.StreamRequest{
		Messages:  []*chatModels.Message{chatModels.NewTextMessage("user", prompt)},
		MaxTokens: config.ConflictReportMaxTokens,
	})
	if err != nil {
		o.logger.Error("conflict report stream failed to open", "error", err)
		return
	}

	for chunk := range chunks {
		if chunk.Err != nil {
			o.logger.Error("conflict report stream error", "error", chunk.Err)
			continue
		}
		if chunk.Kind != chatModels.ChunkText {
			continue
		}
		out.write(ctx, chunk.Text)
	}
	out.flush(ctx)
}

// buildConflictPrompt lays the turn's evidence out document by
// document, each passage directly under its title so the report can
// attribute statements to sources.
func buildConflictPrompt(bundle *retrieval.Bundle) string {
	var b strings.Builder
	b.WriteString("The following are documents retrieved from a knowledge base for a user's query.\n\n")
	for i, doc := range bundle.Documents {
		b.WriteString("Document ")
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(" (")
		b.WriteString(doc.Title)
		b.WriteString("):\n")
		b.WriteString(doc.Content)
		b.WriteString("\n\n")
	}
	b.WriteString(conflictInstructions)
	return b.String()
}
