package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tidwall/gjson"

	"pathway/internal/capabilities"
	"pathway/internal/config"
	chatModels "pathway/internal/domain/models/chat"
	"pathway/internal/domain/repositories"
	domainchat "pathway/internal/domain/services/chat"
	"pathway/internal/service/chat/retrieval"
)

// workingLanguage is the language the generation backend is prompted in
// when the user's language is outside the model's native set.
const workingLanguage = "en"

// sessionLoadErrorMessage is the single error fragment sent when the
// session store cannot be reached at turn start.
const sessionLoadErrorMessage = "Unable to load past messages, please retry your query"

// TurnRequest is one inbound chat round.
type TurnRequest struct {
	UserMessage string
	UserID      string
	SessionID   string
	// History is the client-supplied fallback used when the stored
	// session has no history yet.
	History []chatModels.Entry
}

// Orchestrator drives one turn: it opens generation streams, routes
// chunks between the output relay and the tool-input accumulator,
// executes retrievals the model asks for, splices results back into the
// conversation, and hands the finished turn to the finalizer.
//
// One Orchestrator serves many concurrent turns; all per-turn state
// lives on the stack of RunTurn.
type Orchestrator struct {
	generator  domainchat.Generator
	retriever  *retrieval.Retriever
	translator domainchat.Translator
	sessions   repositories.SessionRepository
	finalizer  *Finalizer

	systemPrompt   string
	model          *capabilities.ModelCapabilities
	conflictReport bool
	logger         *slog.Logger
}

// OrchestratorConfig wires the orchestrator's collaborators. Translator
// may be nil, which disables the translation path entirely.
type OrchestratorConfig struct {
	Generator      domainchat.Generator
	Retriever      *retrieval.Retriever
	Translator     domainchat.Translator
	Sessions       repositories.SessionRepository
	Finalizer      *Finalizer
	SystemPrompt   string
	Model          *capabilities.ModelCapabilities
	ConflictReport bool
	Logger         *slog.Logger
}

// NewOrchestrator creates a turn orchestrator.
func NewOrchestrator(cfg *OrchestratorConfig) *Orchestrator {
	return &Orchestrator{
		generator:      cfg.Generator,
		retriever:      cfg.Retriever,
		translator:     cfg.Translator,
		sessions:       cfg.Sessions,
		finalizer:      cfg.Finalizer,
		systemPrompt:   cfg.SystemPrompt,
		model:          cfg.Model,
		conflictReport: cfg.ConflictReport,
		logger:         cfg.Logger,
	}
}

// turnState tracks the stream-consumption state machine for one open
// generation stream. Reset every time a new stream is opened.
type turnState struct {
	assembling bool
	skipNext   bool
	toolID     string
	toolName   string
	toolInput  strings.Builder
}

// RunTurn executes one complete round against the given relay. It never
// returns an error: every failure path has already been relayed to the
// client and the connection closed by the time it returns.
func (o *Orchestrator) RunTurn(ctx context.Context, relay domainchat.Relay, req *TurnRequest) {
	defer relay.Close()

	session, err := o.sessions.GetSession(ctx, req.UserID, req.SessionID)
	if err != nil {
		o.logger.Error("failed to retrieve session data",
			"user_id", req.UserID,
			"session_id", req.SessionID,
			"error", err,
		)
		relay.Send(chatModels.ErrorPrefix + sessionLoadErrorMessage)
		return
	}

	history := session.History
	if len(history) == 0 {
		history = req.History
	}

	languageCode := session.LanguageCode
	if languageCode == "" && o.translator != nil {
		languageCode = o.detectLanguage(ctx, req.UserMessage)
	}

	needsTranslation := o.translator != nil && languageCode != "" && !o.model.SupportsLanguage(languageCode)

	originalUserMessage := req.UserMessage
	userMessage := req.UserMessage
	if needsTranslation {
		userMessage = o.translateIn(ctx, userMessage, languageCode)
		history = o.translateHistory(ctx, history, languageCode)
	}

	messages := AssembleHistory(history, userMessage)

	bundle := &retrieval.Bundle{}
	out := &outputStream{
		o:            o,
		relay:        relay,
		translate:    needsTranslation,
		languageCode: languageCode,
	}
	if err := o.streamLoop(ctx, out, messages, bundle); err != nil {
		// Loop-level handler: one visible error fragment, no citations
		// frame, no persistence, no retry.
		o.logger.Error("stream processing error",
			"user_id", req.UserID,
			"session_id", req.SessionID,
			"error", err,
		)
		relay.Send(chatModels.ErrorPrefix + err.Error())
		return
	}

	if o.conflictReport && len(bundle.Citations) > 0 {
		o.conflictStage(ctx, out, bundle)
	}

	relay.SendEndOfStream()
	relay.SendSources(bundle.Citations)

	// Best-effort: the client already has its answer, store failures are
	// logged inside the finalizer and not retried.
	o.finalizer.Finalize(ctx, req.UserID, req.SessionID, originalUserMessage, out.text(), bundle.Citations, languageCode)
}

// outputStream routes visible turn output to the relay, straight
// through or via the newline-buffered translation path, while
// accumulating the full text for persistence. Shared by the main answer
// and the conflict-report stage so both obey the same language rules.
type outputStream struct {
	o            *Orchestrator
	relay        domainchat.Relay
	translate    bool
	languageCode string

	answer  strings.Builder
	lineBuf strings.Builder
}

// write routes one visible text fragment.
func (s *outputStream) write(ctx context.Context, text string) {
	if !s.translate {
		s.relay.Send(text)
		s.answer.WriteString(text)
		return
	}
	s.lineBuf.WriteString(text)
	for {
		buffered := s.lineBuf.String()
		idx := strings.IndexByte(buffered, '\n')
		if idx < 0 {
			return
		}
		segment, rest := buffered[:idx], buffered[idx+1:]
		s.lineBuf.Reset()
		s.lineBuf.WriteString(rest)

		translated := s.translateSegment(ctx, segment) + "\n"
		s.relay.Send(translated)
		s.answer.WriteString(translated)
	}
}

// writeRaw bypasses translation for fixed protocol literals the client
// matches verbatim.
func (s *outputStream) writeRaw(text string) {
	s.relay.Send(text)
	s.answer.WriteString(text)
}

// flush pushes any trailing buffered text through translation after a
// stream ends.
func (s *outputStream) flush(ctx context.Context) {
	if !s.translate || strings.TrimSpace(s.lineBuf.String()) == "" {
		s.lineBuf.Reset()
		return
	}
	translated := s.translateSegment(ctx, s.lineBuf.String())
	s.relay.Send(translated)
	s.answer.WriteString(translated)
	s.lineBuf.Reset()
}

// translateSegment keeps whitespace-only segments as-is; everything
// else goes through the outbound translation.
func (s *outputStream) translateSegment(ctx context.Context, segment string) string {
	if strings.TrimSpace(segment) == "" {
		return segment
	}
	return s.o.translateOut(ctx, segment, s.languageCode)
}

// text is everything written so far, as relayed to the client.
func (s *outputStream) text() string {
	return s.answer.String()
}

// streamLoop runs the stream-open/consume cycle until a non-tool stop
// arrives. Each tool_use stop triggers exactly one retrieval, splices
// the invocation and its result into the conversation, and re-opens a
// fresh stream over the updated history.
func (o *Orchestrator) streamLoop(
	ctx context.Context,
	out *outputStream,
	messages []*chatModels.Message,
	bundle *retrieval.Bundle,
) error {
	for {
		chunks, err := o.generator.Stream(ctx, &domainchat.StreamRequest{
			System:          o.systemPrompt,
			Messages:        messages,
			MaxTokens:       config.AnswerMaxTokens,
			EnableRetrieval: true,
		})
		if err != nil {
			return err
		}

		st := turnState{}
		stopReason := ""
		var streamErr error

		// Chunks are processed strictly in arrival order; the channel is
		// always drained so the producer goroutine can exit.
		for chunk := range chunks {
			if streamErr != nil || stopReason != "" {
				continue
			}
			if chunk.Err != nil {
				streamErr = chunk.Err
				continue
			}

			switch chunk.Kind {
			case chatModels.ChunkToolStart:
				st.assembling = true
				st.toolID = chunk.ToolID
				st.toolName = chunk.ToolName
				st.toolInput.Reset()
				// Skip-first-chunk rule: the provider emits one leading
				// empty fragment right after a tool start; discarding
				// exactly one keeps the JSON accumulator clean.
				st.skipNext = true

			case chatModels.ChunkStop:
				stopReason = chunk.StopReason

			case chatModels.ChunkText, chatModels.ChunkToolInput:
				if !st.assembling {
					if chunk.Kind == chatModels.ChunkText {
						out.write(ctx, chunk.Text)
					}
					continue
				}
				if st.skipNext {
					st.skipNext = false
					continue
				}
				st.toolInput.WriteString(chunk.Text)
			}
		}

		if streamErr != nil {
			return streamErr
		}

		if stopReason != chatModels.StopReasonToolUse {
			out.flush(ctx)
			return nil
		}

		query, err := parseToolQuery(st.toolInput.String())
		if err != nil {
			return err
		}

		retrieved := o.retriever.Retrieve(ctx, query)
		bundle.Append(retrieved)

		// The invocation and its result enter the conversation before
		// the next stream opens, so the backend always sees a causally
		// consistent history.
		messages = append(messages,
			chatModels.NewToolUseMessage(st.toolID, st.toolName, query),
			chatModels.NewToolResultMessage(st.toolID, retrieved.Content),
		)
	}
}

// parseToolQuery parses the accumulated tool-argument buffer. Malformed
// JSON is fatal for the turn.
func parseToolQuery(raw string) (string, error) {
	if !gjson.Valid(raw) {
		return "", fmt.Errorf("malformed tool input: %q", raw)
	}
	query := gjson.Get(raw, "query")
	if !query.Exists() {
		return "", fmt.Errorf("tool input missing 'query' field: %q", raw)
	}
	return query.String(), nil
}

// detectLanguage identifies the user's language, defaulting to the
// working language when detection fails.
func (o *Orchestrator) detectLanguage(ctx context.Context, text string) string {
	code, err := o.translator.DetectLanguage(ctx, text)
	if err != nil {
		o.logger.Warn("language detection failed, assuming working language", "error", err)
		return workingLanguage
	}
	o.logger.Info("detected language", "language_code", code)
	return code
}

// translateIn converts user text into the working language; failures
// fall back to the untranslated text.
func (o *Orchestrator) translateIn(ctx context.Context, text, languageCode string) string {
	translated, err := o.translator.Translate(ctx, text, languageCode, workingLanguage)
	if err != nil {
		o.logger.Warn("inbound translation failed", "error", err)
		return text
	}
	return translated
}

// translateOut converts generated text into the user's language;
// failures fall back to the untranslated text.
func (o *Orchestrator) translateOut(ctx context.Context, text, languageCode string) string {
	translated, err := o.translator.Translate(ctx, text, workingLanguage, languageCode)
	if err != nil {
		o.logger.Warn("outbound translation failed", "error", err)
		return text
	}
	return translated
}

// translateHistory converts prior rounds into the working language so
// the assembled conversation is monolingual for the backend.
func (o *Orchestrator) translateHistory(ctx context.Context, history []chatModels.Entry, languageCode string) []chatModels.Entry {
	translated := make([]chatModels.Entry, len(history))
	for i, entry := range history {
		translated[i] = chatModels.Entry{
			User:     o.translateIn(ctx, entry.User, languageCode),
			Chatbot:  o.translateIn(ctx, entry.Chatbot, languageCode),
			Metadata: entry.Metadata,
		}
	}
	return translated
}
