package chat

import (
	"context"
	"strings"
	"testing"

	chatModels "pathway/internal/domain/models/chat"
	"pathway/internal/service/chat/retrieval"
)

// markingTranslator tags every translation with its direction so tests
// can see exactly what crossed the boundary.
type markingTranslator struct {
	detected string
	calls    []string
}

func (m *markingTranslator) DetectLanguage(_ context.Context, _ string) (string, error) {
	return m.detected, nil
}

func (m *markingTranslator) Translate(_ context.Context, text, source, target string) (string, error) {
	m.calls = append(m.calls, source+">"+target+":"+text)
	if source == target {
		return text, nil
	}
	return "[" + target + "]" + text, nil
}

func newTranslatingOrchestrator(gen *fakeGenerator, sessions *fakeSessionRepo, tr *markingTranslator) *Orchestrator {
	logger := discardLogger()
	return NewOrchestrator(&OrchestratorConfig{
		Generator:    gen,
		Retriever:    retrieval.NewRetriever(&scriptedKB{}, "Passage", logger),
		Translator:   tr,
		Sessions:     sessions,
		Finalizer:    NewFinalizer(sessions, gen, logger),
		SystemPrompt: "system prompt",
		Model:        englishModel(),
		Logger:       logger,
	})
}

func TestRunTurnTranslatesLineBuffered(t *testing.T) {
	gen := &fakeGenerator{
		streams: [][]chatModels.StreamChunk{
			{
				text("primera "),
				text("línea\nsegunda"),
				text(" línea"),
				stop("end_turn"),
			},
		},
	}
	sessions := &fakeSessionRepo{}
	tr := &markingTranslator{detected: "es"}
	relay := &fakeRelay{}

	o := newTranslatingOrchestrator(gen, sessions, tr)
	o.RunTurn(context.Background(), relay, &TurnRequest{
		UserMessage: "¿dónde viven los estudiantes?",
		UserID:      "u",
		SessionID:   "s",
	})

	// The user message is translated into the working language before
	// assembly.
	inbound := "es>en:¿dónde viven los estudiantes?"
	found := false
	for _, c := range tr.calls {
		if c == inbound {
			found = true
		}
	}
	if !found {
		t.Errorf("inbound translation missing, calls = %v", tr.calls)
	}

	// Outgoing text is translated per complete line, with the trailing
	// partial flushed at end of stream.
	var sent []string
	for _, e := range relay.events {
		if after, ok := strings.CutPrefix(e, "send:"); ok {
			sent = append(sent, after)
		}
	}
	want := []string{"[es]primera línea\n", "[es]segunda línea"}
	if len(sent) != len(want) {
		t.Fatalf("sent = %v, want %v", sent, want)
	}
	for i := range want {
		if sent[i] != want[i] {
			t.Errorf("sent[%d] = %q, want %q", i, sent[i], want[i])
		}
	}

	// The persisted entry keeps the user's original text and the
	// translated answer.
	if len(sessions.added) != 1 {
		t.Fatalf("AddSession calls = %d", len(sessions.added))
	}
	if sessions.added[0].User != "¿dónde viven los estudiantes?" {
		t.Errorf("persisted user message = %q", sessions.added[0].User)
	}
	if sessions.added[0].Chatbot != "[es]primera línea\n[es]segunda línea" {
		t.Errorf("persisted answer = %q", sessions.added[0].Chatbot)
	}
}

func TestRunTurnSkipsTranslationForSupportedLanguage(t *testing.T) {
	gen := &fakeGenerator{
		streams: [][]chatModels.StreamChunk{
			{text("plain answer"), stop("end_turn")},
		},
	}
	tr := &markingTranslator{detected: "en"}
	relay := &fakeRelay{}

	o := newTranslatingOrchestrator(gen, &fakeSessionRepo{}, tr)
	o.RunTurn(context.Background(), relay, &TurnRequest{UserMessage: "hi", UserID: "u", SessionID: "s"})

	for _, c := range tr.calls {
		t.Errorf("unexpected translation call %q for a natively supported language", c)
	}
	if got := relay.sentText(); got != "plain answer" {
		t.Errorf("relayed text = %q", got)
	}
}

func TestRunTurnReusesStoredLanguageCode(t *testing.T) {
	gen := &fakeGenerator{
		streams: [][]chatModels.StreamChunk{
			{text("respuesta\n"), stop("end_turn")},
		},
	}
	sessions := &fakeSessionRepo{
		session: &chatModels.Session{
			History:      []chatModels.Entry{{User: "hola", Chatbot: "hola"}},
			LanguageCode: "es",
		},
	}
	tr := &markingTranslator{detected: "fr"} // detection must not run
	relay := &fakeRelay{}

	o := newTranslatingOrchestrator(gen, sessions, tr)
	o.RunTurn(context.Background(), relay, &TurnRequest{UserMessage: "¿y luego?", UserID: "u", SessionID: "s"})

	for _, c := range tr.calls {
		if strings.HasPrefix(c, "fr>") || strings.Contains(c, ">fr:") {
			t.Errorf("detection result leaked into translation: %q", c)
		}
	}
	if got := relay.sentText(); got != "[es]respuesta\n" {
		t.Errorf("relayed text = %q, stored language code not applied", got)
	}
}
