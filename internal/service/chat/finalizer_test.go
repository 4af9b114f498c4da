package chat

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	chatModels "pathway/internal/domain/models/chat"
	domainchat "pathway/internal/domain/services/chat"
)

// titleGenerator scripts the Complete call used for title synthesis.
type titleGenerator struct {
	fakeGenerator
	completeErr error
	titleText   string

	completeReqs []*domainchat.CompleteRequest
}

func (g *titleGenerator) Complete(_ context.Context, req *domainchat.CompleteRequest) (string, error) {
	g.completeReqs = append(g.completeReqs, req)
	if g.completeErr != nil {
		return "", g.completeErr
	}
	return g.titleText, nil
}

func TestFinalizeCreatesThenAppends(t *testing.T) {
	sessions := &fakeSessionRepo{}
	gen := &titleGenerator{titleText: "Transfer Credits"}
	f := NewFinalizer(sessions, gen, discardLogger())

	citations := []chatModels.Citation{
		{Title: "catalog.pdf (Knowledge Base)", URI: "s3://docs/catalog.pdf"},
	}

	// First round: no stored history, session is created with a title.
	f.Finalize(context.Background(), "u1", "s1", "do my credits transfer?", "mostly yes", citations, "en")

	if len(sessions.added) != 1 {
		t.Fatalf("AddSession calls = %d, want 1", len(sessions.added))
	}
	if len(gen.completeReqs) != 1 {
		t.Fatalf("title completions = %d, want 1", len(gen.completeReqs))
	}

	var stored []chatModels.Citation
	if err := json.Unmarshal([]byte(sessions.added[0].Metadata), &stored); err != nil {
		t.Fatalf("metadata is not a citation array: %v", err)
	}
	if len(stored) != 1 || stored[0].URI != "s3://docs/catalog.pdf" {
		t.Errorf("stored citations = %v", stored)
	}

	// Second round: history exists, so the round is appended and no new
	// title is synthesized.
	sessions.session = &chatModels.Session{
		History: []chatModels.Entry{{User: "do my credits transfer?", Chatbot: "mostly yes"}},
	}
	f.Finalize(context.Background(), "u1", "s1", "which ones?", "engineering courses", nil, "en")

	if len(sessions.updated) != 1 {
		t.Fatalf("UpdateSession calls = %d, want 1", len(sessions.updated))
	}
	if len(gen.completeReqs) != 1 {
		t.Errorf("title completions = %d after append, want still 1", len(gen.completeReqs))
	}
	if sessions.updated[0].Metadata != "[]" {
		t.Errorf("empty citations should persist as [], got %q", sessions.updated[0].Metadata)
	}
}

func TestSynthesizeTitleStripsQuotes(t *testing.T) {
	gen := &titleGenerator{titleText: ` "Course Planning" ` + "\n"}
	f := NewFinalizer(&fakeSessionRepo{}, gen, discardLogger())

	title := f.synthesizeTitle(context.Background(), "question", "answer")

	if title != "Course Planning" {
		t.Errorf("title = %q, want quotes and whitespace stripped", title)
	}
}

func TestSynthesizeTitleFailureYieldsEmpty(t *testing.T) {
	gen := &titleGenerator{completeErr: errors.New("model unavailable")}
	f := NewFinalizer(&fakeSessionRepo{}, gen, discardLogger())

	if title := f.synthesizeTitle(context.Background(), "q", "a"); title != "" {
		t.Errorf("title = %q, want empty on failure", title)
	}
}

func TestFinalizeStoreFailureIsSwallowed(t *testing.T) {
	sessions := &fakeSessionRepo{getErr: errors.New("store down")}
	f := NewFinalizer(sessions, &titleGenerator{}, discardLogger())

	// Must not panic or write anywhere.
	f.Finalize(context.Background(), "u1", "s1", "q", "a", nil, "en")

	if len(sessions.added)+len(sessions.updated) != 0 {
		t.Error("no writes expected when the session load fails")
	}
}
