package ws

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"pathway/internal/domain"
	chatModels "pathway/internal/domain/models/chat"
	domainchat "pathway/internal/domain/services/chat"
	"pathway/internal/service/chat"
	"pathway/internal/service/chat/retrieval"
)

type fakeGenerator struct {
	chunks []chatModels.StreamChunk
}

func (f *fakeGenerator) Stream(_ context.Context, _ *domainchat.StreamRequest) (<-chan chatModels.StreamChunk, error) {
	ch := make(chan chatModels.StreamChunk, len(f.chunks))
	for _, c := range f.chunks {
		ch <- c
	}
	close(ch)
	return ch, nil
}

func (f *fakeGenerator) Complete(_ context.Context, _ *domainchat.CompleteRequest) (string, error) {
	return "Test Session", nil
}

type fakeSessions struct{}

func (fakeSessions) GetSession(_ context.Context, _, _ string) (*chatModels.Session, error) {
	return &chatModels.Session{}, nil
}
func (fakeSessions) AddSession(_ context.Context, _, _ string, _ chatModels.Entry, _, _ string) error {
	return nil
}
func (fakeSessions) UpdateSession(_ context.Context, _, _ string, _ chatModels.Entry, _ string) error {
	return nil
}

type emptyKB struct{}

func (emptyKB) Retrieve(_ context.Context, _, _ string) ([]domainchat.RetrievalResult, error) {
	return nil, nil
}

func testHandler(gen *fakeGenerator) *Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sessions := fakeSessions{}
	orchestrator := chat.NewOrchestrator(&chat.OrchestratorConfig{
		Generator:    gen,
		Retriever:    retrieval.NewRetriever(emptyKB{}, "Passage", logger),
		Sessions:     sessions,
		Finalizer:    chat.NewFinalizer(sessions, gen, logger),
		SystemPrompt: "system",
		Logger:       logger,
	})
	return NewHandler(orchestrator, logger)
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(url, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return string(raw)
}

func TestHandlerChatRoundTrip(t *testing.T) {
	gen := &fakeGenerator{chunks: []chatModels.StreamChunk{
		{Kind: chatModels.ChunkText, Text: "Welcome "},
		{Kind: chatModels.ChunkText, Text: "aboard"},
		{Kind: chatModels.ChunkStop, StopReason: "end_turn"},
	}}
	server := httptest.NewServer(testHandler(gen))
	defer server.Close()

	conn := dial(t, server.URL)
	defer conn.Close()

	request := map[string]interface{}{
		"action": ActionChatResponse,
		"data": map[string]interface{}{
			"userMessage": "hello",
			"user_id":     "user-1",
			"session_id":  "6a1f1c2e-9f6f-4e2c-8a51-000000000001",
		},
	}
	if err := conn.WriteJSON(request); err != nil {
		t.Fatalf("write request: %v", err)
	}

	if got := readFrame(t, conn); got != "Welcome " {
		t.Errorf("first frame = %q", got)
	}
	if got := readFrame(t, conn); got != "aboard" {
		t.Errorf("second frame = %q", got)
	}
	if got := readFrame(t, conn); got != chatModels.EndOfStreamMarker {
		t.Errorf("third frame = %q, want end-of-stream marker", got)
	}

	var sources []chatModels.Citation
	if err := json.Unmarshal([]byte(readFrame(t, conn)), &sources); err != nil {
		t.Fatalf("sources frame is not a citation array: %v", err)
	}
	if len(sources) != 0 {
		t.Errorf("sources = %v, want empty array", sources)
	}
}

func TestHandlerRejectsInvalidRequest(t *testing.T) {
	server := httptest.NewServer(testHandler(&fakeGenerator{}))
	defer server.Close()

	conn := dial(t, server.URL)
	defer conn.Close()

	request := map[string]interface{}{
		"action": ActionChatResponse,
		"data": map[string]interface{}{
			// userMessage missing, session_id not a UUID
			"user_id":    "user-1",
			"session_id": "not-a-uuid",
		},
	}
	if err := conn.WriteJSON(request); err != nil {
		t.Fatalf("write request: %v", err)
	}

	frame := readFrame(t, conn)
	if !strings.HasPrefix(frame, chatModels.ErrorPrefix) {
		t.Errorf("frame = %q, want error-tagged rejection", frame)
	}
}

func TestHandlerUnrecognizedAction(t *testing.T) {
	server := httptest.NewServer(testHandler(&fakeGenerator{}))
	defer server.Close()

	conn := dial(t, server.URL)
	defer conn.Close()

	if err := conn.WriteJSON(map[string]interface{}{"action": "selfDestruct"}); err != nil {
		t.Fatalf("write request: %v", err)
	}

	var reply ack
	if err := json.Unmarshal([]byte(readFrame(t, conn)), &reply); err != nil {
		t.Fatalf("ack frame: %v", err)
	}
	if reply.Status != "error" || reply.Action != "selfDestruct" {
		t.Errorf("ack = %+v, want flagged-unhandled reply", reply)
	}
}

func TestChatRequestValidate(t *testing.T) {
	valid := chatRequest{
		UserMessage: "hello",
		UserID:      "user-1",
		SessionID:   "6a1f1c2e-9f6f-4e2c-8a51-000000000001",
	}

	tests := []struct {
		name    string
		mutate  func(*chatRequest)
		wantErr bool
	}{
		{"valid", func(r *chatRequest) {}, false},
		{"missing message", func(r *chatRequest) { r.UserMessage = "" }, true},
		{"missing user", func(r *chatRequest) { r.UserID = "" }, true},
		{"bad session id", func(r *chatRequest) { r.SessionID = "nope" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)
			err := req.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, domain.ErrValidation) {
				t.Errorf("Validate() err = %v, does not wrap the validation sentinel", err)
			}
		})
	}
}
