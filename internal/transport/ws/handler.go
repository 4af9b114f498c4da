package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"pathway/internal/config"
	"pathway/internal/domain"
	chatModels "pathway/internal/domain/models/chat"
	"pathway/internal/service/chat"
)

// Inbound actions.
const (
	ActionChatResponse = "getChatbotResponse"
	ActionConnect      = "connect"
	ActionDisconnect   = "disconnect"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Browser clients connect cross-origin from the app frontend; origin
	// policy is enforced by the CORS layer on the HTTP surface.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// envelope is the action-routed inbound frame.
type envelope struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data"`
}

// historyEntry mirrors one prior round as the client serializes it.
type historyEntry struct {
	User     string `json:"user"`
	Chatbot  string `json:"chatbot"`
	Metadata string `json:"metadata"`
}

// chatRequest is the payload of a getChatbotResponse action.
type chatRequest struct {
	UserMessage string         `json:"userMessage"`
	UserID      string         `json:"user_id"`
	SessionID   string         `json:"session_id"`
	ChatHistory []historyEntry `json:"chatHistory"`
}

func (r chatRequest) Validate() error {
	err := validation.ValidateStruct(&r,
		validation.Field(&r.UserMessage, validation.Required, validation.Length(1, config.MaxUserMessageLength)),
		validation.Field(&r.UserID, validation.Required),
		validation.Field(&r.SessionID, validation.Required, validation.By(validUUID)),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return nil
}

func validUUID(value interface{}) error {
	s, _ := value.(string)
	_, err := uuid.Parse(s)
	return err
}

// ack is the reply frame for control actions.
type ack struct {
	Action  string `json:"action"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Handler accepts WebSocket connections and routes inbound actions to
// the turn orchestrator.
type Handler struct {
	orchestrator *chat.Orchestrator
	logger       *slog.Logger
}

// NewHandler creates the WebSocket entry point.
func NewHandler(orchestrator *chat.Orchestrator, logger *slog.Logger) *Handler {
	return &Handler{
		orchestrator: orchestrator,
		logger:       logger,
	}
}

// ServeHTTP upgrades the request and services frames until the client
// disconnects or a chat turn completes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("failed to upgrade websocket", "error", err)
		return
	}

	connID := uuid.NewString()
	relay := NewConnRelay(conn, connID, h.logger)
	defer relay.Close()

	h.logger.Info("websocket client connected", "connection_id", connID)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Warn("websocket read error", "connection_id", connID, "error", err)
			}
			return
		}

		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			h.sendAck(relay, ack{Status: "error", Message: "invalid message format"})
			continue
		}

		switch env.Action {
		case ActionChatResponse:
			h.handleChat(r.Context(), relay, connID, env.Data)
			// The turn owns the connection lifecycle from here; the relay
			// is closed by the orchestrator when the turn ends.
			return

		case ActionConnect:
			h.sendAck(relay, ack{Action: env.Action, Status: "ok"})

		case ActionDisconnect:
			h.sendAck(relay, ack{Action: env.Action, Status: "ok"})
			return

		default:
			h.logger.Warn("unhandled websocket action", "connection_id", connID, "action", env.Action)
			h.sendAck(relay, ack{Action: env.Action, Status: "error", Message: "unrecognized action"})
		}
	}
}

// handleChat validates the request payload and runs one full turn. The
// orchestrator owns the relay from this point and closes it when done.
func (h *Handler) handleChat(ctx context.Context, relay *ConnRelay, connID string, data json.RawMessage) {
	var req chatRequest
	if err := json.Unmarshal(data, &req); err != nil {
		h.logger.Warn("malformed chat request", "connection_id", connID, "error", err)
		relay.Send(chatModels.ErrorPrefix + "invalid request payload")
		relay.Close()
		return
	}

	if err := req.Validate(); err != nil {
		h.logger.Warn("invalid chat request", "connection_id", connID, "error", err)
		relay.Send(chatModels.ErrorPrefix + err.Error())
		relay.Close()
		return
	}

	history := make([]chatModels.Entry, 0, len(req.ChatHistory))
	for _, e := range req.ChatHistory {
		history = append(history, chatModels.Entry{
			User:     e.User,
			Chatbot:  e.Chatbot,
			Metadata: e.Metadata,
		})
	}

	h.orchestrator.RunTurn(ctx, relay, &chat.TurnRequest{
		UserMessage: req.UserMessage,
		UserID:      req.UserID,
		SessionID:   req.SessionID,
		History:     history,
	})
}

func (h *Handler) sendAck(relay *ConnRelay, a ack) {
	raw, err := json.Marshal(a)
	if err != nil {
		return
	}
	relay.Send(string(raw))
}
