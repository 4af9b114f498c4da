package ws

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	chatModels "pathway/internal/domain/models/chat"
)

// ConnRelay streams turn output over one WebSocket connection. Sends
// are fire-and-forget: a failed write is logged and dropped so the
// orchestration loop never stalls on a flaky client. The write mutex
// serializes frames because gorilla connections allow one writer at a
// time.
type ConnRelay struct {
	conn   *websocket.Conn
	connID string
	logger *slog.Logger

	writeMu   sync.Mutex
	closeOnce sync.Once
}

// NewConnRelay wraps an upgraded connection.
func NewConnRelay(conn *websocket.Conn, connID string, logger *slog.Logger) *ConnRelay {
	return &ConnRelay{
		conn:   conn,
		connID: connID,
		logger: logger,
	}
}

// Send writes one text frame.
func (r *ConnRelay) Send(payload string) {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	if err := r.conn.WriteMessage(websocket.TextMessage, []byte(payload)); err != nil {
		r.logger.Warn("dropped outgoing frame",
			"connection_id", r.connID,
			"error", err,
		)
	}
}

// SendEndOfStream marks the end of the answer text.
func (r *ConnRelay) SendEndOfStream() {
	r.Send(chatModels.EndOfStreamMarker)
}

// SendSources delivers the turn's citation list as a JSON array frame.
// An empty list is still sent so the client can clear its source panel.
func (r *ConnRelay) SendSources(citations []chatModels.Citation) {
	if citations == nil {
		citations = []chatModels.Citation{}
	}
	raw, err := json.Marshal(citations)
	if err != nil {
		r.logger.Error("failed to marshal sources frame",
			"connection_id", r.connID,
			"error", err,
		)
		return
	}
	r.Send(string(raw))
}

// Close shuts the connection down. Safe to call more than once.
func (r *ConnRelay) Close() {
	r.closeOnce.Do(func() {
		if err := r.conn.Close(); err != nil {
			r.logger.Debug("websocket close",
				"connection_id", r.connID,
				"error", err,
			)
		}
	})
}
