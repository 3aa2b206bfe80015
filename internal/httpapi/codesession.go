package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/getcooked/interview-gateway/internal/feedback"
	"github.com/getcooked/interview-gateway/internal/observability"
	"github.com/getcooked/interview-gateway/internal/session"
)

// CloseSessionNotFound is sent when a code session names an unknown session
const CloseSessionNotFound = 4404

const codeSessionWriteWait = 10 * time.Second

var codeSessionUpgrader = websocket.Upgrader{
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// codeSession is a text WebSocket: each message is a full code submission and
// each reply is the feedback for it. Without a session_id a session with no
// question is created for the connection.
func (a *API) codeSession(w http.ResponseWriter, r *http.Request) {
	conn, err := codeSessionUpgrader.Upgrade(w, r, nil)
	if err != nil {
		observability.FromContext(r.Context()).Warn().Err(err).Msg("Failed to upgrade code session")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxBodyBytes)

	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		sessionID = a.sessions.Create(session.Question{})
	}
	logger := observability.FromContext(r.Context()).With().
		Str("component", "code_session").
		Str("session_id", sessionID).
		Logger()
	logger.Info().Msg("Code session opened")

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn().Err(err).Msg("Code session read error")
			}
			return
		}
		if mt != websocket.TextMessage {
			continue
		}
		code := strings.TrimSpace(string(data))
		if code == "" {
			continue
		}

		text, err := a.feedback.IncrementalFeedback(r.Context(), feedback.Update{
			SessionID: sessionID,
			Code:      code,
			Status:    a.feedback.ThinkingStatus(),
		})
		if err != nil {
			closeCode, reason := websocket.CloseInternalServerErr, "feedback generation failed"
			if errors.Is(err, session.ErrNotFound) {
				closeCode, reason = CloseSessionNotFound, "session not found"
			}
			logger.Warn().Err(err).Int("close_code", closeCode).Msg("Closing code session")
			conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(closeCode, reason), time.Now().Add(codeSessionWriteWait))
			return
		}

		conn.SetWriteDeadline(time.Now().Add(codeSessionWriteWait))
		if err := conn.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
			return
		}
	}
}
