package relay

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/getcooked/interview-gateway/internal/observability"
)

// Application close codes sent to the client
const (
	CloseNoFeedback            = 4204
	CloseUnexpectedContentType = 4415
)

const (
	writeWait  = 10 * time.Second
	closeGrace = time.Second
)

var upgrader = websocket.Upgrader{
	// Browsers connect from the frontend origin; the gateway sits behind the verifying proxy
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// Handler serves the audio stream over WebSocket at /ws/tts?session_id=...
type Handler struct {
	relay *Relay
}

// NewHandler creates the WebSocket handler
func NewHandler(r *Relay) *Handler {
	return &Handler{relay: r}
}

// ServeHTTP upgrades the connection, relays the audio as binary frames and
// closes with a code describing the outcome
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	logger := observability.FromContext(r.Context()).With().
		Str("component", "relay").
		Str("session_id", sessionID).
		Logger()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		logger.Warn().Err(err).Msg("Failed to upgrade connection to WebSocket")
		return
	}
	defer conn.Close()

	closeStream := observability.StreamOpened()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// The client sends nothing but control frames; a read error means it went away
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				cancel()
				return
			}
		}
	}()

	start := time.Now()
	sent, err := h.relay.Stream(ctx, sessionID, func(chunk []byte) error {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteMessage(websocket.BinaryMessage, chunk)
	})

	code, text, reason := closeFor(err)
	event := logger.Info()
	if code == websocket.CloseInternalServerErr {
		event = logger.Error().Err(err)
	} else if err != nil {
		event = logger.Warn().Err(err)
	}
	event.Int("bytes", sent).Dur("duration", time.Since(start)).Str("outcome", reason).Msg("Audio stream finished")
	closeStream(reason)

	if code == 0 {
		return
	}
	msg := websocket.FormatCloseMessage(code, text)
	if err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait)); err != nil {
		return
	}

	// Give the client a moment to answer the close handshake
	select {
	case <-readerDone:
	case <-time.After(closeGrace):
	}
}

// closeFor maps a stream outcome to a close code, a client-facing reason and a metric label.
// A zero code means the client is gone and no close frame is sent.
func closeFor(err error) (int, string, string) {
	switch {
	case err == nil:
		return websocket.CloseNormalClosure, "", "completed"
	case errors.Is(err, ErrNoFeedback):
		return CloseNoFeedback, "no feedback available", "no_feedback"
	case errors.Is(err, ErrUnexpectedContentType):
		return CloseUnexpectedContentType, "unexpected content type", "unexpected_content_type"
	case errors.Is(err, ErrClientGone), errors.Is(err, context.Canceled):
		return 0, "", "client_disconnected"
	default:
		return websocket.CloseInternalServerErr, "speech service failure", "upstream_error"
	}
}
