package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"claim-pipeline-be/internal/entity"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

const (
	EnvelopeSessionStarted     = "session_started"
	EnvelopeAgentUpdate        = "agent_update"
	EnvelopeProcessingComplete = "processing_complete"
	EnvelopeError              = "error"
)

// AgentUpdate is the WebSocket form of one session event.
type AgentUpdate struct {
	Type string `json:"type"`
	Seq  int64  `json:"seq"`
	entity.Event
}

func NewAgentUpdate(ev entity.Event) AgentUpdate {
	return AgentUpdate{Type: EnvelopeAgentUpdate, Seq: ev.Seq, Event: ev}
}

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	Hub *Hub

	// The websocket connection.
	Conn *websocket.Conn

	SessionID string

	// Buffered channel of outbound messages.
	Send chan []byte
}

// readPump only watches for the peer going away; clients do not send commands.
func (c *Client) readPump(cancel context.CancelFunc) {
	defer cancel()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Warn("Client", "Unexpected websocket close", map[string]interface{}{
					"session_id": c.SessionID,
					"error":      err.Error(),
				})
			}
			return
		}
	}
}

// writePump pumps messages to the websocket connection until Send is closed.
func (c *Client) writePump(cancel context.CancelFunc, done chan<- struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		cancel()
		close(done)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, EnvelopeProcessingComplete))
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) enqueue(ctx context.Context, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	select {
	case c.Send <- data:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ServeWs streams one session over a websocket: a session_started envelope,
// back-filled and live agent_update envelopes, then processing_complete.
func ServeWs(hub *Hub, source SessionSource, conn *websocket.Conn, sessionID string, after int64) {
	client := &Client{Hub: hub, Conn: conn, SessionID: sessionID, Send: make(chan []byte, DefaultBufferSize)}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go client.writePump(cancel, done)
	go client.readPump(cancel)

	client.stream(ctx, source, after)

	close(client.Send)
	<-done
	_ = conn.Close()
}

func (c *Client) stream(ctx context.Context, source SessionSource, after int64) {
	session, err := source.Get(ctx, c.SessionID)
	if err != nil {
		_ = c.enqueue(ctx, errorEnvelope(err, c.SessionID))
		return
	}

	if err := c.enqueue(ctx, map[string]interface{}{
		"type":       EnvelopeSessionStarted,
		"session_id": session.SessionID,
		"claim_id":   session.ClaimID,
		"status":     session.Status,
	}); err != nil {
		return
	}

	err = c.Hub.Follow(ctx, source, c.SessionID, after, func(ev entity.Event) error {
		return c.enqueue(ctx, NewAgentUpdate(ev))
	})
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			_ = c.enqueue(ctx, errorEnvelope(err, c.SessionID))
		}
		return
	}

	final, err := source.Get(ctx, c.SessionID)
	status := entity.SessionCompleted
	if err == nil {
		status = final.Status
	}
	_ = c.enqueue(ctx, map[string]interface{}{
		"type":       EnvelopeProcessingComplete,
		"session_id": c.SessionID,
		"status":     status,
	})
}

func errorEnvelope(err error, sessionID string) map[string]interface{} {
	return map[string]interface{}{
		"type":       EnvelopeError,
		"session_id": sessionID,
		"message":    err.Error(),
	}
}
