package handler

import (
	"bufio"
	"context"
	"strconv"

	"claim-pipeline-be/internal/pkg/logger"
	"claim-pipeline-be/internal/realtime"
	"claim-pipeline-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/valyala/fasthttp"
)

// StreamHandler serves live session streams over WebSocket and SSE.
type StreamHandler struct {
	hub        *realtime.Hub
	source     realtime.SessionSource
	processing service.IProcessingService
	logger     logger.ILogger
}

func NewStreamHandler(hub *realtime.Hub, source realtime.SessionSource, processing service.IProcessingService, log logger.ILogger) *StreamHandler {
	return &StreamHandler{
		hub:        hub,
		source:     source,
		processing: processing,
		logger:     log,
	}
}

// RegisterRoutes mounts the WebSocket route on app and the SSE routes on api.
func (h *StreamHandler) RegisterRoutes(app fiber.Router, api fiber.Router) {
	app.Get("/ws/process/:session_id", h.HandleWebSocket)
	api.Get("/sessions/:session_id/stream", h.StreamSession)
	api.Get("/process/:claim_id/stream", h.ProcessAndStream)
}

// HandleWebSocket streams a session with back-fill. ?after=N skips the
// events a reconnecting client already has.
func (h *StreamHandler) HandleWebSocket(c *fiber.Ctx) error {
	sessionID := c.Params("session_id")
	after := resumeAfter(c)

	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	return websocket.New(func(conn *websocket.Conn) {
		h.logger.Info("StreamHandler", "WebSocket session started", map[string]interface{}{
			"session_id": sessionID,
			"after":      after,
		})
		realtime.ServeWs(h.hub, h.source, conn, sessionID, after)
		h.logger.Info("StreamHandler", "WebSocket session ended", map[string]interface{}{
			"session_id": sessionID,
		})
	})(c)
}

// StreamSession follows an existing session over SSE.
func (h *StreamHandler) StreamSession(c *fiber.Ctx) error {
	sessionID := c.Params("session_id")
	if _, err := h.source.Get(c.UserContext(), sessionID); err != nil {
		return err
	}
	return h.stream(c, sessionID, resumeAfter(c))
}

// ProcessAndStream starts a run for the claim and streams it over SSE.
func (h *StreamHandler) ProcessAndStream(c *fiber.Ctx) error {
	res, err := h.processing.StartProcessing(c.UserContext(), c.Params("claim_id"))
	if err != nil {
		return err
	}
	c.Set("X-Session-Id", res.SessionID)
	return h.stream(c, res.SessionID, 0)
}

func (h *StreamHandler) stream(c *fiber.Ctx, sessionID string, after int64) error {
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		// The request context is gone once this writer runs; a failed write
		// ends the stream instead.
		if err := h.hub.WriteSSE(context.Background(), h.source, sessionID, after, w); err != nil {
			h.logger.Warn("StreamHandler", "SSE stream ended early", map[string]interface{}{
				"session_id": sessionID,
				"error":      err.Error(),
			})
		}
	}))
	return nil
}

// resumeAfter reads the resume point from ?after= or the Last-Event-ID header.
func resumeAfter(c *fiber.Ctx) int64 {
	raw := c.Query("after")
	if raw == "" {
		raw = c.Get("Last-Event-ID")
	}
	after, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || after < 0 {
		return 0
	}
	return after
}
