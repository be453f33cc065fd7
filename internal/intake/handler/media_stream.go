package handler

import (
	"github.com/gin-gonic/gin"

	"intake-server/internal/clients/openai"
	"intake-server/internal/intake/bridge"
	"intake-server/internal/intake/handoff"
	"intake-server/internal/observability"
)

// HandleMediaStream accepts the provider's media-stream connection, opens
// the paired realtime AI session, and runs the bridge until the caller
// hangs up.
func (h *Handler) HandleMediaStream(c *gin.Context) {
	ctx := c.Request.Context()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error(ctx, "WebSocket upgrade failed", err)
		return
	}
	defer conn.Close()

	ctx = observability.WithFields(ctx, observability.Field{Key: "call", Value: "media-stream"})
	h.logger.Info(ctx, "Caller media-stream connection established")

	session, err := openai.Dial(ctx, h.openAIAPIKey, h.logger)
	if err != nil {
		h.logger.Error(ctx, "Failed to open realtime session", err)
		return
	}
	defer session.Close()

	ctrl := handoff.New(h.notifier, h.logger)
	b := bridge.New(conn, session, ctrl, bridge.DefaultConfig(), h.logger)
	b.Run(ctx)

	h.logger.Info(ctx, "Call session ended")
}
