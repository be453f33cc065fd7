package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/twilio/twilio-go/twiml"
)

// HandleIncomingCall answers the telephony provider's call webhook with a
// call-control document: speak a short greeting, then open a bidirectional
// media stream back to this server.
func (h *Handler) HandleIncomingCall(c *gin.Context) {
	host := h.publicHost
	if host == "" {
		host = c.Request.Host
	}
	wsURL := fmt.Sprintf("wss://%s/api/phone/media-stream", host)

	h.logger.Info(c.Request.Context(), fmt.Sprintf("Answering call, media-stream URL: %s", wsURL))

	say := &twiml.VoiceSay{
		Message: "Hello! Connecting you to our support assistant. One moment please.",
	}
	stream := twiml.VoiceStream{
		Name: "intake-media-stream",
		Url:  wsURL,
	}
	connect := twiml.VoiceConnect{
		InnerElements: []twiml.Element{stream},
	}

	twimlResult, err := twiml.Voice([]twiml.Element{say, connect})
	if err != nil {
		h.logger.Error(c.Request.Context(), "Failed to render call-control document", err)
		c.String(http.StatusInternalServerError, err.Error())
		return
	}

	c.Header("Content-Type", "text/xml")
	c.String(http.StatusOK, twimlResult)
}
