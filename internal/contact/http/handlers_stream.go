package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/craftcode/landing-backend/internal/contact/domain"
)

// StreamSessionEvents streams state and draft changes of a session using Server-Sent Events (SSE)
func (h *Handler) StreamSessionEvents(c *gin.Context) {
	sessionID := c.Param("id")

	s, err := h.registry.Get(sessionID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // nginx: disable buffering

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming unsupported"})
		return
	}

	send := func(event string, payload any) {
		data, _ := json.Marshal(payload)
		fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event, string(data))
		flusher.Flush()
	}

	current := toSessionResponse(s)
	send("initial", gin.H{"session": current})
	lastVersion := current.Version

	ctx := c.Request.Context()

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	poll := time.NewTicker(h.pollInterval)
	defer poll.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-keepAlive.C:
			fmt.Fprint(c.Writer, ": keep-alive\n\n")
			flusher.Flush()

		case <-poll.C:
			s, err := h.registry.Get(sessionID)
			if errors.Is(err, domain.ErrSessionNotFound) || (err == nil && s.Controller.Closed()) {
				send("closed", gin.H{"event": "closed", "session_id": sessionID})
				return
			}
			if err != nil {
				continue
			}

			next := toSessionResponse(s)
			if next.Version != lastVersion {
				lastVersion = next.Version
				send("update", gin.H{"session": next})
			}
		}
	}
}
