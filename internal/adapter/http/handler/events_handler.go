package handler

import (
	"fmt"
	"io"
	"time"

	"github.com/gin-gonic/gin"
)

const defaultKeepAlive = 25 * time.Second

// EventsHandler streams domain events of the caller's session.
type EventsHandler struct {
	keepAlive time.Duration
}

// NewEventsHandler creates a new EventsHandler. A non-positive keepAlive
// uses the default.
func NewEventsHandler(keepAlive time.Duration) *EventsHandler {
	if keepAlive <= 0 {
		keepAlive = defaultKeepAlive
	}
	return &EventsHandler{keepAlive: keepAlive}
}

// Stream handles GET /api/v1/events as server-sent events named after the
// event type.
func (h *EventsHandler) Stream(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}

	events, unsubscribe := sess.Events().Subscribe()
	defer unsubscribe()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent(string(ev.Type()), ev)
			return true
		case <-ticker.C:
			_, err := fmt.Fprint(w, ": keepalive\n\n")
			return err == nil
		case <-c.Request.Context().Done():
			return false
		}
	})
}
