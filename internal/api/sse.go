package api

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"
)

const heartbeatInterval = 25 * time.Second

// Events streams the session events that concern the current user as
// server-sent events, with a periodic ping to keep proxies from closing the
// connection.
func (h *Handler) Events(c *gin.Context) {
	user := currentUser(c)
	ch, unsubscribe := h.hub.Subscribe(32)
	defer unsubscribe()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.SSEvent("ready", gin.H{"user_id": user.ID})
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case e, ok := <-ch:
			if !ok {
				return false
			}
			if e.Concerns(user.ID) {
				c.SSEvent(string(e.Kind), e)
			}
			return true
		case t := <-heartbeat.C:
			c.SSEvent("ping", t.Unix())
			return true
		}
	})
}
