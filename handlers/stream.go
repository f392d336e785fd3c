package handlers

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/Bekzhanizb/habitly/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const keepAliveInterval = 25 * time.Second

// Stream pushes live snapshots as server-sent events: "habits",
// "completions" and "reflections". Each subscription ends with the request
// or when the server shuts down.
func (h *Handler) Stream(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	go func() {
		select {
		case <-h.Shutdown:
			cancel()
		case <-ctx.Done():
		}
	}()

	habits := h.Habits.Subscribe(ctx, user.ID)
	completions := h.Completions.Subscribe(ctx, user.ID)
	reflections := h.Reflections.Subscribe(ctx, user.ID)

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	// streams outlive the server write timeout
	if err := http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{}); err != nil {
		utils.Logger.Debug("stream_write_deadline_unsupported", zap.Error(err))
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")

	utils.Logger.Info("stream_opened", zap.String("user_id", user.ID))
	defer utils.Logger.Info("stream_closed", zap.String("user_id", user.ID))

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case snapshot, ok := <-habits:
			if !ok {
				return false
			}
			c.SSEvent("habits", snapshot)
		case snapshot, ok := <-completions:
			if !ok {
				return false
			}
			c.SSEvent("completions", snapshot)
		case snapshot, ok := <-reflections:
			if !ok {
				return false
			}
			c.SSEvent("reflections", snapshot)
		case <-keepAlive.C:
			_, _ = io.WriteString(w, ": keep-alive\n\n")
		}
		return true
	})
}
