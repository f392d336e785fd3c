package routes

import (
	"github.com/Bekzhanizb/habitly/handlers"
	"github.com/Bekzhanizb/habitly/middleware"
	"github.com/gin-gonic/gin"
)

// RegisterAuthRoutes mounts the public sign-in endpoints behind the rate
// limiter.
func RegisterAuthRoutes(r *gin.Engine, h *handlers.Handler, opts Options) {
	limit := middleware.RateLimitMiddleware(opts.Cache, opts.Config.RateLimit.Requests, opts.Config.RateLimit.Window)

	auth := r.Group("/api", limit)
	auth.POST("/register", h.Register)
	auth.POST("/login", h.Login)
	auth.POST("/auth/firebase", h.FirebaseLogin)
}
