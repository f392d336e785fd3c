package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/Bekzhanizb/habitly/cache"
	"github.com/Bekzhanizb/habitly/config"
	"github.com/Bekzhanizb/habitly/handlers"
	"github.com/Bekzhanizb/habitly/middleware"
	"github.com/Bekzhanizb/habitly/utils"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Options struct {
	Config *config.Config
	Tokens *utils.TokenIssuer
	Users  middleware.UserLookup
	// Cache is nil when Redis is not configured.
	Cache *cache.Cache
	// Checks are reported by /health; any failure turns it into a 503.
	Checks map[string]func(context.Context) error
}

// NewRouter builds the gin engine with the full middleware chain and routes.
func NewRouter(h *handlers.Handler, opts Options) *gin.Engine {
	middleware.RegisterValidators()

	r := gin.New()
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.SecurityHeaders())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     opts.Config.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader, "X-Cache"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.Static("/uploads", opts.Config.Server.UploadsDir)

	r.GET("/health", health(opts.Checks))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	RegisterAuthRoutes(r, h, opts)

	cached := middleware.CacheMiddleware(opts.Cache, opts.Config.Cache.TTL)

	api := r.Group("/api")
	api.Use(middleware.AuthMiddleware(opts.Tokens, opts.Users))
	{
		api.GET("/profile", h.GetProfile)
		api.PUT("/profile", h.UpdateProfile)

		api.GET("/habits", cached, h.ListHabits)
		api.POST("/habits", h.CreateHabit)
		api.PUT("/habits/:id", h.UpdateHabit)
		api.DELETE("/habits/:id", h.DeleteHabit)
		api.POST("/habits/:id/toggle", h.ToggleCompletion)
		api.GET("/habits/:id/completions/:date", h.GetCompletion)

		api.GET("/completions", h.ListCompletions)
		api.GET("/days/:date", cached, h.GetDay)

		api.GET("/reflections", h.ListReflections)
		api.POST("/reflections", h.CreateReflection)

		api.GET("/stream", h.Stream)
	}

	return r
}

func health(checks map[string]func(context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status, code := "ok", http.StatusOK
		results := make(gin.H, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				results[name] = err.Error()
				status, code = "degraded", http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}

		c.JSON(code, gin.H{
			"status":    status,
			"checks":    results,
			"timestamp": time.Now(),
		})
	}
}
