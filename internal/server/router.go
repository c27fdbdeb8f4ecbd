package server

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/gravadigital/drawnames-api/internal/config"
	"github.com/gravadigital/drawnames-api/internal/handlers"
	"github.com/gravadigital/drawnames-api/internal/metrics"
	"github.com/gravadigital/drawnames-api/internal/middleware/auth"
	"github.com/gravadigital/drawnames-api/internal/middleware/events"
)

// NewRouter configures the HTTP router with middleware and routes
func NewRouter(cfg *config.Config, deps Deps) *gin.Engine {
	if cfg.Server.GinMode != "" {
		gin.SetMode(cfg.Server.GinMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(events.CreateEvent())
	router.Use(cors.New(corsConfig(cfg)))

	router.GET("/ping", func(c *gin.Context) {
		if deps.Health != nil {
			if err := deps.Health(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"message": "Drawnames API storage is unavailable",
					"status":  "unhealthy",
				})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{
			"message": "Drawnames API is running",
			"status":  "healthy",
		})
	})
	if deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(metrics.Handler(deps.Gatherer)))
	}

	setupAPIRoutes(router, deps)
	return router
}

func corsConfig(cfg *config.Config) cors.Config {
	c := cors.DefaultConfig()
	if origins := splitList(cfg.CORS.AllowOrigins); len(origins) == 0 || origins[0] == "*" {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
	}
	if methods := splitList(cfg.CORS.AllowMethods); len(methods) > 0 {
		c.AllowMethods = methods
	}
	if headers := splitList(cfg.CORS.AllowHeaders); len(headers) > 0 {
		c.AllowHeaders = headers
	}
	c.ExposeHeaders = []string{events.RequestIDHeader}
	return c
}

func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// setupAPIRoutes configures all API routes
func setupAPIRoutes(router *gin.Engine, deps Deps) {
	eventHandler := handlers.NewEventHandler(deps.Events)
	drawHandler := handlers.NewDrawHandler(deps.Draws)
	organizer := auth.RequireOrganizer(deps.Events)
	participant := auth.RequireParticipant(deps.Tokens)

	api := router.Group("/api")
	{
		events := api.Group("/events")
		{
			events.GET("", eventHandler.GetAllEvents)
			events.POST("", eventHandler.CreateEvent)
			events.GET("/:id", eventHandler.GetEvent)

			events.GET("/:id/participants", eventHandler.GetParticipants)
			events.POST("/:id/participants", eventHandler.RegisterParticipant)
			events.DELETE("/:id/participants/:pid", organizer, eventHandler.RemoveParticipant)
			events.POST("/:id/participants/:pid/reveal", participant, drawHandler.Reveal)

			events.GET("/:id/exclusions", drawHandler.GetExclusions)
			events.PUT("/:id/exclusions", organizer, drawHandler.ConfigureExclusions)
			events.GET("/:id/feasibility", drawHandler.GetFeasibility)
			events.GET("/:id/progress", drawHandler.GetProgress)

			events.POST("/:id/lock", organizer, drawHandler.Lock)
			events.POST("/:id/unlock", organizer, drawHandler.Unlock)
			events.POST("/:id/assign", organizer, drawHandler.Assign)
		}
	}
}
