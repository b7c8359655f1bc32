package api

import (
	"fmt"
	"time"

	"github.com/Freeeeeet/studio_scheduler/internal/model"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type RouterOptions struct {
	RequestsPerMin int
	CORSOrigins    []string
}

// NewRouter wires middleware and routes around h.
func NewRouter(h *Handler, opts RouterOptions) (*gin.Engine, error) {
	if err := registerValidators(); err != nil {
		return nil, fmt.Errorf("register validators: %w", err)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(ErrorHandler(h.logger))
	r.Use(RequestLogger(h.logger))
	r.Use(cors.New(corsConfig(opts.CORSOrigins)))
	r.Use(RateLimitMiddleware(opts.RequestsPerMin, h.logger))

	r.GET("/health", h.Health)

	api := r.Group("/api")
	api.Use(h.AuthMiddleware())
	{
		api.GET("/studios", h.ListStudios)
		api.GET("/studios/:id/availability", h.Availability)
		api.GET("/studios/:id/availability.png", h.AvailabilityImage)

		booking := api.Group("")
		booking.Use(RequireRole(model.RoleProfessor, model.RoleAdmin))
		booking.GET("/students", h.ListStudents)
		booking.POST("/sessions", h.CreateSession)

		// ownership and invitation checks happen in the service
		api.GET("/sessions/:id", h.GetSession)
		api.POST("/sessions/:id/cancel", h.CancelSession)
		api.POST("/sessions/:id/respond", h.Respond)

		api.GET("/professors/me/sessions", RequireRole(model.RoleProfessor, model.RoleAdmin), h.ProfessorSessions)

		me := api.Group("/me")
		me.GET("/events", h.Events)
		student := me.Group("")
		student.Use(RequireRole(model.RoleStudent))
		student.GET("/sessions", h.MySessions)
		student.GET("/invitations", h.MyInvitations)
		student.GET("/pending-count", h.PendingCount)

		admin := api.Group("/admin")
		admin.Use(RequireRole(model.RoleAdmin))
		admin.POST("/sessions/clear", h.ClearSessions)
		admin.POST("/sessions/backfill-created-at", h.BackfillCreatedAt)
	}

	return r, nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}
