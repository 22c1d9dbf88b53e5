package http

import (
	"github.com/gin-gonic/gin"

	httpH "github.com/velmark/cybercity-backend/internal/http/handlers"
	httpMW "github.com/velmark/cybercity-backend/internal/http/middleware"
)

type RouterConfig struct {
	AuthHandler    *httpH.AuthHandler
	AuthMiddleware *httpMW.AuthMiddleware
	UserHandler    *httpH.UserHandler

	AgentHandler      *httpH.AgentHandler
	GroupChatHandler  *httpH.GroupChatHandler
	EventHandler      *httpH.EventHandler
	RelationHandler   *httpH.RelationHandler
	SimulationHandler *httpH.SimulationHandler
	RealtimeHandler   *httpH.RealtimeHandler

	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.Default()
	r.Use(httpMW.CORS())

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	// Realtime feed. Kept outside the auth group: browser WebSocket clients
	// connect before they have a session.
	if cfg.RealtimeHandler != nil {
		r.GET("/ws/events", cfg.RealtimeHandler.Events)
	}

	api := r.Group("/api")
	{
		// Auth (public)
		if cfg.AuthHandler != nil {
			api.POST("/auth/register", cfg.AuthHandler.Register)
			api.POST("/auth/login", cfg.AuthHandler.Login)
		}
	}

	protected := api.Group("/")
	{
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		// User (Me)
		if cfg.UserHandler != nil {
			protected.GET("/users/me", cfg.UserHandler.GetMe)
		}

		// Agents
		if cfg.AgentHandler != nil {
			protected.GET("/agents", cfg.AgentHandler.List)
			protected.POST("/agents", cfg.AgentHandler.Create)
			protected.GET("/agents/:id", cfg.AgentHandler.Get)
			protected.DELETE("/agents/:id", cfg.AgentHandler.Delete)
			protected.POST("/agents/:id/message", cfg.AgentHandler.SendMessage)
		}

		// Group chats
		if cfg.GroupChatHandler != nil {
			protected.GET("/group-chats", cfg.GroupChatHandler.List)
			protected.POST("/group-chats", cfg.GroupChatHandler.Create)
			protected.GET("/group-chats/:id", cfg.GroupChatHandler.Get)
			protected.PUT("/group-chats/:id", cfg.GroupChatHandler.Update)
			protected.DELETE("/group-chats/:id", cfg.GroupChatHandler.Delete)
			protected.POST("/group-chats/:id/message", cfg.GroupChatHandler.SendMessage)
		}

		// World feed
		if cfg.EventHandler != nil {
			protected.GET("/events", cfg.EventHandler.List)
			protected.POST("/events", cfg.EventHandler.Create)
		}

		// Relations
		if cfg.RelationHandler != nil {
			protected.GET("/relations", cfg.RelationHandler.List)
		}

		// Simulation control
		if cfg.SimulationHandler != nil {
			protected.POST("/simulation/control", cfg.SimulationHandler.Control)
		}
	}

	return r
}
