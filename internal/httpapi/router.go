package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vinaysb/mindcare-navigator/internal/config"
	"github.com/vinaysb/mindcare-navigator/internal/httpapi/handlers"
	"github.com/vinaysb/mindcare-navigator/internal/httpapi/middleware"
	"github.com/vinaysb/mindcare-navigator/internal/store"
	"github.com/vinaysb/mindcare-navigator/internal/store/rabbitmq"
)

func NewRouter(cfg config.Config, st store.Store, mode store.Mode, rabbit *rabbitmq.Publisher) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "method not allowed"})
	})

	h := handlers.NewHandler(cfg, st, mode, rabbit)

	api := r.Group("/api")

	api.GET("/health", h.Health)
	api.POST("/register", h.Register)
	api.POST("/login", h.Login)
	api.POST("/new_chat", h.NewChat)

	// Chat serves guests and authenticated users alike.
	api.POST("/chat", middleware.AuthOptional(cfg.JWTSecret), h.Chat)

	authed := api.Group("/", middleware.AuthRequired(cfg.JWTSecret))
	authed.GET("/history/:session_id", h.History)
	authed.GET("/sessions", h.Sessions)
	authed.POST("/chat/async", h.ChatAsync)
	authed.GET("/jobs/:job_id", h.GetJob)

	return r
}
