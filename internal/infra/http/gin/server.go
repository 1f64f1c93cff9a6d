package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"taskchat/internal/infra/config"
	"taskchat/internal/infra/obs"
)

type ChatHTTP interface {
	State(c *gin.Context)
	Refresh(c *gin.Context)
	Select(c *gin.Context)
	MarkRead(c *gin.Context)
	LoadOlder(c *gin.Context)
	Send(c *gin.Context)
	UpdateJobStatus(c *gin.Context)
	Presence(c *gin.Context)
}

type Handlers struct {
	Chat ChatHTTP
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(cfg.Env, obsMW, health, h),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// NewRouter builds the gin engine with the bridge routes.
func NewRouter(env string, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	mode := configureGinMode(env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.AccessLog())
	router.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", obs.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", "Content-Type", obs.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}))

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api/v1")
	if h.Chat != nil {
		api.GET("/state", h.Chat.State)
		api.POST("/conversations/refresh", h.Chat.Refresh)
		api.POST("/conversations/:id/select", h.Chat.Select)
		api.POST("/conversations/:id/read", h.Chat.MarkRead)
		api.POST("/messages/older", h.Chat.LoadOlder)
		api.POST("/messages", h.Chat.Send)
		api.PUT("/jobs/:id/status", h.Chat.UpdateJobStatus)
		api.GET("/presence", h.Chat.Presence)
	}
	return router
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
