package webserver

import (
	"net/http"

	"github.com/coe-labs/coe-agent/src/agent/config"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Handlers groups the pre-wired request handlers attached to the router.
type Handlers struct {
	Chat *Chat
}

func New(cfg config.Config, db *gorm.DB, h Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	attachRoutes(r, cfg, db, h)
	return r
}

func attachRoutes(r *gin.Engine, cfg config.Config, db *gorm.DB, h Handlers) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	flowH := NewFlowAdmin(db)
	sessionH := NewSessions(db)

	v1 := r.Group("/v1")
	{
		secured := v1.Use(JWTMiddleware([]byte(cfg.JWTSecret)))
		secured.POST("/chat/completions", h.Chat.Completions)
		secured.POST("/flows", flowH.Create)
		secured.GET("/flows", flowH.List)
		secured.DELETE("/flows/:flowID", flowH.Delete)
		secured.POST("/sessions/:sessionID/close", sessionH.Close)
	}
}
