package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fieldops.app/incidentbot/internal/http/handler"
	"fieldops.app/incidentbot/internal/http/handler/webhook"
)

type RouterConfig struct {
	VerifyToken string
	AdminAPIKey string
}

func SetupRoutes(router *gin.Engine, whatsappHandler *webhook.WhatsAppHandler, adminHandler *handler.AdminHandler, cfg RouterConfig) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	router.GET("/webhook", whatsappHandler.Verify)
	router.POST("/webhook", whatsappHandler.Receive)

	admin := router.Group("/admin", requireAdminKey(cfg.AdminAPIKey))
	{
		admin.POST("/reset/:identity", adminHandler.Reset)
		admin.DELETE("/profiles/:identity", adminHandler.DeleteProfile)
		admin.GET("/tickets/:id", adminHandler.GetTicket)
	}
}

// requireAdminKey guards the admin surface with a static key. With no key
// configured the surface is disabled entirely.
func requireAdminKey(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		if c.GetHeader("X-Admin-Key") != key {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid admin key"})
			return
		}
		c.Next()
	}
}
