// Package routes 注册HTTP路由
package routes

import (
	"net/http"
	"time"

	"ai_chat_mini/internal/config"
	"ai_chat_mini/internal/models"
	"ai_chat_mini/web"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes 注册所有路由
func RegisterRoutes(r *gin.Engine, service models.ChatService, cfg *config.Config) {
	// 聊天页面
	r.GET("/", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", web.IndexHTML)
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"model":  cfg.Model.Name,
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// 注册对话路由
	RegisterChatRoutes(r, service, cfg)
}
