package routes

import (
	"ai_chat_mini/internal/config"
	"ai_chat_mini/internal/handlers"
	"ai_chat_mini/internal/models"

	"github.com/gin-gonic/gin"
)

// RegisterChatRoutes 注册对话相关路由
func RegisterChatRoutes(r *gin.Engine, service models.ChatService, cfg *config.Config) {
	// 创建处理器
	chatHandler := handlers.NewChatHandler(service)
	wsHandler := handlers.NewWSHandler(service, cfg.WebSocket)

	// REST接口
	api := r.Group("/api")
	{
		api.POST("/chat", chatHandler.HandleChat)
		api.POST("/chat/reset", chatHandler.HandleReset)
		api.GET("/chat/history", chatHandler.HandleHistory)
	}

	// WebSocket接口
	r.GET("/ws", wsHandler.HandleWebSocket)
}
