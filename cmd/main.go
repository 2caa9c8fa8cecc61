package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"ai_chat_mini/internal/clients/llamacpp"
	"ai_chat_mini/internal/config"
	"ai_chat_mini/internal/middleware"
	"ai_chat_mini/internal/routes"
	"ai_chat_mini/internal/services"

	"github.com/gin-gonic/gin"
)

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("AI聊天服务启动中...")

	// 加载配置
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	// 创建推理后端客户端
	client := llamacpp.NewClient(llamacpp.Config{
		Host:     cfg.Model.Host,
		EOSToken: cfg.Model.EOSToken,
	})

	// 启动探活，模型后端不可用则直接退出
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.Health(ctx); err != nil {
		log.Fatalf("模型后端初始化失败: %v", err)
	}
	log.Printf("模型后端就绪: %s (%s)", cfg.Model.Host, cfg.Model.Name)

	// 创建对话服务
	chatService := services.NewChatService(cfg, client, client)

	// 设置路由
	r := gin.New()
	middleware.Setup(r)
	routes.RegisterRoutes(r, chatService, cfg)

	// 启动HTTP服务器
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("HTTP服务器监听: %s", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("HTTP服务器启动失败: %v", err)
	}
}
