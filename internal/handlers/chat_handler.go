// Package handlers 提供HTTP和WebSocket请求处理器
package handlers

import (
	"net/http"
	"strings"

	"ai_chat_mini/internal/models"

	"github.com/gin-gonic/gin"
)

// ChatRequest 对话请求
type ChatRequest struct {
	SessionID   string   `json:"session_id"`              // 会话ID，为空时使用default
	Text        string   `json:"text" binding:"required"` // 用户输入
	Temperature *float64 `json:"temperature,omitempty"`   // 覆盖温度参数
	MaxTokens   *int     `json:"max_tokens,omitempty"`    // 覆盖最大生成token数
}

// ChatResponse 对话响应
type ChatResponse struct {
	SessionID string `json:"session_id"` // 会话ID
	Reply     string `json:"reply"`      // 助手回复
}

// ResetRequest 重置请求
type ResetRequest struct {
	SessionID string `json:"session_id"` // 会话ID，为空时使用default
}

// ChatHandler 对话处理器
type ChatHandler struct {
	service models.ChatService
}

// NewChatHandler 创建对话处理器
func NewChatHandler(service models.ChatService) *ChatHandler {
	return &ChatHandler{service: service}
}

// HandleChat 处理对话请求
func (h *ChatHandler) HandleChat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式无效"})
		return
	}

	if strings.TrimSpace(req.Text) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "用户输入不能为空"})
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = "default"
	}

	opts := &models.GenerateOptions{
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}

	// 生成是长耗时阻塞调用，期间前端禁用输入
	reply, err := h.service.Respond(c.Request.Context(), sessionID, req.Text, opts)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, ChatResponse{
		SessionID: sessionID,
		Reply:     reply,
	})
}

// HandleReset 重置会话上下文
func (h *ChatHandler) HandleReset(c *gin.Context) {
	var req ResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式无效"})
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = "default"
	}

	h.service.Reset(sessionID)
	c.JSON(http.StatusOK, gin.H{"status": "ok", "session_id": sessionID})
}

// HandleHistory 获取会话消息记录
func (h *ChatHandler) HandleHistory(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		sessionID = "default"
	}

	messages := h.service.History(sessionID)
	if messages == nil {
		messages = []models.Message{}
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id": sessionID,
		"messages":   messages,
	})
}
