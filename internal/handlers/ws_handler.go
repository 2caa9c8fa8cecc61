package handlers

import (
	"context"
	"log"
	"net/http"
	"sync"

	"ai_chat_mini/internal/config"
	"ai_chat_mini/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// WSMessage WebSocket消息
type WSMessage struct {
	Type        string   `json:"type"`                  // 消息类型：chat/reset/reply/reset_ok/error
	Content     string   `json:"content,omitempty"`     // 消息内容
	SessionID   string   `json:"session_id,omitempty"`  // 会话ID
	Temperature *float64 `json:"temperature,omitempty"` // 覆盖温度参数
	MaxTokens   *int     `json:"max_tokens,omitempty"`  // 覆盖最大生成token数
}

// WSSession WebSocket对话会话
type WSSession struct {
	ID   string
	Conn *websocket.Conn
	mu   sync.Mutex // 串行化写操作
}

// WSHandler WebSocket对话处理器
type WSHandler struct {
	service  models.ChatService
	upgrader websocket.Upgrader
	sessions map[string]*WSSession
	mu       sync.RWMutex
}

// NewWSHandler 创建WebSocket对话处理器
func NewWSHandler(service models.ChatService, wsConfig config.WebSocketConfig) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  wsConfig.ReadBufferSize,
			WriteBufferSize: wsConfig.WriteBufferSize,
			CheckOrigin: func(r *http.Request) bool {
				return true // 本地页面，允许所有来源
			},
		},
		sessions: make(map[string]*WSSession),
	}
}

// HandleWebSocket 处理WebSocket连接
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	// 升级HTTP连接为WebSocket
	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("升级WebSocket连接失败: %v", err)
		return
	}

	// 创建新的会话
	sessionID := c.Query("session_id")
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	session := &WSSession{
		ID:   sessionID,
		Conn: ws,
	}

	// 保存会话
	h.mu.Lock()
	h.sessions[sessionID] = session
	h.mu.Unlock()

	go h.handleSession(session)
}

// handleSession 处理会话消息。
// 单goroutine顺序读取，保证同一会话同时只有一次生成调用。
func (h *WSHandler) handleSession(session *WSSession) {
	defer func() {
		session.Conn.Close()
		h.mu.Lock()
		delete(h.sessions, session.ID)
		h.mu.Unlock()
	}()

	for {
		var msg WSMessage
		if err := session.Conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("读取WebSocket消息失败: %v", err)
			}
			return
		}

		switch msg.Type {
		case "chat":
			opts := &models.GenerateOptions{
				Temperature: msg.Temperature,
				MaxTokens:   msg.MaxTokens,
			}
			reply, err := h.service.Respond(context.Background(), session.ID, msg.Content, opts)
			if err != nil {
				log.Printf("生成回复失败: %v", err)
				if err := session.send(WSMessage{Type: "error", Content: err.Error(), SessionID: session.ID}); err != nil {
					log.Printf("发送响应失败: %v", err)
					return
				}
				continue
			}
			if err := session.send(WSMessage{Type: "reply", Content: reply, SessionID: session.ID}); err != nil {
				log.Printf("发送响应失败: %v", err)
				return
			}
		case "reset":
			h.service.Reset(session.ID)
			if err := session.send(WSMessage{Type: "reset_ok", SessionID: session.ID}); err != nil {
				log.Printf("发送响应失败: %v", err)
				return
			}
		default:
			if err := session.send(WSMessage{Type: "error", Content: "未知消息类型", SessionID: session.ID}); err != nil {
				log.Printf("发送响应失败: %v", err)
				return
			}
		}
	}
}

// send 向客户端发送消息
func (s *WSSession) send(msg WSMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Conn.WriteJSON(msg)
}
