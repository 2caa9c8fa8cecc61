package handlers

import (
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"

	"ai_chat_mini/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialTestWS(t *testing.T, svc *fakeChatService) *websocket.Conn {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewWSHandler(svc, config.WebSocketConfig{ReadBufferSize: 1024, WriteBufferSize: 1024})
	r.GET("/ws", h.HandleWebSocket)

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?session_id=s1"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestWebSocketChat(t *testing.T) {
	svc := &fakeChatService{reply: "你好！"}
	conn := dialTestWS(t, svc)

	require.NoError(t, conn.WriteJSON(WSMessage{Type: "chat", Content: "hi"}))

	var resp WSMessage
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Equal(t, "reply", resp.Type)
	assert.Equal(t, "你好！", resp.Content)
	assert.Equal(t, "s1", resp.SessionID)
	assert.Equal(t, "s1", svc.lastSession)
	assert.Equal(t, "hi", svc.lastText)
}

func TestWebSocketReset(t *testing.T) {
	svc := &fakeChatService{}
	conn := dialTestWS(t, svc)

	require.NoError(t, conn.WriteJSON(WSMessage{Type: "reset"}))

	var resp WSMessage
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Equal(t, "reset_ok", resp.Type)
	assert.Equal(t, []string{"s1"}, svc.resets)
}

func TestWebSocketGenerationError(t *testing.T) {
	svc := &fakeChatService{err: fmt.Errorf("生成回复失败: 显存不足")}
	conn := dialTestWS(t, svc)

	require.NoError(t, conn.WriteJSON(WSMessage{Type: "chat", Content: "hi"}))

	var resp WSMessage
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Equal(t, "error", resp.Type)
	assert.Contains(t, resp.Content, "显存不足")

	// 出错后连接保持可用
	svc.err = nil
	svc.reply = "ok"
	require.NoError(t, conn.WriteJSON(WSMessage{Type: "chat", Content: "again"}))
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Equal(t, "reply", resp.Type)
}

func TestWebSocketUnknownType(t *testing.T) {
	svc := &fakeChatService{}
	conn := dialTestWS(t, svc)

	require.NoError(t, conn.WriteJSON(WSMessage{Type: "audio", Content: "..."}))

	var resp WSMessage
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Equal(t, "error", resp.Type)
}
