package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"ai_chat_mini/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeChatService 记录调用的对话服务桩
type fakeChatService struct {
	reply       string
	err         error
	lastSession string
	lastText    string
	lastOpts    *models.GenerateOptions
	resets      []string
	messages    []models.Message
}

func (f *fakeChatService) Respond(_ context.Context, sessionID, text string, opts *models.GenerateOptions) (string, error) {
	f.lastSession = sessionID
	f.lastText = text
	f.lastOpts = opts
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeChatService) History(sessionID string) []models.Message {
	f.lastSession = sessionID
	return f.messages
}

func (f *fakeChatService) Reset(sessionID string) {
	f.resets = append(f.resets, sessionID)
}

func newTestRouter(service models.ChatService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewChatHandler(service)
	r.POST("/api/chat", h.HandleChat)
	r.POST("/api/chat/reset", h.HandleReset)
	r.GET("/api/chat/history", h.HandleHistory)
	return r
}

func postJSON(r *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest("POST", path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandleChat(t *testing.T) {
	svc := &fakeChatService{reply: "你好！"}
	r := newTestRouter(svc)

	w := postJSON(r, "/api/chat", gin.H{"text": "hi"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "你好！", resp.Reply)
	// 未指定会话时使用default
	assert.Equal(t, "default", resp.SessionID)
	assert.Equal(t, "default", svc.lastSession)
	assert.Equal(t, "hi", svc.lastText)
}

func TestHandleChatForwardsOverrides(t *testing.T) {
	svc := &fakeChatService{reply: "ok"}
	r := newTestRouter(svc)

	w := postJSON(r, "/api/chat", gin.H{
		"session_id":  "s42",
		"text":        "hi",
		"temperature": 0.3,
		"max_tokens":  256,
	})
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, "s42", svc.lastSession)
	require.NotNil(t, svc.lastOpts)
	require.NotNil(t, svc.lastOpts.Temperature)
	require.NotNil(t, svc.lastOpts.MaxTokens)
	assert.Equal(t, 0.3, *svc.lastOpts.Temperature)
	assert.Equal(t, 256, *svc.lastOpts.MaxTokens)
}

func TestHandleChatBadRequest(t *testing.T) {
	svc := &fakeChatService{reply: "ok"}
	r := newTestRouter(svc)

	// 缺少text字段
	w := postJSON(r, "/api/chat", gin.H{"session_id": "s1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// 空白输入
	w = postJSON(r, "/api/chat", gin.H{"text": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// 非JSON请求体
	req := httptest.NewRequest("POST", "/api/chat", bytes.NewReader([]byte("not json")))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleChatGenerationFailure(t *testing.T) {
	svc := &fakeChatService{err: fmt.Errorf("生成回复失败: 显存不足")}
	r := newTestRouter(svc)

	w := postJSON(r, "/api/chat", gin.H{"text": "hi"})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "显存不足")
}

func TestHandleReset(t *testing.T) {
	svc := &fakeChatService{}
	r := newTestRouter(svc)

	w := postJSON(r, "/api/chat/reset", gin.H{"session_id": "s1"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"s1"}, svc.resets)

	w = postJSON(r, "/api/chat/reset", gin.H{})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"s1", "default"}, svc.resets)
}

func TestHandleHistory(t *testing.T) {
	svc := &fakeChatService{messages: []models.Message{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "你好！"},
	}}
	r := newTestRouter(svc)

	req := httptest.NewRequest("GET", "/api/chat/history?session_id=s1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "s1", svc.lastSession)
	assert.Contains(t, w.Body.String(), "你好！")
}

func TestHandleHistoryEmpty(t *testing.T) {
	svc := &fakeChatService{}
	r := newTestRouter(svc)

	req := httptest.NewRequest("GET", "/api/chat/history", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	// 空历史返回空数组而不是null
	var resp struct {
		Messages []models.Message `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotNil(t, resp.Messages)
	assert.Empty(t, resp.Messages)
}
