// Package services 实现对话核心服务
package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"ai_chat_mini/internal/config"
	"ai_chat_mini/internal/models"
)

// ChatSession 对话会话，持有滚动的token上下文
type ChatSession struct {
	SessionID    string
	Tokens       []int            // 编码后的完整对话上下文
	Messages     []models.Message // 解码的消息记录，供界面展示
	LastActivity time.Time
	mu           sync.Mutex
}

// ChatService 处理对话服务
type ChatService struct {
	tokenizer models.Tokenizer
	generator models.Generator
	defaults  models.GenerationParams
	maxTokens int // 上下文窗口token上限
	sessions  map[string]*ChatSession
	mu        sync.RWMutex
}

// NewChatService 创建新的对话服务
func NewChatService(cfg *config.Config, tokenizer models.Tokenizer, generator models.Generator) *ChatService {
	return &ChatService{
		tokenizer: tokenizer,
		generator: generator,
		defaults: models.GenerationParams{
			MaxTokens:         cfg.Generation.MaxTokens,
			Temperature:       cfg.Generation.Temperature,
			TopK:              cfg.Generation.TopK,
			TopP:              cfg.Generation.TopP,
			RepeatPenalty:     cfg.Generation.RepeatPenalty,
			NoRepeatNGramSize: cfg.Generation.NoRepeatNGramSize,
		},
		maxTokens: cfg.History.MaxTokens,
		sessions:  make(map[string]*ChatSession),
	}
}

// getOrCreateSession 获取或创建会话
func (s *ChatService) getOrCreateSession(sessionID string) *ChatSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, exists := s.sessions[sessionID]; exists {
		sess.LastActivity = time.Now()
		return sess
	}

	sess := &ChatSession{
		SessionID:    sessionID,
		LastActivity: time.Now(),
	}
	s.sessions[sessionID] = sess
	return sess
}

// Respond 处理用户消息并返回回复。
// 生成或解码失败时会话上下文保持原状，不做部分提交。
func (s *ChatService) Respond(ctx context.Context, sessionID string, text string, opts *models.GenerateOptions) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("用户输入不能为空")
	}

	sess := s.getOrCreateSession(sessionID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	// 添加角色标记并编码
	formatted := fmt.Sprintf("User: %s\nAssistant:", text)
	input, err := s.tokenizer.Encode(ctx, formatted)
	if err != nil {
		return "", fmt.Errorf("编码用户输入失败: %v", err)
	}

	// 裁剪历史并拼接，保证模型输入不超过窗口上限
	modelInput := TrimWindow(sess.Tokens, input, s.maxTokens)

	// 调用生成能力，阻塞直到完成
	params := s.mergeParams(opts)
	result, err := s.generator.Generate(ctx, modelInput, params)
	if err != nil {
		return "", fmt.Errorf("生成回复失败: %v", err)
	}

	// 提取新生成的部分并解码，去除特殊token
	reply, err := s.tokenizer.Decode(ctx, result[len(modelInput):], true)
	if err != nil {
		return "", fmt.Errorf("解码回复失败: %v", err)
	}

	// 存储完整结果序列作为新的上下文
	sess.Tokens = result
	sess.Messages = append(sess.Messages,
		models.Message{Role: "user", Content: text},
		models.Message{Role: "assistant", Content: reply},
	)

	return reply, nil
}

// mergeParams 将单次请求的覆盖参数合并到默认生成参数上。
// 生成长度上限不允许超过上下文窗口，否则存储的上下文会越过窗口上限。
func (s *ChatService) mergeParams(opts *models.GenerateOptions) models.GenerationParams {
	params := s.defaults
	if opts != nil {
		if opts.Temperature != nil && *opts.Temperature > 0 {
			params.Temperature = *opts.Temperature
		}
		if opts.MaxTokens != nil && *opts.MaxTokens > 0 {
			params.MaxTokens = *opts.MaxTokens
		}
	}
	if params.MaxTokens > s.maxTokens {
		params.MaxTokens = s.maxTokens
	}
	return params
}

// History 获取对话历史
func (s *ChatService) History(sessionID string) []models.Message {
	sess := s.getOrCreateSession(sessionID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	messages := make([]models.Message, len(sess.Messages))
	copy(messages, sess.Messages)
	return messages
}

// Reset 清除对话历史，可重复调用
func (s *ChatService) Reset(sessionID string) {
	sess := s.getOrCreateSession(sessionID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.Tokens = nil
	sess.Messages = nil
}

// ContextLength 返回会话当前上下文token数，供测试和监控使用
func (s *ChatService) ContextLength(sessionID string) int {
	sess := s.getOrCreateSession(sessionID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	return len(sess.Tokens)
}
