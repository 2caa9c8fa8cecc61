package models

import "context"

// Message 对话消息
type Message struct {
	Role    string `json:"role"`    // 消息角色：user/assistant
	Content string `json:"content"` // 消息内容
}

// GenerationParams 文本生成参数
type GenerationParams struct {
	MaxTokens         int     // 生成序列总长度上限（含输入token）
	Temperature       float64 // 温度参数
	TopK              int     // Top-k采样
	TopP              float64 // Top-p采样
	RepeatPenalty     float64 // 重复惩罚系数
	NoRepeatNGramSize int     // 禁止重复的n-gram长度
}

// GenerateOptions 单次请求可覆盖的生成参数，nil表示使用默认值
type GenerateOptions struct {
	Temperature *float64 // 覆盖温度参数
	MaxTokens   *int     // 覆盖最大生成token数
}

// Tokenizer 分词能力接口
type Tokenizer interface {
	// Encode 将文本编码为token序列
	Encode(ctx context.Context, text string) ([]int, error)

	// Decode 将token序列解码为文本，skipSpecial为true时去除特殊token
	Decode(ctx context.Context, tokens []int, skipSpecial bool) (string, error)
}

// Generator 文本生成能力接口。
// 返回的token序列以输入序列原样开头，后跟新生成的token。
type Generator interface {
	Generate(ctx context.Context, tokens []int, params GenerationParams) ([]int, error)
}

// ChatService 对话服务接口
type ChatService interface {
	// Respond 处理用户消息并返回回复
	Respond(ctx context.Context, sessionID string, text string, opts *GenerateOptions) (string, error)

	// History 获取对话历史
	History(sessionID string) []Message

	// Reset 清除对话历史
	Reset(sessionID string)
}
