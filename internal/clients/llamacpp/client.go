// Package llamacpp 提供llama.cpp推理服务器的HTTP客户端
package llamacpp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"ai_chat_mini/internal/models"
)

// Config llama.cpp客户端配置
type Config struct {
	Host     string // 推理服务器地址（完整URL）
	EOSToken int    // 结束符token ID，初始化时固定
}

// Client llama.cpp客户端
type Client struct {
	config Config
	client *http.Client
}

// TokenizeRequest 分词请求参数
type TokenizeRequest struct {
	Content    string `json:"content"`     // 待分词文本
	AddSpecial bool   `json:"add_special"` // 是否添加特殊token
}

// TokenizeResponse 分词响应
type TokenizeResponse struct {
	Tokens []int `json:"tokens"` // token序列
}

// DetokenizeRequest 反分词请求参数
type DetokenizeRequest struct {
	Tokens []int `json:"tokens"` // token序列
}

// DetokenizeResponse 反分词响应
type DetokenizeResponse struct {
	Content string `json:"content"` // 解码后的文本
}

// CompletionRequest 补全请求参数
type CompletionRequest struct {
	Prompt           []int   `json:"prompt"`                       // 输入token序列
	NPredict         int     `json:"n_predict"`                    // 最大生成token数，0表示不生成
	Temperature      float64 `json:"temperature,omitempty"`        // 温度参数
	TopK             int     `json:"top_k,omitempty"`              // Top-k采样
	TopP             float64 `json:"top_p,omitempty"`              // Top-p采样
	RepeatPenalty    float64 `json:"repeat_penalty,omitempty"`     // 重复惩罚系数
	DryMultiplier    float64 `json:"dry_multiplier,omitempty"`     // DRY采样惩罚强度
	DryAllowedLength int     `json:"dry_allowed_length,omitempty"` // DRY采样允许的重复长度
	Stream           bool    `json:"stream"`                       // 是否流式输出
	ReturnTokens     bool    `json:"return_tokens"`                // 是否返回token序列
}

// CompletionResponse 补全响应
type CompletionResponse struct {
	Content         string `json:"content"`          // 生成的文本
	Tokens          []int  `json:"tokens"`           // 新生成的token序列
	Stop            bool   `json:"stop"`             // 是否已停止
	StopType        string `json:"stop_type"`        // 停止原因
	TokensPredicted int    `json:"tokens_predicted"` // 生成token数
	TokensEvaluated int    `json:"tokens_evaluated"` // 评估token数
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status string `json:"status"` // 服务状态
}

// NewClient 创建新的llama.cpp客户端
func NewClient(config Config) *Client {
	return &Client{
		config: config,
		client: &http.Client{},
	}
}

// Encode 将文本编码为token序列
func (c *Client) Encode(ctx context.Context, text string) ([]int, error) {
	var response TokenizeResponse
	req := TokenizeRequest{Content: text, AddSpecial: true}
	if err := c.postJSON(ctx, "/tokenize", req, &response); err != nil {
		return nil, fmt.Errorf("分词请求失败: %v", err)
	}
	return response.Tokens, nil
}

// Decode 将token序列解码为文本，skipSpecial为true时去除结束符等特殊token
func (c *Client) Decode(ctx context.Context, tokens []int, skipSpecial bool) (string, error) {
	if skipSpecial {
		tokens = c.stripSpecial(tokens)
	}
	if len(tokens) == 0 {
		return "", nil
	}

	var response DetokenizeResponse
	req := DetokenizeRequest{Tokens: tokens}
	if err := c.postJSON(ctx, "/detokenize", req, &response); err != nil {
		return "", fmt.Errorf("反分词请求失败: %v", err)
	}
	return response.Content, nil
}

// Generate 生成文本补全。
// 返回完整序列：输入token原样在前，新生成的token在后。
func (c *Client) Generate(ctx context.Context, tokens []int, params models.GenerationParams) ([]int, error) {
	// MaxTokens约束的是完整序列长度，换算为新生成token的配额
	nPredict := params.MaxTokens - len(tokens)
	if nPredict < 0 {
		nPredict = 0
	}

	req := CompletionRequest{
		Prompt:        tokens,
		NPredict:      nPredict,
		Temperature:   params.Temperature,
		TopK:          params.TopK,
		TopP:          params.TopP,
		RepeatPenalty: params.RepeatPenalty,
		Stream:        false,
		ReturnTokens:  true,
	}
	// no-repeat n-gram约束通过DRY采样近似
	if params.NoRepeatNGramSize > 0 {
		req.DryMultiplier = 0.8
		req.DryAllowedLength = params.NoRepeatNGramSize
	}

	var response CompletionResponse
	if err := c.postJSON(ctx, "/completion", req, &response); err != nil {
		return nil, fmt.Errorf("补全请求失败: %v", err)
	}

	result := make([]int, 0, len(tokens)+len(response.Tokens))
	result = append(result, tokens...)
	result = append(result, response.Tokens...)
	return result, nil
}

// Health 检查推理服务器是否就绪
func (c *Client) Health(ctx context.Context) error {
	url := fmt.Sprintf("%s/health", c.config.Host)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return fmt.Errorf("创建请求失败: %v", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("发送请求失败: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("推理服务器未就绪: %s", string(body))
	}
	return nil
}

// stripSpecial 去除序列中的特殊token
func (c *Client) stripSpecial(tokens []int) []int {
	filtered := make([]int, 0, len(tokens))
	for _, t := range tokens {
		if t == c.config.EOSToken {
			continue
		}
		filtered = append(filtered, t)
	}
	return filtered
}

// postJSON 发送JSON请求并解析JSON响应
func (c *Client) postJSON(ctx context.Context, path string, reqBody, respBody interface{}) error {
	// 序列化请求体
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("序列化请求失败: %v", err)
	}

	// 构建请求URL
	url := fmt.Sprintf("%s%s", c.config.Host, path)

	// 创建请求
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("创建请求失败: %v", err)
	}

	// 设置请求头
	req.Header.Set("Content-Type", "application/json")

	// 发送请求
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("发送请求失败: %v", err)
	}
	defer resp.Body.Close()

	// 检查响应状态码
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("服务器返回错误: %s", string(body))
	}

	// 解析响应
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(respBody); err != nil {
		return fmt.Errorf("解析响应失败: %v", err)
	}

	return nil
}
