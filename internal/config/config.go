// Package config 提供配置加载和管理功能
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 应用程序配置结构
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Model      ModelConfig      `yaml:"model"`
	Generation GenerationConfig `yaml:"generation"`
	History    HistoryConfig    `yaml:"history"`
	WebSocket  WebSocketConfig  `yaml:"websocket"`
}

// ServerConfig HTTP服务器配置
type ServerConfig struct {
	Host string `yaml:"host"` // 服务器监听地址
	Port int    `yaml:"port"` // 服务器监听端口
}

// ModelConfig 模型推理后端配置
type ModelConfig struct {
	Host     string `yaml:"host"`      // 推理服务器地址（完整URL）
	Name     string `yaml:"name"`      // 模型名称（仅用于日志和展示）
	EOSToken int    `yaml:"eos_token"` // 结束符token ID，初始化时固定
}

// GenerationConfig 文本生成默认参数
type GenerationConfig struct {
	MaxTokens         int     `yaml:"max_tokens"`           // 生成序列总长度上限（含输入token）
	Temperature       float64 `yaml:"temperature"`          // 温度参数
	TopK              int     `yaml:"top_k"`                // Top-k采样
	TopP              float64 `yaml:"top_p"`                // Top-p采样
	RepeatPenalty     float64 `yaml:"repeat_penalty"`       // 重复惩罚系数
	NoRepeatNGramSize int     `yaml:"no_repeat_ngram_size"` // 禁止重复的n-gram长度
}

// HistoryConfig 对话上下文窗口配置
type HistoryConfig struct {
	MaxTokens int `yaml:"max_tokens"` // 上下文窗口token上限
}

// WebSocketConfig WebSocket配置
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size"`  // 读缓冲区大小
	WriteBufferSize int           `yaml:"write_buffer_size"` // 写缓冲区大小
	PingPeriod      time.Duration `yaml:"ping_period"`       // 心跳间隔
	PongWait        time.Duration `yaml:"pong_wait"`         // 等待Pong响应的超时时间
}

// Load 从文件加载配置
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %v", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %v", err)
	}

	// 设置默认值
	applyDefaults(&config)

	// 验证配置
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("配置验证失败: %v", err)
	}

	return &config, nil
}

// applyDefaults 填充缺省的生成参数和窗口参数
func applyDefaults(config *Config) {
	if config.Generation.MaxTokens == 0 {
		config.Generation.MaxTokens = 1000
	}
	if config.Generation.Temperature == 0 {
		config.Generation.Temperature = 0.85
	}
	if config.Generation.TopK == 0 {
		config.Generation.TopK = 50
	}
	if config.Generation.TopP == 0 {
		config.Generation.TopP = 0.92
	}
	if config.Generation.RepeatPenalty == 0 {
		config.Generation.RepeatPenalty = 1.2
	}
	if config.Generation.NoRepeatNGramSize == 0 {
		config.Generation.NoRepeatNGramSize = 2
	}
	if config.History.MaxTokens == 0 {
		config.History.MaxTokens = 1024
	}
	if config.WebSocket.ReadBufferSize == 0 {
		config.WebSocket.ReadBufferSize = 1024
	}
	if config.WebSocket.WriteBufferSize == 0 {
		config.WebSocket.WriteBufferSize = 1024
	}
	if config.WebSocket.PingPeriod == 0 {
		config.WebSocket.PingPeriod = 30 * time.Second
	}
	if config.WebSocket.PongWait == 0 {
		config.WebSocket.PongWait = 60 * time.Second
	}
}

// validateConfig 验证配置是否有效
func validateConfig(config *Config) error {
	// 验证服务器配置
	if config.Server.Host == "" {
		return fmt.Errorf("服务器地址不能为空")
	}
	if config.Server.Port <= 0 {
		return fmt.Errorf("服务器端口必须大于0")
	}

	// 验证模型后端配置
	if config.Model.Host == "" {
		return fmt.Errorf("推理服务器地址不能为空")
	}
	if config.Model.EOSToken < 0 {
		return fmt.Errorf("结束符token ID不能为负数")
	}

	// 验证生成参数
	if config.Generation.MaxTokens <= 0 {
		return fmt.Errorf("最大生成token数必须大于0")
	}
	if config.Generation.Temperature <= 0 {
		return fmt.Errorf("温度参数必须大于0")
	}
	if config.Generation.TopP <= 0 || config.Generation.TopP > 1 {
		return fmt.Errorf("top_p必须在(0, 1]范围内")
	}

	// 验证上下文窗口配置
	if config.History.MaxTokens <= 0 {
		return fmt.Errorf("上下文窗口token上限必须大于0")
	}

	return nil
}
