package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	"github.com/kelseyhightower/envconfig"

	"github.com/zhouzirui/homebot/backend/internal/model/speech"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server ServerConfig
	Chat   ChatConfig
	AI     AIConfig
	Speech SpeechConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	chat, err := loadChatConfig()
	if err != nil {
		return nil, err
	}

	var ai AIConfig
	if err := envconfig.Process("", &ai); err != nil {
		return nil, fmt.Errorf("load ai config: %w", err)
	}

	speechCfg, err := loadSpeechConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, Chat: chat, AI: ai, Speech: speechCfg}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8080"`
	Addr string `ignored:"true"`
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	var cfg ServerConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return ServerConfig{}, fmt.Errorf("load server config: %w", err)
	}

	port := strings.TrimSpace(cfg.Port)
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		cfg.Addr = port
		return cfg, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	cfg.Addr = ":" + port
	return cfg, nil
}

// ChatConfig 描述规则表与对话节奏。
type ChatConfig struct {
	RulesPath    string        `envconfig:"RULES_PATH"`
	ReplyDelay   time.Duration `envconfig:"REPLY_DELAY" default:"1s"`
	HistoryLimit int           `envconfig:"CHAT_HISTORY_LIMIT" default:"10"`
}

func loadChatConfig() (ChatConfig, error) {
	var cfg ChatConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return ChatConfig{}, fmt.Errorf("load chat config: %w", err)
	}
	if cfg.ReplyDelay < 0 {
		return ChatConfig{}, fmt.Errorf("invalid REPLY_DELAY value: %s", cfg.ReplyDelay)
	}
	if cfg.HistoryLimit < 1 {
		cfg.HistoryLimit = 1
	}
	cfg.RulesPath = strings.TrimSpace(cfg.RulesPath)
	return cfg, nil
}

// AIConfig 描述兜底回复所用的大模型配置。
type AIConfig struct {
	APIKey          string   `envconfig:"ARK_API_KEY"`
	AccessKey       string   `envconfig:"ARK_ACCESS_KEY"`
	SecretKey       string   `envconfig:"ARK_SECRET_KEY"`
	Model           string   `envconfig:"ARK_MODEL"`
	BaseURL         string   `envconfig:"ARK_BASE_URL" default:"https://ark.cn-beijing.volces.com/api/v3"`
	Region          string   `envconfig:"ARK_REGION" default:"cn-beijing"`
	Temperature     *float64 `envconfig:"ARK_TEMPERATURE"`
	TopP            *float64 `envconfig:"ARK_TOP_P"`
	MaxTokens       *int     `envconfig:"ARK_MAX_TOKENS"`
	FallbackEnabled bool     `envconfig:"AI_FALLBACK_ENABLED" default:"false"`
}

// Enabled 表示开启了兜底并提供了必需的密钥。
func (c AIConfig) Enabled() bool {
	return c.FallbackEnabled && c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel 使用配置创建一个模型实例。
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("ark credentials or model missing: set ARK_API_KEY + ARK_MODEL or an AK/SK pair")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

// SpeechConfig 描述宿主语音能力的默认播放参数。
type SpeechConfig struct {
	Enabled        bool     `envconfig:"SPEECH_ENABLED" default:"true"`
	Language       string   `envconfig:"SPEECH_LANGUAGE" default:"en-US"`
	Rate           float64  `envconfig:"SPEECH_RATE" default:"1.0"`
	Pitch          float64  `envconfig:"SPEECH_PITCH" default:"1.0"`
	Volume         float64  `envconfig:"SPEECH_VOLUME" default:"1.0"`
	PreferredVoice []string `envconfig:"SPEECH_PREFERRED_VOICE" default:"Google,Female"`
}

func loadSpeechConfig() (SpeechConfig, error) {
	var cfg SpeechConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return SpeechConfig{}, fmt.Errorf("load speech config: %w", err)
	}
	if cfg.Rate <= 0 || cfg.Pitch <= 0 {
		return SpeechConfig{}, fmt.Errorf("invalid speech rate/pitch: %v/%v", cfg.Rate, cfg.Pitch)
	}
	if cfg.Volume < 0 || cfg.Volume > 1 {
		return SpeechConfig{}, fmt.Errorf("invalid SPEECH_VOLUME value: %v", cfg.Volume)
	}
	return cfg, nil
}

// Settings 转换为语音模块使用的播放参数。
func (c SpeechConfig) Settings() speech.Settings {
	return speech.Settings{
		Language:       c.Language,
		Rate:           c.Rate,
		Pitch:          c.Pitch,
		Volume:         c.Volume,
		PreferredVoice: append([]string(nil), c.PreferredVoice...),
	}
}
