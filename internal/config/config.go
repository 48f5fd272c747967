// Package config provides configuration loading for registrybot.
//
// Configuration is loaded from an optional YAML file and overridden by
// environment variables. Secrets are wrapped in the Secret type so they
// never leak through logs or serialized config dumps.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Sentinel errors for configuration validation.
var (
	// ErrInvalidConfig indicates a configuration value that fails validation.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Config holds the complete registrybot configuration.
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	Observability ObservabilityConfig `koanf:"observability"`
	LLM           LLMConfig           `koanf:"llm"`
	Embeddings    EmbeddingsConfig    `koanf:"embeddings"`
	Translate     TranslateConfig     `koanf:"translate"`
	Redis         RedisConfig         `koanf:"redis"`
	Knowledge     KnowledgeConfig     `koanf:"knowledge"`
	Chat          ChatConfig          `koanf:"chat"`
	Twilio        TwilioConfig        `koanf:"twilio"`
	Dispatch      DispatchConfig      `koanf:"dispatch"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            int      `koanf:"port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// ObservabilityConfig holds logging and service identity configuration.
type ObservabilityConfig struct {
	ServiceName string `koanf:"service_name"`
	Development bool   `koanf:"development"`
}

// LLMConfig holds chat completion model configuration.
//
// BaseURL accepts any OpenAI-compatible endpoint. The Fallback section
// points at a secondary provider (typically Groq) used when the primary
// completion call fails.
type LLMConfig struct {
	BaseURL     string  `koanf:"base_url"`
	APIKey      Secret  `koanf:"api_key"`
	Model       string  `koanf:"model"`
	Temperature float64 `koanf:"temperature"`
	MaxTokens   int     `koanf:"max_tokens"`

	Fallback FallbackLLMConfig `koanf:"fallback"`
}

// FallbackLLMConfig holds the secondary completion provider configuration.
type FallbackLLMConfig struct {
	Enabled bool   `koanf:"enabled"`
	BaseURL string `koanf:"base_url"`
	APIKey  Secret `koanf:"api_key"`
	Model   string `koanf:"model"`
}

// EmbeddingsConfig holds embedding model configuration.
type EmbeddingsConfig struct {
	BaseURL string `koanf:"base_url"`
	APIKey  Secret `koanf:"api_key"`
	Model   string `koanf:"model"`
}

// TranslateConfig holds translation provider configuration.
//
// When UseLLM is true the answer is translated back to the user's
// language by the chat model instead of the translation provider. The
// provider is still used for language detection.
type TranslateConfig struct {
	Endpoint string `koanf:"endpoint"`
	APIKey   Secret `koanf:"api_key"`
	UseLLM   bool   `koanf:"use_llm"`
}

// RedisConfig holds chat history store configuration.
//
// HistoryTTL bounds session retention. Zero keeps history forever, which
// matches the original deployment but grows the store without bound.
type RedisConfig struct {
	Addr       string   `koanf:"addr"`
	Password   Secret   `koanf:"password"`
	DB         int      `koanf:"db"`
	HistoryTTL Duration `koanf:"history_ttl"`
}

// KnowledgeConfig holds knowledge corpus and retrieval configuration.
type KnowledgeConfig struct {
	CorpusPath   string `koanf:"corpus_path"`
	ChunkSize    int    `koanf:"chunk_size"`
	ChunkOverlap int    `koanf:"chunk_overlap"`
	TopK         int    `koanf:"top_k"`
}

// ChatConfig holds conversation behavior switches.
type ChatConfig struct {
	HistoryEnabled        bool   `koanf:"history_enabled"`
	ContextualizerEnabled bool   `koanf:"contextualizer_enabled"`
	DefaultLanguage       string `koanf:"default_language"`
	ChannelPrefix         string `koanf:"channel_prefix"`
	SummaryWindow         int    `koanf:"summary_window"`
	RecentWindow          int    `koanf:"recent_window"`
}

// TwilioConfig holds outbound WhatsApp delivery configuration.
type TwilioConfig struct {
	AccountSID     string `koanf:"account_sid"`
	AuthToken      Secret `koanf:"auth_token"`
	WhatsAppNumber string `koanf:"whatsapp_number"`
}

// DispatchConfig holds the outbound worker pool configuration.
type DispatchConfig struct {
	Workers int `koanf:"workers"`
}

// applyDefaults fills in defaults for unset fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 3002
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = Duration(10 * time.Second)
	}
	if cfg.Observability.ServiceName == "" {
		cfg.Observability.ServiceName = "registrybot"
	}
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "gpt-3.5-turbo"
	}
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = 0.85
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = 350
	}
	if cfg.LLM.Fallback.BaseURL == "" {
		cfg.LLM.Fallback.BaseURL = "https://api.groq.com/openai/v1"
	}
	if cfg.LLM.Fallback.Model == "" {
		cfg.LLM.Fallback.Model = "llama-3.1-8b-instant"
	}
	if cfg.Embeddings.BaseURL == "" {
		cfg.Embeddings.BaseURL = cfg.LLM.BaseURL
	}
	if cfg.Embeddings.Model == "" {
		cfg.Embeddings.Model = "text-embedding-3-small"
	}
	if cfg.Embeddings.APIKey == "" {
		cfg.Embeddings.APIKey = cfg.LLM.APIKey
	}
	if cfg.Translate.Endpoint == "" {
		cfg.Translate.Endpoint = "https://translation.googleapis.com/language/translate/v2"
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Redis.HistoryTTL == 0 {
		cfg.Redis.HistoryTTL = Duration(30 * 24 * time.Hour)
	}
	if cfg.Knowledge.CorpusPath == "" {
		cfg.Knowledge.CorpusPath = filepath.Join("data", "registry_info.txt")
	}
	if cfg.Knowledge.ChunkSize == 0 {
		cfg.Knowledge.ChunkSize = 400
	}
	if cfg.Knowledge.ChunkOverlap == 0 {
		cfg.Knowledge.ChunkOverlap = 40
	}
	if cfg.Knowledge.TopK == 0 {
		cfg.Knowledge.TopK = 3
	}
	if cfg.Chat.DefaultLanguage == "" {
		cfg.Chat.DefaultLanguage = "en"
	}
	if cfg.Chat.ChannelPrefix == "" {
		cfg.Chat.ChannelPrefix = "whatsapp"
	}
	if cfg.Chat.SummaryWindow == 0 {
		cfg.Chat.SummaryWindow = 70
	}
	if cfg.Chat.RecentWindow == 0 {
		cfg.Chat.RecentWindow = 4
	}
	if cfg.Dispatch.Workers == 0 {
		cfg.Dispatch.Workers = 2
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server port must be 1-65535, got %d", ErrInvalidConfig, c.Server.Port)
	}
	if c.Knowledge.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size must be positive", ErrInvalidConfig)
	}
	if c.Knowledge.ChunkOverlap < 0 || c.Knowledge.ChunkOverlap >= c.Knowledge.ChunkSize {
		return fmt.Errorf("%w: chunk overlap must be non-negative and smaller than chunk size", ErrInvalidConfig)
	}
	if c.Knowledge.TopK <= 0 {
		return fmt.Errorf("%w: top_k must be positive", ErrInvalidConfig)
	}
	if ext := strings.ToLower(filepath.Ext(c.Knowledge.CorpusPath)); ext != ".txt" {
		return fmt.Errorf("%w: knowledge corpus must be a .txt file, got %q", ErrInvalidConfig, c.Knowledge.CorpusPath)
	}
	if c.Chat.SummaryWindow <= 0 {
		return fmt.Errorf("%w: summary window must be positive", ErrInvalidConfig)
	}
	if c.Chat.RecentWindow <= 0 {
		return fmt.Errorf("%w: recent window must be positive", ErrInvalidConfig)
	}
	if c.Dispatch.Workers < 1 {
		return fmt.Errorf("%w: dispatch workers must be at least 1", ErrInvalidConfig)
	}
	return nil
}
