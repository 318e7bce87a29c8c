package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigPath = "./configs/config.yaml"

	defaultOpenAIKeyEnv   = "OPENAI_API_KEY"
	defaultGoogleKeyEnv   = "GOOGLE_API_KEY"
	defaultOpenAIBaseURL  = "https://api.openai.com/v1"
	defaultChunkSize      = 10000
	defaultChunkOverlap   = 1000
	defaultTopK           = 4
	defaultTemperature    = 0.3
	defaultDBPath         = "./chroma_db"
	defaultCollection     = "pdf_chat"
	defaultAddr           = ":8080"
	defaultBodyLimitMB    = 64
)

// default models per provider, embedding first
var defaultModels = map[string][2]string{
	"openai":   {"text-embedding-3-small", "gpt-4o-mini"},
	"googleai": {"embedding-001", "gemini-2.0-flash"},
	"ollama":   {"nomic-embed-text", "llama3.2"},
}

type Config struct {
	EmbedLLM     LLMConfig      `yaml:"embed_llm"`
	InferenceLLM LLMConfig      `yaml:"inference_llm"`
	RAG          RAGConfig      `yaml:"rag"`
	Database     DatabaseConfig `yaml:"database"`
	Server       ServerConfig   `yaml:"server"`
	Log          LogConfig      `yaml:"log"`
}

// LLMConfig describes one remote model endpoint. Key wins over KeyEnv.
// Temperature is a pointer so an explicit 0 survives defaulting.
type LLMConfig struct {
	Provider    string   `yaml:"provider" validate:"oneof=openai googleai ollama"`
	BaseURL     string   `yaml:"base_url"`
	Key         string   `yaml:"key"`
	KeyEnv      string   `yaml:"key_env"`
	Model       string   `yaml:"model" validate:"required"`
	Temperature *float64 `yaml:"temperature" validate:"omitempty,gte=0,lte=2"`
}

// GetTemperature returns the sampling temperature, or the default when unset.
func (c *LLMConfig) GetTemperature() float64 {
	if c.Temperature == nil {
		return defaultTemperature
	}
	return *c.Temperature
}

type RAGConfig struct {
	ChunkSize     int    `yaml:"chunk_size" validate:"gt=0"`
	ChunkOverlap  int    `yaml:"chunk_overlap" validate:"gte=0,ltfield=ChunkSize"`
	Splitter      string `yaml:"splitter" validate:"oneof=recursive fixed token"`
	TopK          int    `yaml:"top_k" validate:"gt=0"`
	IndexMode     string `yaml:"index_mode" validate:"oneof=replace append"`
	Backend       string `yaml:"backend" validate:"oneof=chromem postgres"`
	DBPath        string `yaml:"db_path" validate:"required_if=Backend chromem"`
	Collection    string `yaml:"collection" validate:"required"`
	Compress      bool   `yaml:"compress"`
	EncryptionKey string `yaml:"encryption_key" validate:"omitempty,len=32"`
}

type DatabaseConfig struct {
	DSN    string `yaml:"dsn"`
	Driver string `yaml:"driver" validate:"omitempty,oneof=pgdriver pq"`
	Debug  bool   `yaml:"debug"`
}

type ServerConfig struct {
	Addr        string `yaml:"addr"`
	BodyLimitMB int    `yaml:"body_limit_mb" validate:"gt=0"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// LoadConfig reads the YAML file at path. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	// .env is optional, real environment variables take precedence
	_ = godotenv.Load()

	cfg := &Config{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	applyDefaults(cfg)
	cfg.EmbedLLM.resolveKey()
	cfg.InferenceLLM.resolveKey()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a configuration usable against the public OpenAI API.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.RAG.Backend == "postgres" && c.Database.DSN == "" {
		return errors.New("invalid config: database.dsn is required for the postgres backend")
	}
	return nil
}

func applyDefaults(cfg *Config) {
	applyLLMDefaults(&cfg.EmbedLLM, 0)
	applyLLMDefaults(&cfg.InferenceLLM, 1)
	if cfg.InferenceLLM.Temperature == nil {
		t := defaultTemperature
		cfg.InferenceLLM.Temperature = &t
	}

	if cfg.RAG.ChunkSize == 0 {
		cfg.RAG.ChunkSize = defaultChunkSize
		if cfg.RAG.ChunkOverlap == 0 {
			cfg.RAG.ChunkOverlap = defaultChunkOverlap
		}
	}
	if cfg.RAG.Splitter == "" {
		cfg.RAG.Splitter = "recursive"
	}
	if cfg.RAG.TopK == 0 {
		cfg.RAG.TopK = defaultTopK
	}
	if cfg.RAG.IndexMode == "" {
		cfg.RAG.IndexMode = "replace"
	}
	if cfg.RAG.Backend == "" {
		cfg.RAG.Backend = "chromem"
	}
	if cfg.RAG.DBPath == "" {
		cfg.RAG.DBPath = defaultDBPath
	}
	if cfg.RAG.Collection == "" {
		cfg.RAG.Collection = defaultCollection
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "pgdriver"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultAddr
	}
	if cfg.Server.BodyLimitMB == 0 {
		cfg.Server.BodyLimitMB = defaultBodyLimitMB
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

// applyLLMDefaults fills provider specific defaults. kind selects the
// embedding (0) or inference (1) model.
func applyLLMDefaults(c *LLMConfig, kind int) {
	if c.Provider == "" {
		c.Provider = "openai"
	}
	switch c.Provider {
	case "openai":
		if c.BaseURL == "" {
			c.BaseURL = defaultOpenAIBaseURL
		}
		if c.KeyEnv == "" {
			c.KeyEnv = defaultOpenAIKeyEnv
		}
	case "googleai":
		if c.KeyEnv == "" {
			c.KeyEnv = defaultGoogleKeyEnv
		}
	}
	if models, ok := defaultModels[c.Provider]; ok && c.Model == "" {
		c.Model = models[kind]
	}
}

func (c *LLMConfig) resolveKey() {
	if c.Key == "" && c.KeyEnv != "" {
		c.Key = os.Getenv(c.KeyEnv)
	}
}
