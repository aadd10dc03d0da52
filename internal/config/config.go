package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/OFFIS-RIT/findet/internal/util"
	"github.com/OFFIS-RIT/findet/pkg/ai"
	"github.com/OFFIS-RIT/findet/pkg/extractor"
	"github.com/OFFIS-RIT/findet/pkg/graph"
)

// Config is the process configuration read from the environment.
type Config struct {
	Provider extractor.Provider

	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string

	OllamaModel   string
	OllamaBaseURL string
	OllamaAPIKey  string

	GeminiAPIKey string
	GeminiModel  string

	ChunkEnabled       bool
	ChunkSizeTokens    int
	ChunkOverlapTokens int
	ParallelRequests   int
	MaxRetries         int
	Timeout            time.Duration

	Debug bool

	Server   ServerConfig
	RabbitMQ RabbitMQConfig
	S3       S3Config

	DatabaseURL string
}

type ServerConfig struct {
	Port         string
	MasterAPIKey string
	JWKSURL      string
}

type RabbitMQConfig struct {
	User     string
	Password string
	Host     string
	Port     string
}

// URL returns the AMQP connection string.
func (c RabbitMQConfig) URL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/", c.User, c.Password, c.Host, c.Port)
}

type S3Config struct {
	Region         string
	Endpoint       string
	PublicEndpoint string
	AccessKey      string
	SecretKey      string
	Bucket         string
}

// Load reads the configuration from the environment, including a .env file
// in the working directory if there is one.
func Load() (*Config, error) {
	util.LoadEnv()

	provider, err := extractor.ParseProvider(util.GetEnvString("LLM_PROVIDER", string(extractor.ProviderOpenAI)))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Provider: provider,

		OpenAIAPIKey:  util.GetEnv("OPENAI_API_KEY"),
		OpenAIModel:   util.GetEnvString("OPENAI_MODEL", "gpt-4o"),
		OpenAIBaseURL: util.GetEnv("OPENAI_BASE_URL"),

		OllamaModel:   util.GetEnvString("OLLAMA_MODEL", "llama3:latest"),
		OllamaBaseURL: util.GetEnvString("OLLAMA_BASE_URL", "http://localhost:11434"),
		OllamaAPIKey:  util.GetEnv("OLLAMA_API_KEY"),

		GeminiAPIKey: util.GetEnv("GEMINI_API_KEY"),
		GeminiModel:  util.GetEnvString("GEMINI_MODEL", "gemini-2.0-flash"),

		ChunkEnabled:       util.GetEnvBool("CHUNK_ENABLED", true),
		ChunkSizeTokens:    util.GetEnvInt("CHUNK_SIZE_TOKENS", 4000),
		ChunkOverlapTokens: util.GetEnvInt("CHUNK_OVERLAP_TOKENS", 200),
		ParallelRequests:   util.GetEnvInt("AI_PARALLEL_REQ", 1),
		MaxRetries:         util.GetEnvInt("AI_MAX_RETRIES", 1),
		Timeout:            time.Duration(util.GetEnvInt("AI_TIMEOUT_SECONDS", 120)) * time.Second,

		Debug: util.GetEnvBool("DEBUG", false),

		Server: ServerConfig{
			Port:         util.GetEnvString("SERVER_PORT", "8080"),
			MasterAPIKey: util.GetEnv("MASTER_API_KEY"),
			JWKSURL:      util.GetEnv("AUTH_JWKS_URL"),
		},
		RabbitMQ: RabbitMQConfig{
			User:     util.GetEnvString("RABBITMQ_USER", "guest"),
			Password: util.GetEnvString("RABBITMQ_PASSWORD", "guest"),
			Host:     util.GetEnvString("RABBITMQ_HOST", "localhost"),
			Port:     util.GetEnvString("RABBITMQ_PORT", "5672"),
		},
		S3: S3Config{
			Region:         util.GetEnvString("AWS_REGION", "us-east-1"),
			Endpoint:       util.GetEnv("AWS_ENDPOINT"),
			PublicEndpoint: util.GetEnv("AWS_PUBLIC_ENDPOINT"),
			AccessKey:      util.GetEnv("AWS_ACCESS_KEY"),
			SecretKey:      util.GetEnv("AWS_SECRET_KEY"),
			Bucket:         util.GetEnv("AWS_BUCKET"),
		},

		DatabaseURL: util.GetEnv("DATABASE_URL"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the chunking and request settings. Provider credentials
// are checked separately by ValidateLLM, since commands that never call a
// model do not need them.
func (c *Config) Validate() error {
	var errs []error
	if c.ChunkSizeTokens <= 0 {
		errs = append(errs, fmt.Errorf("CHUNK_SIZE_TOKENS must be positive, got %d", c.ChunkSizeTokens))
	}
	if c.ChunkOverlapTokens < 0 {
		errs = append(errs, fmt.Errorf("CHUNK_OVERLAP_TOKENS must be non-negative, got %d", c.ChunkOverlapTokens))
	}
	if c.ParallelRequests <= 0 {
		errs = append(errs, fmt.Errorf("AI_PARALLEL_REQ must be positive, got %d", c.ParallelRequests))
	}
	if c.MaxRetries <= 0 {
		errs = append(errs, fmt.Errorf("AI_MAX_RETRIES must be positive, got %d", c.MaxRetries))
	}
	if c.Timeout < 0 {
		errs = append(errs, errors.New("AI_TIMEOUT_SECONDS must be non-negative"))
	}
	return errors.Join(errs...)
}

// ValidateLLM checks that the selected provider has its credentials.
func (c *Config) ValidateLLM() error {
	switch c.Provider {
	case extractor.ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return errors.New("OPENAI_API_KEY is required when LLM_PROVIDER=openai")
		}
	case extractor.ProviderGemini:
		if c.GeminiAPIKey == "" {
			return errors.New("GEMINI_API_KEY is required when LLM_PROVIDER=gemini")
		}
	case extractor.ProviderOllama:
	default:
		return fmt.Errorf("%w: %q", extractor.ErrUnknownProvider, c.Provider)
	}
	return nil
}

// AIClientParams returns the backend settings of the selected provider.
func (c *Config) AIClientParams() extractor.NewAIClientParams {
	params := extractor.NewAIClientParams{
		Provider:              c.Provider,
		MaxConcurrentRequests: int64(c.ParallelRequests),
	}
	switch c.Provider {
	case extractor.ProviderOpenAI:
		params.Model = c.OpenAIModel
		params.BaseURL = c.OpenAIBaseURL
		params.APIKey = c.OpenAIAPIKey
	case extractor.ProviderOllama:
		params.Model = c.OllamaModel
		params.BaseURL = c.OllamaBaseURL
		params.APIKey = c.OllamaAPIKey
	case extractor.ProviderGemini:
		params.Model = c.GeminiModel
		params.APIKey = c.GeminiAPIKey
	}
	return params
}

// ExtractorParams configures the LLM extractor on top of client.
func (c *Config) ExtractorParams(client ai.GraphAIClient) extractor.NewLLMExtractorParams {
	return extractor.NewLLMExtractorParams{
		Client:  client,
		Timeout: c.Timeout,
	}
}

// GraphClientParams returns the chunking and concurrency settings.
func (c *Config) GraphClientParams() graph.NewGraphClientParams {
	return graph.NewGraphClientParams{
		ChunkEnabled:       c.ChunkEnabled,
		ChunkSizeTokens:    c.ChunkSizeTokens,
		ChunkOverlapTokens: c.ChunkOverlapTokens,
		ParallelChunks:     c.ParallelRequests,
		MaxRetries:         c.MaxRetries,
	}
}
