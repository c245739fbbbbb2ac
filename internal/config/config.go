package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort       string   `env:"HTTP_PORT" envDefault:"8000"`
	DatabaseURL    string   `env:"DATABASE_URL,required"`
	FrontendURL    string   `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`

	JWTSecret            string        `env:"JWT_SECRET_KEY,required"`
	AccessTokenTTL       time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"1h"`
	VerificationTokenTTL time.Duration `env:"EMAIL_VERIFICATION_TTL" envDefault:"24h"`
	ResetTokenTTL        time.Duration `env:"PASSWORD_RESET_TTL" envDefault:"1h"`

	LLMAPIKey         string `env:"LLM_API_KEY,required"`
	LLMBaseURL        string `env:"LLM_BASE_URL" envDefault:"https://api.openai.com/v1"`
	LLMModel          string `env:"LLM_MODEL" envDefault:"gpt-4o"`
	LLMLightModel     string `env:"LLM_LIGHT_MODEL" envDefault:"gpt-4o-mini"`
	LLMEmbeddingModel string `env:"LLM_EMBEDDING_MODEL" envDefault:"text-embedding-3-small"`
	ChatMemorySize    int    `env:"CHAT_MEMORY_SIZE" envDefault:"5"`
	RetrieverLimit    int    `env:"RETRIEVER_LIMIT" envDefault:"3"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPass     string `env:"SMTP_PASS"`
	SMTPFrom     string `env:"SMTP_FROM"`
	SMTPFromName string `env:"SMTP_FROM_NAME" envDefault:"Ultimate Rules Chat"`
	SMTPUseTLS   bool   `env:"SMTP_USE_TLS" envDefault:"false"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ClientConfig configura el cliente de terminal.
type ClientConfig struct {
	APIURL         string        `env:"API_URL" envDefault:"http://localhost:8000"`
	StatePath      string        `env:"RULES_CHAT_STATE"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"60s"`
	Debug          bool          `env:"RULES_CHAT_DEBUG" envDefault:"false"`
}

// LoadClientConfig carga la configuración del cliente. Si no se indica ruta de estado
// se usa ~/.rules-chat/state.json.
func LoadClientConfig() (*ClientConfig, error) {
	var cfg ClientConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	if cfg.StatePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		cfg.StatePath = filepath.Join(home, ".rules-chat", "state.json")
	}
	return &cfg, nil
}

// IngestConfig configura la carga del reglamento en la base.
type IngestConfig struct {
	DatabaseURL       string `env:"DATABASE_URL,required"`
	LLMAPIKey         string `env:"LLM_API_KEY,required"`
	LLMBaseURL        string `env:"LLM_BASE_URL" envDefault:"https://api.openai.com/v1"`
	LLMModel          string `env:"LLM_MODEL" envDefault:"gpt-4o"`
	LLMEmbeddingModel string `env:"LLM_EMBEDDING_MODEL" envDefault:"text-embedding-3-small"`
	RulesFile         string `env:"RULES_FILE" envDefault:"texts/Official-Rules-of-Ultimate-2024-2025.md"`
	GlossaryFile      string `env:"GLOSSARY_FILE"`
	GlossaryChunkSize int    `env:"GLOSSARY_CHUNK_SIZE" envDefault:"1800"`
}

func LoadIngestConfig() (*IngestConfig, error) {
	var cfg IngestConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// EvalConfig configura la evaluacion offline del retriever y las respuestas.
type EvalConfig struct {
	DatabaseURL       string `env:"DATABASE_URL,required"`
	LLMAPIKey         string `env:"LLM_API_KEY,required"`
	LLMBaseURL        string `env:"LLM_BASE_URL" envDefault:"https://api.openai.com/v1"`
	LLMModel          string `env:"LLM_MODEL" envDefault:"gpt-4o"`
	LLMLightModel     string `env:"LLM_LIGHT_MODEL" envDefault:"gpt-4o-mini"`
	LLMEmbeddingModel string `env:"LLM_EMBEDDING_MODEL" envDefault:"text-embedding-3-small"`
	JudgeModel        string `env:"EVAL_JUDGE_MODEL" envDefault:"gpt-4o-mini"`
	RetrieverLimit    int    `env:"RETRIEVER_LIMIT" envDefault:"3"`
	DatasetFile       string `env:"EVAL_DATASET"`
}

func LoadEvalConfig() (*EvalConfig, error) {
	var cfg EvalConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
