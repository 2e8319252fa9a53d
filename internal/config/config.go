package config

import (
	"time"

	"github.com/caarlos0/env/v10"
)

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort string `env:"HTTP_PORT" envDefault:"8080"`

	StoreDriver   string `env:"STORE_DRIVER" envDefault:"file"`
	StoreDir      string `env:"STORE_DIR" envDefault:"./data"`
	DatabaseURL   string `env:"DATABASE_URL"`
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RedisPrefix   string `env:"REDIS_PREFIX" envDefault:"bookbot:"`

	LLMProvider string `env:"LLM_PROVIDER" envDefault:"gemini"`
	LLMAPIKey   string `env:"LLM_API_KEY"`
	APIKey      string `env:"API_KEY"`
	LLMBaseURL  string `env:"LLM_BASE_URL" envDefault:"https://api.openai.com/v1"`
	LLMModel    string `env:"LLM_MODEL" envDefault:"gemini-2.5-flash"`

	ResponderTimeout time.Duration `env:"RESPONDER_TIMEOUT" envDefault:"60s"`
	ResponderHistory int           `env:"RESPONDER_HISTORY" envDefault:"10"`
	SubmitRateLimit  int           `env:"SUBMIT_RATE_LIMIT" envDefault:"20"`

	LogDevelopment bool `env:"LOG_DEVELOPMENT" envDefault:"false"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	// API_KEY es el nombre histórico de la credencial del modelo.
	if cfg.LLMAPIKey == "" {
		cfg.LLMAPIKey = cfg.APIKey
	}
	return &cfg, nil
}
