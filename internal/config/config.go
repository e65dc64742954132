// Package config loads the service settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

const (
	AIProviderOpenAI   = "openai"
	AIProviderTemplate = "template"
)

// Config holds all configuration values for the API.
type Config struct {
	HTTPPort int

	// Empty means in-memory stores.
	DatabaseURL string

	// Empty disables the follow-up event queue.
	RabbitMQURL string

	AIProvider    string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	MailHost string
	MailPort int
	MailUser string
	MailPass string
	MailFrom string

	SuggestionTTL time.Duration

	// Cron schedule for the suggestion janitor.
	JanitorSchedule string

	CORSOrigins []string

	// Generate requests allowed per client per minute.
	GenerateRateLimit int
}

// Load reads .env when present and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	port, err := intEnv("PORT", 8080)
	if err != nil {
		return nil, err
	}
	mailPort, err := intEnv("MAIL_PORT", 587)
	if err != nil {
		return nil, err
	}
	rateLimit, err := intEnv("GENERATE_RATE_LIMIT", 10)
	if err != nil {
		return nil, err
	}

	ttl := 24 * time.Hour
	if v := os.Getenv("SUGGESTION_TTL"); v != "" {
		ttl, err = time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid SUGGESTION_TTL: %w", err)
		}
	}

	schedule := os.Getenv("JANITOR_SCHEDULE")
	if schedule == "" {
		schedule = "@every 10m"
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid JANITOR_SCHEDULE: %w", err)
	}

	apiKey := os.Getenv("OPENAI_API_KEY")
	provider := strings.ToLower(os.Getenv("AI_PROVIDER"))
	switch provider {
	case "":
		provider = AIProviderTemplate
		if apiKey != "" {
			provider = AIProviderOpenAI
		}
	case AIProviderOpenAI:
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required when AI_PROVIDER=openai")
		}
	case AIProviderTemplate:
	default:
		return nil, fmt.Errorf("invalid AI_PROVIDER %q", provider)
	}

	model := os.Getenv("OPENAI_MODEL")
	if model == "" {
		model = "gpt-4o-mini"
	}

	origins := []string{"*"}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		origins = splitList(v)
	}

	return &Config{
		HTTPPort:          port,
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		RabbitMQURL:       os.Getenv("RABBITMQ_URL"),
		AIProvider:        provider,
		OpenAIAPIKey:      apiKey,
		OpenAIBaseURL:     os.Getenv("OPENAI_BASE_URL"),
		OpenAIModel:       model,
		MailHost:          os.Getenv("MAIL_HOST"),
		MailPort:          mailPort,
		MailUser:          os.Getenv("MAIL_USER"),
		MailPass:          os.Getenv("MAIL_PASS"),
		MailFrom:          os.Getenv("MAIL_FROM"),
		SuggestionTTL:     ttl,
		JanitorSchedule:   schedule,
		CORSOrigins:       origins,
		GenerateRateLimit: rateLimit,
	}, nil
}

// MailConfigured reports whether SMTP delivery can be used.
func (c *Config) MailConfigured() bool {
	return c.MailHost != "" && c.MailFrom != ""
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
