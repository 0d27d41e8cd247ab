package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Strategy selects how replies are produced for a turn.
type Strategy string

const (
	StrategyTemplate Strategy = "template"
	StrategySingle   Strategy = "single"
	StrategyAudited  Strategy = "audited"
)

type Config struct {
	Port      int
	LogLevel  string
	APIToken  string
	NatsURL   string
	NatsToken string

	// Persistence. DATABASE_URL wins over the sessions file when both are set.
	DatabaseURL  string
	SessionsPath string

	// Generation back-ends. An empty key disables that provider.
	AnthropicAPIKey string
	AnthropicModel  string
	GeminiAPIKey    string
	GeminiModel     string

	Strategy         Strategy
	TurnBudget       time.Duration
	ProviderTimeout  time.Duration
	RewriteEnabled   bool
	RetrievalEnabled bool

	MaxReplyLen int
	MaxTurns    int
	IdleExpiry  time.Duration

	ReportURL     string
	ReportTimeout time.Duration
}

// Load builds the configuration from the environment. A .env file, if
// present, is read first; real environment variables take precedence.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port:      envInt("SIREN_PORT", 8760),
		LogLevel:  envStr("LOG_LEVEL", "info"),
		APIToken:  envStr("SIREN_API_TOKEN", ""),
		NatsURL:   envStr("NATS_URL", ""),
		NatsToken: envStr("NATS_TOKEN", ""),

		DatabaseURL:  envStr("DATABASE_URL", ""),
		SessionsPath: envStr("SIREN_SESSIONS_PATH", ""),

		AnthropicAPIKey: envStr("ANTHROPIC_API_KEY", ""),
		AnthropicModel:  envStr("SIREN_ANTHROPIC_MODEL", "claude-sonnet-4-20250514"),
		GeminiAPIKey:    envStr("GEMINI_API_KEY", ""),
		GeminiModel:     envStr("SIREN_GEMINI_MODEL", "gemini-2.5-flash"),

		Strategy:         Strategy(envStr("SIREN_STRATEGY", string(StrategyAudited))),
		TurnBudget:       envMillis("SIREN_TURN_BUDGET_MS", 6000),
		ProviderTimeout:  envMillis("SIREN_PROVIDER_TIMEOUT_MS", 2500),
		RewriteEnabled:   envBool("SIREN_REWRITE_ENABLED", true),
		RetrievalEnabled: envBool("SIREN_RETRIEVAL_ENABLED", false),

		MaxReplyLen: envInt("SIREN_MAX_REPLY_LEN", 160),
		MaxTurns:    envInt("SIREN_MAX_TURNS", 20),
		IdleExpiry:  envMillis("SIREN_IDLE_EXPIRY_MS", 30*60*1000),

		ReportURL:     envStr("SIREN_REPORT_URL", ""),
		ReportTimeout: envMillis("SIREN_REPORT_TIMEOUT_MS", 5000),
	}
}

// Validate rejects configurations the pipeline cannot run with.
func (c Config) Validate() error {
	switch c.Strategy {
	case StrategyTemplate, StrategySingle, StrategyAudited:
	default:
		return fmt.Errorf("unknown strategy %q", c.Strategy)
	}
	if c.MaxReplyLen < 140 || c.MaxReplyLen > 170 {
		return fmt.Errorf("max reply length %d outside supported range 140-170", c.MaxReplyLen)
	}
	if c.MaxTurns < 2 {
		return fmt.Errorf("max turns %d too low", c.MaxTurns)
	}
	if c.TurnBudget <= 0 || c.ProviderTimeout <= 0 {
		return fmt.Errorf("turn budget and provider timeout must be positive")
	}
	return nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envMillis(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Millisecond
}
