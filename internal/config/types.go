package config

import "time"

// QualityTier controls the model selection and trade-off between speed/cost and quality.
type QualityTier string

const (
	QualityLite   QualityTier = "lite"
	QualityNormal QualityTier = "normal"
	QualityMax    QualityTier = "max"
)

// ProviderType identifies an LLM provider.
type ProviderType string

const (
	ProviderAnthropic  ProviderType = "anthropic"
	ProviderOpenAI     ProviderType = "openai"
	ProviderGoogle     ProviderType = "google"
	ProviderOllama     ProviderType = "ollama"
	ProviderMiniMax    ProviderType = "minimax"
	ProviderOpenRouter ProviderType = "openrouter"
)

// Session backends.
const (
	SessionMemory   = "memory"
	SessionSQLite   = "sqlite"
	SessionPostgres = "postgres"
)

// DefaultPath is the config file the CLI reads and the wizard writes.
const DefaultPath = ".clarify.yml"

// Config is the top-level configuration, corresponding to .clarify.yml.
type Config struct {
	Provider                 ProviderType   `yaml:"provider" koanf:"provider"`
	Model                    string         `yaml:"model" koanf:"model"`
	VisionModel              string         `yaml:"vision_model" koanf:"vision_model"`
	Quality                  QualityTier    `yaml:"quality" koanf:"quality"`
	MaxOptions               int            `yaml:"max_options" koanf:"max_options"`
	MaxConcurrency           int            `yaml:"max_concurrency" koanf:"max_concurrency"`
	RequestsPerMinute        int            `yaml:"requests_per_minute" koanf:"requests_per_minute"`
	GenerationTimeoutSeconds int            `yaml:"generation_timeout_seconds" koanf:"generation_timeout_seconds"`
	Dialogue                 DialogueConfig `yaml:"dialogue" koanf:"dialogue"`
	Server                   ServerConfig   `yaml:"server" koanf:"server"`
	Session                  SessionConfig  `yaml:"session" koanf:"session"`
	Telegram                 TelegramConfig `yaml:"telegram" koanf:"telegram"`
	Log                      LogConfig      `yaml:"log" koanf:"log"`
}

// DialogueConfig bounds session-backed dialogues.
type DialogueConfig struct {
	MaxTurns int `yaml:"max_turns" koanf:"max_turns"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port                  int  `yaml:"port" koanf:"port"`
	AllowAllOrigins       bool `yaml:"allow_all_origins" koanf:"allow_all_origins"`
	RequestTimeoutSeconds int  `yaml:"request_timeout_seconds" koanf:"request_timeout_seconds"`
}

// SessionConfig selects where dialogue sessions live and for how long.
type SessionConfig struct {
	Backend     string `yaml:"backend" koanf:"backend"`
	TTLMinutes  int    `yaml:"ttl_minutes" koanf:"ttl_minutes"`
	SQLitePath  string `yaml:"sqlite_path" koanf:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn" koanf:"postgres_dsn"`
}

// TelegramConfig holds bot settings. The token may also come from
// TELEGRAM_BOT_TOKEN.
type TelegramConfig struct {
	Token       string `yaml:"token" koanf:"token"`
	PollTimeout int    `yaml:"poll_timeout" koanf:"poll_timeout"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level       string `yaml:"level" koanf:"level"`
	Development bool   `yaml:"development" koanf:"development"`
}

// GenerationTimeout is the per-call deadline for model requests.
func (c *Config) GenerationTimeout() time.Duration {
	return time.Duration(c.GenerationTimeoutSeconds) * time.Second
}

// SessionTTL is how long an idle session survives.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Session.TTLMinutes) * time.Minute
}

// RequestTimeout bounds a single HTTP request.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSeconds) * time.Second
}

// EffectiveVisionModel is the model used for scene extraction and counting.
func (c *Config) EffectiveVisionModel() string {
	if c.VisionModel != "" {
		return c.VisionModel
	}
	return c.Model
}
