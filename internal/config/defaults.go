package config

// QualityPreset describes the models to use for a given quality tier.
type QualityPreset struct {
	Model       string
	VisionModel string
}

// qualityPresets maps each provider+quality combination to its model choices.
var qualityPresets = map[ProviderType]map[QualityTier]QualityPreset{
	ProviderAnthropic: {
		QualityLite:   {Model: "claude-haiku-4-5-20251001", VisionModel: "claude-haiku-4-5-20251001"},
		QualityNormal: {Model: "claude-sonnet-4-5-20250929", VisionModel: "claude-sonnet-4-5-20250929"},
		QualityMax:    {Model: "claude-opus-4-6", VisionModel: "claude-opus-4-6"},
	},
	ProviderOpenAI: {
		QualityLite:   {Model: "gpt-4o-mini", VisionModel: "gpt-4o-mini"},
		QualityNormal: {Model: "gpt-4.1-mini", VisionModel: "gpt-4o"},
		QualityMax:    {Model: "gpt-4o", VisionModel: "gpt-4o"},
	},
	ProviderGoogle: {
		QualityLite:   {Model: "gemini-2.5-flash", VisionModel: "gemini-2.5-flash"},
		QualityNormal: {Model: "gemini-2.5-flash", VisionModel: "gemini-3-pro-preview"},
		QualityMax:    {Model: "gemini-3-pro-preview", VisionModel: "gemini-3-pro-preview"},
	},
	ProviderOllama: {
		QualityLite:   {Model: "llama3", VisionModel: "llava"},
		QualityNormal: {Model: "llama3", VisionModel: "llava"},
		QualityMax:    {Model: "llama3:70b", VisionModel: "llava:34b"},
	},
	ProviderMiniMax: {
		QualityLite:   {Model: "MiniMax-M2.5-highspeed", VisionModel: "MiniMax-M2.5-highspeed"},
		QualityNormal: {Model: "MiniMax-M2.5", VisionModel: "MiniMax-M2.5"},
		QualityMax:    {Model: "MiniMax-M2.5", VisionModel: "MiniMax-M2.5"},
	},
	ProviderOpenRouter: {
		QualityLite:   {Model: "openai/gpt-4o-mini", VisionModel: "openai/gpt-4o-mini"},
		QualityNormal: {Model: "openai/gpt-4.1-mini", VisionModel: "openai/gpt-4o"},
		QualityMax:    {Model: "openai/gpt-4o", VisionModel: "openai/gpt-4o"},
	},
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	preset := GetPreset(ProviderOpenAI, QualityNormal)
	return &Config{
		Provider:                 ProviderOpenAI,
		Model:                    preset.Model,
		VisionModel:              preset.VisionModel,
		Quality:                  QualityNormal,
		MaxOptions:               5,
		MaxConcurrency:           5,
		RequestsPerMinute:        0,
		GenerationTimeoutSeconds: 60,
		Dialogue: DialogueConfig{
			MaxTurns: 8,
		},
		Server: ServerConfig{
			Port:                  8080,
			AllowAllOrigins:       false,
			RequestTimeoutSeconds: 120,
		},
		Session: SessionConfig{
			Backend:    SessionMemory,
			TTLMinutes: 30,
			SQLitePath: ".clarify/sessions.db",
		},
		Telegram: TelegramConfig{
			PollTimeout: 30,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// GetPreset returns the quality preset for the given provider and tier.
// Returns the Normal OpenAI preset if the combination is not found.
func GetPreset(provider ProviderType, tier QualityTier) QualityPreset {
	if tiers, ok := qualityPresets[provider]; ok {
		if preset, ok := tiers[tier]; ok {
			return preset
		}
	}
	return qualityPresets[ProviderOpenAI][QualityNormal]
}
