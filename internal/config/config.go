package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"     validate:"required"`
	LLM       LLMConfig       `mapstructure:"llm"        validate:"required"`
	Game      GameConfig      `mapstructure:"game"       validate:"required"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`

	// AllowedOrigins lists the browser origins permitted by CORS. "*" allows any origin.
	AllowedOrigins []string `mapstructure:"allowed_origins" validate:"required,min=1,dive,required"`

	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0"`
}

// LLMConfig contains all LLM integration related settings.
type LLMConfig struct {
	GeminiAPIKey string `mapstructure:"gemini_api_key" validate:"required"`
	ModelName    string `mapstructure:"model_name"     validate:"required"`

	// RequestTimeout is the hard ceiling for a whole generation stream.
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"required,gt=0"`

	MaxDocumentBytes int64 `mapstructure:"max_document_bytes" validate:"required,gt=0"`
	// MaxDocumentPages of 0 disables the page limit.
	MaxDocumentPages int `mapstructure:"max_document_pages" validate:"gte=0"`

	Temperature float32 `mapstructure:"temperature" validate:"gte=0,lte=2"`

	// BaseURL overrides the Gemini API endpoint, e.g. for a proxy.
	BaseURL string `mapstructure:"base_url" validate:"omitempty,url"`
}

// GameConfig contains the timing and capacity settings of the matching game.
type GameConfig struct {
	MatchDelay    time.Duration `mapstructure:"match_delay"    validate:"required,gt=0"`
	MismatchDelay time.Duration `mapstructure:"mismatch_delay" validate:"required,gt=0"`
	TickInterval  time.Duration `mapstructure:"tick_interval"  validate:"required,gt=0"`
	MaxGames      int           `mapstructure:"max_games"      validate:"required,gt=0"`
	IdleTimeout   time.Duration `mapstructure:"idle_timeout"   validate:"required,gt=0"`
}

// RateLimitConfig limits how often a single client may call the generation endpoint.
type RateLimitConfig struct {
	Requests int           `mapstructure:"requests" validate:"required,gt=0"`
	Window   time.Duration `mapstructure:"window"   validate:"required,gt=0"`

	// RedisURL enables the shared Redis limiter. Empty means an in-process limiter.
	RedisURL string `mapstructure:"redis_url" validate:"omitempty,url"`
}
