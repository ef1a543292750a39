package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"    validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database"  validate:"required"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Scheduler SchedulerConfig `mapstructure:"scheduler" validate:"required"`
	LLM       LLMConfig       `mapstructure:"llm"       validate:"required"`
	Backfill  BackfillConfig  `mapstructure:"backfill"  validate:"required"`
}

// ServerConfig contains process-level settings.
type ServerConfig struct {
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// RedisConfig configures the Redis candidate backend.
type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"         validate:"gte=0"`
	KeyPrefix string `mapstructure:"key_prefix" validate:"required"`
}

// Candidate storage backends.
const (
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// SchedulerConfig holds the calendar and scheduling policy settings.
type SchedulerConfig struct {
	Timezone               string `mapstructure:"timezone"                  validate:"required"`
	CandidateBackend       string `mapstructure:"candidate_backend"         validate:"required,oneof=postgres redis"`
	GraduationStreak       int    `mapstructure:"graduation_streak"         validate:"gt=0"`
	MaterialIncorrectDays  int    `mapstructure:"material_incorrect_days"   validate:"gt=0"`
	MaterialCorrectDays    int    `mapstructure:"material_correct_days"     validate:"gt=0"`
	KanjiInitialDays       int    `mapstructure:"kanji_initial_days"        validate:"gt=0"`
	KanjiIncorrectDays     int    `mapstructure:"kanji_incorrect_days"      validate:"gt=0"`
	KanjiFirstCorrectDays  int    `mapstructure:"kanji_first_correct_days"  validate:"gt=0"`
	KanjiSecondCorrectDays int    `mapstructure:"kanji_second_correct_days" validate:"gt=0"`
}

// LLM providers used to generate missing item fields.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderNone   = "none"
)

// LLMConfig contains all LLM integration related settings.
type LLMConfig struct {
	Provider          string `mapstructure:"provider"            validate:"required,oneof=gemini openai none"`
	GeminiAPIKey      string `mapstructure:"gemini_api_key"      validate:"required_if=Provider gemini"`
	OpenAIAPIKey      string `mapstructure:"openai_api_key"      validate:"required_if=Provider openai"`
	OpenAIBaseURL     string `mapstructure:"openai_base_url"     validate:"omitempty,url"`
	Model             string `mapstructure:"model"`
	MaxRetries        int    `mapstructure:"max_retries"         validate:"gte=0,lte=10"`
	RetryDelaySeconds int    `mapstructure:"retry_delay_seconds" validate:"gte=0,lte=60"`
}

// BackfillConfig bounds field generation during exam assembly.
type BackfillConfig struct {
	Concurrency       int     `mapstructure:"concurrency"         validate:"gt=0,lte=32"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" validate:"gt=0"`
}
