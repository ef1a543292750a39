package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable the loader reads,
// e.g. KIOKU_DATABASE_URL for database.url.
const EnvPrefix = "KIOKU"

// ErrRedisAddrRequired is returned when the redis backend is selected without an address.
var ErrRedisAddrRequired = errors.New("redis.addr is required when scheduler.candidate_backend is redis")

// keys without defaults still need explicit binding so Unmarshal sees them.
var boundEnvKeys = []string{
	"database.url",
	"redis.addr",
	"redis.password",
	"llm.gemini_api_key",
	"llm.openai_api_key",
	"llm.openai_base_url",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.log_level", "info")

	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "kioku")

	v.SetDefault("scheduler.timezone", "Asia/Tokyo")
	v.SetDefault("scheduler.candidate_backend", BackendPostgres)
	v.SetDefault("scheduler.graduation_streak", 3)
	v.SetDefault("scheduler.material_incorrect_days", 30)
	v.SetDefault("scheduler.material_correct_days", 90)
	v.SetDefault("scheduler.kanji_initial_days", 7)
	v.SetDefault("scheduler.kanji_incorrect_days", 1)
	v.SetDefault("scheduler.kanji_first_correct_days", 30)
	v.SetDefault("scheduler.kanji_second_correct_days", 90)

	v.SetDefault("llm.provider", ProviderNone)
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.retry_delay_seconds", 2)

	v.SetDefault("backfill.concurrency", 4)
	v.SetDefault("backfill.requests_per_second", 2.0)
}

// Load reads configuration from an optional config.yaml in the working
// directory and from KIOKU_ environment variables. Environment variables
// take precedence over values from the file.
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom behaves like Load but reads the config file at path when path is non-empty.
func LoadFrom(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range boundEnvKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("error binding environment variable for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks struct tags and the rules that span sections.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if c.Scheduler.CandidateBackend == BackendRedis && c.Redis.Addr == "" {
		return fmt.Errorf("config validation failed: %w", ErrRedisAddrRequired)
	}
	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("config validation failed: unknown timezone %q: %w", c.Scheduler.Timezone, err)
	}
	return nil
}

// RetryDelay returns the configured delay between generator retries.
func (c LLMConfig) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelaySeconds) * time.Second
}
