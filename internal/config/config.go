package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var ErrMissingEnvironmentVariables = errors.New("missing required environment variables")

// Config holds application configuration loaded from files and environment variables.
type Config struct {
	Env              string  `mapstructure:"env"`              // current application environment (local, dev, prod etc)
	TelegramAPIToken string  `mapstructure:"-"`                // Telegram API token loaded from environment
	OperatorChatID   int64   `mapstructure:"operator_chat_id"` // Telegram chat allowed to control the bot
	QuizAPI          QuizAPI `mapstructure:"quiz_api"`         // quiz service section
	CachePath        string  `mapstructure:"cache_path"`       // path to the answer cache file
	DB               DB      `mapstructure:"database"`         // database configuration section
	DigestCron       string  `mapstructure:"digest_cron"`      // cron spec for the daily digest; empty disables it
	Delays           Delays  `mapstructure:"delays"`           // pacing policy for the round driver
}

// QuizAPI contains quiz service connection parameters.
type QuizAPI struct {
	BaseURL string        `mapstructure:"base_url"` // quiz service base URL
	Timeout time.Duration `mapstructure:"timeout"`  // per-request timeout
	Token   string        `mapstructure:"-"`        // optional initial access token from environment
}

// DB contains database-related configuration parameters. The database
// is optional: with no URL configured the run history is disabled.
type DB struct {
	URL             string        `mapstructure:"-"`                 // database connection string loaded from environment
	MaxConnections  int           `mapstructure:"max_connections"`   // maximum number of open connections in the pool
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"` // maximum lifetime of a single connection
}

// Delays groups the fixed pacing intervals of the round driver.
type Delays struct {
	Question     time.Duration `mapstructure:"question"`      // pause between questions
	Round        time.Duration `mapstructure:"round"`         // pause between rounds
	ErrorBackoff time.Duration `mapstructure:"error_backoff"` // pause after a failed question
}

// Load reads configuration from config files and environment variables.
func Load() (*Config, error) {
	// Initialize Viper instance and base config options.
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")

	// Set default values for configuration keys.
	v.SetDefault("env", "local")
	v.SetDefault("quiz_api.base_url", "https://api.tuneguess.app")
	v.SetDefault("quiz_api.timeout", "15s")
	v.SetDefault("cache_path", "answers.json")
	v.SetDefault("digest_cron", "")
	v.SetDefault("database.max_connections", 5)
	v.SetDefault("database.max_conn_lifetime", "30s")
	v.SetDefault("delays.question", "2s")
	v.SetDefault("delays.round", "5s")
	v.SetDefault("delays.error_backoff", "3s")

	// Configure environment variable handling and key mapping.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // map nested keys to ENV style names
	v.AutomaticEnv()

	// Bind explicit environment variables to configuration keys.
	_ = v.BindEnv("telegram_api_token", "TELEGRAM_API_TOKEN")
	_ = v.BindEnv("database_url", "DATABASE_URL")
	_ = v.BindEnv("quiz_api_token", "QUIZ_API_TOKEN")
	_ = v.BindEnv("operator_chat_id", "OPERATOR_CHAT_ID")
	_ = v.BindEnv("env", "APP_ENV")

	// Try to read configuration file if present.
	if err := v.ReadInConfig(); err != nil {
		var fileLookupErr viper.ConfigFileNotFoundError
		if !errors.As(err, &fileLookupErr) {
			return nil, fmt.Errorf("error loading config file: %w", err)
		}
	}

	// Unmarshal configuration into strongly typed struct.
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	// Load sensitive values from environment variables.
	cfg.TelegramAPIToken = v.GetString("telegram_api_token")
	if cfg.TelegramAPIToken == "" {
		return nil, ErrMissingEnvironmentVariables
	}

	if cfg.OperatorChatID == 0 {
		return nil, fmt.Errorf("operator_chat_id is not configured: %w", ErrMissingEnvironmentVariables)
	}

	// The database and the initial quiz token are optional.
	cfg.DB.URL = v.GetString("database_url")
	cfg.QuizAPI.Token = v.GetString("quiz_api_token")

	return &cfg, nil
}
