package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/NgigiN/paywallet/internal/engine"
	"github.com/NgigiN/paywallet/internal/logger"
	"github.com/NgigiN/paywallet/internal/wallet"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "PAYWALLET"

type Config struct {
	DatabasePath string
	Log          logger.Config
	Engine       EngineConfig
	HTTP         HTTPConfig
	Redis        RedisConfig
	Discord      DiscordConfig
}

type EngineConfig struct {
	FailureRate   float64
	FlagThreshold wallet.Amount
	MaxAmount     wallet.Amount
	IDAttempts    int
}

type HTTPConfig struct {
	Addr           string
	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
}

// RedisConfig selects the shared idempotency store. An empty Addr keeps
// idempotency keys in memory.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// DiscordConfig is optional; the bot only starts when BotToken is set.
type DiscordConfig struct {
	BotToken        string
	ChannelID       string
	ReviewChannelID string
}

// Policy converts the engine settings into an engine.Policy.
func (c EngineConfig) Policy() engine.Policy {
	return engine.Policy{
		FailureRate:   c.FailureRate,
		FlagThreshold: c.FlagThreshold,
		MaxAmount:     c.MaxAmount,
		MaxIDAttempts: c.IDAttempts,
	}
}

// Load reads configuration from PAYWALLET_* environment variables, falling
// back to defaults. SIMULATE_FAILURE_RATE is accepted as an alias for
// PAYWALLET_FAILURE_RATE.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.BindEnv("failure_rate", EnvPrefix+"_FAILURE_RATE", "SIMULATE_FAILURE_RATE"); err != nil {
		return nil, fmt.Errorf("failed to bind failure rate: %w", err)
	}

	threshold, err := wallet.ParseAmount(v.GetString("flag_threshold"))
	if err != nil {
		return nil, fmt.Errorf("invalid flag threshold %q: %w", v.GetString("flag_threshold"), err)
	}
	maxAmount, err := wallet.ParseAmount(v.GetString("max_amount"))
	if err != nil {
		return nil, fmt.Errorf("invalid max amount %q: %w", v.GetString("max_amount"), err)
	}

	cfg := &Config{
		DatabasePath: v.GetString("database_path"),
		Log: logger.Config{
			Level:  v.GetString("log_level"),
			Format: v.GetString("log_format"),
			Output: v.GetString("log_output"),
		},
		Engine: EngineConfig{
			FailureRate:   v.GetFloat64("failure_rate"),
			FlagThreshold: threshold,
			MaxAmount:     maxAmount,
			IDAttempts:    v.GetInt("id_attempts"),
		},
		HTTP: HTTPConfig{
			Addr:           v.GetString("http_addr"),
			RequestTimeout: v.GetDuration("request_timeout"),
			IdempotencyTTL: v.GetDuration("idempotency_ttl"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis_addr"),
			Password: v.GetString("redis_password"),
			DB:       v.GetInt("redis_db"),
		},
		Discord: DiscordConfig{
			BotToken:        v.GetString("discord_bot_token"),
			ChannelID:       v.GetString("discord_channel_id"),
			ReviewChannelID: v.GetString("discord_review_channel_id"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database_path", "wallet.db")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	v.SetDefault("log_output", "stdout")
	v.SetDefault("failure_rate", 0.10)
	v.SetDefault("flag_threshold", "50000")
	v.SetDefault("max_amount", "1000000")
	v.SetDefault("id_attempts", 5)
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("request_timeout", "5s")
	v.SetDefault("idempotency_ttl", "24h")
	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("discord_bot_token", "")
	v.SetDefault("discord_channel_id", "")
	v.SetDefault("discord_review_channel_id", "")
}

// Validate checks value ranges. The failure rate is not checked: the engine
// clamps it to [0, 1].
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("database path is not set")
	}
	if c.Engine.FlagThreshold <= 0 {
		return fmt.Errorf("flag threshold must be positive")
	}
	if c.Engine.MaxAmount <= 0 {
		return fmt.Errorf("max amount must be positive")
	}
	if c.Engine.IDAttempts < 1 {
		return fmt.Errorf("id attempts must be at least 1")
	}
	if c.HTTP.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive")
	}
	if c.Discord.BotToken != "" && c.Discord.ChannelID == "" {
		return fmt.Errorf("Channel ID is not set")
	}
	return nil
}
