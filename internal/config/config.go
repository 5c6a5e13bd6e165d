package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config is the full bot configuration, loaded from .env / environment.
type Config struct {
	LogLevel string

	Discord  DiscordConfig
	Database DatabaseConfig
	Redis    RedisConfig
	API      APIConfig
	Rewards  RewardsConfig
}

type DiscordConfig struct {
	Token           string `validate:"required"`
	Prefix          string `validate:"required"`
	SystemAccountID string `validate:"required"`
	// TransactionWebhook mirrors committed ledger entries to a Discord
	// webhook. Empty disables mirroring.
	TransactionWebhook string
	// RepoURL is shown by the updates command; must be a github.com repo URL.
	RepoURL string
	// ColorRoles maps color names to role ids for the color command.
	ColorRoles map[string]string
}

type DatabaseConfig struct {
	Host            string `validate:"required"`
	Port            string `validate:"required"`
	User            string `validate:"required"`
	Password        string
	Name            string `validate:"required"`
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type APIConfig struct {
	Addr string `validate:"required"`
	// AdminSecret is exchanged for a bearer token on the admin endpoints.
	AdminSecret string
	JWTSecret   string
	JWTExpiry   time.Duration
}

type RewardsConfig struct {
	// MessageRoles maps message-count thresholds to reward role ids.
	MessageRoles map[int64]string
}

// Load reads .env (if present), applies env overrides, and validates the
// resulting configuration.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()
	viper.ReadInConfig()

	viper.BindEnv("log.level", "LOG_LEVEL")

	viper.BindEnv("discord.token", "DISCORD_TOKEN")
	viper.BindEnv("discord.prefix", "DISCORD_PREFIX")
	viper.BindEnv("discord.system_account_id", "DISCORD_SYSTEM_ACCOUNT_ID")
	viper.BindEnv("discord.transaction_webhook", "DISCORD_TRANSACTION_WEBHOOK")
	viper.BindEnv("discord.repo_url", "DISCORD_REPO_URL")

	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.name", "DATABASE_NAME")
	viper.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")

	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")

	viper.BindEnv("api.addr", "API_ADDR")
	viper.BindEnv("api.admin_secret", "API_ADMIN_SECRET")
	viper.BindEnv("jwt.secret_key", "JWT_SECRET_KEY")
	viper.BindEnv("jwt.expiry_hours", "JWT_EXPIRY_HOURS")

	viper.SetDefault("log.level", "info")
	viper.SetDefault("discord.prefix", "?")
	viper.SetDefault("discord.system_account_id", "0")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", "5432")
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "password")
	viper.SetDefault("database.name", "hoodbot")
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", time.Minute*5)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", "6379")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("api.addr", ":8080")
	viper.SetDefault("jwt.expiry_hours", 24)

	cfg := &Config{
		LogLevel: viper.GetString("log.level"),
		Discord: DiscordConfig{
			Token:              viper.GetString("discord.token"),
			Prefix:             viper.GetString("discord.prefix"),
			SystemAccountID:    viper.GetString("discord.system_account_id"),
			TransactionWebhook: viper.GetString("discord.transaction_webhook"),
			RepoURL:            viper.GetString("discord.repo_url"),
			ColorRoles:         viper.GetStringMapString("discord.color_roles"),
		},
		Database: DatabaseConfig{
			Host:            viper.GetString("database.host"),
			Port:            viper.GetString("database.port"),
			User:            viper.GetString("database.user"),
			Password:        viper.GetString("database.password"),
			Name:            viper.GetString("database.name"),
			SSLMode:         viper.GetString("database.ssl_mode"),
			MaxOpenConns:    viper.GetInt("database.max_open_conns"),
			MaxIdleConns:    viper.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: viper.GetDuration("database.conn_max_lifetime"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("redis.host"),
			Port:     viper.GetString("redis.port"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		API: APIConfig{
			Addr:        viper.GetString("api.addr"),
			AdminSecret: viper.GetString("api.admin_secret"),
			JWTSecret:   viper.GetString("jwt.secret_key"),
			JWTExpiry:   time.Duration(viper.GetInt("jwt.expiry_hours")) * time.Hour,
		},
		Rewards: RewardsConfig{
			MessageRoles: parseMessageRoles(viper.GetStringMapString("rewards.message_roles")),
		},
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func parseMessageRoles(raw map[string]string) map[int64]string {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[int64]string, len(raw))
	for threshold, roleID := range raw {
		var n int64
		if _, err := fmt.Sscan(threshold, &n); err != nil || n <= 0 {
			continue
		}
		out[n] = roleID
	}
	return out
}
