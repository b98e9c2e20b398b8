package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

var (
	ErrConfigFileNotFound    = errors.New("could not find config file in any config path")
	ErrConfigVersionMissing  = errors.New("config file is missing version field")
	ErrConfigVersionMismatch = errors.New("config file version mismatch")
	ErrInvalidDigestHour     = errors.New("digest hour must be between 0 and 23")
	ErrUnknownStorageBackend = errors.New("unknown storage backend")
)

// RepositoryVersion is the repository version tag for config file references.
const RepositoryVersion = "v0.3.0"

// Current version of the config files.
const (
	CurrentCommonVersion = 1
	CurrentBotVersion    = 1
)

// EnvPrefix is the prefix of environment variables overriding config values.
// Nested keys are separated by a double underscore, e.g. BOOKWYRM_BOT__DISCORD__TOKEN.
const EnvPrefix = "BOOKWYRM_"

// Storage backends for reward submissions and games.
const (
	StorageBackendPostgres = "postgres"
	StorageBackendRedis    = "redis"
)

// Config represents the entire application configuration.
type Config struct {
	Common CommonConfig `koanf:"common"`
	Bot    BotConfig    `koanf:"bot"`
}

// CommonConfig contains infrastructure configuration.
type CommonConfig struct {
	// Version of the common config.
	Version    int        `koanf:"version"`
	Debug      Debug      `koanf:"debug"`
	Retry      Retry      `koanf:"retry"`
	Storage    Storage    `koanf:"storage"`
	PostgreSQL PostgreSQL `koanf:"postgresql"`
	Redis      Redis      `koanf:"redis"`
	Uptrace    Uptrace    `koanf:"uptrace"`
}

// BotConfig contains Discord bot specific configuration.
type BotConfig struct {
	// Version of the bot config.
	Version int `koanf:"version"`
	// Request timeout in milliseconds.
	RequestTimeout int        `koanf:"request_timeout"`
	Discord        Discord    `koanf:"discord"`
	Rewards        Rewards    `koanf:"rewards"`
	Quest          Quest      `koanf:"quest"`
	Onboarding     Onboarding `koanf:"onboarding"`
}

// Discord contains the bot identity and guild settings.
type Discord struct {
	// Bot token.
	Token string `koanf:"token"`
	// Prefix for text commands.
	Prefix string `koanf:"prefix"`
	// Users allowed to run owner-only commands.
	OwnerIDs []uint64 `koanf:"owner_ids"`
	// Guild the bot serves.
	GuildID uint64 `koanf:"guild_id"`
}

// Rewards contains reward submission tracking settings.
type Rewards struct {
	// Channel where reward submissions are posted.
	ChannelID uint64 `koanf:"channel_id"`
	// Channel receiving the daily digest.
	DiscussionChannelID uint64 `koanf:"discussion_channel_id"`
	// Roles mentioned by the scheduled digest.
	RolesToPing []uint64 `koanf:"roles_to_ping"`
	// Hour of day (0-23) the digest is posted.
	DigestHour int `koanf:"digest_hour"`
	// IANA time zone of the digest hour. Empty means local time.
	Timezone string `koanf:"timezone"`
}

// Location returns the time zone of the digest hour.
func (r *Rewards) Location() (*time.Location, error) {
	if r.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(r.Timezone)
}

// Quest contains game posting settings.
type Quest struct {
	// Channels where game postings are watched.
	ChannelIDs []uint64 `koanf:"channel_ids"`
	// Seconds to wait for a title reply.
	PromptTimeout int `koanf:"prompt_timeout"`
}

// Onboarding contains role assignment settings.
type Onboarding struct {
	// Channel where the trigger phrase is watched.
	ChannelID uint64 `koanf:"channel_id"`
	// Message prefix that triggers role assignment.
	Trigger string `koanf:"trigger"`
	// Roles given to the author.
	RoleIDs []uint64 `koanf:"role_ids"`
}

// Debug contains debug-related configuration.
type Debug struct {
	// Log level (debug, info, warn, error).
	LogLevel string `koanf:"log_level"`
	// Maximum log sessions to keep.
	MaxLogsToKeep int `koanf:"max_logs_to_keep"`
}

// Retry contains database retry configuration.
type Retry struct {
	// Maximum retry attempts.
	MaxRetries uint64 `koanf:"max_retries"`
	// Initial retry delay in milliseconds.
	Delay int `koanf:"delay"`
	// Maximum retry delay in milliseconds.
	MaxDelay int `koanf:"max_delay"`
	// Maximum total retry time in milliseconds.
	MaxElapsed int `koanf:"max_elapsed"`
}

// Storage selects where submissions and games are persisted.
type Storage struct {
	// Either "postgres" or "redis".
	Backend string `koanf:"backend"`
}

// PostgreSQL contains database connection configuration.
type PostgreSQL struct {
	// Database hostname.
	Host string `koanf:"host"`
	// Database port.
	Port int `koanf:"port"`
	// Database username.
	User string `koanf:"user"`
	// Database password.
	Password string `koanf:"password"`
	// Database name.
	DBName string `koanf:"db_name"`
	// Maximum open connections.
	MaxOpenConns int `koanf:"max_open_conns"`
	// Maximum idle connections.
	MaxIdleConns int `koanf:"max_idle_conns"`
	// Connection lifetime in minutes.
	MaxLifetime int `koanf:"max_lifetime"`
	// Idle timeout in minutes.
	MaxIdleTime int `koanf:"max_idle_time"`
	// Apply pending migrations on startup.
	AutoMigrate bool `koanf:"auto_migrate"`
}

// Redis contains Redis connection configuration.
type Redis struct {
	// Redis hostname.
	Host string `koanf:"host"`
	// Redis port.
	Port int `koanf:"port"`
	// Redis username.
	Username string `koanf:"username"`
	// Redis password.
	Password string `koanf:"password"`
}

// Uptrace contains OpenTelemetry export configuration.
type Uptrace struct {
	// Uptrace DSN. Tracing is disabled when empty.
	DSN string `koanf:"dsn"`
	// Deployment environment reported with traces.
	Environment string `koanf:"environment"`
}

// LoadConfig loads common.toml and bot.toml from the first config path that has them,
// then applies environment overrides.
func LoadConfig() (*Config, string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, "", fmt.Errorf("failed to get home directory: %w", err)
	}

	return LoadConfigFrom(
		".bookwyrm",
		homeDir+"/.bookwyrm/config",
		"/etc/bookwyrm/config",
		"/app/config",
		"config",
		".",
	)
}

// LoadConfigFrom loads the configuration from the given search paths.
func LoadConfigFrom(configPaths ...string) (*Config, string, error) {
	k := koanf.New(".")

	var usedConfigPath string

	for _, configName := range []string{"common", "bot"} {
		configLoaded := false

		for _, path := range configPaths {
			configPath := fmt.Sprintf("%s/%s.toml", path, configName)

			sub := koanf.New(".")
			if err := sub.Load(file.Provider(configPath), toml.Parser()); err != nil {
				continue
			}

			if err := k.MergeAt(sub, configName); err != nil {
				return nil, "", fmt.Errorf("failed to merge %s.toml: %w", configName, err)
			}

			configLoaded = true
			if usedConfigPath == "" {
				usedConfigPath = path
			}

			break
		}

		if !configLoaded {
			return nil, "", fmt.Errorf("%w: %s.toml", ErrConfigFileNotFound, configName)
		}
	}

	// Secrets such as the bot token usually come from the environment
	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
	}), nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load environment overrides: %w", err)
	}

	config := Config{
		Common: CommonConfig{
			Debug:   Debug{LogLevel: "info", MaxLogsToKeep: 10},
			Storage: Storage{Backend: StorageBackendPostgres},
		},
		Bot: BotConfig{
			RequestTimeout: 10000,
			Discord:        Discord{Prefix: "."},
			Rewards:        Rewards{DigestHour: 12},
			Quest:          Quest{PromptTimeout: 600},
			Onboarding:     Onboarding{Trigger: "!randchar"},
		},
	}
	if err := k.Unmarshal("", &config); err != nil {
		return nil, "", fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := checkConfigVersion("common", config.Common.Version, CurrentCommonVersion); err != nil {
		return nil, "", err
	}

	if err := checkConfigVersion("bot", config.Bot.Version, CurrentBotVersion); err != nil {
		return nil, "", err
	}

	if err := config.validate(); err != nil {
		return nil, "", err
	}

	return &config, usedConfigPath, nil
}

// validate checks values that would otherwise fail much later at runtime.
func (c *Config) validate() error {
	if c.Bot.Rewards.DigestHour < 0 || c.Bot.Rewards.DigestHour > 23 {
		return fmt.Errorf("%w: got %d", ErrInvalidDigestHour, c.Bot.Rewards.DigestHour)
	}

	switch c.Common.Storage.Backend {
	case StorageBackendPostgres, StorageBackendRedis:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStorageBackend, c.Common.Storage.Backend)
	}

	if _, err := c.Bot.Rewards.Location(); err != nil {
		return fmt.Errorf("invalid rewards timezone: %w", err)
	}

	return nil
}

// checkConfigVersion checks if the config file version is correct.
func checkConfigVersion(name string, current, expected int) error {
	if current == 0 {
		return fmt.Errorf("%w: %s.toml", ErrConfigVersionMissing, name)
	}

	if current != expected {
		return fmt.Errorf(
			"%w: %s.toml (got: %d, expected: %d)\n"+
				"Please update your config file from: https://github.com/bookwyrm/bookwyrm/tree/%s/config/%s.toml",
			ErrConfigVersionMismatch,
			name,
			current,
			expected,
			RepositoryVersion,
			name,
		)
	}

	return nil
}
