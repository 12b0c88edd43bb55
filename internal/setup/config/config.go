// Package config loads the bot's TOML configuration.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

var (
	ErrConfigFileNotFound    = errors.New("could not find config file in any config path")
	ErrConfigVersionMissing  = errors.New("config file is missing version field")
	ErrConfigVersionMismatch = errors.New("config file version mismatch")
)

// CurrentVersion of the config file.
const CurrentVersion = 1

// Config represents the entire application configuration.
type Config struct {
	// Version of the config file.
	Version     int         `koanf:"version"`
	Debug       Debug       `koanf:"debug"`
	Discord     Discord     `koanf:"discord"`
	PostgreSQL  PostgreSQL  `koanf:"postgresql"`
	Redis       Redis       `koanf:"redis"`
	OpenAI      OpenAI      `koanf:"openai"`
	Bot         Bot         `koanf:"bot"`
	Maintenance Maintenance `koanf:"maintenance"`
}

// Debug contains debug-related configuration.
type Debug struct {
	// Log level (debug, info, warn, error).
	LogLevel string `koanf:"log_level"`
	// Directory to store log files in.
	LogDir string `koanf:"log_dir"`
	// Maximum number of log session directories to keep.
	MaxLogsToKeep int `koanf:"max_logs_to_keep"`
}

// Discord contains the gateway connection configuration. The token may also
// come from the DISCORD_TOKEN environment variable, which takes precedence.
type Discord struct {
	Token string `koanf:"token"`
}

// PostgreSQL contains database connection configuration.
type PostgreSQL struct {
	Host         string `koanf:"host"`
	Port         int    `koanf:"port"`
	User         string `koanf:"user"`
	Password     string `koanf:"password"`
	DBName       string `koanf:"db_name"`
	MaxOpenConns int    `koanf:"max_open_conns"`
	MaxIdleConns int    `koanf:"max_idle_conns"`
	// Maximum connection lifetime in minutes.
	MaxLifetime int `koanf:"max_lifetime"`
}

// Redis contains Redis connection configuration.
type Redis struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
}

// OpenAI contains the completion service configuration. The key may also
// come from the OPENAI_API_KEY environment variable, which takes precedence.
type OpenAI struct {
	APIKey string `koanf:"api_key"`
	Model  string `koanf:"model"`
	// Maximum completion length in tokens.
	MaxTokens int `koanf:"max_tokens"`
}

// Bot contains behavior configuration.
type Bot struct {
	// Fallback command prefix before a guild configures its own.
	DefaultPrefix string `koanf:"default_prefix"`
	// Experience granted per qualifying message.
	ExpIncrease int64 `koanf:"exp_increase"`
	// Experience cooldown per member in seconds.
	ExpCooldown int `koanf:"exp_cooldown"`
}

// Maintenance contains the scheduled sweep configuration. Schedules are
// cron expressions.
type Maintenance struct {
	// Whether scheduled sweeps run at all.
	Enabled bool `koanf:"enabled"`
	// Consistency sweep over stored documents.
	SweepSchedule string `koanf:"sweep_schedule"`
	// Birthday role and announcement sweep.
	BirthdaySchedule string `koanf:"birthday_schedule"`
}

// LoadConfig loads the configuration from the first config.toml found in the
// search paths. Returns the config along with the used config directory.
func LoadConfig() (*Config, string, error) {
	k := koanf.New(".")

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, "", fmt.Errorf("failed to get home directory: %w", err)
	}

	configPaths := []string{
		".attendant",
		homeDir + "/.attendant/config",
		"/etc/attendant/config",
		"/app/config",
		"config",
		".",
	}

	var usedConfigPath string
	for _, path := range configPaths {
		configPath := fmt.Sprintf("%s/config.toml", path)
		if err := k.Load(file.Provider(configPath), toml.Parser()); err == nil {
			usedConfigPath = path
			break
		}
	}

	if usedConfigPath == "" {
		return nil, "", fmt.Errorf("%w: config.toml", ErrConfigFileNotFound)
	}

	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, "", fmt.Errorf("error unmarshaling config: %w", err)
	}

	if config.Version == 0 {
		return nil, "", fmt.Errorf("%w: config.toml", ErrConfigVersionMissing)
	}
	if config.Version != CurrentVersion {
		return nil, "", fmt.Errorf("%w: config.toml (got: %d, expected: %d)",
			ErrConfigVersionMismatch, config.Version, CurrentVersion)
	}

	// Secrets from the environment win over the file.
	if token := os.Getenv("DISCORD_TOKEN"); token != "" {
		config.Discord.Token = token
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		config.OpenAI.APIKey = key
	}

	return &config, usedConfigPath, nil
}
