package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Bot struct {
		Token      string `yaml:"token"`
		GuildID    string `yaml:"guild_id"`
		APIBaseURL string `yaml:"api_base_url"`
		GatewayURL string `yaml:"gateway_url"`
	} `yaml:"bot"`

	Voice struct {
		TriggerChannelID      string        `yaml:"trigger_channel_id"`
		CategoryID            string        `yaml:"category_id"`
		BlockedRoleID         string        `yaml:"blocked_role_id"`
		MaxTrustedUsers       int           `yaml:"max_trusted_users"`
		DisposalCheckInterval time.Duration `yaml:"disposal_check_interval"`
	} `yaml:"voice"`

	Rotation struct {
		Enabled           bool     `yaml:"enabled"`
		CategoryID        string   `yaml:"category_id"`
		TemplateChannelID string   `yaml:"template_channel_id"`
		TargetChannelName string   `yaml:"target_channel_name"`
		ReferenceChannels []string `yaml:"reference_channels"`
		HourUTC           int      `yaml:"hour_utc"`
		MinuteUTC         int      `yaml:"minute_utc"`
	} `yaml:"rotation"`

	Admin struct {
		Address         string        `yaml:"address"`
		JWTSecret       string        `yaml:"jwt_secret"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

		RateLimiting struct {
			Enabled           bool    `yaml:"enabled"`
			RequestsPerSecond float64 `yaml:"requests_per_second"`
			Burst             int     `yaml:"burst"`
		} `yaml:"rate_limiting"`
	} `yaml:"admin"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
}

// Validate checks that configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	// Bot
	if c.Bot.Token == "" {
		return fmt.Errorf("bot.token must not be empty")
	}
	if c.Bot.GuildID == "" {
		return fmt.Errorf("bot.guild_id must not be empty")
	}
	if c.Bot.APIBaseURL == "" {
		return fmt.Errorf("bot.api_base_url must not be empty")
	}
	if c.Bot.GatewayURL == "" {
		return fmt.Errorf("bot.gateway_url must not be empty")
	}

	// Voice
	if c.Voice.TriggerChannelID == "" {
		return fmt.Errorf("voice.trigger_channel_id must not be empty")
	}
	if c.Voice.CategoryID == "" {
		return fmt.Errorf("voice.category_id must not be empty")
	}
	if c.Voice.MaxTrustedUsers <= 0 {
		return fmt.Errorf("voice.max_trusted_users must be > 0")
	}
	if c.Voice.DisposalCheckInterval <= 0 {
		return fmt.Errorf("voice.disposal_check_interval must be > 0")
	}

	// Rotation
	if c.Rotation.Enabled {
		if c.Rotation.CategoryID == "" {
			return fmt.Errorf("rotation.category_id must not be empty when rotation.enabled=true")
		}
		if c.Rotation.TemplateChannelID == "" {
			return fmt.Errorf("rotation.template_channel_id must not be empty when rotation.enabled=true")
		}
		if c.Rotation.TargetChannelName == "" {
			return fmt.Errorf("rotation.target_channel_name must not be empty when rotation.enabled=true")
		}
		if c.Rotation.HourUTC < 0 || c.Rotation.HourUTC > 23 {
			return fmt.Errorf("rotation.hour_utc must be in [0,23]")
		}
		if c.Rotation.MinuteUTC < 0 || c.Rotation.MinuteUTC > 59 {
			return fmt.Errorf("rotation.minute_utc must be in [0,59]")
		}
	}

	// Admin
	if c.Admin.Address == "" {
		return fmt.Errorf("admin.address must not be empty")
	}
	if c.Admin.JWTSecret == "" {
		return fmt.Errorf("admin.jwt_secret must not be empty")
	}
	if c.Admin.ShutdownTimeout <= 0 {
		return fmt.Errorf("admin.shutdown_timeout must be > 0")
	}
	if c.Admin.RateLimiting.Enabled {
		if c.Admin.RateLimiting.RequestsPerSecond <= 0 {
			return fmt.Errorf("admin.rate_limiting.requests_per_second must be > 0 when rate limiting is enabled")
		}
		if c.Admin.RateLimiting.Burst <= 0 {
			return fmt.Errorf("admin.rate_limiting.burst must be > 0 when rate limiting is enabled")
		}
	}

	// Logging
	if c.Logging.Level == "" {
		return fmt.Errorf("logging.level must not be empty")
	}

	return nil
}

// Load reads configuration from a YAML file, applies defaults and env overrides.
func Load(configPath string) (*Config, error) {
	// If file does not exist, fall back to defaults. The fallback still has
	// to validate: several required fields have no default, so an env-only
	// boot must supply them or fail here rather than at the first operation.
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config yaml: %w", err)
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns configuration with sane defaults.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Bot.APIBaseURL = "https://discord.com/api/v10"
	cfg.Bot.GatewayURL = "wss://gateway.discord.gg"

	cfg.Voice.MaxTrustedUsers = 50
	cfg.Voice.DisposalCheckInterval = 30 * time.Second

	cfg.Rotation.Enabled = false
	cfg.Rotation.HourUTC = 3
	cfg.Rotation.MinuteUTC = 0

	cfg.Admin.Address = ":8080"
	cfg.Admin.ShutdownTimeout = 30 * time.Second
	cfg.Admin.RateLimiting.Enabled = false
	cfg.Admin.RateLimiting.RequestsPerSecond = 50
	cfg.Admin.RateLimiting.Burst = 100

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if token := os.Getenv("VOICEKEEPER_BOT_TOKEN"); token != "" {
		c.Bot.Token = token
	}
	if guild := os.Getenv("VOICEKEEPER_GUILD_ID"); guild != "" {
		c.Bot.GuildID = guild
	}
	if trigger := os.Getenv("VOICEKEEPER_TRIGGER_CHANNEL_ID"); trigger != "" {
		c.Voice.TriggerChannelID = trigger
	}
	if category := os.Getenv("VOICEKEEPER_CATEGORY_ID"); category != "" {
		c.Voice.CategoryID = category
	}
	if addr := os.Getenv("VOICEKEEPER_ADMIN_ADDRESS"); addr != "" {
		c.Admin.Address = addr
	}
	if secret := os.Getenv("VOICEKEEPER_JWT_SECRET"); secret != "" {
		c.Admin.JWTSecret = secret
	}
	if level := os.Getenv("VOICEKEEPER_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}
