package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// helper to build a minimal valid config that can be tweaked in tests.
func validBaseConfig() *Config {
	cfg := DefaultConfig()
	cfg.Bot.Token = "test-token"
	cfg.Bot.GuildID = "guild-1"
	cfg.Voice.TriggerChannelID = "trigger-1"
	cfg.Voice.CategoryID = "category-1"
	cfg.Admin.JWTSecret = "secret"
	return cfg
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := validBaseConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected config to be valid, got error: %v", err)
	}
}

func TestValidate_InvalidValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{
			name: "bot token must not be empty",
			mutate: func(c *Config) {
				c.Bot.Token = ""
			},
		},
		{
			name: "guild id must not be empty",
			mutate: func(c *Config) {
				c.Bot.GuildID = ""
			},
		},
		{
			name: "trigger channel must not be empty",
			mutate: func(c *Config) {
				c.Voice.TriggerChannelID = ""
			},
		},
		{
			name: "max trusted users must be > 0",
			mutate: func(c *Config) {
				c.Voice.MaxTrustedUsers = 0
			},
		},
		{
			name: "disposal interval must be > 0",
			mutate: func(c *Config) {
				c.Voice.DisposalCheckInterval = 0
			},
		},
		{
			name: "rotation hour in range",
			mutate: func(c *Config) {
				c.Rotation.Enabled = true
				c.Rotation.CategoryID = "cat"
				c.Rotation.TemplateChannelID = "tpl"
				c.Rotation.TargetChannelName = "daily-chat"
				c.Rotation.HourUTC = 24
			},
		},
		{
			name: "rotation template required when enabled",
			mutate: func(c *Config) {
				c.Rotation.Enabled = true
				c.Rotation.CategoryID = "cat"
				c.Rotation.TargetChannelName = "daily-chat"
			},
		},
		{
			name: "jwt secret must not be empty",
			mutate: func(c *Config) {
				c.Admin.JWTSecret = ""
			},
		},
		{
			name: "rate limiting rps must be > 0 when enabled",
			mutate: func(c *Config) {
				c.Admin.RateLimiting.Enabled = true
				c.Admin.RateLimiting.RequestsPerSecond = 0
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validBaseConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestValidate_RateLimitingDisabled_AllowsZeroValues(t *testing.T) {
	cfg := validBaseConfig()
	cfg.Admin.RateLimiting.Enabled = false
	cfg.Admin.RateLimiting.RequestsPerSecond = 0
	cfg.Admin.RateLimiting.Burst = 0

	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected config to be valid when rate limiting disabled, got error: %v", err)
	}
}

func TestLoad_FileAndDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte(`
bot:
  token: file-token
  guild_id: guild-9
voice:
  trigger_channel_id: trig-9
  category_id: cat-9
  disposal_check_interval: 45s
admin:
  jwt_secret: s3cret
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Bot.Token != "file-token" {
		t.Errorf("expected token from file, got %q", cfg.Bot.Token)
	}
	if cfg.Voice.DisposalCheckInterval != 45*time.Second {
		t.Errorf("expected 45s disposal interval, got %v", cfg.Voice.DisposalCheckInterval)
	}
	// Defaults fill what the file omits.
	if cfg.Voice.MaxTrustedUsers != 50 {
		t.Errorf("expected default max trusted users, got %d", cfg.Voice.MaxTrustedUsers)
	}
	if cfg.Rotation.HourUTC != 3 {
		t.Errorf("expected default rotation hour, got %d", cfg.Rotation.HourUTC)
	}
}

func TestLoad_MissingFileValidatesFallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist.yaml")

	// Defaults alone lack the required ids, so the fallback must not boot.
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for env-less fallback config")
	}

	t.Setenv("VOICEKEEPER_BOT_TOKEN", "env-token")
	t.Setenv("VOICEKEEPER_GUILD_ID", "guild-9")
	t.Setenv("VOICEKEEPER_TRIGGER_CHANNEL_ID", "trig-9")
	t.Setenv("VOICEKEEPER_CATEGORY_ID", "cat-9")
	t.Setenv("VOICEKEEPER_JWT_SECRET", "s3cret")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error with full env: %v", err)
	}
	if cfg.Voice.TriggerChannelID != "trig-9" {
		t.Errorf("expected env trigger channel, got %q", cfg.Voice.TriggerChannelID)
	}
	if cfg.Voice.CategoryID != "cat-9" {
		t.Errorf("expected env category, got %q", cfg.Voice.CategoryID)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("VOICEKEEPER_BOT_TOKEN", "env-token")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte(`
bot:
  token: file-token
  guild_id: guild-9
voice:
  trigger_channel_id: trig-9
  category_id: cat-9
admin:
  jwt_secret: s3cret
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Bot.Token != "env-token" {
		t.Errorf("expected env token to win, got %q", cfg.Bot.Token)
	}
}
