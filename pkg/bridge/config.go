// Copyright 2024-2026 Aiku AI

package bridge

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"text/template"

	"github.com/caarlos0/env/v11"
	up "go.mau.fi/util/configupgrade"
	"gopkg.in/yaml.v3"
)

//go:embed example-config.yaml
var ExampleConfig string

// MinecraftConfig holds the host-server adapter settings.
type MinecraftConfig struct {
	RCONAddress  string `yaml:"rcon_address" env:"BRIDGE_RCON_ADDRESS"`
	RCONPassword string `yaml:"rcon_password" env:"BRIDGE_RCON_PASSWORD"`
	LogFile      string `yaml:"log_file" env:"BRIDGE_MC_LOG_FILE"`
}

// Config holds the bridge configuration, loaded once at startup and read-only
// thereafter. Environment variables override file values.
type Config struct {
	WebhookURL string `yaml:"webhook_url" env:"BRIDGE_WEBHOOK_URL"`
	ChannelID  string `yaml:"channel_id" env:"BRIDGE_CHANNEL_ID"`
	BotToken   string `yaml:"bot_token" env:"BRIDGE_BOT_TOKEN"`
	// Announcement is queued to the channel when the server finishes
	// starting. Empty disables the announcement.
	Announcement string `yaml:"announcement" env:"BRIDGE_ANNOUNCEMENT"`
	// StatusLabel is the server name shown in the bot's presence text.
	StatusLabel string `yaml:"status_label" env:"BRIDGE_STATUS_LABEL"`
	StateFile   string `yaml:"state_file" env:"BRIDGE_STATE_FILE"`
	// AvatarURLTemplate renders the webhook avatar for an impersonated
	// player. The template receives a Player.
	AvatarURLTemplate string `yaml:"avatar_url_template" env:"BRIDGE_AVATAR_URL_TEMPLATE"`
	QueueLimit        int    `yaml:"queue_limit" env:"BRIDGE_QUEUE_LIMIT"`
	LogLevel          string `yaml:"log_level" env:"BRIDGE_LOG_LEVEL"`

	Minecraft MinecraftConfig `yaml:"minecraft"`

	avatarURLTemplate *template.Template `yaml:"-"`
}

func (c *Config) UnmarshalYAML(node *yaml.Node) error {
	type rawConfig Config
	return node.Decode((*rawConfig)(c))
}

func upgradeConfig(helper up.Helper) {
	helper.Copy(up.Str, "webhook_url")
	helper.Copy(up.Str, "channel_id")
	helper.Copy(up.Str, "bot_token")
	helper.Copy(up.Str, "announcement")
	helper.Copy(up.Str, "status_label")
	helper.Copy(up.Str, "state_file")
	helper.Copy(up.Str, "avatar_url_template")
	helper.Copy(up.Int, "queue_limit")
	helper.Copy(up.Str, "log_level")
	helper.Copy(up.Str, "minecraft", "rcon_address")
	helper.Copy(up.Str, "minecraft", "rcon_password")
	helper.Copy(up.Str, "minecraft", "log_file")
}

func configUpgrader() up.BaseUpgrader {
	return &up.StructUpgrader{
		SimpleUpgrader: up.SimpleUpgrader(upgradeConfig),
		Blocks:         [][]string{{"minecraft"}},
		Base:           ExampleConfig,
	}
}

// LoadConfig reads the YAML config from path, upgrades it in place against
// the embedded example (carrying operator values over and adding any keys a
// newer release introduced) and applies environment overrides. When the file
// does not exist, the example is written in its place and an error is
// returned so the operator can fill it in.
func LoadConfig(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if writeErr := os.WriteFile(path, []byte(ExampleConfig), 0o600); writeErr != nil {
			return nil, fmt.Errorf("write example config: %w", writeErr)
		}
		return nil, fmt.Errorf("config %s not found, example written, fill it in and restart", path)
	}
	data, _, err := up.Do(path, true, configUpgrader())
	if err != nil {
		return nil, fmt.Errorf("upgrade config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse config env overrides: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.PostProcess(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.StatusLabel == "" {
		c.StatusLabel = "Minecraft"
	}
	if c.StateFile == "" {
		c.StateFile = "linked-accounts.json"
	}
	if c.AvatarURLTemplate == "" {
		c.AvatarURLTemplate = "https://mc-heads.net/avatar/{{.ID}}"
	}
	if c.QueueLimit <= 0 {
		c.QueueLimit = DefaultQueueLimit
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Minecraft.LogFile == "" {
		c.Minecraft.LogFile = "logs/latest.log"
	}
}

// PostProcess compiles the avatar URL template.
func (c *Config) PostProcess() error {
	var err error
	c.avatarURLTemplate, err = template.New("avatar_url").Parse(c.AvatarURLTemplate)
	if err != nil {
		return fmt.Errorf("parse avatar_url_template: %w", err)
	}
	return nil
}

// Validate checks that the fields the bridge cannot run without are set.
func (c *Config) Validate() error {
	switch {
	case c.WebhookURL == "":
		return errors.New("config: webhook_url is required")
	case c.ChannelID == "":
		return errors.New("config: channel_id is required")
	case c.BotToken == "":
		return errors.New("config: bot_token is required")
	case c.Minecraft.RCONAddress == "":
		return errors.New("config: minecraft.rcon_address is required")
	}
	return nil
}

// FormatAvatarURL renders the webhook avatar URL for a player. Render
// failures fall back to an empty URL, which makes the webhook use its
// default avatar.
func (c *Config) FormatAvatarURL(p Player) string {
	if c.avatarURLTemplate == nil {
		return ""
	}
	var buf []byte
	if err := c.avatarURLTemplate.Execute((*templateBuffer)(&buf), p); err != nil {
		return ""
	}
	return string(buf)
}

// templateBuffer is a simple io.Writer that appends to a byte slice.
type templateBuffer []byte

func (b *templateBuffer) Write(p []byte) (int, error) {
	*b = append(*b, p...)
	return len(p), nil
}
