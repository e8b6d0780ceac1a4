package config

import (
	"fmt"
	"strings"
)

// SlackConfig holds Slack-specific configuration
type SlackConfig struct {
	BotToken string `env:"SLACK_BOT_TOKEN" yaml:"-"`
	AppToken string `env:"SLACK_APP_TOKEN" yaml:"-"`
	Debug    bool   `env:"SLACK_DEBUG" yaml:"debug"`
}

// Enabled returns true if Slack is configured with both tokens
func (c SlackConfig) Enabled() bool {
	return c.BotToken != "" && c.AppToken != ""
}

func (c SlackConfig) Validate() error {
	if c.BotToken == "" && c.AppToken == "" {
		return nil
	}
	if !strings.HasPrefix(c.BotToken, "xoxb-") {
		return fmt.Errorf("SLACK_BOT_TOKEN must start with xoxb-")
	}
	if !strings.HasPrefix(c.AppToken, "xapp-") {
		return fmt.Errorf("SLACK_APP_TOKEN must start with xapp-")
	}
	return nil
}
