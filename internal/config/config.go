// Package config assembles the attendance bot configuration from the shared
// blocks in pkg/config and the bot specific ones below.
package config

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
	pkgconfig "github.com/lewisedginton/attendance_bot/pkg/config"
	"github.com/lewisedginton/attendance_bot/pkg/logger"
)

// AppConfig holds all application configuration
type AppConfig struct {
	ServiceName string `env:"SERVICE_NAME" yaml:"service_name" default:"attendance-bot"`
	Version     string `env:"VERSION" yaml:"version" default:"dev"`
	Environment string `env:"ENVIRONMENT" yaml:"environment" default:"development"`

	Common   pkgconfig.CommonConfig     `yaml:"common"`
	Database pkgconfig.DatabaseConfig   `yaml:"database"`
	HTTP     pkgconfig.HTTPServerConfig `yaml:"http"`
	Metrics  pkgconfig.MetricsConfig    `yaml:"metrics"`

	Slack      SlackConfig      `yaml:"slack"`
	LLM        LLMConfig        `yaml:"llm"`
	Attendance AttendanceConfig `yaml:"attendance"`
	Health     HealthConfig     `yaml:"health"`
	Logging    LoggingConfig    `yaml:"logging"`
	Export     ExportConfig     `yaml:"export"`
}

// Load reads path (optional) and the environment into a validated AppConfig.
func Load(path string) (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := pkgconfig.GetConfig(cfg, path, false); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate validates the configuration and returns every problem found.
func (c AppConfig) Validate() error {
	var result error
	for _, v := range []pkgconfig.Validator{
		c.Common, c.Database, c.HTTP, c.Metrics,
		c.Slack, c.LLM, c.Attendance, c.Health, c.Export,
	} {
		if err := v.Validate(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result
}

// GetLogLevel returns the parsed logger level
func (c *AppConfig) GetLogLevel() logger.Level {
	return logger.ParseLevel(c.Common.LogLevel)
}

// IsProduction returns true if running in production environment
func (c *AppConfig) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// NewLogger builds the process logger from the common and logging blocks.
func (c *AppConfig) NewLogger() logger.Logger {
	return logger.NewLogger(logger.Config{
		Level:   c.GetLogLevel(),
		Format:  c.Common.LogFormat,
		Service: c.ServiceName,
		Output:  c.Logging.Writer(),
	})
}

// LogConfig logs the current configuration without secrets.
func (c *AppConfig) LogConfig(log logger.Logger) {
	log.Info("Application configuration loaded",
		logger.StringField("service_name", c.ServiceName),
		logger.StringField("version", c.Version),
		logger.StringField("environment", c.Environment),
		logger.StringField("database_driver", c.Database.Driver),
		logger.StringField("llm_provider", c.LLM.Provider),
		logger.StringField("llm_model", c.LLM.Model()),
		logger.StringField("timezone", c.Attendance.Timezone),
		logger.StringField("query_command", c.Attendance.QueryCommand),
		logger.BoolField("slack_enabled", c.Slack.Enabled()),
		logger.BoolField("http_enabled", c.HTTP.Enabled),
		logger.BoolField("metrics_exposed", c.Metrics.ExposeMetrics),
		logger.StringField("export_backend", c.Export.Backend),
	)
}

// Masked returns a copy with every secret replaced, for printing.
func (c AppConfig) Masked() AppConfig {
	c.Slack.BotToken = mask(c.Slack.BotToken)
	c.Slack.AppToken = mask(c.Slack.AppToken)
	c.LLM.OpenAI.APIKey = mask(c.LLM.OpenAI.APIKey)
	c.LLM.Anthropic.APIKey = mask(c.LLM.Anthropic.APIKey)
	c.LLM.Gemini.APIKey = mask(c.LLM.Gemini.APIKey)
	c.LLM.HuggingFace.APIKey = mask(c.LLM.HuggingFace.APIKey)
	c.LLM.Webhook.Token = mask(c.LLM.Webhook.Token)
	c.Database.Password = mask(c.Database.Password)
	if c.Database.URL != "" {
		c.Database.URL = "****"
	}
	return c
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "****"
	}
	return fmt.Sprintf("%s****", s[:4])
}
