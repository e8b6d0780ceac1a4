package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // business timezone lookup without system zoneinfo

	"github.com/hashicorp/go-multierror"
)

// AttendanceConfig controls message processing and the slash commands.
type AttendanceConfig struct {
	// Timezone is the business timezone used to resolve calendar dates.
	Timezone     string `env:"ATTENDANCE_TIMEZONE" yaml:"timezone" default:"Asia/Kolkata"`
	QueryCommand string `env:"ATTENDANCE_QUERY_COMMAND" yaml:"query_command" default:"/leave-table"`
	HelpCommand  string `env:"ATTENDANCE_HELP_COMMAND" yaml:"help_command" default:"/attendance-help"`
	// AckReaction is added to a message once its record is stored. Empty disables it.
	AckReaction       string        `env:"ATTENDANCE_ACK_REACTION" yaml:"ack_reaction"`
	ResponseInChannel bool          `env:"ATTENDANCE_RESPONSE_IN_CHANNEL" yaml:"response_in_channel"`
	MaxConcurrency    int           `env:"ATTENDANCE_MAX_CONCURRENCY" yaml:"max_concurrency" default:"8"`
	ProcessTimeout    time.Duration `env:"ATTENDANCE_PROCESS_TIMEOUT" yaml:"process_timeout" default:"60s"`
	// PromptOverrides reads prompts/<name>.tmpl from the export storage backend.
	PromptOverrides bool `env:"ATTENDANCE_PROMPT_OVERRIDES" yaml:"prompt_overrides"`
}

// Location loads the business timezone.
func (c AttendanceConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

func (c AttendanceConfig) Validate() error {
	var result error
	if _, err := c.Location(); err != nil {
		result = multierror.Append(result, fmt.Errorf("invalid ATTENDANCE_TIMEZONE %q: %w", c.Timezone, err))
	}
	for _, cmd := range []string{c.QueryCommand, c.HelpCommand} {
		if !strings.HasPrefix(cmd, "/") {
			result = multierror.Append(result, fmt.Errorf("slash command %q must start with /", cmd))
		}
	}
	if c.MaxConcurrency < 1 {
		result = multierror.Append(result, fmt.Errorf("max_concurrency must be at least 1"))
	}
	if c.ProcessTimeout <= 0 {
		result = multierror.Append(result, fmt.Errorf("process_timeout must be greater than 0"))
	}
	return result
}
