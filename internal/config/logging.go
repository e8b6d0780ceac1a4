package config

import (
	"io"
	"os"
)

// LoggingConfig picks the log destination; level and format live in CommonConfig.
type LoggingConfig struct {
	// Output is stdout or stderr.
	Output string `env:"LOG_OUTPUT" yaml:"output" default:"stdout"`
}

func (c LoggingConfig) Writer() io.Writer {
	if c.Output == "stderr" {
		return os.Stderr
	}
	return os.Stdout
}
