package config

import (
	"fmt"
	"time"
)

// HTTPServerConfig configures the JSON API listener.
type HTTPServerConfig struct {
	Enabled      bool          `env:"HTTP_ENABLED" yaml:"enabled" default:"true"`
	Port         int           `env:"HTTP_PORT" yaml:"port" default:"3000"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" yaml:"read_timeout" default:"15s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" yaml:"write_timeout" default:"60s"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" yaml:"idle_timeout" default:"60s"`
	// AllowedOrigins feeds the CORS middleware.
	AllowedOrigins []string `env:"HTTP_ALLOWED_ORIGINS" yaml:"allowed_origins" default:"*"`
}

func (h HTTPServerConfig) Validate() error {
	if h.Enabled && (h.Port < 1 || h.Port > 65535) {
		return fmt.Errorf("http port must be between 1-65535, got %d", h.Port)
	}
	return nil
}
