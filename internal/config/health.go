package config

import (
	"fmt"
	"time"
)

// HealthConfig holds health check configuration
type HealthConfig struct {
	Timeout          time.Duration `env:"HEALTH_TIMEOUT" yaml:"timeout" default:"10s"`
	FailureThreshold int           `env:"HEALTH_FAILURE_THRESHOLD" yaml:"failure_threshold" default:"3"`
	// GRPCPort serves grpc.health.v1 when non-zero.
	GRPCPort     int           `env:"HEALTH_GRPC_PORT" yaml:"grpc_port"`
	GRPCInterval time.Duration `env:"HEALTH_GRPC_INTERVAL" yaml:"grpc_interval" default:"5s"`
}

func (c HealthConfig) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("health timeout must be greater than 0")
	}
	if c.FailureThreshold < 1 {
		return fmt.Errorf("health failure_threshold must be at least 1")
	}
	if c.GRPCPort < 0 || c.GRPCPort > 65535 {
		return fmt.Errorf("health grpc_port must be between 0-65535, got %d", c.GRPCPort)
	}
	return nil
}
