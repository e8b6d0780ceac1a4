package checkers

import (
	"context"
	"errors"
)

// Pinger is satisfied by connection pools and stores that can verify connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingChecker wraps a Pinger, typically the attendance record store.
type PingChecker struct {
	name string
	p    Pinger
}

func NewPingChecker(name string, p Pinger) *PingChecker {
	return &PingChecker{name: name, p: p}
}

func (c *PingChecker) Name() string { return c.name }

func (c *PingChecker) Check(ctx context.Context) error {
	if c.p == nil {
		return errors.New("no connection configured")
	}
	return c.p.Ping(ctx)
}
