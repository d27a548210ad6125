package statusserver

import (
	"fmt"
	"time"

	"github.com/robbyt/go-devicefsm/internal/networking"
)

const defaultDrainTimeout = 5 * time.Second

// Config holds the listener settings.
type Config struct {
	ListenAddr   string
	DrainTimeout time.Duration
}

// NewConfig validates and normalizes the listen address.
func NewConfig(listenAddr string, drainTimeout time.Duration) (*Config, error) {
	addr, err := networking.NormalizeListenAddr(listenAddr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrServerBoot, err)
	}
	if drainTimeout <= 0 {
		drainTimeout = defaultDrainTimeout
	}
	return &Config{ListenAddr: addr, DrainTimeout: drainTimeout}, nil
}

func (c *Config) String() string {
	return fmt.Sprintf("Config<addr=%s, drainTimeout=%s>", c.ListenAddr, c.DrainTimeout)
}
