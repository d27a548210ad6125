package controller

import (
	"fmt"
	"time"

	"github.com/robbyt/go-devicefsm/device"
)

// ConfigCallback is the function type signature for the callback used to load initial config, and new config during Reload()
type ConfigCallback func() (*Config, error)

// Config holds the driver loop settings.
type Config struct {
	// Period is the interval between sensor re-checks.
	Period time.Duration
	// Settings is passed to the engine on start and on reload.
	Settings device.Settings
	// Silent is the configured silent mode. A reload that changes it sets the
	// silent switch; a reload that leaves it alone keeps any button toggles.
	Silent bool
}

// NewConfig returns a validated Config.
func NewConfig(period time.Duration, settings device.Settings) (*Config, error) {
	c := &Config{Period: period, Settings: settings}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) validate() error {
	if c.Period <= 0 {
		return fmt.Errorf("%w: period must be positive, got %v", ErrInvalidConfig, c.Period)
	}
	if err := c.Settings.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// String returns a human-readable representation of the Config
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config<period=%s, maxTempC=%g, retryDelay=%s, initResume=%s, silent=%t>",
		c.Period, c.Settings.MaxTempC, c.Settings.RetryDelay, c.Settings.InitResume, c.Silent,
	)
}

// Equal compares this Config with another and returns true if they are equivalent.
func (c *Config) Equal(other *Config) bool {
	if other == nil {
		return false
	}
	return c.Period == other.Period && c.Settings == other.Settings && c.Silent == other.Silent
}
