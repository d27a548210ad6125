package controller

import (
	"fmt"
	"log/slog"
	"time"
)

// Reload refreshes the configuration through the config callback and notifies
// the Run loop. Period changes reset the re-check ticker; settings changes apply
// from the next event on.
func (r *Runner) Reload() {
	logger := r.logger.WithGroup("Reload")
	logger.Debug("Reloading configuration...")

	newCfg, err := r.reloadConfig()
	if err != nil {
		logger.Warn("Configuration not reloaded", "error", err)
		return
	}
	r.setConfig(newCfg)

	select {
	case r.reloads <- struct{}{}:
	default:
		// a notification is already pending; the loop reads the latest config
	}
	logger.Info("Configuration reloaded", "config", newCfg)
}

func (r *Runner) reloadConfig() (*Config, error) {
	newCfg, err := r.configCallback()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigCallback, err)
	}
	if newCfg == nil {
		return nil, ErrConfigCallbackNil
	}
	if err := newCfg.validate(); err != nil {
		return nil, err
	}
	if newCfg.Equal(r.config.Load()) {
		return nil, ErrOldConfig
	}
	return newCfg, nil
}

// applyConfig runs on the Run goroutine. It returns the config now in effect.
func (r *Runner) applyConfig(logger *slog.Logger, applied *Config, ticker *time.Ticker) *Config {
	cfg := r.config.Load()
	if err := r.engine.UpdateSettings(cfg.Settings); err != nil {
		logger.Error("Rejected engine settings", "error", err)
		return applied
	}
	if cfg.Period != applied.Period {
		ticker.Reset(cfg.Period)
		logger.Info("Re-check period changed", "old", applied.Period, "new", cfg.Period)
	}
	if cfg.Silent != applied.Silent {
		r.engine.Silent().Set(cfg.Silent)
		logger.Info("Silent mode set from config", "silent", cfg.Silent)
	}
	logger.Debug("Configuration applied", "config", cfg)
	return cfg
}

// setConfig atomically updates the current configuration and returns the old one.
func (r *Runner) setConfig(config *Config) *Config {
	old := r.config.Swap(config)
	r.logger.Debug("Config updated", "config", config)
	return old
}

// getConfig returns the current configuration, loading it via the callback if necessary
func (r *Runner) getConfig() *Config {
	config := r.config.Load()
	if config != nil {
		return config
	}

	r.logger.Debug("Loading new config via callback")
	newConfig, err := r.configCallback()
	if err != nil {
		r.logger.Error("Failed to load config", "error", err)
		return nil
	}
	if newConfig == nil {
		r.logger.Error("Config callback returned nil")
		return nil
	}
	if err := newConfig.validate(); err != nil {
		r.logger.Error("Invalid config", "error", err)
		return nil
	}

	r.setConfig(newConfig)
	return newConfig
}
