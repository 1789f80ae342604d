package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if c.Paths.DataDir == "" {
		return errors.New("paths.data_dir must be set")
	}
	if c.Ensemble.Number < 1 {
		return errors.New("ensemble.number must be at least 1")
	}
	switch c.Ensemble.Method {
	case "gaussian", "poisson":
	default:
		return fmt.Errorf("ensemble.method must be gaussian or poisson, got %q", c.Ensemble.Method)
	}
	if c.Ensemble.Workers < 1 {
		return errors.New("ensemble.workers must be at least 1")
	}
	if c.Unfolding.Iterations < 1 {
		return errors.New("unfolding.iterations must be at least 1")
	}
	if c.FirstGeneration.Rounds < 1 {
		return errors.New("first_generation.rounds must be at least 1")
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
