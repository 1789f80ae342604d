package main

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"oslomc/internal/config"
	"oslomc/internal/logging"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// newLogger builds the run logger from config, teeing to the log directory
// when one is configured.
func (c *commandContext) newLogger(cfg *config.Config) (*slog.Logger, error) {
	var output io.Writer = os.Stderr
	if cfg.Paths.LogDir != "" {
		file, err := logging.OpenLogFile(filepath.Join(cfg.Paths.LogDir, "oslomc.log"))
		if err != nil {
			return nil, err
		}
		output = io.MultiWriter(os.Stderr, file)
	}
	return logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: output,
	})
}

func (c *commandContext) runDBPath(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.DataDir, "runs.db")
}
