package main

import (
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"entitymatch/internal/config"
	"entitymatch/internal/logging"
)

type commandContext struct {
	logLevel  *string
	logFormat *string

	once   sync.Once
	config config.Config
	logger *zap.Logger
	err    error
}

func newCommandContext(logLevel, logFormat *string) *commandContext {
	return &commandContext{logLevel: logLevel, logFormat: logFormat}
}

func (c *commandContext) ensure() error {
	c.once.Do(func() {
		cfg, err := config.Load()
		if err != nil {
			c.err = err
			return
		}
		if v := flagValue(c.logLevel); v != "" {
			cfg.LogLevel = v
		}
		if v := flagValue(c.logFormat); v != "" {
			cfg.LogFormat = v
		}
		logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
		if err != nil {
			c.err = err
			return
		}
		c.config = cfg
		c.logger = logger
	})
	return c.err
}

func (c *commandContext) log() *zap.Logger {
	if c.logger == nil {
		return zap.NewNop()
	}
	return c.logger
}

func (c *commandContext) sync() {
	if c.logger != nil {
		_ = c.logger.Sync()
	}
}

func flagValue(v *string) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(*v)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
