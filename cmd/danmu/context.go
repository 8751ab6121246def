package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"danmu/internal/config"
	"danmu/internal/engine"
	"danmu/internal/kvstore"
	"danmu/internal/logging"
)

type commandContext struct {
	configFlag *string
	jsonFlag   *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		jsonFlag:   jsonFlag,
	}
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

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

func (c *commandContext) jsonMode() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

// commandLogger writes to stderr so stdout stays parseable.
func (c *commandContext) commandLogger(cfg *config.Config) (*slog.Logger, error) {
	return logging.New(logging.Options{
		Level:            cfg.Logging.Level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	})
}

func openStore(cfg *config.Config, logger *slog.Logger) (kvstore.Store, error) {
	store, err := kvstore.Open(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open cache store: %w", err)
	}
	return store, nil
}

// withEngine builds a short-lived engine for one command.
func (c *commandContext) withEngine(fn func(*engine.Engine) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := c.commandLogger(cfg)
	if err != nil {
		return err
	}
	eng, closeFn, err := buildEngine(cfg, logger)
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(eng)
}

func buildEngine(cfg *config.Config, logger *slog.Logger) (*engine.Engine, func(), error) {
	store, err := openStore(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	registry, err := engine.BuildRegistry(cfg, logger)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	eng, err := engine.New(cfg, registry, engine.WithLogger(logger), engine.WithStore(store))
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return eng, func() { _ = store.Close() }, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
