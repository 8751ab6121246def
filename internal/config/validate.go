package config

import (
	"errors"
	"fmt"
	"strings"
)

var knownProviders = map[string]struct{}{
	"dandan":   {},
	"bilibili": {},
	"fixture":  {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateCache(); err != nil {
		return err
	}
	if err := c.validateProviders(); err != nil {
		return err
	}
	if err := c.validateMerge(); err != nil {
		return err
	}
	if err := c.validateDanmaku(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateCache() error {
	switch c.Cache.Backend {
	case "memory", "file", "sqlite":
	default:
		return fmt.Errorf("cache.backend must be one of memory, file, sqlite (got %q)", c.Cache.Backend)
	}
	if c.Cache.SearchTTLMinutes < 0 {
		return errors.New("cache.search_ttl_minutes must be >= 0")
	}
	if c.Cache.CommentTTLMinutes < 0 {
		return errors.New("cache.comment_ttl_minutes must be >= 0")
	}
	if c.Cache.MaxCatalogEntries < 0 {
		return errors.New("cache.max_catalog_entries must be positive")
	}
	return nil
}

func (c *Config) validateProviders() error {
	if len(c.Providers.Enabled) == 0 {
		return errors.New("providers.enabled must list at least one provider")
	}
	for _, name := range c.Providers.Enabled {
		if _, ok := knownProviders[name]; !ok {
			return fmt.Errorf("providers.enabled: unknown provider %q", name)
		}
	}
	if c.Providers.RequestTimeout < 0 {
		return errors.New("providers.request_timeout must be positive")
	}
	if c.Providers.SearchConcurrency < 0 {
		return errors.New("providers.search_concurrency must be positive")
	}
	if c.Providers.SegmentConcurrency < 0 {
		return errors.New("providers.segment_concurrency must be positive")
	}
	if c.ProviderEnabled("fixture") && c.Providers.Fixture.Dir == "" {
		return errors.New("providers.fixture.dir must be set when the fixture provider is enabled")
	}
	return nil
}

func (c *Config) validateMerge() error {
	groups, err := ParseMergeGroups(c.Merge.Groups)
	if err != nil {
		return fmt.Errorf("merge.groups: %w", err)
	}
	for _, group := range groups {
		for _, source := range group.Sources() {
			if !c.ProviderEnabled(source) {
				return fmt.Errorf("merge.groups references provider %q which is not enabled", source)
			}
		}
	}
	return nil
}

func (c *Config) validateDanmaku() error {
	if c.Danmaku.GroupMinute < -1 {
		return errors.New("danmaku.group_minute must be -1 (exact), 0 (off), or a positive minute count")
	}
	if c.Danmaku.Limit < 0 {
		return errors.New("danmaku.limit must be >= 0")
	}
	switch c.Danmaku.ColorMode {
	case "default", "white", "color":
	default:
		return fmt.Errorf("danmaku.color_mode must be one of default, white, color (got %q)", c.Danmaku.ColorMode)
	}
	switch c.Danmaku.Script {
	case "none", "simplified", "traditional":
	default:
		return fmt.Errorf("danmaku.script must be one of none, simplified, traditional (got %q)", c.Danmaku.Script)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json (got %q)", c.Logging.Format)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error (got %q)", c.Logging.Level)
	}
	return nil
}
