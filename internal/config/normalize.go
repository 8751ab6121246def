package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// loadDotEnv reads .env files from the config directory and the working
// directory. Variables already present in the environment win.
func loadDotEnv(configDir string) error {
	candidates := []string{".env"}
	if strings.TrimSpace(configDir) != "" {
		candidates = append([]string{filepath.Join(configDir, ".env")}, candidates...)
	}
	seen := make(map[string]struct{}, len(candidates))
	for _, candidate := range candidates {
		abs, err := filepath.Abs(candidate)
		if err != nil {
			continue
		}
		if _, ok := seen[abs]; ok {
			continue
		}
		seen[abs] = struct{}{}
		if _, err := os.Stat(abs); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("stat %s: %w", abs, err)
		}
		if err := godotenv.Load(abs); err != nil {
			return fmt.Errorf("load %s: %w", abs, err)
		}
	}
	return nil
}

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeServer()
	c.normalizeCache()
	c.normalizeProviders()
	c.normalizeMerge()
	c.normalizeDanmaku()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.DataDir, "logs")
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Providers.Fixture.Dir, err = expandPath(strings.TrimSpace(c.Providers.Fixture.Dir)); err != nil {
		return fmt.Errorf("providers.fixture.dir: %w", err)
	}
	if c.Cache.Path, err = expandPath(strings.TrimSpace(c.Cache.Path)); err != nil {
		return fmt.Errorf("cache.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeServer() {
	if value, ok := os.LookupEnv("DANMU_SERVER_BIND"); ok && strings.TrimSpace(value) != "" {
		c.Server.Bind = value
	}
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	if c.Server.Bind == "" {
		c.Server.Bind = defaultServerBind
	}
	if c.Server.Token == "" {
		if value, ok := os.LookupEnv("DANMU_API_TOKEN"); ok {
			c.Server.Token = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeCache() {
	c.Cache.Backend = strings.ToLower(strings.TrimSpace(c.Cache.Backend))
	if c.Cache.Backend == "" {
		c.Cache.Backend = defaultCacheBackend
	}
	if c.Cache.Path == "" {
		switch c.Cache.Backend {
		case "sqlite":
			c.Cache.Path = filepath.Join(c.Paths.DataDir, "cache.db")
		case "file":
			c.Cache.Path = filepath.Join(c.Paths.DataDir, "cache.json")
		}
	}
	if c.Cache.MaxCatalogEntries == 0 {
		c.Cache.MaxCatalogEntries = defaultMaxCatalogEntries
	}
}

func (c *Config) normalizeProviders() {
	if value, ok := os.LookupEnv("DANMU_PROVIDERS"); ok && strings.TrimSpace(value) != "" {
		c.Providers.Enabled = strings.Split(value, ",")
	}
	enabled := make([]string, 0, len(c.Providers.Enabled))
	seen := make(map[string]struct{}, len(c.Providers.Enabled))
	for _, name := range c.Providers.Enabled {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		enabled = append(enabled, name)
	}
	c.Providers.Enabled = enabled

	if c.Providers.RequestTimeout == 0 {
		c.Providers.RequestTimeout = defaultRequestTimeout
	}
	if c.Providers.SearchConcurrency == 0 {
		c.Providers.SearchConcurrency = defaultSearchConcurrency
	}
	if c.Providers.SegmentConcurrency == 0 {
		c.Providers.SegmentConcurrency = defaultSegmentConcurrency
	}

	if c.Providers.Dandan.AppID == "" {
		if value, ok := os.LookupEnv("DANMU_DANDAN_APP_ID"); ok {
			c.Providers.Dandan.AppID = strings.TrimSpace(value)
		}
	}
	if c.Providers.Dandan.AppSecret == "" {
		if value, ok := os.LookupEnv("DANMU_DANDAN_APP_SECRET"); ok {
			c.Providers.Dandan.AppSecret = strings.TrimSpace(value)
		}
	}
	c.Providers.Dandan.BaseURL = strings.TrimRight(strings.TrimSpace(c.Providers.Dandan.BaseURL), "/")
	if c.Providers.Dandan.BaseURL == "" {
		c.Providers.Dandan.BaseURL = defaultDandanBaseURL
	}

	if c.Providers.Bilibili.Cookie == "" {
		if value, ok := os.LookupEnv("DANMU_BILIBILI_COOKIE"); ok {
			c.Providers.Bilibili.Cookie = strings.TrimSpace(value)
		}
	}
	c.Providers.Bilibili.BaseURL = strings.TrimRight(strings.TrimSpace(c.Providers.Bilibili.BaseURL), "/")
	if c.Providers.Bilibili.BaseURL == "" {
		c.Providers.Bilibili.BaseURL = defaultBilibiliBaseURL
	}
	c.Providers.Bilibili.CommentURL = strings.TrimSpace(c.Providers.Bilibili.CommentURL)
	if c.Providers.Bilibili.CommentURL == "" {
		c.Providers.Bilibili.CommentURL = defaultBilibiliCommentURL
	}
}

func (c *Config) normalizeMerge() {
	if value, ok := os.LookupEnv("DANMU_MERGE_GROUPS"); ok {
		c.Merge.Groups = value
	}
	c.Merge.Groups = strings.TrimSpace(c.Merge.Groups)
}

func (c *Config) normalizeDanmaku() {
	if value, ok := os.LookupEnv("DANMU_BLOCKED_WORDS"); ok {
		c.Danmaku.BlockedWords = value
	}
	c.Danmaku.ColorMode = strings.ToLower(strings.TrimSpace(c.Danmaku.ColorMode))
	if c.Danmaku.ColorMode == "" {
		c.Danmaku.ColorMode = defaultColorMode
	}
	c.Danmaku.Script = strings.ToLower(strings.TrimSpace(c.Danmaku.Script))
	if c.Danmaku.Script == "" {
		c.Danmaku.Script = defaultScript
	}
}

func (c *Config) normalizeLogging() {
	if value, ok := os.LookupEnv("DANMU_LOG_LEVEL"); ok && strings.TrimSpace(value) != "" {
		c.Logging.Level = value
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
