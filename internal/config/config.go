package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// Server contains configuration for the HTTP API.
type Server struct {
	Bind  string `toml:"bind"`
	Token string `toml:"token"`
}

// Cache contains configuration for the search and comment caches.
type Cache struct {
	Backend           string `toml:"backend"` // memory, file, or sqlite
	Path              string `toml:"path"`
	SearchTTLMinutes  int    `toml:"search_ttl_minutes"`
	CommentTTLMinutes int    `toml:"comment_ttl_minutes"`
	MaxCatalogEntries int    `toml:"max_catalog_entries"`
}

// Dandan contains configuration for the dandanplay-compatible provider.
type Dandan struct {
	BaseURL   string `toml:"base_url"`
	AppID     string `toml:"app_id"`
	AppSecret string `toml:"app_secret"`
}

// Bilibili contains configuration for the segmented bilibili provider.
type Bilibili struct {
	BaseURL    string `toml:"base_url"`
	CommentURL string `toml:"comment_url"`
	Cookie     string `toml:"cookie"`
}

// Fixture contains configuration for the offline JSON fixture provider.
type Fixture struct {
	Dir string `toml:"dir"`
}

// Providers lists enabled sources and shared request limits.
type Providers struct {
	Enabled            []string `toml:"enabled"`
	RequestTimeout     int      `toml:"request_timeout"`
	SearchConcurrency  int      `toml:"search_concurrency"`
	SegmentConcurrency int      `toml:"segment_concurrency"`
	Dandan             Dandan   `toml:"dandan"`
	Bilibili           Bilibili `toml:"bilibili"`
	Fixture            Fixture  `toml:"fixture"`
}

// Merge contains the cross-source merge group definition.
type Merge struct {
	// Groups uses the form "primary&sec1&sec2,primary2&sec1".
	Groups string `toml:"groups"`
}

// Danmaku contains comment normalization settings.
type Danmaku struct {
	BlockedWords             string `toml:"blocked_words"`
	GroupMinute              int    `toml:"group_minute"` // 0 off, -1 exact time, n>0 minute buckets
	Limit                    int    `toml:"limit"`        // thousands of comments, 0 = unlimited
	ConvertTopBottomToScroll bool   `toml:"convert_top_bottom_to_scroll"`
	ColorMode                string `toml:"color_mode"` // default, white, color
	Script                   string `toml:"script"`     // none, simplified, traditional
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for danmu.
//
// Configuration sections by subsystem:
//   - Paths: data and log directories
//   - Server: HTTP API bind address and optional token
//   - Cache: TTLs, catalog bound, persistence backend
//   - Providers: enabled sources, timeouts, fan-out limits, per-source settings
//   - Merge: provider groups eligible for comment fusion
//   - Danmaku: blocklist, grouping, sampling, cosmetic conversion
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	Server    Server    `toml:"server"`
	Cache     Cache     `toml:"cache"`
	Providers Providers `toml:"providers"`
	Merge     Merge     `toml:"merge"`
	Danmaku   Danmaku   `toml:"danmaku"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/danmu/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := loadDotEnv(filepath.Dir(resolvedPath)); err != nil {
		return nil, "", false, err
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("danmu.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// SearchTTL returns the lifetime of cached search results.
func (c *Config) SearchTTL() time.Duration {
	return time.Duration(c.Cache.SearchTTLMinutes) * time.Minute
}

// CommentTTL returns the lifetime of cached comment lists.
func (c *Config) CommentTTL() time.Duration {
	return time.Duration(c.Cache.CommentTTLMinutes) * time.Minute
}

// RequestTimeout returns the per-request timeout for upstream providers.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Providers.RequestTimeout) * time.Second
}

// LockPath returns the path of the single-instance server lock.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "danmu.lock")
}

// ProviderEnabled reports whether name is listed in providers.enabled.
func (c *Config) ProviderEnabled(name string) bool {
	for _, enabled := range c.Providers.Enabled {
		if enabled == name {
			return true
		}
	}
	return false
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
