package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"danmu/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "danmu")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Paths.LogDir != filepath.Join(wantData, "logs") {
		t.Fatalf("unexpected log dir: %q", cfg.Paths.LogDir)
	}
	if cfg.Cache.Path != filepath.Join(wantData, "cache.db") {
		t.Fatalf("unexpected cache path: %q", cfg.Cache.Path)
	}
	if cfg.Server.Bind != "127.0.0.1:9321" {
		t.Fatalf("unexpected bind: %q", cfg.Server.Bind)
	}
	if cfg.SearchTTL() != 5*time.Minute || cfg.CommentTTL() != 5*time.Minute {
		t.Fatalf("unexpected ttls: %s %s", cfg.SearchTTL(), cfg.CommentTTL())
	}
	if cfg.Providers.SegmentConcurrency != 6 {
		t.Fatalf("expected segment concurrency 6, got %d", cfg.Providers.SegmentConcurrency)
	}
	if len(cfg.MergeGroups()) != 0 {
		t.Fatalf("expected no merge groups by default, got %v", cfg.MergeGroups())
	}
	if cfg.LockPath() != filepath.Join(wantData, "danmu.lock") {
		t.Fatalf("unexpected lock path: %q", cfg.LockPath())
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	fixtureDir := filepath.Join(tempHome, "fixtures")
	payload := struct {
		Providers struct {
			Enabled []string `toml:"enabled"`
			Fixture struct {
				Dir string `toml:"dir"`
			} `toml:"fixture"`
		} `toml:"providers"`
		Merge struct {
			Groups string `toml:"groups"`
		} `toml:"merge"`
		Danmaku struct {
			GroupMinute int    `toml:"group_minute"`
			ColorMode   string `toml:"color_mode"`
		} `toml:"danmaku"`
		Cache struct {
			Backend string `toml:"backend"`
		} `toml:"cache"`
	}{}
	payload.Providers.Enabled = []string{"Dandan", "bilibili", "fixture", "dandan"}
	payload.Providers.Fixture.Dir = "~/fixtures"
	payload.Merge.Groups = "dandan&bilibili; fixture&dandan"
	payload.Danmaku.GroupMinute = -1
	payload.Danmaku.ColorMode = " WHITE "
	payload.Cache.Backend = "file"

	data, err := toml.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	configPath := filepath.Join(tempHome, "custom.toml")
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected resolved custom path, got %q exists=%v", resolved, exists)
	}
	if got := strings.Join(cfg.Providers.Enabled, ","); got != "dandan,bilibili,fixture" {
		t.Fatalf("unexpected enabled providers: %q", got)
	}
	if cfg.Providers.Fixture.Dir != fixtureDir {
		t.Fatalf("unexpected fixture dir: %q", cfg.Providers.Fixture.Dir)
	}
	groups := cfg.MergeGroups()
	if len(groups) != 2 || groups[0].String() != "dandan&bilibili" || groups[1].String() != "fixture&dandan" {
		t.Fatalf("unexpected merge groups: %v", groups)
	}
	if cfg.Danmaku.GroupMinute != -1 || cfg.Danmaku.ColorMode != "white" {
		t.Fatalf("unexpected danmaku settings: %+v", cfg.Danmaku)
	}
	if filepath.Base(cfg.Cache.Path) != "cache.json" {
		t.Fatalf("expected file backend path, got %q", cfg.Cache.Path)
	}
}

func TestLoadMergeGroupsFromEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("DANMU_MERGE_GROUPS", "bilibili&dandan")
	t.Setenv("DANMU_LOG_LEVEL", "DEBUG")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	groups := cfg.MergeGroups()
	if len(groups) != 1 || groups[0].Primary != "bilibili" || groups[0].Secondaries[0] != "dandan" {
		t.Fatalf("unexpected groups: %v", groups)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("expected env log level, got %q", cfg.Logging.Level)
	}
}

func TestLoadReadsDotEnvNextToConfig(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Cleanup(func() { _ = os.Unsetenv("DANMU_BILIBILI_COOKIE") })
	_ = os.Unsetenv("DANMU_BILIBILI_COOKIE")

	configDir := filepath.Join(tempHome, "conf")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(configDir, ".env"), []byte("DANMU_BILIBILI_COOKIE=SESSDATA=abc\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	configPath := filepath.Join(configDir, "config.toml")
	if err := os.WriteFile(configPath, []byte("[logging]\nlevel = \"warn\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Providers.Bilibili.Cookie != "SESSDATA=abc" {
		t.Fatalf("expected cookie from .env, got %q", cfg.Providers.Bilibili.Cookie)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"backend", func(c *config.Config) { c.Cache.Backend = "redis" }, "cache.backend"},
		{"unknown provider", func(c *config.Config) { c.Providers.Enabled = []string{"youku"} }, "unknown provider"},
		{"no providers", func(c *config.Config) { c.Providers.Enabled = nil }, "at least one provider"},
		{"merge disabled source", func(c *config.Config) { c.Merge.Groups = "dandan&fixture" }, "not enabled"},
		{"group minute", func(c *config.Config) { c.Danmaku.GroupMinute = -2 }, "group_minute"},
		{"color mode", func(c *config.Config) { c.Danmaku.ColorMode = "rainbow" }, "color_mode"},
		{"script", func(c *config.Config) { c.Danmaku.Script = "pinyin" }, "danmaku.script"},
		{"fixture dir", func(c *config.Config) { c.Providers.Enabled = []string{"fixture"} }, "fixture.dir"},
		{"log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestDefaultValidates(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestParseMergeGroups(t *testing.T) {
	groups, err := config.ParseMergeGroups(" a & b & b & a ; c&d , lonely, &e ")
	if err != nil {
		t.Fatalf("ParseMergeGroups: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %v", groups)
	}
	if groups[0].Primary != "a" || len(groups[0].Secondaries) != 1 || groups[0].Secondaries[0] != "b" {
		t.Fatalf("unexpected first group: %+v", groups[0])
	}
	if groups[1].String() != "c&d" {
		t.Fatalf("unexpected second group: %v", groups[1])
	}

	if _, err := config.ParseMergeGroups("a&b:c"); err == nil {
		t.Fatal("expected error for source with colon")
	}
	empty, err := config.ParseMergeGroups("   ")
	if err != nil || empty != nil {
		t.Fatalf("expected nil groups, got %v %v", empty, err)
	}
}

func TestCreateSampleLoads(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	path := filepath.Join(tempHome, "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample file to exist")
	}
	if cfg.Cache.Backend != "sqlite" {
		t.Fatalf("unexpected backend: %q", cfg.Cache.Backend)
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s: %v", dir, err)
		}
	}
}
