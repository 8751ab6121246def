package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const fixtureDocument = `{
  "results": [
    {
      "id": "s1",
      "title": "Test Show",
      "typeDescription": "TV",
      "startDate": "2020-04-01",
      "episodes": [
        {"id": "e1", "title": "Episode 1"},
        {"id": "e2", "title": "Episode 2"}
      ]
    }
  ],
  "comments": {
    "e1": [
      {"cid": 1, "time": 12.5, "mode": 1, "text": "hello"},
      {"cid": 2, "time": 3, "mode": 5, "color": 16711680, "text": "first"}
    ]
  }
}`

type cliTestEnv struct {
	configPath string
	dataDir    string
}

func setupCLITestEnv(t *testing.T, backend string) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))
	t.Setenv("DANMU_MERGE_GROUPS", "")

	fixtureDir := filepath.Join(base, "fixtures")
	if err := os.MkdirAll(fixtureDir, 0o755); err != nil {
		t.Fatalf("mkdir fixtures: %v", err)
	}
	if err := os.WriteFile(filepath.Join(fixtureDir, "show.json"), []byte(fixtureDocument), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	dataDir := filepath.Join(base, "data")
	content := fmt.Sprintf(`[paths]
data_dir = %q

[server]
token = "secret-token"

[cache]
backend = %q

[providers]
enabled = ["fixture"]

[providers.fixture]
dir = %q

[logging]
level = "error"
`, dataDir, backend, fixtureDir)

	configPath := filepath.Join(base, "config.toml")
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return &cliTestEnv{configPath: configPath, dataDir: dataDir}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
