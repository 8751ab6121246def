package preflight

import (
	"context"
	"net/http"
	"path/filepath"

	"danmu/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, result := range results {
		if !result.Passed {
			out = append(out, result)
		}
	}
	return out
}

// RunAll executes the checks that apply to cfg. client may be nil.
func RunAll(ctx context.Context, cfg *config.Config, client *http.Client) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("Data directory", cfg.Paths.DataDir))
	if cfg.Paths.LogDir != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}
	if cfg.Cache.Backend != "memory" && cfg.Cache.Path != "" {
		results = append(results, CheckDirectoryAccess("Cache directory", filepath.Dir(cfg.Cache.Path)))
	}

	if cfg.ProviderEnabled("fixture") {
		results = append(results, CheckFixtureDir(cfg.Providers.Fixture.Dir))
	}
	if cfg.ProviderEnabled("dandan") {
		dandan := cfg.Providers.Dandan
		headers := map[string]string{}
		if dandan.AppID != "" {
			headers["X-AppId"] = dandan.AppID
			headers["X-AppSecret"] = dandan.AppSecret
		}
		results = append(results, CheckEndpoint(ctx, client, "dandan", dandan.BaseURL, headers))
	}
	if cfg.ProviderEnabled("bilibili") {
		bili := cfg.Providers.Bilibili
		headers := map[string]string{}
		if bili.Cookie != "" {
			headers["Cookie"] = bili.Cookie
		}
		results = append(results, CheckEndpoint(ctx, client, "bilibili", bili.BaseURL, headers))
	}

	return results
}
