package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

const endpointTimeout = 5 * time.Second

// CheckEndpoint verifies that a provider base URL answers. Any response below
// 500 counts as reachable except 401 and 403, which report rejected
// credentials.
func CheckEndpoint(ctx context.Context, client *http.Client, name, baseURL string, headers map[string]string) Result {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return Result{Name: name, Detail: "missing base url"}
	}
	if client == nil {
		client = &http.Client{Timeout: endpointTimeout}
	}

	checkCtx, cancel := context.WithTimeout(ctx, endpointTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, base+"/", nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("request failed (%v)", err)}
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: summarizeError(err)}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return Result{Name: name, Detail: fmt.Sprintf("%s (credentials rejected: %d)", base, resp.StatusCode)}
	case resp.StatusCode >= http.StatusInternalServerError:
		return Result{Name: name, Detail: fmt.Sprintf("%s (server error: %d)", base, resp.StatusCode)}
	default:
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (reachable)", base)}
	}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckFixtureDir verifies the fixture directory is readable and holds at
// least one document.
func CheckFixtureDir(path string) Result {
	const name = "Fixture documents"
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "providers.fixture.dir not set"}
	}
	if err := unix.Access(path, unix.R_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not readable: %v)", path, err)}
	}
	matches, err := filepath.Glob(filepath.Join(path, "*.json"))
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	if len(matches) == 0 {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: no *.json documents)", path)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d documents)", path, len(matches))}
}

func summarizeError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "check timed out (provider unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "check timed out (provider unreachable)"
	}
	return err.Error()
}
