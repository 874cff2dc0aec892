// Package testutil holds helpers shared by the package tests.
package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Isolate unsets every environment variable starting with prefix for the
// duration of the test and restores them through t.Cleanup. Tests calling it
// must not run in parallel.
func Isolate(t *testing.T, prefix string) {
	t.Helper()

	snapshot := map[string]string{}
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(k, prefix) {
			continue
		}
		snapshot[k] = v
		_ = os.Unsetenv(k)
	}

	t.Cleanup(func() {
		for _, kv := range os.Environ() {
			if k, _, ok := strings.Cut(kv, "="); ok && strings.HasPrefix(k, prefix) {
				_ = os.Unsetenv(k)
			}
		}
		for k, v := range snapshot {
			_ = os.Setenv(k, v)
		}
	})
}

// WriteFile writes content to name under dir and returns the full path.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
