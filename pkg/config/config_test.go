package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestDefaultsAreValid(t *testing.T) {
	require.NoError(t, Default().Validate())
	loc, err := Default().Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Jerusalem", loc.String())
}

func TestLoadLayersYAMLThenEnv(t *testing.T) {
	path := writeFile(t, "gmarup.yaml", `
backend:
  base_url: https://gmarup.example
console:
  refresh_interval: 45s
  visitors_floor: 20
server:
  adapter: fiber
`)
	t.Setenv("GMARUP_VISITORS_FLOOR", "7")

	cfg, err := Load(path, filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "https://gmarup.example", cfg.Backend.BaseURL)
	assert.Equal(t, 45*time.Second, cfg.Console.RefreshInterval)
	assert.Equal(t, 7, cfg.Console.VisitorsFloor)
	assert.Equal(t, "fiber", cfg.Server.Adapter)
	assert.Equal(t, 500*time.Millisecond, cfg.Console.RefreshDelay)
}

func TestLoadReadsEnvFile(t *testing.T) {
	envFile := writeFile(t, ".env", "GMARUP_BACKEND_URL=http://backend.test:5000\n")
	t.Setenv("GMARUP_BACKEND_URL", "")
	os.Unsetenv("GMARUP_BACKEND_URL")

	cfg, err := Load("", envFile)
	require.NoError(t, err)
	assert.Equal(t, "http://backend.test:5000", cfg.Backend.BaseURL)
}

func TestUnknownYAMLKeyIsRejected(t *testing.T) {
	path := writeFile(t, "gmarup.yaml", "backend:\n  base_uri: https://typo.example\n")
	_, err := Load(path, filepath.Join(t.TempDir(), "none"))
	if err == nil || !strings.Contains(err.Error(), "base_uri") {
		t.Fatalf("expected unknown field error, got %v", err)
	}
}

func TestValidateCollectsEveryProblem(t *testing.T) {
	cfg := Default()
	cfg.Backend.BaseURL = "not a url"
	cfg.Console.Locale = "fr"
	cfg.Server.Adapter = "gin"

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"base_url", "locale", "adapter"} {
		assert.Contains(t, err.Error(), want)
	}
}
