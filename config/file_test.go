package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pevans/rangescrape/scraper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeHomeConfig writes content to .rangescrape/config.yaml under a fresh
// HOME.
func writeHomeConfig(t *testing.T, content string) {
	t.Helper()

	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)

	if content == "" {
		return
	}
	dir := filepath.Join(tmpDir, ".rangescrape")
	require.NoError(t, os.MkdirAll(dir, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o600))
}

func TestLoadConfigFile_NoFile(t *testing.T) {
	writeHomeConfig(t, "")

	cfg, err := LoadConfigFile("")
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, Default(), cfg, "Should fall back to defaults when config file doesn't exist")
}

func TestLoadConfigFile_ValidConfig(t *testing.T) {
	writeHomeConfig(t, `scrape:
  keyword: "Airline Stocks"
  start_date: "06/01/2019"
  periods: 3
  periodicity: "D"
  result_pages: 2
  output_dir: "/tmp/out"
  format: "jsonl"
  wait: 10s
  pace: 250ms
  browser:
    backend: "chromedp"
    headless: false
logging:
  level: "debug"
  dir: "/tmp/logs"
index:
  dsn: "/tmp/runs.db"
`)

	cfg, err := LoadConfigFile("")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "Airline Stocks", cfg.Scrape.Keyword)
	assert.Equal(t, "06/01/2019", cfg.Scrape.StartDate)
	assert.Equal(t, 3, cfg.Scrape.Periods)
	assert.Equal(t, "D", cfg.Scrape.Periodicity)
	assert.Equal(t, 2, cfg.Scrape.ResultPages)
	assert.Equal(t, "/tmp/out", cfg.Scrape.OutputDir)
	assert.Equal(t, "jsonl", cfg.Scrape.Format)
	assert.Equal(t, 10*time.Second, cfg.Scrape.Wait)
	assert.Equal(t, 250*time.Millisecond, cfg.Scrape.Pace)
	assert.Equal(t, "chromedp", cfg.Scrape.Browser.Backend)
	assert.False(t, cfg.Scrape.Browser.Headless)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "/tmp/logs", cfg.Logging.Dir)
	assert.Equal(t, "/tmp/runs.db", cfg.Index.DSN)

	assert.NoError(t, cfg.Scrape.Validate())
}

func TestLoadConfigFile_InvalidYAML(t *testing.T) {
	writeHomeConfig(t, `scrape:
  keyword: "Airline Stocks"
  browser:
    - this is invalid yaml because browser should be an object not a list
`)

	cfg, err := LoadConfigFile("")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestLoadConfigFile_PartialConfig(t *testing.T) {
	writeHomeConfig(t, `scrape:
  keyword: "Airline Stocks"
`)

	cfg, err := LoadConfigFile("")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	defaults := scraper.DefaultConfig()
	assert.Equal(t, "Airline Stocks", cfg.Scrape.Keyword)
	assert.Equal(t, defaults.Periodicity, cfg.Scrape.Periodicity, "Unspecified periodicity should keep its default")
	assert.Equal(t, defaults.Browser, cfg.Scrape.Browser, "Unspecified browser section should keep its defaults")
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Empty(t, cfg.Index.DSN, "Index should be disabled unless configured")
}

func TestLoadConfigFile_ExplicitPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scrape:\n  periodicity: \"W\"\n"), 0o600))

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, "W", cfg.Scrape.Periodicity)
}

func TestLoadConfigFile_ExplicitPathMissing(t *testing.T) {
	cfg, err := LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to read config file")
}
