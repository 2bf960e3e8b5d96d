package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, ".", cfg.Output.Dir)
	assert.Equal(t, "NGM_", cfg.Output.FilePrefix)
	assert.Equal(t, ".chk", cfg.Output.CheckpointSuffix)
	assert.True(t, cfg.Output.Verify)
	assert.Equal(t, "prefix", cfg.Scan.FolderPolicy)
	assert.Equal(t, 4, cfg.Jobs.Workers)
	assert.False(t, cfg.OCR.Enabled)
	assert.Equal(t, "tesseract", cfg.OCR.TesseractPath)
	assert.Equal(t, "eng", cfg.OCR.Language)
	assert.True(t, cfg.History.Enabled)
	assert.Equal(t, "info", cfg.Observability.LogLevel)

	require.NoError(t, cfg.Validate())
}

func TestLoad_MissingPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "NGM_", cfg.Output.FilePrefix)
}

func TestLoad_YAMLFile(t *testing.T) {
	content := `
output:
  dir: /out/pdfs
  file_prefix: MAG_
jobs:
  workers: 8
ocr:
  enabled: true
  language: deu
  timeout: 30s
observability:
  log_level: debug
`
	path := filepath.Join(t.TempDir(), "binder.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/out/pdfs", cfg.Output.Dir)
	assert.Equal(t, "MAG_", cfg.Output.FilePrefix)
	assert.Equal(t, 8, cfg.Jobs.Workers)
	assert.True(t, cfg.OCR.Enabled)
	assert.Equal(t, "deu", cfg.OCR.Language)
	assert.Equal(t, 30*time.Second, cfg.OCR.Timeout)
	assert.Equal(t, "debug", cfg.Observability.LogLevel)
	// untouched sections keep their defaults
	assert.Equal(t, ".chk", cfg.Output.CheckpointSuffix)
	assert.Equal(t, "prefix", cfg.Scan.FolderPolicy)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("NGM_OUTPUT_DIR", "/env/out")
	t.Setenv("NGM_JOBS", "12")
	t.Setenv("NGM_OCR", "true")
	t.Setenv("NGM_OCR_LANGUAGE", "fra")
	t.Setenv("NGM_OCR_ARGS", "--psm 1 --dpi 300")
	t.Setenv("NGM_LOG_LEVEL", "warn")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "/env/out", cfg.Output.Dir)
	assert.Equal(t, 12, cfg.Jobs.Workers)
	assert.True(t, cfg.OCR.Enabled)
	assert.Equal(t, "fra", cfg.OCR.Language)
	assert.Equal(t, []string{"--psm", "1", "--dpi", "300"}, cfg.OCR.ExtraArgs)
	assert.Equal(t, "warn", cfg.Observability.LogLevel)
}

func TestLoad_EnvIgnoresBadWorkerCount(t *testing.T) {
	t.Setenv("NGM_JOBS", "not-a-number")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Jobs.Workers)
}

func TestValidate_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty output dir", func(c *Config) { c.Output.Dir = "" }},
		{"unknown folder policy", func(c *Config) { c.Scan.FolderPolicy = "suffix" }},
		{"zero workers", func(c *Config) { c.Jobs.Workers = 0 }},
		{"too many workers", func(c *Config) { c.Jobs.Workers = 500 }},
		{"ocr without language", func(c *Config) { c.OCR.Enabled = true; c.OCR.Language = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoad_UnreadableFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_MalformedYAMLFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output: ["), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestResolveRelativePath(t *testing.T) {
	assert.Equal(t, "/abs/file.db", ResolveRelativePath("/etc/ngm/binder.yaml", "/abs/file.db"))
	assert.Equal(t, filepath.Join("/etc/ngm", "history.db"), ResolveRelativePath("/etc/ngm/binder.yaml", "history.db"))
}
