// Package config provides unified configuration loading for the binder.
// Supports YAML files, environment variables, and programmatic overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the binder.
type Config struct {
	Output        OutputConfig        `yaml:"output"`
	Scan          ScanConfig          `yaml:"scan"`
	OCR           OCRConfig           `yaml:"ocr"`
	Jobs          JobsConfig          `yaml:"jobs"`
	History       HistoryConfig       `yaml:"history"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// OutputConfig holds output document settings.
type OutputConfig struct {
	Dir              string `yaml:"dir"`
	FilePrefix       string `yaml:"file_prefix"`
	CheckpointSuffix string `yaml:"checkpoint_suffix"`
	Verify           bool   `yaml:"verify"`
}

// ScanConfig holds folder discovery settings.
type ScanConfig struct {
	FolderPolicy string `yaml:"folder_policy"` // prefix or contains
	IssuePrefix  string `yaml:"issue_prefix"`
}

// OCRConfig holds text recognition settings.
type OCRConfig struct {
	Enabled       bool          `yaml:"enabled"`
	TesseractPath string        `yaml:"tesseract_path"`
	Language      string        `yaml:"language"`
	ExtraArgs     []string      `yaml:"extra_args"` // passed through to tesseract, e.g. --psm 1
	Timeout       time.Duration `yaml:"timeout"`
}

// JobsConfig holds parallelism settings.
type JobsConfig struct {
	Workers int `yaml:"workers"`
}

// HistoryConfig holds run ledger settings.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	LogFile   string `yaml:"log_file"`
}

// Load reads configuration from a YAML file and applies environment overrides.
func Load(path string) (*Config, error) {
	// Load .env if present (ignore error if not found)
	_ = godotenv.Load()

	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Output: OutputConfig{
			Dir:              ".",
			FilePrefix:       "NGM_",
			CheckpointSuffix: ".chk",
			Verify:           true,
		},
		Scan: ScanConfig{
			FolderPolicy: "prefix",
			IssuePrefix:  "NGM_",
		},
		OCR: OCRConfig{
			Enabled:       false,
			TesseractPath: "tesseract",
			Language:      "eng",
			Timeout:       2 * time.Minute,
		},
		Jobs: JobsConfig{
			Workers: 4,
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    defaultHistoryPath(),
		},
		Observability: ObservabilityConfig{
			LogLevel:  "info",
			LogFormat: "console",
			LogFile:   "ngm-binder.log",
		},
	}
}

// defaultHistoryPath returns a persistent location for the run ledger.
// Priority:
// 1. $NGM_DATA_DIR environment variable
// 2. $HOME/.ngm-binder (user's home directory)
// 3. ./data (relative to the working directory)
func defaultHistoryPath() string {
	if dataDir := os.Getenv("NGM_DATA_DIR"); dataDir != "" {
		return filepath.Join(dataDir, "history.db")
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".ngm-binder", "history.db")
	}

	return filepath.Join("data", "history.db")
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Output.Dir == "" {
		return fmt.Errorf("output dir is required")
	}

	if c.Scan.FolderPolicy != "prefix" && c.Scan.FolderPolicy != "contains" {
		return fmt.Errorf("invalid folder policy: %s", c.Scan.FolderPolicy)
	}

	if c.Jobs.Workers < 1 || c.Jobs.Workers > 128 {
		return fmt.Errorf("workers must be between 1 and 128")
	}

	if c.OCR.Enabled && c.OCR.Language == "" {
		return fmt.Errorf("ocr language is required when ocr is enabled")
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("NGM_OUTPUT_DIR"); v != "" {
		cfg.Output.Dir = v
	}

	if v := os.Getenv("NGM_FILE_PREFIX"); v != "" {
		cfg.Output.FilePrefix = v
	}

	if v := os.Getenv("NGM_FOLDER_POLICY"); v != "" {
		cfg.Scan.FolderPolicy = v
	}

	if v := os.Getenv("NGM_ISSUE_PREFIX"); v != "" {
		cfg.Scan.IssuePrefix = v
	}

	if v := os.Getenv("NGM_JOBS"); v != "" {
		var workers int
		if _, err := fmt.Sscanf(v, "%d", &workers); err == nil && workers > 0 {
			cfg.Jobs.Workers = workers
		}
	}

	if v := os.Getenv("NGM_OCR"); v == "true" {
		cfg.OCR.Enabled = true
	}

	if v := os.Getenv("NGM_TESSERACT_PATH"); v != "" {
		cfg.OCR.TesseractPath = v
	}

	if v := os.Getenv("NGM_OCR_LANGUAGE"); v != "" {
		cfg.OCR.Language = v
	}

	if v := os.Getenv("NGM_OCR_ARGS"); v != "" {
		cfg.OCR.ExtraArgs = strings.Fields(v)
	}

	if v := os.Getenv("NGM_HISTORY_PATH"); v != "" {
		cfg.History.Path = v
	}

	if v := os.Getenv("NGM_LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}

	if v := os.Getenv("NGM_LOG_FORMAT"); v != "" {
		cfg.Observability.LogFormat = v
	}

	if v := os.Getenv("NGM_LOG_FILE"); v != "" {
		cfg.Observability.LogFile = v
	}
}

// ResolveRelativePath resolves a path relative to the config file location.
func ResolveRelativePath(configPath, targetPath string) string {
	if filepath.IsAbs(targetPath) {
		return targetPath
	}
	configDir := filepath.Dir(configPath)
	return filepath.Join(configDir, targetPath)
}
