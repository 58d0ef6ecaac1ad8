// Package config loads interpreter settings from YAML files.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/thomasrohde/rlux/pkg/diagnostics"
	"github.com/thomasrohde/rlux/pkg/evaluator"
)

// File names searched by Load.
const (
	ProjectFile = ".rlux.yaml"
	UserDir     = ".rlux"
	UserFile    = "config.yaml"
)

// Config holds the effective interpreter settings.
type Config struct {
	// Path is the file the settings were read from, empty for defaults.
	Path string `yaml:"-"`

	Diagnostics     string       `yaml:"diagnostics"`
	Prompt          string       `yaml:"prompt"`
	LogLevel        string       `yaml:"log_level"`
	Budget          BudgetConfig `yaml:"budget"`
	RunOnParseError bool         `yaml:"run_on_parse_error"`
}

// BudgetConfig mirrors evaluator.Budget in file form. Zero means unbounded.
type BudgetConfig struct {
	MaxIterations int64 `yaml:"max_iterations"`
	TimeoutMs     int64 `yaml:"timeout_ms"`
}

// ValidationError aggregates configuration validation failures.
type ValidationError struct {
	Path   string
	Issues []string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("config validation failed")
	if e.Path != "" {
		b.WriteString(" for ")
		b.WriteString(e.Path)
	}
	b.WriteString(":")
	for _, issue := range e.Issues {
		b.WriteString("\n- ")
		b.WriteString(issue)
	}
	return b.String()
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Diagnostics:     string(diagnostics.FormatText),
		Prompt:          "> ",
		LogLevel:        "warn",
		RunOnParseError: true,
	}
}

// Load resolves settings for projectDir.
// Precedence: project (.rlux.yaml) → user (~/.rlux/config.yaml) → defaults.
// A missing file falls through to the next candidate; a file that exists
// but does not parse or validate is an error.
func Load(projectDir string) (*Config, error) {
	candidates := []string{filepath.Join(projectDir, ProjectFile)}
	if homeDir, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(homeDir, UserDir, UserFile))
	}

	for _, path := range candidates {
		cfg, err := LoadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		return cfg, err
	}
	return Default(), nil
}

// LoadFile reads settings from path, filling unset fields with defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			verr.Path = path
			return nil, verr
		}
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.Path = path
	return cfg, nil
}

// Parse decodes YAML settings over the defaults. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every field and reports all problems at once.
func (c *Config) Validate() error {
	var errs ValidationError
	if _, err := diagnostics.ParseFormat(c.Diagnostics); err != nil {
		errs.Issues = append(errs.Issues, fmt.Sprintf("diagnostics must be text or json, got %q", c.Diagnostics))
	}
	if _, ok := parseLevel(c.LogLevel); !ok {
		errs.Issues = append(errs.Issues, fmt.Sprintf("log_level must be debug, info, warn or error, got %q", c.LogLevel))
	}
	if c.Budget.MaxIterations < 0 {
		errs.Issues = append(errs.Issues, "budget.max_iterations must not be negative")
	}
	if c.Budget.TimeoutMs < 0 {
		errs.Issues = append(errs.Issues, "budget.timeout_ms must not be negative")
	}
	if len(errs.Issues) > 0 {
		return &errs
	}
	return nil
}

// DiagnosticFormat returns the configured diagnostics rendering.
func (c *Config) DiagnosticFormat() diagnostics.Format {
	f, err := diagnostics.ParseFormat(c.Diagnostics)
	if err != nil {
		return diagnostics.FormatText
	}
	return f
}

// Level returns the configured log level.
func (c *Config) Level() slog.Level {
	lvl, _ := parseLevel(c.LogLevel)
	return lvl
}

// ExecBudget converts the budget section for the evaluator.
func (c *Config) ExecBudget() evaluator.Budget {
	return evaluator.Budget{
		MaxIterations: c.Budget.MaxIterations,
		Timeout:       time.Duration(c.Budget.TimeoutMs) * time.Millisecond,
	}
}

// Marshal renders the settings as YAML.
func (c *Config) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning", "":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return slog.LevelWarn, false
}
