// Package testutil provides shared test helpers for rlux Go tests.
package testutil

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// ScenariosDir is the relative path from the module root to the scenarios.
const ScenariosDir = "testdata/scenarios"

// ScenarioFile is the file that marks a directory as a scenario.
const ScenarioFile = "scenario.yaml"

// Scenario represents a test scenario loaded from a scenario.yaml file.
type Scenario struct {
	// Cmd is the command and program file, e.g. [run, main.lox].
	Cmd     []string         `yaml:"cmd"`
	Options *ScenarioOptions `yaml:"options,omitempty"`
	Meta    *ScenarioMeta    `yaml:"meta,omitempty"`
	Expect  ExpectedResult   `yaml:"expect"`
}

// ScenarioOptions overrides interpreter settings for one scenario.
type ScenarioOptions struct {
	Diagnostics     string `yaml:"diagnostics,omitempty"`
	RunOnParseError *bool  `yaml:"run_on_parse_error,omitempty"`
	MaxIterations   int64  `yaml:"max_iterations,omitempty"`
}

// ScenarioMeta holds optional scenario metadata.
type ScenarioMeta struct {
	Description string   `yaml:"description,omitempty"`
	Tags        []string `yaml:"tags,omitempty"`
}

// ExpectedResult describes the expected outcome of running a scenario.
// Exact fields are compared only when present.
type ExpectedResult struct {
	ExitCode       int     `yaml:"exit_code"`
	Stdout         *string `yaml:"stdout,omitempty"`
	StdoutContains string  `yaml:"stdout_contains,omitempty"`
	Stderr         *string `yaml:"stderr,omitempty"`
	StderrContains string  `yaml:"stderr_contains,omitempty"`

	// StderrDiagnostics lists partial diagnostics that must each match one
	// reported diagnostic, e.g. {code: E_PARSE, line: 2}.
	StderrDiagnostics []map[string]any `yaml:"stderr_diagnostics,omitempty"`
}

// LoadScenario loads a scenario from a directory containing scenario.yaml.
// Unknown keys are rejected so that typos do not silently skip checks.
func LoadScenario(dir string) (*Scenario, error) {
	data, err := os.ReadFile(filepath.Join(dir, ScenarioFile))
	if err != nil {
		return nil, err
	}
	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%s: %w", dir, err)
	}
	if len(s.Cmd) < 2 {
		return nil, fmt.Errorf("%s: cmd needs a command and a program file", dir)
	}
	return &s, nil
}

// ListScenarios returns all scenario directories under the given root, sorted.
func ListScenarios(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			scenarioPath := filepath.Join(root, e.Name(), ScenarioFile)
			if _, err := os.Stat(scenarioPath); err == nil {
				dirs = append(dirs, filepath.Join(root, e.Name()))
			}
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}

// ReadProgramFile reads the program file referenced by the scenario cmd.
func ReadProgramFile(scenarioDir string, cmd []string) (string, string, error) {
	if len(cmd) < 2 {
		return "", "", nil
	}
	filename := cmd[1]
	source, err := os.ReadFile(filepath.Join(scenarioDir, filename))
	if err != nil {
		return "", "", err
	}
	return string(source), filename, nil
}
