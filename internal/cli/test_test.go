package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const passingScenario = `name: cli-lifecycle
description: Ensure issues a prediction and act consumes it.
scope:
  mission: utilities
  entity: Home
  variable: water_level
steps:
  - op: ensure
    evidence:
      - kind: sensor
        id: tank-sensor-1
  - op: act
    capability: act:adjust_valve
assertions:
  - type: log_count
    count: 1
  - type: current_exists
    exists: true
`

const failingScenario = `name: cli-impossible
description: Expects a halt that never happens.
scope:
  mission: utilities
  entity: Home
  variable: water_level
steps:
  - op: ensure
    evidence:
      - kind: sensor
        id: tank-sensor-1
    expect:
      flow: STOP
assertions:
  - type: halt_count
    count: 3
`

func writeScenarios(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	return dir
}

func TestTestMissingDirFlag(t *testing.T) {
	buf := &bytes.Buffer{}
	errBuf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewTestCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(errBuf)
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestTestNonExistentDir(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewTestCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--dir", "/nonexistent/scenarios"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestEmptyDir(t *testing.T) {
	dir := t.TempDir()

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewTestCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--dir", dir})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no scenario files")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestPassingScenario(t *testing.T) {
	dir := writeScenarios(t, map[string]string{"lifecycle.yaml": passingScenario})

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewTestCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--dir", dir})

	err := cmd.Execute()
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "PASS  cli-lifecycle")
	assert.Contains(t, output, "1 scenario(s): 1 passed, 0 failed")
}

func TestTestFailingScenario(t *testing.T) {
	dir := writeScenarios(t, map[string]string{
		"lifecycle.yaml":  passingScenario,
		"impossible.yaml": failingScenario,
	})

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewTestCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--dir", dir})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	output := buf.String()
	assert.Contains(t, output, "FAIL  cli-impossible")
	assert.Contains(t, output, "PASS  cli-lifecycle")
	assert.Contains(t, output, "2 scenario(s): 1 passed, 1 failed")
}

func TestTestFilter(t *testing.T) {
	dir := writeScenarios(t, map[string]string{
		"lifecycle.yaml":  passingScenario,
		"impossible.yaml": failingScenario,
	})

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewTestCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--dir", dir, "--filter", "lifecycle*"})

	err := cmd.Execute()
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "cli-lifecycle")
	assert.NotContains(t, output, "cli-impossible")
}

func TestTestMalformedScenarioFails(t *testing.T) {
	dir := writeScenarios(t, map[string]string{"broken.yaml": "name: [not, a, string"})

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewTestCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--dir", dir})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), "FAIL")
}

func TestTestJSON(t *testing.T) {
	dir := writeScenarios(t, map[string]string{"lifecycle.yaml": passingScenario})

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewTestCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--dir", dir})

	err := cmd.Execute()
	require.NoError(t, err)

	var response struct {
		Status string      `json:"status"`
		Data   TestSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &response))
	assert.Equal(t, "ok", response.Status)
	assert.Equal(t, 1, response.Data.Total)
	assert.Equal(t, 1, response.Data.Passed)
	require.Len(t, response.Data.Reports, 1)
	assert.Equal(t, "cli-lifecycle", response.Data.Reports[0].Scenario)
}

func TestFindScenarioFiles(t *testing.T) {
	dir := writeScenarios(t, map[string]string{
		"a.yaml":     passingScenario,
		"b.yml":      passingScenario,
		"notes.txt":  "not a scenario",
		"c.yaml.bak": "not a scenario",
	})

	files, err := findScenarioFiles(dir, "")
	require.NoError(t, err)
	assert.Len(t, files, 2)

	filtered, err := findScenarioFiles(dir, "a*")
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "a.yaml", filepath.Base(filtered[0]))

	_, err = findScenarioFiles(filepath.Join(dir, "a.yaml"), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}
