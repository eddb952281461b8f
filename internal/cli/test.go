package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tmalloy/augur/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Dir    string
	Filter string
}

// ScenarioReport is the result of running one scenario file.
type ScenarioReport struct {
	File     string   `json:"file"`
	Scenario string   `json:"scenario"`
	Pass     bool     `json:"pass"`
	Errors   []string `json:"errors,omitempty"`
}

// TestSummary aggregates a scenario run.
type TestSummary struct {
	Total   int              `json:"total"`
	Passed  int              `json:"passed"`
	Failed  int              `json:"failed"`
	Reports []ScenarioReport `json:"reports"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test",
		Short: "Run scenario files against an in-memory engine",
		Long: `Load scenario YAML files from a directory and run each against a
fresh in-memory engine with fixed ports. Every step expectation and
final log assertion must hold for a scenario to pass.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (directory not found, malformed scenario)

Examples:
  augur test --dir ./scenarios
  augur test --dir ./scenarios --filter 'lifecycle*'`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTest(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Dir, "dir", "", "directory of scenario YAML files (required)")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "glob filter on scenario file basename")
	_ = cmd.MarkFlagRequired("dir")

	return cmd
}

func runTest(opts *TestOptions, cmd *cobra.Command) error {
	files, err := findScenarioFiles(opts.Dir, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to collect scenarios", err)
	}
	if len(files) == 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("no scenario files in %s", opts.Dir))
	}

	summary := TestSummary{}
	for _, file := range files {
		report := runScenarioFile(file)
		summary.Total++
		if report.Pass {
			summary.Passed++
		} else {
			summary.Failed++
		}
		summary.Reports = append(summary.Reports, report)
	}

	if opts.Format == "json" {
		status := "ok"
		if summary.Failed > 0 {
			status = "error"
		}
		if err := writeJSON(cmd.OutOrStdout(), Response{Status: status, Data: summary}); err != nil {
			return err
		}
	} else {
		outputTestText(cmd, summary, opts.Verbose)
	}

	if summary.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d scenario(s) failed", summary.Failed, summary.Total))
	}
	return nil
}

func runScenarioFile(file string) ScenarioReport {
	report := ScenarioReport{File: file}

	scenario, err := harness.LoadScenario(file)
	if err != nil {
		report.Errors = append(report.Errors, err.Error())
		return report
	}
	report.Scenario = scenario.Name

	result, err := harness.Run(scenario)
	if err != nil {
		report.Errors = append(report.Errors, err.Error())
		return report
	}
	report.Pass = result.Pass
	report.Errors = append(report.Errors, result.Errors...)
	return report
}

func findScenarioFiles(dir, filter string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	var files []string
	err = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			match, err := filepath.Match(filter, filepath.Base(path))
			if err != nil {
				return fmt.Errorf("invalid filter %q: %w", filter, err)
			}
			if !match {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func outputTestText(cmd *cobra.Command, summary TestSummary, verbose bool) {
	w := cmd.OutOrStdout()

	for _, report := range summary.Reports {
		status := "PASS"
		if !report.Pass {
			status = "FAIL"
		}
		name := report.Scenario
		if name == "" {
			name = filepath.Base(report.File)
		}
		fmt.Fprintf(w, "%s  %s\n", status, name)
		if !report.Pass || verbose {
			for _, msg := range report.Errors {
				fmt.Fprintf(w, "      %s\n", strings.TrimSpace(msg))
			}
		}
	}
	fmt.Fprintf(w, "\n%d scenario(s): %d passed, %d failed\n", summary.Total, summary.Passed, summary.Failed)
}
