package cli

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/tmalloy/augur/internal/projection"
	"github.com/tmalloy/augur/internal/record"
	"github.com/tmalloy/augur/internal/store"
)

// InspectOptions holds flags for the inspect command.
type InspectOptions struct {
	*RootOptions
	Database string
}

// CurrentEntry is one scope's current prediction in the inspect output.
type CurrentEntry struct {
	Scope        string    `json:"scope"`
	PredictionID string    `json:"prediction_id"`
	IssuedAt     time.Time `json:"issued_at"`
	ValidUntil   time.Time `json:"valid_until"`
	Resolved     bool      `json:"resolved"`
	Evidence     int       `json:"evidence"`
}

// InspectResult summarizes the projected state of a log.
type InspectResult struct {
	Position    int64          `json:"position"`
	EventCount  int64          `json:"event_count"`
	Issued      int            `json:"issued"`
	Resolutions int            `json:"resolutions"`
	Halts       int            `json:"halts"`
	Notes       int            `json:"notes"`
	Current     []CurrentEntry `json:"current"`
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InspectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Project the log and show current predictions",
		Long: `Fold the full event log into its projection and show, per scope,
the current prediction with its validity window and resolution status.

Exit codes:
  0 - Projection succeeded
  2 - Command error (database not found, unreadable log)

Examples:
  augur inspect --db ./augur.db
  augur inspect --db ./augur.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite event log (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runInspect(opts *InspectOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	events, err := st.ReadFrom(ctx, 0)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read log", err)
	}

	state := projection.Project(events)
	result := buildInspectResult(state, events)

	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), Response{Status: "ok", Data: result})
	}
	return outputInspectText(cmd, result, opts.Verbose)
}

func buildInspectResult(state projection.State, events []record.EventEnvelope) InspectResult {
	result := InspectResult{
		Position:   state.Position,
		EventCount: state.EventCount,
	}
	for _, env := range events {
		switch env.Type {
		case record.EventPredictionIssued:
			result.Issued++
		case record.EventPredictionResolved:
			result.Resolutions++
		case record.EventHalted:
			result.Halts++
		case record.EventEvidenceNoted:
			result.Notes++
		}
	}

	for _, id := range state.Current {
		pred, ok := state.Predictions[id]
		if !ok {
			continue
		}
		_, resolved := state.Resolved[id]
		result.Current = append(result.Current, CurrentEntry{
			Scope:        pred.Scope.String(),
			PredictionID: pred.ID,
			IssuedAt:     pred.IssuedAt,
			ValidUntil:   pred.ValidUntil,
			Resolved:     resolved,
			Evidence:     len(pred.Evidence),
		})
	}
	sort.Slice(result.Current, func(i, j int) bool {
		return result.Current[i].Scope < result.Current[j].Scope
	})
	return result
}

func outputInspectText(cmd *cobra.Command, result InspectResult, verbose bool) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Log: %d event(s) through position %d\n", result.EventCount, result.Position)
	fmt.Fprintf(w, "  issued=%d resolved=%d halts=%d notes=%d\n", result.Issued, result.Resolutions, result.Halts, result.Notes)
	fmt.Fprintln(w)

	if len(result.Current) == 0 {
		fmt.Fprintln(w, "No current predictions.")
		return nil
	}

	for _, entry := range result.Current {
		status := "open"
		if entry.Resolved {
			status = "resolved"
		}
		fmt.Fprintf(w, "%s\n", entry.Scope)
		fmt.Fprintf(w, "  current: %s (%s)\n", entry.PredictionID, status)
		if verbose {
			fmt.Fprintf(w, "  issued_at:   %s\n", entry.IssuedAt.Format(time.RFC3339))
			fmt.Fprintf(w, "  valid_until: %s\n", entry.ValidUntil.Format(time.RFC3339))
			fmt.Fprintf(w, "  evidence:    %d ref(s)\n", entry.Evidence)
		}
	}
	return nil
}
