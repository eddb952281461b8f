package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tmalloy/augur/internal/record"
	"github.com/tmalloy/augur/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Type     string
	From     int64
	Limit    int
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Dump log events in position order",
		Long: `Read the event log from a starting position and print each
envelope in append order. Useful for auditing what actually happened:
positions are the sole ordering authority, so the dump is the ground
truth any projection must agree with.

Exit codes:
  0 - Dump succeeded
  2 - Command error (database not found, unknown event type)

Examples:
  augur trace --db ./augur.db
  augur trace --db ./augur.db --type engine.halted
  augur trace --db ./augur.db --from 100 --limit 20 --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite event log (required)")
	cmd.Flags().StringVar(&opts.Type, "type", "", "only show events of this type")
	cmd.Flags().Int64Var(&opts.From, "from", 0, "start position (inclusive)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum events to show (0 = all)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	if opts.Type != "" {
		if err := validateEventType(opts.Type); err != nil {
			return WrapExitError(ExitCommandError, "invalid --type", err)
		}
	}

	ctx := context.Background()

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	events, err := st.ReadFrom(ctx, opts.From)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read log", err)
	}

	filtered := filterEvents(events, record.EventType(opts.Type), opts.Limit)

	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), Response{Status: "ok", Data: filtered})
	}
	return outputTraceText(cmd, filtered, opts.Verbose)
}

func validateEventType(t string) error {
	switch record.EventType(t) {
	case record.EventPredictionIssued, record.EventPredictionResolved,
		record.EventHalted, record.EventEvidenceNoted:
		return nil
	}
	return fmt.Errorf("unknown event type %q", t)
}

func filterEvents(events []record.EventEnvelope, typ record.EventType, limit int) []record.EventEnvelope {
	out := make([]record.EventEnvelope, 0, len(events))
	for _, env := range events {
		if typ != "" && env.Type != typ {
			continue
		}
		out = append(out, env)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func outputTraceText(cmd *cobra.Command, events []record.EventEnvelope, verbose bool) error {
	w := cmd.OutOrStdout()

	if len(events) == 0 {
		fmt.Fprintln(w, "No events.")
		return nil
	}

	for _, env := range events {
		scope := "-"
		if env.Scope != (record.Scope{}) {
			scope = env.Scope.String()
		}
		fmt.Fprintf(w, "%6d  %-20s  %s  %s\n", env.Position, env.Type, env.OccurredAt.Format(time.RFC3339), scope)
		if !verbose {
			continue
		}
		switch env.Type {
		case record.EventPredictionIssued:
			fmt.Fprintf(w, "        prediction=%s evidence=%d\n", env.Prediction.ID, len(env.Prediction.Evidence))
		case record.EventPredictionResolved:
			fmt.Fprintf(w, "        prediction=%s error_metric=%s\n", env.Resolution.PredictionID, env.Resolution.ErrorMetric)
		case record.EventHalted:
			fmt.Fprintf(w, "        invariant=%s code=%s\n", env.Halt.InvariantID, env.Halt.Code)
		case record.EventEvidenceNoted:
			fmt.Fprintf(w, "        evidence=%d ref(s)\n", len(env.Evidence))
		}
	}
	fmt.Fprintf(w, "\n%d event(s)\n", len(events))
	return nil
}
