package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/leapstack-labs/recordkeeper/internal/cli/output"
	"github.com/leapstack-labs/recordkeeper/internal/engine"
	"github.com/leapstack-labs/recordkeeper/pkg/core"
	"github.com/spf13/cobra"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [dataset]",
		Short: "Show the activity journal",
		Long: `Show recorded saves, imports and exports, newest first. The journal is
advisory: dataset files stay the source of truth.`,
		Example: `  # Show recent activity
  recordkeeper history

  # Show everything recorded for contracts
  recordkeeper history contratos --limit 0`,
		Args:              cobra.MaximumNArgs(1),
		ValidArgsFunction: completeDatasets,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, args, limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum events to print (0 for all)")
	return cmd
}

func runHistory(cmd *cobra.Command, args []string, limit int) error {
	var filter *core.DatasetID
	if len(args) == 1 {
		id, err := parseDataset(args[0])
		if err != nil {
			return err
		}
		filter = &id
	}

	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	events, err := cmdCtx.Engine.History(cmd.Context(), filter, limit)
	if err != nil {
		if errors.Is(err, engine.ErrNoJournal) {
			return fmt.Errorf("%w: remove --no-journal to record history", err)
		}
		return err
	}

	entries := make([]output.HistoryEntry, len(events))
	for i, ev := range events {
		entries[i] = output.HistoryEntry{
			ID:      ev.ID,
			At:      ev.At.Local().Format(time.RFC3339),
			Dataset: ev.Dataset.String(),
			Kind:    string(ev.Kind),
			Rows:    ev.Rows,
			Columns: ev.Columns,
			Detail:  ev.Detail,
		}
	}

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(entries)
	}

	if len(entries) == 0 {
		r.Muted("No activity recorded.")
		return nil
	}

	grid := output.Grid{Headers: []string{"At", "Dataset", "Kind", "Shape", "Detail"}}
	for _, e := range entries {
		grid.Rows = append(grid.Rows, []string{
			e.At, e.Dataset, e.Kind, core.Shape{Rows: e.Rows, Columns: e.Columns}.String(), e.Detail,
		})
	}
	r.Header(1, "History")
	r.Table(grid)
	return nil
}
