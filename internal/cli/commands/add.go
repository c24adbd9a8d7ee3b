package commands

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/recordkeeper/internal/cli/output"
	"github.com/leapstack-labs/recordkeeper/pkg/core"
	"github.com/spf13/cobra"
)

// NewAddCommand creates the add command.
func NewAddCommand() *cobra.Command {
	var (
		sets  []string
		nulls []string
	)

	cmd := &cobra.Command{
		Use:   "add <dataset>",
		Short: "Append a record to a dataset",
		Long: `Append one row to a dataset and save it. Values are given as
column=value pairs; columns that are not set are stored as null.`,
		Example: `  # Add a risk
  recordkeeper add risk-matrix --set risco="Atraso na entrega" --set impacto=alto

  # Store an explicit empty string
  recordkeeper add contratos --set numero=12 --set objeto=`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeDatasets,
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := parseRecord(sets, nulls)
			if err != nil {
				return err
			}
			return runAdd(cmd, args[0], rec)
		},
	}

	cmd.Flags().StringArrayVarP(&sets, "set", "s", nil, "Column value as column=value (repeatable)")
	cmd.Flags().StringSliceVar(&nulls, "null", nil, "Columns to store as null explicitly")
	return cmd
}

// parseRecord builds a record from column=value pairs. A column may be set once.
func parseRecord(sets, nulls []string) (core.Record, error) {
	rec := make(core.Record, len(sets)+len(nulls))
	for _, kv := range sets {
		name, value, ok := strings.Cut(kv, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --set %q: expected column=value", kv)
		}
		if _, dup := rec[name]; dup {
			return nil, fmt.Errorf("column %q set more than once", name)
		}
		rec[name] = core.Some(value)
	}
	for _, name := range nulls {
		name = strings.TrimSpace(name)
		if _, dup := rec[name]; dup {
			return nil, fmt.Errorf("column %q set more than once", name)
		}
		rec[name] = core.Null()
	}
	if len(rec) == 0 {
		return nil, fmt.Errorf("no values given: use --set column=value")
	}
	return rec, nil
}

func runAdd(cmd *cobra.Command, name string, rec core.Record) error {
	id, err := parseDataset(name)
	if err != nil {
		return err
	}

	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	t, err := cmdCtx.Engine.AppendRecord(cmd.Context(), id, rec)
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(map[string]any{
			"dataset": id.Name(),
			"rows":    t.NumRows(),
			"columns": t.NumColumns(),
		})
	}
	r.Success(fmt.Sprintf("Added record to %s (%d rows)", id.Name(), t.NumRows()))
	return nil
}
