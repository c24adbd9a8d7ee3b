package commands

import (
	"fmt"

	"github.com/leapstack-labs/recordkeeper/internal/cli/output"
	"github.com/spf13/cobra"
)

// NewShowCommand creates the show command.
func NewShowCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "show <dataset>",
		Short: "Print a dataset's rows",
		Long: `Print the rows of a dataset. The dataset file is created from its
schema if it does not exist yet.

Datasets can be named by file name, English alias or title.`,
		Example: `  # Show the first 20 contracts
  recordkeeper show contratos

  # Show every row of the risk matrix as markdown
  recordkeeper show risk-matrix --limit 0 -o markdown`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeDatasets,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(cmd, args[0], limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum rows to print (0 for all)")
	return cmd
}

func runShow(cmd *cobra.Command, name string, limit int) error {
	id, err := parseDataset(name)
	if err != nil {
		return err
	}

	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	t, err := cmdCtx.Engine.Table(cmd.Context(), id)
	if err != nil {
		return err
	}

	total := t.NumRows()
	n := total
	if limit > 0 && limit < n {
		n = limit
	}

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		out := output.TableOutput{
			Dataset:   id.Name(),
			Columns:   t.ColumnNames(),
			Rows:      make([][]*string, n),
			TotalRows: total,
		}
		for i := range n {
			row := t.Row(i)
			cells := make([]*string, len(row))
			for c, v := range row {
				if v.Valid {
					s := v.Value
					cells[c] = &s
				}
			}
			out.Rows[i] = cells
		}
		return r.JSON(out)
	}

	grid := output.Grid{Headers: t.ColumnNames(), Rows: make([][]string, n)}
	for i := range n {
		row := t.Row(i)
		cells := make([]string, len(row))
		for c, v := range row {
			cells[c] = cellText(v)
		}
		grid.Rows[i] = cells
	}

	r.Header(1, fmt.Sprintf("%s (%s)", id.Title(), id.Name()))
	if len(grid.Headers) == 0 {
		r.Muted("Dataset has no columns.")
		return nil
	}
	r.Table(grid)
	if n < total {
		r.Muted(fmt.Sprintf("Showing %d of %d rows. Use --limit 0 to print all.", n, total))
	}
	return nil
}
