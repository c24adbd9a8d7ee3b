package commands

import (
	"fmt"

	"github.com/leapstack-labs/recordkeeper/internal/cli/output"
	"github.com/spf13/cobra"
)

// NewListCommand creates the list command.
func NewListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List datasets and their files",
		Long: `List every dataset with its file path, whether the file exists and
its current shape. Nothing is created.

Output adapts to environment:
  - Terminal: Styled table
  - Piped/redirected: Markdown table`,
		Example: `  # List datasets
  recordkeeper list

  # Output as JSON
  recordkeeper list -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd)
		},
	}
}

func runList(cmd *cobra.Command) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	infos, err := cmdCtx.Engine.Datasets()
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	list := output.ListOutput{
		BaseDir:  cmdCtx.Engine.Paths().BaseDir(),
		Datasets: make([]output.DatasetInfo, len(infos)),
	}
	for i, info := range infos {
		list.Datasets[i] = output.DatasetInfo{
			Dataset: info.Dataset.Name(),
			Title:   info.Dataset.Title(),
			Path:    info.Path,
			Exists:  info.Exists,
			Rows:    info.Shape.Rows,
			Columns: info.Shape.Columns,
			Size:    info.Size,
		}
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(list)
	}

	grid := output.Grid{Headers: []string{"Dataset", "Title", "Exists", "Rows", "Columns"}}
	for _, d := range list.Datasets {
		exists := "no"
		if d.Exists {
			exists = "yes"
		}
		grid.Rows = append(grid.Rows, []string{
			d.Dataset, d.Title, exists, fmt.Sprint(d.Rows), fmt.Sprint(d.Columns),
		})
	}

	r.Header(1, "Datasets in "+list.BaseDir)
	r.Table(grid)
	return nil
}
