package commands

import (
	"fmt"
	"sort"

	"github.com/leapstack-labs/recordkeeper/internal/cli/output"
	"github.com/spf13/cobra"
)

// NewImportCommand creates the import command.
func NewImportCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "import <dataset> <file>",
		Short: "Replace a dataset with rows from a CSV or Parquet file",
		Long: `Read an external CSV or Parquet file, map its headers onto the dataset's
columns and replace the dataset's contents with the result.

Headers are matched by column name or by a known label, ignoring case
and accents. Unmatched headers are dropped; missing columns are null.
The format is inferred from the file extension unless --format is set.`,
		Example: `  # Import a spreadsheet export
  recordkeeper import contratos contratos.csv

  # Import a parquet file without an extension
  recordkeeper import planning ./dump --format parquet`,
		Args:              cobra.ExactArgs(2),
		ValidArgsFunction: completeDatasets,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, args[0], args[1], format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "File format: csv, parquet (default: from extension)")
	return cmd
}

func runImport(cmd *cobra.Command, name, path, formatFlag string) error {
	id, err := parseDataset(name)
	if err != nil {
		return err
	}
	format, err := formatFileFormat(formatFlag)
	if err != nil {
		return err
	}

	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	rep, err := cmdCtx.Engine.Import(cmd.Context(), id, path, format)
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(output.ImportOutput{
			Dataset: id.Name(),
			Source:  path,
			Rows:    rep.Rows,
			Mapped:  rep.Mapped,
			Dropped: nonNil(rep.Dropped),
			Filled:  nonNil(rep.Filled),
		})
	}

	r.Success(fmt.Sprintf("Imported %d rows into %s", rep.Rows, id.Name()))
	if len(rep.Mapped) > 0 {
		headers := make([]string, 0, len(rep.Mapped))
		for h := range rep.Mapped {
			headers = append(headers, h)
		}
		sort.Strings(headers)
		grid := output.Grid{Headers: []string{"Header", "Column"}}
		for _, h := range headers {
			grid.Rows = append(grid.Rows, []string{h, rep.Mapped[h]})
		}
		r.Table(grid)
	}
	for _, h := range rep.Dropped {
		r.Warning(fmt.Sprintf("dropped header %q: no matching column", h))
	}
	for _, c := range rep.Filled {
		r.Muted(fmt.Sprintf("column %s not in source", c))
	}
	return nil
}

// NewExportCommand creates the export command.
func NewExportCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "export <dataset> <file>",
		Short: "Write a dataset to a CSV or Parquet file",
		Long: `Write a dataset to an external CSV or Parquet file, replacing the file
if it exists. The format is inferred from the file extension unless
--format is set.`,
		Example: `  # Export contracts to CSV
  recordkeeper export contratos contratos.csv

  # Export the risk matrix to Parquet
  recordkeeper export risk-matrix riscos.parquet`,
		Args:              cobra.ExactArgs(2),
		ValidArgsFunction: completeDatasets,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, args[0], args[1], format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "File format: csv, parquet (default: from extension)")
	return cmd
}

func runExport(cmd *cobra.Command, name, path, formatFlag string) error {
	id, err := parseDataset(name)
	if err != nil {
		return err
	}
	format, err := formatFileFormat(formatFlag)
	if err != nil {
		return err
	}

	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := cmdCtx.Engine.Export(cmd.Context(), id, path, format); err != nil {
		return err
	}

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(map[string]string{"dataset": id.Name(), "path": path})
	}
	r.Success(fmt.Sprintf("Exported %s to %s", id.Name(), path))
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
