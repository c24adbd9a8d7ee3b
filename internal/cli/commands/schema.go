package commands

import (
	"fmt"

	"github.com/leapstack-labs/recordkeeper/internal/catalog"
	"github.com/leapstack-labs/recordkeeper/internal/cli/output"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewSchemaCommand creates the schema command.
func NewSchemaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schema [dataset]",
		Short: "Print the column schema of datasets",
		Long: `Print the schema catalog: the ordered columns every dataset is created
with. Without an argument every dataset is printed.

Output is YAML, or JSON with -o json.`,
		Example: `  # Print every schema
  recordkeeper schema

  # Print the contracts schema as JSON
  recordkeeper schema contratos -o json`,
		Args:              cobra.MaximumNArgs(1),
		ValidArgsFunction: completeDatasets,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchema(cmd, args)
		},
	}
}

func runSchema(cmd *cobra.Command, args []string) error {
	cmdCtx, err := NewCommandContextWithoutEngine(cmd)
	if err != nil {
		return err
	}

	var v any = catalog.All()
	if len(args) == 1 {
		id, err := parseDataset(args[0])
		if err != nil {
			return err
		}
		v = catalog.Lookup(id)
	}

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(v)
	}

	enc := yaml.NewEncoder(r.Writer())
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode schema: %w", err)
	}
	return enc.Close()
}
