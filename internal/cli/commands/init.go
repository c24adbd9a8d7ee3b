package commands

import (
	"fmt"
	"path/filepath"

	"github.com/leapstack-labs/recordkeeper/internal/cli/output"
	"github.com/leapstack-labs/recordkeeper/internal/store"
	"github.com/spf13/cobra"
)

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the database directory and every dataset file",
		Long: `Create the database directory under the base directory and an empty
file for every dataset that does not have one yet. Existing files are
left untouched.`,
		Example: `  # Initialize the current directory
  recordkeeper init

  # Initialize another base directory
  recordkeeper init --base-dir /srv/licitacao`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd)
		},
	}
}

func runInit(cmd *cobra.Command) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	results, err := cmdCtx.Engine.Init(cmd.Context())
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	base := cmdCtx.Engine.Paths().BaseDir()

	if r.EffectiveMode() == output.ModeJSON {
		out := make([]output.InitResult, len(results))
		for i, res := range results {
			out[i] = output.InitResult{Dataset: res.Dataset.Name(), Outcome: res.Outcome.String(), Path: res.Path}
		}
		return r.JSON(out)
	}

	r.Header(1, "Datasets")
	created := 0
	for _, res := range results {
		rel, err := filepath.Rel(base, res.Path)
		if err != nil {
			rel = res.Path
		}
		r.StatusLine(res.Dataset.Name(), res.Outcome.String(), rel)
		if res.Outcome == store.OutcomeCreated {
			created++
		}
	}
	r.Println("")
	r.Success(fmt.Sprintf("%d datasets ready in %s (%d created)", len(results), base, created))
	return nil
}
