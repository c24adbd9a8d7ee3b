package commands

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/recordkeeper/internal/cli/config"
	"github.com/leapstack-labs/recordkeeper/internal/cli/output"
	"github.com/leapstack-labs/recordkeeper/internal/engine"
	"github.com/leapstack-labs/recordkeeper/pkg/core"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Engine   *engine.Engine
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext with engine and renderer.
// Returns the context and a cleanup function that must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cmdCtx, err := NewCommandContextWithoutEngine(cmd)
	if err != nil {
		return nil, nil, err
	}

	eng, err := createEngine(cmdCtx.Cfg, cmdCtx.Logger)
	if err != nil {
		return nil, nil, err
	}
	cmdCtx.Engine = eng

	cleanup := func() {
		if err := eng.Close(); err != nil {
			cmdCtx.Logger.Warn("failed to close engine", "error", err)
		}
	}
	return cmdCtx, cleanup, nil
}

// NewCommandContextWithoutEngine creates a CommandContext without an engine.
// Useful for commands that don't touch datasets.
func NewCommandContextWithoutEngine(cmd *cobra.Command) (*CommandContext, error) {
	cfg := config.GetCurrentConfig()
	if cfg == nil {
		var err error
		cfg, err = config.LoadConfig("", nil)
		if err != nil {
			return nil, err
		}
	}

	mode, err := output.ParseMode(cfg.OutputFormat)
	if err != nil {
		return nil, err
	}

	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode),
	}, nil
}

func createEngine(cfg *config.Config, logger *slog.Logger) (*engine.Engine, error) {
	journal := cfg.JournalPath
	if cfg.NoJournal {
		journal = ""
	}

	return engine.New(engine.Config{
		BaseDir:     cfg.BaseDir,
		JournalPath: journal,
		Adapter:     cfg.Adapter.ToAdapterConfig(),
		Logger:      logger,
	})
}

// parseDataset resolves a dataset argument by name, alias or title.
func parseDataset(arg string) (core.DatasetID, error) {
	return core.ParseDatasetID(arg)
}

// completeDatasets offers dataset names for the first positional argument.
func completeDatasets(_ *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveDefault
	}
	var names []string
	for _, id := range core.AllDatasets() {
		if strings.HasPrefix(id.Name(), toComplete) {
			names = append(names, id.Name()+"\t"+id.Title())
		}
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}

func cellText(v core.Text) string {
	if !v.Valid {
		return output.NullText
	}
	return v.Value
}

func formatFileFormat(f string) (core.FileFormat, error) {
	if f == "" {
		return "", nil
	}
	format, err := core.ParseFileFormat(f)
	if err != nil {
		return "", fmt.Errorf("invalid --format: %w", err)
	}
	return format, nil
}
