package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/leapstack-labs/recordkeeper/internal/server"
	"github.com/spf13/cobra"
)

// ServeOptions holds options for the serve command.
type ServeOptions struct {
	Addr  string
	Watch bool
}

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the datasets over HTTP",
		Long: `Start a local HTTP server exposing the datasets as JSON.

The server provides:
  - Dataset listing, rows and schemas
  - Record appends
  - The activity journal
  - A server-sent event stream reporting changed datasets`,
		Example: `  # Serve on the default address
  recordkeeper serve

  # Serve on another address without watching the database directory
  recordkeeper serve --addr :9000 --watch=false`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "Address to listen on (default: localhost:8765)")
	cmd.Flags().BoolVar(&opts.Watch, "watch", true, "Reload datasets changed on disk by other programs")
	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	// CLI flags override config file
	serveCfg := cmdCtx.Cfg.GetServeConfig()
	addr := serveCfg.Addr
	if opts.Addr != "" {
		addr = opts.Addr
	}
	watch := *serveCfg.Watch
	if cmd.Flags().Changed("watch") {
		watch = opts.Watch
	}

	// Watching needs the database directory to exist.
	if _, err := cmdCtx.Engine.Init(cmd.Context()); err != nil {
		return fmt.Errorf("init failed: %w", err)
	}

	srv := server.New(server.Config{
		Engine: cmdCtx.Engine,
		Addr:   addr,
		Watch:  watch,
		Logger: cmdCtx.Logger,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmdCtx.Renderer.Success(fmt.Sprintf("Serving %s on http://%s", cmdCtx.Engine.Paths().BaseDir(), addr))
	cmdCtx.Renderer.Muted("Press Ctrl+C to stop")

	return srv.Serve(ctx)
}
