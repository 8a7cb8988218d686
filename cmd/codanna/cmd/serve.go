package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/codanna-go/codanna/internal/mcpserver"
)

func newServeCmd() *cobra.Command {
	var transport string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the request server",
		Long: `Start the request server: Search, FindSymbol, Calls,
Callers, Dependencies, IndexFile, and Reindex are served as
length-prefixed JSON-shaped records over the chosen transport.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, transport)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport: stdio")

	return cmd
}

func runServe(cmd *cobra.Command, transport string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := resolveRoot()
	eng, _, _, err := openEngine(ctx, root)
	if err != nil {
		return err
	}

	srv := mcpserver.New(eng, nil)
	defer func() {
		_ = srv.Close()
	}()

	return srv.Serve(ctx, transport)
}
