package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/codanna-go/codanna/internal/engine"
	"github.com/codanna-go/codanna/internal/output"
	"github.com/codanna-go/codanna/internal/symbol"
	"github.com/codanna-go/codanna/internal/textindex"
)

// newRetrieveCmd groups the symbol/graph lookup subcommands.
func newRetrieveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "retrieve",
		Short: "Look up symbols and their relationships",
	}

	cmd.AddCommand(newRetrieveSymbolCmd())
	cmd.AddCommand(newRetrieveCallsCmd())
	cmd.AddCommand(newRetrieveCallersCmd())
	cmd.AddCommand(newRetrieveDependenciesCmd())

	return cmd
}

func newRetrieveSymbolCmd() *cobra.Command {
	var (
		kind   string
		limit  int
		format string
	)

	cmd := &cobra.Command{
		Use:     "symbol <name>",
		Short:   "Resolve a symbol by exact or fuzzy name",
		Example: `  codanna retrieve symbol add --kind function --limit 5`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, func(ctx context.Context, eng *engine.Engine) error {
				hits, err := eng.FindSymbol(ctx, args[0], kind, limit)
				if err != nil {
					return err
				}
				printHits(cmd, hits, format)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "Restrict matches to one symbol kind")
	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum number of matches")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text, json")

	return cmd
}

func newRetrieveCallsCmd() *cobra.Command {
	return newGraphCmd("calls", "List the symbols <symbol> calls", func(eng *engine.Engine) func(context.Context, symbol.ID) ([]textindex.Hit, error) {
		return eng.Calls
	})
}

func newRetrieveCallersCmd() *cobra.Command {
	return newGraphCmd("callers", "List the symbols that call <symbol>", func(eng *engine.Engine) func(context.Context, symbol.ID) ([]textindex.Hit, error) {
		return eng.Callers
	})
}

func newRetrieveDependenciesCmd() *cobra.Command {
	return newGraphCmd("dependencies", "List <symbol>'s transitive uses-closure", func(eng *engine.Engine) func(context.Context, symbol.ID) ([]textindex.Hit, error) {
		return eng.Dependencies
	})
}

// newGraphCmd builds one of calls/callers/dependencies: each resolves
// its argument to a symbol id via FindSymbol, then runs traverseFor's
// graph operation against it. The three commands differ only in which
// engine method they traverse with.
func newGraphCmd(use, short string, traverseFor func(*engine.Engine) func(context.Context, symbol.ID) ([]textindex.Hit, error)) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:     use + " <symbol>",
		Short:   short,
		Example: fmt.Sprintf("  codanna retrieve %s handleRequest", use),
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, func(ctx context.Context, eng *engine.Engine) error {
				matches, err := eng.FindSymbol(ctx, args[0], "", 1)
				if err != nil {
					return err
				}
				if len(matches) == 0 {
					return fmt.Errorf("symbol not found: %s", args[0])
				}
				hits, err := traverseFor(eng)(ctx, matches[0].SymbolID)
				if err != nil {
					return err
				}
				printHits(cmd, hits, format)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "Output format: text, json")
	return cmd
}

// withEngine opens the engine for the current project, runs fn, and
// always closes it, translating errors into the process exit codes
// `index` uses: 1 for any failure reaching the CLI boundary.
func withEngine(cmd *cobra.Command, fn func(ctx context.Context, eng *engine.Engine) error) error {
	ctx := cmd.Context()
	root := resolveRoot()
	eng, _, indexDir, err := openEngine(ctx, root)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "failed to open index at %s: %v\n", indexDir, err)
		os.Exit(1)
	}
	defer eng.Close()

	if err := fn(ctx, eng); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), err)
		os.Exit(1)
	}
	return nil
}

func printHits(cmd *cobra.Command, hits []textindex.Hit, format string) {
	if format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		_ = enc.Encode(hits)
		return
	}

	out := output.New(cmd.OutOrStdout())
	if len(hits) == 0 {
		out.Warning("no matches")
		return
	}
	for _, h := range hits {
		out.Statusf("•", "%s (%s) — %s [%s]", h.Name, h.Kind, h.FilePath, h.Language)
	}
}
