package cmd

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/codanna-go/codanna/internal/engine"
	"github.com/codanna-go/codanna/internal/output"
	"github.com/codanna-go/codanna/internal/search"
)

func newSearchCmd() *cobra.Command {
	var (
		k          int
		language   string
		kind       string
		filePrefix string
		format     string
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Hybrid BM25 + vector search over the indexed codebase",
		Long: `Search the indexed codebase using hybrid search: BM25 (keyword) and
vector (semantic) candidates fused with the configured strategy
(Reciprocal Rank Fusion by default).`,
		Example: `  codanna search "parse config file"
  codanna search "hybrid fusion" --k 5 --language go
  codanna search "worker pool" --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return withEngine(cmd, func(ctx context.Context, eng *engine.Engine) error {
				result, err := eng.Search(ctx, query, k, search.Filters{
					Language:   language,
					Kind:       kind,
					FilePrefix: filePrefix,
				})
				if err != nil {
					return err
				}
				printResult(cmd, result, format)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&k, "k", 10, "Maximum number of results")
	cmd.Flags().StringVar(&language, "language", "", "Filter by language id")
	cmd.Flags().StringVar(&kind, "kind", "", "Filter by symbol kind")
	cmd.Flags().StringVar(&filePrefix, "file-prefix", "", "Filter by file path prefix")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text, json")

	return cmd
}

func printResult(cmd *cobra.Command, result search.Result, format string) {
	if format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)
		return
	}

	out := output.New(cmd.OutOrStdout())
	if result.Partial {
		out.Warning("result is partial (latency budget exceeded)")
	}
	if len(result.Symbols) == 0 {
		out.Warning("no results")
		return
	}
	for _, s := range result.Symbols {
		out.Statusf("•", "%.3f  %s (%s) — %s", s.Score, s.Name, s.Kind, s.FilePath)
	}
}
