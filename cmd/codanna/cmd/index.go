package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/codanna-go/codanna/internal/engine"
	"github.com/codanna-go/codanna/internal/output"
	"github.com/codanna-go/codanna/internal/watcher"
)

func newIndexCmd() *cobra.Command {
	var (
		progress bool
		force    bool
		language string
		watch    bool
	)

	cmd := &cobra.Command{
		Use:   "index <path>",
		Short: "Index a file or directory tree",
		Long: `Index a file or directory tree, building or updating the symbol,
text, and vector indexes for the project.

With --watch, keeps running and re-indexes whenever a watched file
changes, until interrupted.

Exit codes: 0 on success, 2 on partial failure (some files
unparseable), 1 on a fatal error.`,
		Example: `  codanna index .
  codanna index . --force
  codanna index ./internal --language go
  codanna index . --watch`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if watch {
				return runIndexWatch(cmd, args[0], language)
			}
			return runIndex(cmd, args[0], progress, force, language)
		},
	}

	cmd.Flags().BoolVar(&progress, "progress", false, "Print progress lines while indexing")
	cmd.Flags().BoolVar(&force, "force", false, "Re-index every file regardless of content hash")
	cmd.Flags().StringVar(&language, "language", "", "Restrict indexing to one language id")
	cmd.Flags().BoolVar(&watch, "watch", false, "Keep running and re-index on file changes")

	return cmd
}

func runIndex(cmd *cobra.Command, path string, progress, force bool, language string) error {
	out := output.New(cmd.OutOrStdout())
	ctx := cmd.Context()

	root := resolveRoot()
	eng, _, indexDir, err := openEngine(ctx, root)
	if err != nil {
		out.Errorf("failed to open index at %s: %v", indexDir, err)
		os.Exit(1)
	}
	defer eng.Close()

	if progress {
		out.Statusf("→", "indexing %s", path)
	}

	stats, gen, err := eng.Index(ctx, path, engine.IndexOptions{Force: force, Language: language})
	if err != nil {
		out.Errorf("indexing failed: %v", err)
		os.Exit(1)
	}

	out.Successf("indexed %d files (%d new, %d unchanged, %d skipped), %d symbols, generation %d",
		stats.FilesWalked, stats.FilesIndexed, stats.FilesUnchanged, stats.FilesSkipped, stats.SymbolsTotal, gen.Number)

	if len(stats.Errors) > 0 {
		for _, e := range stats.Errors {
			out.Warningf("%s", e.Error())
		}
		fmt.Fprintln(cmd.ErrOrStderr())
		os.Exit(2)
	}

	return nil
}

// runIndexWatch runs an initial full index, then keeps re-indexing path
// on every debounced batch of file system changes until the process is
// interrupted. fsnotify backs the watcher where available and falls back
// to polling on filesystems that don't support it (network mounts,
// Docker volumes).
func runIndexWatch(cmd *cobra.Command, path, language string) error {
	out := output.New(cmd.OutOrStdout())
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := resolveRoot()
	eng, _, indexDir, err := openEngine(ctx, root)
	if err != nil {
		out.Errorf("failed to open index at %s: %v", indexDir, err)
		os.Exit(1)
	}
	defer eng.Close()

	reindex := func(force bool) {
		stats, gen, err := eng.Index(ctx, path, engine.IndexOptions{Force: force, Language: language})
		if err != nil {
			out.Errorf("indexing failed: %v", err)
			return
		}
		out.Successf("indexed %d files (%d new, %d unchanged, %d skipped), %d symbols, generation %d",
			stats.FilesWalked, stats.FilesIndexed, stats.FilesUnchanged, stats.FilesSkipped, stats.SymbolsTotal, gen.Number)
		for _, e := range stats.Errors {
			out.Warningf("%s", e.Error())
		}
	}

	reindex(false)

	w, err := watcher.NewHybridWatcher(watcher.DefaultOptions())
	if err != nil {
		out.Errorf("failed to start watcher: %v", err)
		os.Exit(1)
	}
	defer w.Stop()

	if err := w.Start(ctx, path); err != nil {
		out.Errorf("failed to watch %s: %v", path, err)
		os.Exit(1)
	}

	out.Statusf("→", "watching %s for changes (%s)", path, w.WatcherType())

	return watchLoop(ctx, w, reindex)
}

func watchLoop(ctx context.Context, w *watcher.HybridWatcher, reindex func(force bool)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case batch, ok := <-w.Events():
			if !ok {
				return nil
			}
			force := false
			for _, ev := range batch {
				if ev.Operation == watcher.OpConfigChange {
					force = true
				}
			}
			reindex(force)
		case err, ok := <-w.Errors():
			if !ok {
				continue
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "watch error: %v\n", err)
			}
		}
	}
}
