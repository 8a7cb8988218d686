package cmd

import (
	"context"
	"os"
	"path/filepath"

	"github.com/codanna-go/codanna/internal/config"
	"github.com/codanna-go/codanna/internal/engine"
)

// defaultIndexDirName is where an index lives relative to a project
// root absent a CODANNA_INDEX_DIR override.
const defaultIndexDirName = ".codanna"

// resolveRoot finds the project root by walking up from the current
// directory looking for recognized project markers, falling back to
// the current directory.
func resolveRoot() string {
	root, err := config.FindProjectRoot(".")
	if err != nil {
		root, _ = os.Getwd()
	}
	return root
}

// resolveConfig loads configuration for root, honoring CODANNA_CONFIG
// by loading that file's directory instead of
// root's when set.
func resolveConfig(root string) (*config.Config, error) {
	dir := root
	if path, ok := config.ConfigFileOverride(); ok {
		dir = filepath.Dir(path)
	}
	return config.Load(dir)
}

// resolveIndexDir returns the index directory for root, honoring
// CODANNA_INDEX_DIR.
func resolveIndexDir(root string) string {
	if dir, ok := config.IndexDirOverride(); ok {
		return dir
	}
	return filepath.Join(root, defaultIndexDirName)
}

// openEngine resolves root/config/index-dir and opens the engine,
// the one setup sequence every data-touching subcommand shares.
func openEngine(ctx context.Context, root string) (*engine.Engine, *config.Config, string, error) {
	cfg, err := resolveConfig(root)
	if err != nil {
		return nil, nil, "", err
	}
	indexDir := resolveIndexDir(root)
	eng, err := engine.Open(ctx, indexDir, cfg)
	if err != nil {
		return nil, nil, "", err
	}
	return eng, cfg, indexDir, nil
}
