package vectorindex

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"github.com/codanna-go/codanna/internal/symbol"
)

func tombstonesPath(dir string) string {
	return filepath.Join(dir, "tombstones.gob")
}

func loadTombstones(dir string) (map[symbol.ID]bool, error) {
	f, err := os.Open(tombstonesPath(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[symbol.ID]bool), nil
		}
		return nil, fmt.Errorf("open tombstones: %w", err)
	}
	defer f.Close()

	var ids []symbol.ID
	if err := gob.NewDecoder(f).Decode(&ids); err != nil {
		return nil, fmt.Errorf("decode tombstones: %w", err)
	}
	out := make(map[symbol.ID]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

// saveTombstones persists the full tombstone set atomically, using the
// same write-temp-then-rename idiom as centroids.go and the coordinator
// undo log.
func saveTombstones(dir string, set map[symbol.ID]bool) error {
	path := tombstonesPath(dir)
	tmp := path + ".tmp"

	ids := make([]symbol.ID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}

	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create tombstones temp file: %w", err)
	}
	if err := gob.NewEncoder(f).Encode(ids); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("encode tombstones: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("fsync tombstones: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close tombstones temp file: %w", err)
	}
	return os.Rename(tmp, path)
}
