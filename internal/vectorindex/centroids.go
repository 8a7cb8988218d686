package vectorindex

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
)

// centroidSet is one segment's clustering state, persisted to
// segment-{S}.centroids. VectorCount records how many
// vectors the centroids were computed from, used to compute drift.
type centroidSet struct {
	Centroids   [][]float32
	VectorCount int
}

func centroidsPath(dir string, ord uint32) string {
	return filepath.Join(dir, fmt.Sprintf("segment-%d.centroids", ord))
}

// loadCentroids returns the persisted centroid set, or ok=false if the
// segment has not been clustered yet (below the T threshold).
func loadCentroids(dir string, ord uint32) (centroidSet, bool, error) {
	f, err := os.Open(centroidsPath(dir, ord))
	if err != nil {
		if os.IsNotExist(err) {
			return centroidSet{}, false, nil
		}
		return centroidSet{}, false, fmt.Errorf("open centroids for segment %d: %w", ord, err)
	}
	defer f.Close()

	var cs centroidSet
	if err := gob.NewDecoder(f).Decode(&cs); err != nil {
		return centroidSet{}, false, fmt.Errorf("decode centroids for segment %d: %w", ord, err)
	}
	return cs, true, nil
}

// saveCentroids writes cs atomically using the same write-temp-then-
// rename pattern internal/coordinator's undo log also uses.
func saveCentroids(dir string, ord uint32, cs centroidSet) error {
	path := centroidsPath(dir, ord)
	tmp := path + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create centroids temp file: %w", err)
	}
	if err := gob.NewEncoder(f).Encode(cs); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("encode centroids: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("fsync centroids: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close centroids temp file: %w", err)
	}
	return os.Rename(tmp, path)
}
