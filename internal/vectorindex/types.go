// Package vectorindex implements the IVF-Flat approximate nearest
// neighbor store: one D-dimensional vector per vector-eligible symbol,
// grouped by text-index segment into a memory-mapped `segment-{S}.vec`
// file with k-means cluster assignment
// recorded alongside, plus a companion `segment-{S}.centroids` file.
package vectorindex

import "github.com/codanna-go/codanna/internal/symbol"

// Config controls a Store's dimensionality and clustering thresholds.
type Config struct {
	Dir        string
	Dimensions int
	// MinVectorsForClustering is the threshold below which a segment is
	// searched by brute force instead of clustered. Default 1000.
	MinVectorsForClustering int
	// TopClusters is the number of nearest clusters probed per query
	//.
	TopClusters int
	// DriftThreshold triggers re-clustering once a segment has received
	// this fraction of new vectors since its last clustering.
	DriftThreshold float64
}

func (c Config) withDefaults() Config {
	if c.MinVectorsForClustering <= 0 {
		c.MinVectorsForClustering = 1000
	}
	if c.TopClusters <= 0 {
		c.TopClusters = 8
	}
	if c.DriftThreshold <= 0 {
		c.DriftThreshold = 0.20
	}
	return c
}

// record is one packed {symbol_id, vector} entry in a segment's .vec
// file payload region.
type record struct {
	SymbolID symbol.ID
	Vector   []float32
}

// ScoredVector is one result from Store.Query, ready for search fusion to combine with
// text-search hits.
type ScoredVector struct {
	SymbolID symbol.ID
	Score    float32 // cosine similarity, higher is better
}
