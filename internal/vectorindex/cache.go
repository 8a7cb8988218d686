package vectorindex

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/codanna-go/codanna/internal/symbol"
)

// clusterEntry is one cached {symbol_id, vector-offset} pair.
type clusterEntry struct {
	SymbolID symbol.ID
	Offset   int
}

type cacheKey struct {
	Segment    uint32
	ClusterID  int
	Generation uint64
}

// clusterCache is the in-process map `SegmentOrd -> {ClusterId ->
// [SymbolId, vector-offset]}`, rebuilt lazily on reader-generation change
// and keyed so that a generation bump invalidates stale entries without
// an explicit sweep (old-generation keys simply age out of the LRU).
type clusterCache struct {
	entries *lru.Cache[cacheKey, []clusterEntry]
}

func newClusterCache(size int) (*clusterCache, error) {
	if size <= 0 {
		size = 4096
	}
	c, err := lru.New[cacheKey, []clusterEntry](size)
	if err != nil {
		return nil, err
	}
	return &clusterCache{entries: c}, nil
}

func (c *clusterCache) get(seg uint32, cluster int, generation uint64) ([]clusterEntry, bool) {
	return c.entries.Get(cacheKey{Segment: seg, ClusterID: cluster, Generation: generation})
}

func (c *clusterCache) put(seg uint32, cluster int, generation uint64, entries []clusterEntry) {
	c.entries.Add(cacheKey{Segment: seg, ClusterID: cluster, Generation: generation}, entries)
}
