package vectorindex

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/codanna-go/codanna/internal/coordinator"
	"github.com/codanna-go/codanna/internal/symbol"
)

// Store implements coordinator.VectorStore and the query path consumed
// by internal/search: one IVF-Flat index per text-index segment,
// memory-mapped for reads, with k-means clustering triggered once a
// segment crosses Config.MinVectorsForClustering.
type Store struct {
	cfg Config

	mu         sync.Mutex
	segments   map[uint32]*segment
	tombstoned map[symbol.ID]bool
	// pendingUntombstone holds ids staged by StageAppend whose fresh
	// vector isn't visible yet (allCommitted only sees published bytes).
	// PublishStaged lifts their tombstone once the replacement is
	// actually visible; DiscardStaged drops them untouched, leaving a
	// modified symbol's prior vector tombstoned until the next
	// successful commit re-embeds it.
	pendingUntombstone []symbol.ID
	generation         atomic.Uint64

	cache *clusterCache
}

// Open opens (creating if absent) a Store rooted at cfg.Dir.
func Open(cfg Config) (*Store, error) {
	cfg = cfg.withDefaults()
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("vectorindex: Config.Dimensions must be positive")
	}
	cache, err := newClusterCache(4096)
	if err != nil {
		return nil, err
	}
	tombstoned, err := loadTombstones(cfg.Dir)
	if err != nil {
		return nil, err
	}
	return &Store{
		cfg:        cfg,
		segments:   make(map[uint32]*segment),
		tombstoned: tombstoned,
		cache:      cache,
	}, nil
}

func (s *Store) segmentFor(ord uint32) (*segment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seg, ok := s.segments[ord]; ok {
		return seg, nil
	}
	seg, err := openSegment(s.cfg.Dir, ord, s.cfg.Dimensions)
	if err != nil {
		return nil, err
	}
	s.segments[ord] = seg
	return seg, nil
}

// StageAppend writes payload bytes for appends without making them
// visible.
func (s *Store) StageAppend(_ context.Context, appends []coordinator.VectorAppend) error {
	if len(appends) == 0 {
		return nil
	}
	bySegment := make(map[uint32][]record)
	for _, a := range appends {
		bySegment[a.Segment] = append(bySegment[a.Segment], record{SymbolID: a.SymbolID, Vector: a.Vector})
	}
	for ord, recs := range bySegment {
		seg, err := s.segmentFor(ord)
		if err != nil {
			return err
		}
		if err := seg.append(recs); err != nil {
			return err
		}
	}

	s.mu.Lock()
	for _, a := range appends {
		s.pendingUntombstone = append(s.pendingUntombstone, a.SymbolID)
	}
	s.mu.Unlock()
	return nil
}

// Tombstone marks ids as removed. Actual space reclamation happens at
// segment merge — not implemented here as merges are out
// of scope for a single-process reference build.
func (s *Store) Tombstone(_ context.Context, ids []symbol.ID) error {
	if len(ids) == 0 {
		return nil
	}
	s.mu.Lock()
	for _, id := range ids {
		s.tombstoned[id] = true
	}
	snapshot := make(map[symbol.ID]bool, len(s.tombstoned))
	for id := range s.tombstoned {
		snapshot[id] = true
	}
	s.mu.Unlock()
	return saveTombstones(s.cfg.Dir, snapshot)
}

// PublishStaged fsyncs staged bytes and CASes each touched segment's
// header length, then reclusters any segment that
// has crossed the clustering threshold or exceeded the drift budget.
func (s *Store) PublishStaged(_ context.Context) error {
	s.mu.Lock()
	segs := make([]*segment, 0, len(s.segments))
	for _, seg := range s.segments {
		segs = append(segs, seg)
	}
	s.mu.Unlock()

	for _, seg := range segs {
		if err := seg.publish(); err != nil {
			return fmt.Errorf("publish segment %d: %w", seg.ord, err)
		}
		if err := s.maybeCluster(seg); err != nil {
			return fmt.Errorf("cluster segment %d: %w", seg.ord, err)
		}
	}

	// The vectors just published are now visible to Query; lift the
	// tombstone on any id that got a fresh record in this batch (a
	// modified symbol reuses its id, so Phase 1 tombstoned the stale
	// record and this is the moment the replacement takes its place).
	// An id that was also removed (no replacement appended) was never
	// added to pendingUntombstone and stays tombstoned.
	s.mu.Lock()
	pending := s.pendingUntombstone
	s.pendingUntombstone = nil
	if len(pending) > 0 {
		for _, id := range pending {
			delete(s.tombstoned, id)
		}
	}
	snapshot := make(map[symbol.ID]bool, len(s.tombstoned))
	for id := range s.tombstoned {
		snapshot[id] = true
	}
	s.mu.Unlock()
	if len(pending) > 0 {
		if err := saveTombstones(s.cfg.Dir, snapshot); err != nil {
			return fmt.Errorf("save tombstones: %w", err)
		}
	}

	s.generation.Add(1)
	return nil
}

// DiscardStaged truncates any not-yet-published staged bytes (used by
// Recover after a simulated or real crash between Phase 1 and Phase 2).
func (s *Store) DiscardStaged(_ context.Context) error {
	s.mu.Lock()
	segs := make([]*segment, 0, len(s.segments))
	for _, seg := range s.segments {
		segs = append(segs, seg)
	}
	s.mu.Unlock()

	for _, seg := range segs {
		if err := seg.discard(); err != nil {
			return err
		}
	}

	// Drop the pending un-tombstone list without touching s.tombstoned:
	// the appends just discarded never became visible, so any id
	// tombstoned in Phase 1 for this batch correctly stays tombstoned
	// until a future successful commit re-embeds it.
	s.mu.Lock()
	s.pendingUntombstone = nil
	s.mu.Unlock()
	return nil
}

// maybeCluster runs k-means over seg's committed vectors when it first
// crosses MinVectorsForClustering, or when drift since the last
// clustering exceeds DriftThreshold.
func (s *Store) maybeCluster(seg *segment) error {
	n := seg.recordCount()
	if n < s.cfg.MinVectorsForClustering {
		return nil
	}

	existing, ok, err := loadCentroids(s.cfg.Dir, seg.ord)
	if err != nil {
		return err
	}
	if ok {
		drift := float64(n-existing.VectorCount) / float64(existing.VectorCount)
		if drift < s.cfg.DriftThreshold {
			return nil
		}
	}

	recs, err := seg.allCommitted()
	if err != nil {
		return err
	}
	vectors := make([][]float32, len(recs))
	for i, r := range recs {
		vectors[i] = r.Vector
	}

	k := clusterCountFor(n)
	centroids := kmeans(vectors, k, int64(seg.ord), 25)
	return saveCentroids(s.cfg.Dir, seg.ord, centroidSet{Centroids: centroids, VectorCount: n})
}

// Query embeds are supplied by the caller: score against every
// segment's centroids, probe the nearest TopClusters clusters per
// segment, exact-score their members, and return the global top-N.
// Segments with no centroids yet (below the clustering threshold) are
// scanned in full — the only form of "no clustering" the index ever
// does is defaulting to brute force for small corpora.
func (s *Store) Query(_ context.Context, query []float32, topN int) ([]ScoredVector, error) {
	s.mu.Lock()
	segs := make([]*segment, 0, len(s.segments))
	for _, seg := range s.segments {
		segs = append(segs, seg)
	}
	tombstoned := make(map[symbol.ID]bool, len(s.tombstoned))
	for id := range s.tombstoned {
		tombstoned[id] = true
	}
	s.mu.Unlock()

	var all []ScoredVector
	for _, seg := range segs {
		scored, err := s.queryOneSegment(seg, query, tombstoned)
		if err != nil {
			return nil, err
		}
		all = append(all, scored...)
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].Score != all[j].Score {
			return all[i].Score > all[j].Score
		}
		return all[i].SymbolID < all[j].SymbolID // deterministic tiebreak
	})
	if topN > 0 && len(all) > topN {
		all = all[:topN]
	}
	return all, nil
}

func (s *Store) queryOneSegment(seg *segment, query []float32, tombstoned map[symbol.ID]bool) ([]ScoredVector, error) {
	cs, ok, err := loadCentroids(s.cfg.Dir, seg.ord)
	if err != nil {
		return nil, err
	}
	if !ok {
		return s.scanSegment(seg, query, tombstoned)
	}

	type ranked struct {
		cluster int
		score   float32
	}
	ranks := make([]ranked, len(cs.Centroids))
	for i, c := range cs.Centroids {
		ranks[i] = ranked{cluster: i, score: cosineSimilarity(query, c)}
	}
	sort.Slice(ranks, func(i, j int) bool { return ranks[i].score > ranks[j].score })

	probe := s.cfg.TopClusters
	if probe > len(ranks) {
		probe = len(ranks)
	}

	probeSet := make(map[int]bool, probe)
	for _, r := range ranks[:probe] {
		probeSet[r.cluster] = true
	}

	recs, err := seg.allCommitted()
	if err != nil {
		return nil, err
	}
	var out []ScoredVector
	for _, r := range recs {
		if tombstoned[r.SymbolID] {
			continue
		}
		if !probeSet[nearestCentroid(r.Vector, cs.Centroids)] {
			continue
		}
		out = append(out, ScoredVector{SymbolID: r.SymbolID, Score: cosineSimilarity(query, r.Vector)})
	}
	return out, nil
}

func (s *Store) scanSegment(seg *segment, query []float32, tombstoned map[symbol.ID]bool) ([]ScoredVector, error) {
	recs, err := seg.allCommitted()
	if err != nil {
		return nil, err
	}
	out := make([]ScoredVector, 0, len(recs))
	for _, r := range recs {
		if tombstoned[r.SymbolID] {
			continue
		}
		out = append(out, ScoredVector{SymbolID: r.SymbolID, Score: cosineSimilarity(query, r.Vector)})
	}
	return out, nil
}

// Generation returns the current publish generation, advanced once per
// PublishStaged call.
func (s *Store) Generation() uint64 { return s.generation.Load() }

// Close releases every open segment's file handle and mmap.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var firstErr error
	for _, seg := range s.segments {
		if err := seg.close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

var _ coordinator.VectorStore = (*Store)(nil)
